package migrator

// Budget holds the memory-derived sizing inputs spec.md §5 specifies. M is
// the configured process-wide memory envelope in bytes.
type Budget struct {
	M                     int64
	ChunkSizeConfigured   int
	LargeTableChunkSize   int
	LargeTableThresholdMB int64
}

const (
	fetchBytesPerRow  = 4 * 1024 // 4 KiB/row, conservative fetch estimate
	insertBytesPerRow = 2 * 1024 // 2 KiB/row, conservative insert estimate
)

// ChunkSize computes the fetch chunk size for a table of the given
// estimated size in megabytes, per spec.md §5's clamp formula: tables over
// LargeTableThresholdMB get LargeTableChunkSize as their pre-clamp cap, and
// a small overall memory budget (≤150 MiB) additionally caps at 2000 rows.
func (b Budget) ChunkSize(tableSizeMB int64) int {
	ceiling := b.ChunkSizeConfigured
	if b.LargeTableThresholdMB > 0 && tableSizeMB > b.LargeTableThresholdMB && b.LargeTableChunkSize > 0 {
		ceiling = b.LargeTableChunkSize
	}

	computed := int((float64(b.M) * 0.2) / fetchBytesPerRow)
	size := clampInt(computed, 100, ceiling)

	const smallBudget = 150 * 1024 * 1024
	if b.M <= smallBudget && size > 2000 {
		size = 2000
	}
	return size
}

// BatchSize computes the Bulk Writer's per-batch row count, per spec.md §5.
func (b Budget) BatchSize() int {
	computed := int((float64(b.M) * 0.3) / insertBytesPerRow)
	return clampInt(computed, 100, 1000)
}

// GCInterval returns how many chunks should elapse between explicit
// garbage-collection prompts: every chunk under a tight 128 MiB budget,
// every 5 chunks otherwise (spec.md §5).
func (b Budget) GCInterval() int {
	const tightBudget = 128 * 1024 * 1024
	if b.M <= tightBudget {
		return 1
	}
	return 5
}

func clampInt(v, lo, hi int) int {
	if hi > 0 && v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
