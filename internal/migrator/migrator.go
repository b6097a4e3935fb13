// Package migrator implements the Data Migrator (C8): the hot loop that
// drives C5-C7 for one table at a time — checkpoint-seeded cursor,
// chunk-size computation from the memory budget,
// fetch-convert-write-advance, periodic checkpoint persistence, and
// checkpoint deletion on completion — per spec.md §4.6. The table's row
// count is taken by the Orchestrator before MigrateTable is called.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"smf/internal/checkpoint"
	"smf/internal/core"
	"smf/internal/logging"
	"smf/internal/metrics"
	"smf/internal/stream"
	"smf/internal/writer"
)

// Migrator drives one table's data migration through the streamer, the
// value converter, and the bulk writer.
type Migrator struct {
	Streamer    *stream.Streamer
	Writer      *writer.Writer
	Checkpoints *checkpoint.Store
	Metrics     *metrics.Metrics
	Logger      *logging.Logger
	Budget      Budget
	// CheckpointInterval is the number of chunks between persisted
	// checkpoints (config key migration.checkpoint_interval).
	CheckpointInterval int
}

// New returns a Migrator with the given collaborators wired in.
func New(streamer *stream.Streamer, w *writer.Writer, checkpoints *checkpoint.Store, m *metrics.Metrics, logger *logging.Logger, budget Budget, checkpointInterval int) *Migrator {
	if checkpointInterval <= 0 {
		checkpointInterval = 100
	}
	return &Migrator{
		Streamer:           streamer,
		Writer:             w,
		Checkpoints:        checkpoints,
		Metrics:            m,
		Logger:             logger,
		Budget:             budget,
		CheckpointInterval: checkpointInterval,
	}
}

// Result summarizes one table's migration.
type Result struct {
	RowsWritten int64
	RowsSkipped int64
}

// MigrateTable streams table from sourcePool into targetConn, converting
// every value via C2's ConvertValue before handing it to the Bulk Writer.
// resume seeds the cursor/offset from a persisted Checkpoint when present
// (spec.md §4.6 step 1); runID tags any checkpoint this call writes.
// tableSizeMB is the PG-reported table size used for the chunk-size
// ceiling (spec.md §5's "large table" cap).
func (m *Migrator) MigrateTable(ctx context.Context, sourcePool *pgxpool.Pool, targetConn *sql.Conn, table *core.Table, filter *core.RowFilter, resume bool, runID string, tableSizeMB int64) (Result, error) {
	columns := make([]string, len(table.Columns))
	kinds := make([]core.ColumnKind, len(table.Columns))
	for i, c := range table.Columns {
		columns[i] = c.Name
		kinds[i] = c.Kind
	}

	mode := stream.ModeFor(table)
	chunkSize := m.Budget.ChunkSize(tableSizeMB)
	batchSize := m.Budget.BatchSize()
	gcInterval := m.Budget.GCInterval()

	cursor, offset, err := m.seed(table, mode, resume)
	if err != nil {
		return Result{}, err
	}

	var result Result
	chunkNum := 0
	for {
		start := time.Now()
		var (
			rawRows    [][]any
			nextCursor stream.Cursor
			nextOffset int64
		)

		switch mode {
		case stream.ModeCursor:
			pkCol, _ := table.SinglePrimaryKeyColumn()
			chunk, err := m.Streamer.FetchCursor(ctx, sourcePool, table.Name, columns, pkCol, cursor, chunkSize, filter)
			if err != nil {
				return result, err
			}
			for _, r := range chunk.Rows {
				rawRows = append(rawRows, r.Values)
			}
			nextCursor = chunk.Next
		default:
			orderCol := columns[0]
			chunk, err := m.Streamer.FetchOffset(ctx, sourcePool, table.Name, columns, orderCol, offset, chunkSize, filter)
			if err != nil {
				return result, err
			}
			for _, r := range chunk.Rows {
				rawRows = append(rawRows, r.Values)
			}
			nextOffset = chunk.NextOffset
		}

		if len(rawRows) == 0 {
			break
		}

		converted, skipped, err := convertRows(m.Logger, table.Name, kinds, rawRows)
		if err != nil {
			return result, fmt.Errorf("%w: table %q: %w", core.ErrRowConvert, table.Name, err)
		}
		result.RowsSkipped += int64(skipped)

		written, writeErr := m.writeInBatches(ctx, targetConn, table.Name, columns, converted, batchSize)
		result.RowsWritten += int64(written)

		if m.Metrics != nil {
			m.Metrics.ObserveChunk(table.Name, time.Since(start).Seconds(), written, skipped)
		}
		if writeErr != nil && m.Logger != nil {
			m.Logger.Progress(fmt.Sprintf("table %s: chunk partially failed: %v", table.Name, writeErr))
		}

		switch mode {
		case stream.ModeCursor:
			cursor = nextCursor
		default:
			offset = nextOffset
		}

		if len(rawRows) < chunkSize {
			break
		}

		chunkNum++
		if chunkNum%m.CheckpointInterval == 0 {
			if err := m.persist(table.Name, runID, mode, cursor, offset, chunkSize); err != nil {
				return result, err
			}
		}
		if chunkNum%gcInterval == 0 {
			runtime.GC()
		}
	}

	if m.Checkpoints != nil {
		if err := m.Checkpoints.Delete(table.Name); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (m *Migrator) seed(table *core.Table, mode stream.Mode, resume bool) (stream.Cursor, int64, error) {
	if !resume || m.Checkpoints == nil {
		return stream.Start(), 0, nil
	}

	cp, ok, err := m.Checkpoints.Load(table.Name)
	if err != nil {
		return stream.Cursor{}, 0, err
	}
	if !ok {
		return stream.Start(), 0, nil
	}

	if mode == stream.ModeOffset || cp.IsOffset {
		offset, _ := cp.CursorValue.(float64)
		return stream.Cursor{}, int64(offset), nil
	}
	return stream.At(normalizeCursorValue(cp.CursorValue)), 0, nil
}

// normalizeCursorValue undoes JSON's float64-for-every-number rounding so an
// integer primary key survives a checkpoint round-trip as an integer rather
// than being compared against a float64 in the next cursor-mode query.
func normalizeCursorValue(v any) any {
	f, ok := v.(float64)
	if !ok || f != float64(int64(f)) {
		return v
	}
	return int64(f)
}

func (m *Migrator) persist(table, runID string, mode stream.Mode, cursor stream.Cursor, offset int64, chunkSize int) error {
	if m.Checkpoints == nil {
		return nil
	}
	cp := &checkpoint.Checkpoint{
		TableName: table,
		RunID:     runID,
		ChunkSize: chunkSize,
	}
	if mode == stream.ModeOffset {
		cp.IsOffset = true
		cp.CursorValue = offset
	} else if cursor.Started() {
		cp.CursorValue = cursor.Value()
	}
	return m.Checkpoints.Save(cp)
}

func (m *Migrator) writeInBatches(ctx context.Context, conn *sql.Conn, table string, columns []string, rows [][]any, batchSize int) (written int, err error) {
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		res, werr := m.Writer.WriteBatch(ctx, conn, table, columns, rows[i:end])
		written += res.Inserted
		if werr != nil {
			err = werr
		}
	}
	return written, err
}

// convertRows applies core.ConvertValue to every value in every row,
// replacing an unconvertible value with NULL and counting it as skipped
// rather than aborting the whole chunk (spec.md §7 RowConvert policy). A
// row that had any value NULL-substituted this way, or any timestamp
// folded to core.SentinelEpoch, logs exactly one WARNING identifying the
// row and table.
func convertRows(logger *logging.Logger, table string, kinds []core.ColumnKind, rows [][]any) (converted [][]any, skipped int, err error) {
	converted = make([][]any, len(rows))
	for i, row := range rows {
		out := make([]any, len(row))
		sentineled := false
		for j, v := range row {
			kind := core.ColumnKindOther
			if j < len(kinds) {
				kind = kinds[j]
			}
			cv, cerr := core.ConvertValue(kind, v)
			if cerr != nil {
				out[j] = nil
				skipped++
				sentineled = true
				continue
			}
			if kind == core.ColumnKindTimestamp {
				if ts, ok := cv.(time.Time); ok && ts.Equal(core.SentinelEpoch) {
					sentineled = true
				}
			}
			out[j] = cv
		}
		if sentineled && logger != nil {
			logger.Warn(fmt.Sprintf("table %s: row %d had a value sentinel/NULL-substituted during conversion", table, i))
		}
		converted[i] = out
	}
	return converted, skipped, nil
}
