package stream

// Cursor is the sum type spec.md §9 calls for so the "first call omits the
// WHERE clause" edge case is a type-level distinction rather than a
// sentinel value smuggled through the same field that carries a real
// primary key. A zero Cursor is not meaningful on its own — always obtain
// one via Start or At.
type Cursor struct {
	started bool
	value   any
}

// Start returns the cursor for the first fetch against a table: no row has
// been read yet, so the streamer must omit the "pk > :cursor" predicate
// entirely rather than inventing a "smallest possible value" sentinel.
func Start() Cursor {
	return Cursor{started: false}
}

// At returns the cursor positioned just after the given primary key value,
// i.e. the value of the last row returned by the previous chunk.
func At(value any) Cursor {
	return Cursor{started: true, value: value}
}

// Started reports whether this cursor has already advanced past at least
// one row.
func (c Cursor) Started() bool {
	return c.started
}

// Value returns the primary key value to compare against. Calling it on a
// cursor for which Started() is false is a programmer error; callers must
// branch on Started() first.
func (c Cursor) Value() any {
	return c.value
}
