package core

import "errors"

// Sentinel error kinds returned by the migration engine's components, per
// spec.md §7. Callers use errors.Is against these to distinguish failure
// classes without depending on error message text; each component wraps
// one of these with %w alongside the specific table/column/statement that
// failed.
var (
	// ErrConfigInvalid indicates the supplied configuration failed
	// validation before any connection was attempted.
	ErrConfigInvalid = errors.New("core: invalid configuration")

	// ErrConnectFailed indicates the Connection Registry (C1) could not
	// establish or re-establish a connection to either database.
	ErrConnectFailed = errors.New("core: connection failed")

	// ErrSchemaRead indicates the Schema Reader (C3) failed to read a
	// table's catalog metadata.
	ErrSchemaRead = errors.New("core: schema read failed")

	// ErrDdlEmit indicates the DDL Emitter (C4) produced or applied a
	// statement that the target rejected.
	ErrDdlEmit = errors.New("core: ddl emission failed")

	// ErrRowConvert indicates a row's value failed conversion (C2) and the
	// row could not be migrated even under per-row fallback.
	ErrRowConvert = errors.New("core: row conversion failed")

	// ErrBatchInsert indicates a batch insert (C7) failed for a reason
	// other than a single bad row, and was not retried successfully.
	ErrBatchInsert = errors.New("core: batch insert failed")

	// ErrRowInsert indicates a single row, retried individually after a
	// batch failure, was itself rejected by the target.
	ErrRowInsert = errors.New("core: row insert failed")

	// ErrOrphanedFK indicates the FK Validator (C9) found rows whose
	// foreign key value has no matching row in the referenced table.
	ErrOrphanedFK = errors.New("core: orphaned foreign key reference")

	// ErrIndexCreate indicates index or foreign key constraint creation
	// failed after data load.
	ErrIndexCreate = errors.New("core: index or constraint creation failed")

	// ErrValidationMismatch indicates the Post-Validator (C10) found a
	// row count or sampled content mismatch between source and target.
	ErrValidationMismatch = errors.New("core: post-load validation mismatch")

	// ErrCancelled indicates the migration was stopped by context
	// cancellation (operator interrupt or deadline) rather than failure.
	ErrCancelled = errors.New("core: migration cancelled")
)
