// Package orchestrator implements the Orchestrator (C11): it sequences
// schema creation, data migration, and post-load validation across every
// table in a run, per spec.md §4.9. Its modes are full, schema-only and
// data-only. The per-table states are Pending, Counting, Streaming,
// Completed and Failed: a table is counted, then streamed, and ends
// Completed, or Failed when either its row count or its migration
// returns an error. Checkpoint saves happen within Streaming and have no
// state of their own. The data-only "probe missing tables" step reuses
// internal/diff.Diff verbatim, diffing the translated source schema
// against the introspected target schema and treating AddedTables as the
// missing-table set.
package orchestrator

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"smf/internal/apply"
	"smf/internal/checkpoint"
	"smf/internal/config"
	"smf/internal/connreg"
	"smf/internal/core"
	"smf/internal/dialect"
	"smf/internal/dialect/mysql"
	"smf/internal/diff"
	introspectmysql "smf/internal/introspect/mysql"
	"smf/internal/introspect/postgresql"
	"smf/internal/logging"
	"smf/internal/metrics"
	"smf/internal/migrator"
	"smf/internal/output"
	"smf/internal/stream"
	"smf/internal/validate"
	"smf/internal/writer"
)

// Mode selects which phases of a run execute, per spec.md §4.9.
type Mode string

const (
	ModeFull       Mode = "full"
	ModeSchemaOnly Mode = "schema-only"
	ModeDataOnly   Mode = "data-only"
)

// TableState is the per-table data-phase state spec.md §4.9 names.
type TableState string

const (
	StatePending   TableState = "pending"
	StateCounting  TableState = "counting"
	StateStreaming TableState = "streaming"
	StateCompleted TableState = "completed"
	StateFailed    TableState = "failed"
)

// Options configures one Orchestrator run.
type Options struct {
	Mode        Mode
	DryRun      bool
	Resume      bool
	SkipIndexes bool
	Filter      *core.RowFilter
	FindMissing bool
	Tables      []string
	SkipTables  []string
	Out         io.Writer
}

// TableOutcome is the final record of one table's data-phase run.
type TableOutcome struct {
	Table       string
	State       TableState
	RowsWritten int64
	RowsSkipped int64
	Err         error
}

// Report summarizes a completed (or dry-run) Orchestrator invocation.
type Report struct {
	Mode             Mode
	MissingTables    []string
	PlanSQL          []string
	TableOutcomes    []TableOutcome
	OrphanWarnings   []*validate.OrphanResult
	ValidationResult []*validate.TableResult
	MissingRows      map[string][]validate.MissingRow
}

// Orchestrator sequences the phases of one migration run.
type Orchestrator struct {
	Registry      *connreg.Registry
	Config        *config.Config
	Migrator      *migrator.Migrator
	Metrics       *metrics.Metrics
	Logger        *logging.Logger
	FKValidator   *validate.FKValidator
	PostValidator *validate.PostValidator
	Streamer      *stream.Streamer
	RunID         string
}

// New builds an Orchestrator from its collaborators, all of which must
// already be constructed (Registry connected lazily on first use).
func New(reg *connreg.Registry, cfg *config.Config, mig *migrator.Migrator, met *metrics.Metrics, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		Registry:      reg,
		Config:        cfg,
		Migrator:      mig,
		Metrics:       met,
		Logger:        log,
		FKValidator:   validate.NewFKValidator(),
		PostValidator: validate.NewPostValidator(),
		Streamer:      stream.New(),
		RunID:         checkpoint.NewRunID(),
	}
}

// Run executes one migration according to opts, driving schema creation,
// data load, and post-load validation as the mode requires.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	sourceDB, err := o.Registry.SourceDB(ctx)
	if err != nil {
		return nil, err
	}
	targetDB, err := o.Registry.Target(ctx)
	if err != nil {
		return nil, err
	}

	include, exclude := o.Config.ResolvedTables(opts.Tables, opts.SkipTables)
	sourceIntrospecter := postgresql.NewWithFilter(o.Config.Source.Schema, include, exclude)
	translatedSource, err := sourceIntrospecter.Introspect(ctx, sourceDB)
	if err != nil {
		return nil, err
	}

	targetIntrospecter := introspectmysql.New()
	actualTarget, err := targetIntrospecter.Introspect(ctx, targetDB)
	if err != nil {
		return nil, err
	}

	schemaDiff := diff.Diff(actualTarget, translatedSource, diff.DefaultOptions())

	report := &Report{Mode: opts.Mode}
	for _, t := range schemaDiff.AddedTables {
		report.MissingTables = append(report.MissingTables, t.Name)
	}
	sort.Strings(report.MissingTables)

	generator := mysql.NewMySQLGenerator()
	genOpts := dialect.DefaultMigrationOptions(dialect.MySQL)
	schemaPlan := generator.GenerateSchemaPlan(schemaDiff, genOpts)
	report.PlanSQL = o.previewPlanSQL(generator, schemaPlan, opts.SkipIndexes)

	if opts.DryRun {
		if err := o.printPlan(opts.Out, schemaDiff); err != nil {
			return nil, err
		}
		return report, nil
	}

	if opts.Mode == ModeFull || opts.Mode == ModeSchemaOnly {
		if err := o.applyStatements(ctx, schemaPlan.Statements); err != nil {
			return nil, fmt.Errorf("%w: applying schema plan: %w", core.ErrDdlEmit, err)
		}
	}

	if opts.Mode == ModeSchemaOnly {
		return report, nil
	}

	tablesToMigrate := translatedSource.Tables
	outcomes, err := o.migrateTables(ctx, tablesToMigrate, opts)
	report.TableOutcomes = outcomes
	if err != nil {
		return report, err
	}

	if !opts.SkipIndexes {
		if err := o.applyDeferredIndexes(ctx, generator, schemaPlan.Indexes); err != nil {
			return report, fmt.Errorf("%w: applying deferred indexes: %w", core.ErrDdlEmit, err)
		}
	}
	if err := o.applyDeferredForeignKeys(ctx, generator, targetDB, schemaPlan.ForeignKeys, report); err != nil {
		return report, fmt.Errorf("%w: applying deferred foreign keys: %w", core.ErrDdlEmit, err)
	}

	if err := o.validateData(ctx, sourceDB, targetDB, tablesToMigrate, opts, report); err != nil {
		return report, err
	}

	return report, nil
}

// previewPlanSQL renders the full statement set a run will execute,
// including the indexes and foreign keys that are actually applied after
// data load, for --dry-run reporting and Report.PlanSQL.
func (o *Orchestrator) previewPlanSQL(generator *mysql.Generator, plan *mysql.SchemaPlan, skipIndexes bool) []string {
	out := append([]string{}, plan.Statements...)
	if !skipIndexes {
		for _, di := range plan.Indexes {
			if stmt := generator.CreateIndex(&core.Table{Name: di.TableName}, di.Index); stmt != "" {
				out = append(out, stmt)
			}
		}
	}
	for _, fk := range plan.ForeignKeys {
		if stmt := generator.AddForeignKey(&core.Table{Name: fk.TableName}, fk.Constraint); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func (o *Orchestrator) printPlan(w io.Writer, schemaDiff *diff.SchemaDiff) error {
	if w == nil {
		return nil
	}
	formatter, err := output.NewFormatter("sql")
	if err != nil {
		return err
	}
	diffText, err := formatter.FormatDiff(schemaDiff)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, diffText)
	return err
}

func (o *Orchestrator) applyStatements(ctx context.Context, statements []string) error {
	if len(statements) == 0 {
		return nil
	}
	target := connreg.TargetConfig{
		Host:      o.Config.Target.Host,
		Port:      o.Config.Target.Port,
		Database:  o.Config.Target.Database,
		User:      o.Config.Target.User,
		Password:  o.Config.Target.Password,
		Charset:   o.Config.Target.Charset,
		Collation: o.Config.Target.Collation,
	}
	applier := apply.NewApplier(apply.Options{
		DSN:              target.DSN(),
		SkipConfirmation: true,
		Transaction:      false,
	})
	if err := applier.Connect(ctx); err != nil {
		return err
	}
	defer applier.Close()

	preflight := applier.PreflightChecks(statements, true)
	return applier.Apply(ctx, statements, preflight)
}

// migrateTables runs the Data Migrator over each table using a fixed-size
// worker pool (spec.md §5), one target connection per worker with
// FOREIGN_KEY_CHECKS disabled for the worker's whole lifetime so row order
// across tables never trips a not-yet-loaded FK.
func (o *Orchestrator) migrateTables(ctx context.Context, tables []*core.Table, opts Options) ([]TableOutcome, error) {
	workers := o.Config.Migration.ParallelWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tables) && len(tables) > 0 {
		workers = len(tables)
	}

	sourcePool, err := o.Registry.Source(ctx)
	if err != nil {
		return nil, err
	}
	targetDB, err := o.Registry.Target(ctx)
	if err != nil {
		return nil, err
	}

	if o.Metrics != nil {
		o.Metrics.TablesActive.Set(float64(len(tables)))
		defer o.Metrics.TablesActive.Set(0)
	}

	sizes := make(map[string]int64, len(tables))
	for _, t := range tables {
		sizes[t.Name] = o.tableSizeMB(ctx, sourcePool, t.Name)
	}

	jobs := make(chan *core.Table)
	results := make([]TableOutcome, len(tables))
	resultIdx := make(map[string]int, len(tables))
	for i, t := range tables {
		resultIdx[t.Name] = i
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := targetDB.Conn(ctx)
			if err != nil {
				return
			}
			defer conn.Close()

			_ = writer.WithForeignKeyChecksDisabled(ctx, conn, func() error {
				for t := range jobs {
					outcome := o.runMigrator(ctx, sourcePool, conn, t, opts, sizes[t.Name])
					mu.Lock()
					results[resultIdx[t.Name]] = outcome
					mu.Unlock()
				}
				return nil
			})
		}()
	}

	order := append([]*core.Table(nil), tables...)
	sort.SliceStable(order, func(i, j int) bool { return sizes[order[i].Name] < sizes[order[j].Name] })
	for _, t := range order {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	return results, nil
}

// runMigrator drives one table through the Data Migrator, logging the
// Counting/Streaming/Completed/Failed transitions spec.md §4.9's state
// machine names.
func (o *Orchestrator) runMigrator(ctx context.Context, sourcePool *pgxpool.Pool, conn *sql.Conn, t *core.Table, opts Options, sizeMB int64) TableOutcome {
	if o.Logger != nil {
		o.Logger.Progress(fmt.Sprintf("table %s: counting rows", t.Name))
	}
	if _, err := o.Streamer.CountRows(ctx, sourcePool, t.Name, opts.Filter); err != nil {
		return TableOutcome{Table: t.Name, State: StateFailed, Err: err}
	}

	if o.Logger != nil {
		o.Logger.Progress(fmt.Sprintf("table %s: streaming", t.Name))
	}
	result, err := o.Migrator.MigrateTable(ctx, sourcePool, conn, t, opts.Filter, opts.Resume, o.RunID, sizeMB)
	if err != nil {
		if o.Logger != nil {
			o.Logger.Error(fmt.Sprintf("table %s: failed: %v", t.Name, err))
		}
		return TableOutcome{Table: t.Name, State: StateFailed, RowsWritten: result.RowsWritten, RowsSkipped: result.RowsSkipped, Err: err}
	}

	if o.Logger != nil {
		o.Logger.Success(fmt.Sprintf("table %s: completed (%d rows written, %d skipped)", t.Name, result.RowsWritten, result.RowsSkipped))
	}
	return TableOutcome{Table: t.Name, State: StateCompleted, RowsWritten: result.RowsWritten, RowsSkipped: result.RowsSkipped}
}

// tableSizeMB reports a PostgreSQL table's on-disk size via
// pg_total_relation_size, used as the Budget's large-table ceiling input
// (spec.md §4.6/§5). A query failure degrades to 0 (the default ceiling
// applies) rather than aborting the table's migration.
func (o *Orchestrator) tableSizeMB(ctx context.Context, pool *pgxpool.Pool, table string) int64 {
	var bytes int64
	err := pool.QueryRow(ctx, "SELECT pg_total_relation_size($1)", table).Scan(&bytes)
	if err != nil {
		return 0
	}
	return bytes / (1024 * 1024)
}

// applyDeferredIndexes creates every secondary index the schema plan
// collected, now that each index's table holds data (spec.md §4.3).
func (o *Orchestrator) applyDeferredIndexes(ctx context.Context, generator *mysql.Generator, indexes []mysql.DeferredIndex) error {
	statements := make([]string, 0, len(indexes))
	for _, di := range indexes {
		if di.Index == nil {
			continue
		}
		if stmt := generator.CreateIndex(&core.Table{Name: di.TableName}, di.Index); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	if len(statements) == 0 {
		return nil
	}
	if o.Logger != nil {
		o.Logger.Progress(fmt.Sprintf("creating %d deferred index(es)", len(statements)))
	}
	return o.applyStatements(ctx, statements)
}

// applyDeferredForeignKeys runs the FK Validator (C9) against every
// foreign key the schema plan collected and adds the constraint only when
// the referencing table has zero orphaned rows; an orphan-bearing
// constraint is recorded as a warning and left unadded rather than failing
// the run (spec.md §4.7/§4.9).
func (o *Orchestrator) applyDeferredForeignKeys(ctx context.Context, generator *mysql.Generator, targetDB *sql.DB, fks []mysql.DeferredForeignKey, report *Report) error {
	var statements []string
	for _, d := range fks {
		if d.Constraint == nil {
			continue
		}
		result, err := o.FKValidator.CheckOrphans(ctx, targetDB, d.TableName, d.Constraint)
		if err != nil {
			if o.Logger != nil {
				o.Logger.Warn(fmt.Sprintf("fk validation for %s.%s skipped: %v", d.TableName, d.Constraint.Name, err))
			}
			continue
		}
		if result.OrphanCount > 0 {
			report.OrphanWarnings = append(report.OrphanWarnings, result)
			if o.Logger != nil {
				o.Logger.Warn(fmt.Sprintf("%s: %d orphaned row(s) violate %s, skipping constraint", d.TableName, result.OrphanCount, d.Constraint.Name))
			}
			continue
		}
		if stmt := generator.AddForeignKey(&core.Table{Name: d.TableName}, d.Constraint); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	if len(statements) == 0 {
		return nil
	}
	if o.Logger != nil {
		o.Logger.Progress(fmt.Sprintf("adding %d foreign key(s)", len(statements)))
	}
	return o.applyStatements(ctx, statements)
}

// validateData runs the Post-Validator (C10) over every migrated table:
// row counts always, sampled content only when counts agree, and (when
// opts.FindMissing is set, the counts differ and the table has a
// single-column primary key) a source-side search for rows absent from
// the target, per spec.md §4.8.
func (o *Orchestrator) validateData(ctx context.Context, sourceDB, targetDB *sql.DB, tables []*core.Table, opts Options, report *Report) error {
	for _, t := range tables {
		result, err := o.PostValidator.CompareCounts(ctx, sourceDB, targetDB, t.Name)
		if err != nil {
			return err
		}
		if result.CountsMatch && result.SourceCount > 0 {
			columns := make([]string, len(t.Columns))
			for i, c := range t.Columns {
				columns[i] = c.Name
			}
			match, err := o.PostValidator.CompareSamples(ctx, sourceDB, targetDB, t.Name, columns)
			if err == nil {
				result.SampleChecked = true
				result.SamplesMatch = match
			}
		}
		report.ValidationResult = append(report.ValidationResult, result)

		if opts.FindMissing && !result.CountsMatch {
			pkCol, ok := t.SinglePrimaryKeyColumn()
			if !ok {
				continue
			}
			missing, err := o.PostValidator.FindMissingRows(ctx, sourceDB, t.Name, pkCol, nil, 100)
			if err != nil {
				continue
			}
			if len(missing) > 0 {
				if report.MissingRows == nil {
					report.MissingRows = make(map[string][]validate.MissingRow)
				}
				report.MissingRows[t.Name] = missing
			}
		}
	}
	return nil
}
