// Package main is the CLI entry point for the PostgreSQL-to-MariaDB/MySQL
// migration engine. It uses spf13/cobra for command/flag wiring, the same
// pattern smf's own CLI uses: a *Flags struct per command, flags bound
// onto a pflag.FlagSet, and a RunE closure that does the real work.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"smf/internal/checkpoint"
	"smf/internal/config"
	"smf/internal/connreg"
	"smf/internal/core"
	"smf/internal/logging"
	"smf/internal/metrics"
	"smf/internal/migrator"
	"smf/internal/orchestrator"
	"smf/internal/stream"
	"smf/internal/writer"
)

type runFlags struct {
	configFile string

	full       bool
	schemaOnly bool
	dataOnly   bool

	resume      bool
	dryRun      bool
	skipIndexes bool
	findMissing bool

	tables     []string
	skipTables []string

	afterDate  string
	beforeDate string
	dateColumn string

	metricsAddr string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "pgmysqlmigrate",
		Short: "Migrate a PostgreSQL database's schema and data to MySQL/MariaDB",
	}
	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a migration",
		RunE: func(c *cobra.Command, _ []string) error {
			return runMigration(c, flags)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.configFile, "config", "", "Path to a YAML/TOML configuration file")
	fs.BoolVar(&flags.full, "full", false, "Run schema creation and data load (default)")
	fs.BoolVar(&flags.schemaOnly, "schema-only", false, "Only create missing tables/constraints, skip data load")
	fs.BoolVar(&flags.dataOnly, "data-only", false, "Only load data into already-present tables")
	fs.BoolVar(&flags.resume, "resume", false, "Resume from persisted checkpoints")
	fs.BoolVar(&flags.dryRun, "dry-run", false, "Print the planned schema statements without executing them")
	fs.BoolVar(&flags.skipIndexes, "skip-indexes", false, "Skip the post-load secondary index build (full and data-only modes)")
	fs.BoolVar(&flags.findMissing, "find-missing", false, "Search for rows present on the source but absent on the target after load")
	fs.StringSliceVar(&flags.tables, "tables", nil, "Restrict migration to this comma-separated set of tables")
	fs.StringSliceVar(&flags.skipTables, "skip-tables", nil, "Exclude this comma-separated set of tables")
	fs.StringVar(&flags.afterDate, "after-date", "", "Only migrate rows with --date-column >= this value")
	fs.StringVar(&flags.beforeDate, "before-date", "", "Only migrate rows with --date-column < this value")
	fs.StringVar(&flags.dateColumn, "date-column", "", "Column --after-date/--before-date filter against")
	fs.StringVar(&flags.metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090); disabled when empty")

	return cmd
}

func runMigration(c *cobra.Command, flags *runFlags) error {
	cfg, err := config.Load(flags.configFile, c.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{LogDir: cfg.Paths.LogDir, Level: zapcore.InfoLevel})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)
	if flags.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(flags.metricsAddr, mux); err != nil {
				logger.Warn(fmt.Sprintf("metrics listener stopped: %v", err))
			}
		}()
		logger.Progress(fmt.Sprintf("serving metrics on %s/metrics", flags.metricsAddr))
	}

	registry := connreg.New(
		connreg.SourceConfig{
			Host:     cfg.Source.Host,
			Port:     cfg.Source.Port,
			Database: cfg.Source.Database,
			User:     cfg.Source.User,
			Password: cfg.Source.Password,
			Schema:   cfg.Source.Schema,
		},
		connreg.TargetConfig{
			Host:      cfg.Target.Host,
			Port:      cfg.Target.Port,
			Database:  cfg.Target.Database,
			User:      cfg.Target.User,
			Password:  cfg.Target.Password,
			Charset:   cfg.Target.Charset,
			Collation: cfg.Target.Collation,
		},
	)
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warn(fmt.Sprintf("closing connections: %v", err))
		}
	}()

	checkpoints := checkpoint.NewStore(cfg.Paths.CheckpointDir)
	budget := migrator.Budget{
		M:                     cfg.Migration.MemoryBudgetBytes,
		ChunkSizeConfigured:   cfg.Migration.ChunkSize,
		LargeTableChunkSize:   cfg.Migration.LargeTableChunkSize,
		LargeTableThresholdMB: cfg.Migration.LargeTableThresholdMB,
	}
	mig := migrator.New(stream.New(), writer.New(), checkpoints, met, logger, budget, cfg.Migration.CheckpointInterval)
	orch := orchestrator.New(registry, cfg, mig, met, logger)

	mode, err := resolveMode(flags)
	if err != nil {
		return err
	}

	var filter *core.RowFilter
	if flags.dateColumn != "" || flags.afterDate != "" || flags.beforeDate != "" {
		if flags.dateColumn == "" {
			return fmt.Errorf("%w: --after-date/--before-date require --date-column", core.ErrConfigInvalid)
		}
		filter = &core.RowFilter{Column: flags.dateColumn, After: flags.afterDate, Before: flags.beforeDate}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Progress("received shutdown signal, finishing in-flight work")
		cancel()
	}()

	opts := orchestrator.Options{
		Mode:        mode,
		DryRun:      flags.dryRun,
		Resume:      flags.resume,
		SkipIndexes: flags.skipIndexes || cfg.Migration.SkipIndexes,
		Filter:      filter,
		FindMissing: flags.findMissing,
		Tables:      flags.tables,
		SkipTables:  flags.skipTables,
		Out:         os.Stdout,
	}

	report, err := orch.Run(ctx, opts)
	if err != nil {
		return err
	}
	printReport(logger, report)
	return nil
}

func resolveMode(flags *runFlags) (orchestrator.Mode, error) {
	set := 0
	if flags.full {
		set++
	}
	if flags.schemaOnly {
		set++
	}
	if flags.dataOnly {
		set++
	}
	if set > 1 {
		return "", fmt.Errorf("%w: only one of --full/--schema-only/--data-only may be set", core.ErrConfigInvalid)
	}
	switch {
	case flags.schemaOnly:
		return orchestrator.ModeSchemaOnly, nil
	case flags.dataOnly:
		return orchestrator.ModeDataOnly, nil
	default:
		return orchestrator.ModeFull, nil
	}
}

func printReport(logger *logging.Logger, report *orchestrator.Report) {
	if len(report.MissingTables) > 0 {
		logger.Progress(fmt.Sprintf("missing tables: %v", report.MissingTables))
	}
	var failed int
	for _, o := range report.TableOutcomes {
		if o.State == orchestrator.StateFailed {
			failed++
			logger.Error(fmt.Sprintf("table %s failed: %v", o.Table, o.Err))
		}
	}
	logger.Success(fmt.Sprintf("run complete: %d table(s) processed, %d failed", len(report.TableOutcomes), failed))
	for _, w := range report.OrphanWarnings {
		logger.Warn(fmt.Sprintf("%s: %d orphaned row(s)", w.ConstraintName, w.OrphanCount))
	}
}
