// Package config defines the migration engine's configuration record and
// loads it the way this corpus's closest sibling tool does: layered with
// spf13/viper — environment variables under a PGMYSQL_ prefix, an optional
// YAML/TOML file, and CLI flags bound via viper.BindPFlag, with flags
// taking precedence (spec.md §6, [AMBIENT]).
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"smf/internal/core"
)

// Source mirrors the "source" section of the configuration record.
type Source struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Schema   string `mapstructure:"schema"`
}

// Target mirrors the "target" section.
type Target struct {
	Driver    string `mapstructure:"driver"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Database  string `mapstructure:"database"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Charset   string `mapstructure:"charset"`
	Collation string `mapstructure:"collation"`
}

// Migration mirrors the "migration" section, with the defaults spec.md §6
// specifies.
type Migration struct {
	ChunkSize             int      `mapstructure:"chunk_size"`
	LargeTableChunkSize   int      `mapstructure:"large_table_chunk_size"`
	LargeTableThresholdMB int64    `mapstructure:"large_table_threshold_mb"`
	ParallelWorkers       int      `mapstructure:"parallel_workers"`
	CheckpointInterval    int      `mapstructure:"checkpoint_interval"`
	SkipIndexes           bool     `mapstructure:"skip_indexes"`
	TablesInclude         []string `mapstructure:"tables_include"`
	TablesExclude         []string `mapstructure:"tables_exclude"`
	MemoryBudgetBytes     int64    `mapstructure:"memory_budget_bytes"`
}

// Paths mirrors the "paths" section.
type Paths struct {
	CheckpointDir string `mapstructure:"checkpoint_dir"`
	LogDir        string `mapstructure:"log_dir"`
}

// Config is the full configuration record, supplied by the excluded
// outer loader (.env/CLI) but validated and consumed inside the engine.
type Config struct {
	Source    Source    `mapstructure:"source"`
	Target    Target    `mapstructure:"target"`
	Migration Migration `mapstructure:"migration"`
	Paths     Paths     `mapstructure:"paths"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("source.driver", "pgsql")
	v.SetDefault("target.driver", "mysql")
	v.SetDefault("target.charset", "utf8mb4")
	v.SetDefault("target.collation", "utf8mb4_unicode_ci")
	v.SetDefault("migration.chunk_size", 10000)
	v.SetDefault("migration.large_table_chunk_size", 50000)
	v.SetDefault("migration.large_table_threshold_mb", 1000)
	v.SetDefault("migration.parallel_workers", 4)
	v.SetDefault("migration.checkpoint_interval", 100)
	v.SetDefault("migration.skip_indexes", false)
	v.SetDefault("migration.memory_budget_bytes", 512*1024*1024)
	v.SetDefault("paths.checkpoint_dir", "./checkpoints")
	v.SetDefault("paths.log_dir", "")
}

// Load builds a Config from (in ascending precedence) built-in defaults,
// an optional config file, PGMYSQL_*-prefixed environment variables, and
// flags bound onto fs via viper.BindPFlag. configFile may be empty.
func Load(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("PGMYSQL")
	v.SetEnvKeyReplacer(envKeyReplacer{})
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading config file %q: %w", core.ErrConfigInvalid, configFile, err)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("%w: binding flags: %w", core.ErrConfigInvalid, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding configuration: %w", core.ErrConfigInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKeyReplacer turns viper's dotted key "source.host" into the
// environment variable suffix "SOURCE_HOST", appended after the
// PGMYSQL_ prefix viper.SetEnvPrefix adds automatically.
type envKeyReplacer struct{}

func (envKeyReplacer) Replace(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '.' || r == '-' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// Validate checks the required-field rules spec.md §7's ConfigInvalid kind
// names: source/target host and database are set and parallel_workers is
// positive. The --date-* flag consistency check is not made here.
func (c *Config) Validate() error {
	if c.Source.Host == "" || c.Source.Database == "" {
		return fmt.Errorf("%w: source.host and source.database are required", core.ErrConfigInvalid)
	}
	if c.Target.Host == "" || c.Target.Database == "" {
		return fmt.Errorf("%w: target.host and target.database are required", core.ErrConfigInvalid)
	}
	if c.Migration.ParallelWorkers <= 0 {
		return fmt.Errorf("%w: migration.parallel_workers must be positive", core.ErrConfigInvalid)
	}
	return nil
}

// ResolvedTables applies spec.md §6's include/exclude merge rule — the CLI's
// --tables is intersected with config include, --skip-tables is unioned
// with config exclude, and exclude always wins — returning the final
// include and exclude sets the Schema Reader's list_tables should use.
func (c *Config) ResolvedTables(cliInclude, cliExclude []string) (include, exclude []string) {
	include = intersectOrUnion(c.Migration.TablesInclude, cliInclude)
	exclude = union(c.Migration.TablesExclude, cliExclude)
	return include, exclude
}

func intersectOrUnion(configured, cli []string) []string {
	if len(configured) == 0 {
		return cli
	}
	if len(cli) == 0 {
		return configured
	}
	cliSet := make(map[string]bool, len(cli))
	for _, t := range cli {
		cliSet[t] = true
	}
	var out []string
	for _, t := range configured {
		if cliSet[t] {
			out = append(out, t)
		}
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, t := range append(append([]string{}, a...), b...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
