package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	os.Setenv("PGMYSQL_SOURCE_HOST", "localhost")
	os.Setenv("PGMYSQL_SOURCE_DATABASE", "app")
	os.Setenv("PGMYSQL_TARGET_HOST", "localhost")
	os.Setenv("PGMYSQL_TARGET_DATABASE", "app")
	defer func() {
		os.Unsetenv("PGMYSQL_SOURCE_HOST")
		os.Unsetenv("PGMYSQL_SOURCE_DATABASE")
		os.Unsetenv("PGMYSQL_TARGET_HOST")
		os.Unsetenv("PGMYSQL_TARGET_DATABASE")
	}()

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 10000, cfg.Migration.ChunkSize)
	assert.Equal(t, 4, cfg.Migration.ParallelWorkers)
	assert.Equal(t, "utf8mb4", cfg.Target.Charset)
	assert.Equal(t, "localhost", cfg.Source.Host)
}

func TestLoadFailsValidationWithoutRequiredFields(t *testing.T) {
	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestLoadBindsFlagsOverDefaults(t *testing.T) {
	os.Setenv("PGMYSQL_SOURCE_HOST", "localhost")
	os.Setenv("PGMYSQL_SOURCE_DATABASE", "app")
	os.Setenv("PGMYSQL_TARGET_HOST", "localhost")
	os.Setenv("PGMYSQL_TARGET_DATABASE", "app")
	defer func() {
		os.Unsetenv("PGMYSQL_SOURCE_HOST")
		os.Unsetenv("PGMYSQL_SOURCE_DATABASE")
		os.Unsetenv("PGMYSQL_TARGET_HOST")
		os.Unsetenv("PGMYSQL_TARGET_DATABASE")
	}()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("migration.chunk_size", 10000, "")
	require.NoError(t, fs.Set("migration.chunk_size", "2500"))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 2500, cfg.Migration.ChunkSize)
}

func TestResolvedTablesIntersectsIncludeUnionsExclude(t *testing.T) {
	c := &Config{Migration: Migration{
		TablesInclude: []string{"users", "orders", "posts"},
		TablesExclude: []string{"posts"},
	}}

	include, exclude := c.ResolvedTables([]string{"users", "comments"}, []string{"users"})
	assert.Equal(t, []string{"users"}, include)
	assert.ElementsMatch(t, []string{"posts", "users"}, exclude)
}
