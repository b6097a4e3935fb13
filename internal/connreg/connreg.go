// Package connreg implements the Connection Registry (C1): it owns the
// database handles a migration run needs — a pgx pool against the
// PostgreSQL source, a database/sql handle against the same source for the
// Schema Reader, and a database/sql handle against the MySQL/MariaDB
// target — opening each lazily on first use and guaranteeing disposal via
// Close, per spec.md §2/§5.
package connreg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"smf/internal/core"
)

// SourceConfig describes how to reach the PostgreSQL source, mirroring the
// "source" section of the configuration record (spec.md §6).
type SourceConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Schema   string
	SSLMode  string
}

// TargetConfig describes how to reach the MySQL/MariaDB target, mirroring
// the "target" section of the configuration record (spec.md §6).
type TargetConfig struct {
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
	Charset   string
	Collation string
}

// DSN renders the go-sql-driver/mysql data source name for this target.
func (t TargetConfig) DSN() string {
	charset := t.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	collation := t.Collation
	if collation == "" {
		collation = "utf8mb4_unicode_ci"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&collation=%s&parseTime=true&multiStatements=true",
		t.User, t.Password, t.Host, t.Port, t.Database, charset, collation)
}

func (s SourceConfig) connString() string {
	sslMode := s.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.Port, s.Database, sslMode)
}

// Registry lazily opens and owns the source pool and target handle for one
// migration run. It is safe for concurrent use: multiple per-table workers
// (spec.md §5) may call Source/Target concurrently, each getting the same
// shared pool/handle, since pgxpool.Pool and *sql.DB are themselves safe
// for concurrent use across goroutines.
type Registry struct {
	source SourceConfig
	target TargetConfig

	mu         sync.Mutex
	sourcePool *pgxpool.Pool
	sourceDB   *sql.DB
	targetDB   *sql.DB

	// RetryPolicy governs reconnect attempts; nil means defaultRetryPolicy (exponential,
	// 250ms initial interval, 5s max interval, 30s max elapsed time).
	RetryPolicy func() backoff.BackOff
}

// New constructs a Registry for the given source/target configuration.
// Neither side is connected until Source or Target is first called.
func New(source SourceConfig, target TargetConfig) *Registry {
	return &Registry{source: source, target: target}
}

func defaultRetryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (r *Registry) retryPolicy() backoff.BackOff {
	if r.RetryPolicy != nil {
		return r.RetryPolicy()
	}
	return defaultRetryPolicy()
}

// Source returns the shared pgx pool against the PostgreSQL source,
// opening it on first call with exponential-backoff retry against
// transient connection failures.
func (r *Registry) Source(ctx context.Context) (*pgxpool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sourcePool != nil {
		return r.sourcePool, nil
	}

	var pool *pgxpool.Pool
	op := func() error {
		p, err := pgxpool.New(ctx, r.source.connString())
		if err != nil {
			return fmt.Errorf("%w: source: %w", core.ErrConnectFailed, err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("%w: source ping: %w", core.ErrConnectFailed, err)
		}
		pool = p
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(r.retryPolicy(), ctx)); err != nil {
		return nil, err
	}
	r.sourcePool = pool
	return pool, nil
}

// SourceDB returns a database/sql handle against the PostgreSQL source,
// via pgx's stdlib adapter, for the one consumer that needs database/sql
// rather than pgx's native interface: the Schema Reader (C3), whose
// Introspecter contract is driver-agnostic across both dialects.
func (r *Registry) SourceDB(ctx context.Context) (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sourceDB != nil {
		return r.sourceDB, nil
	}

	var db *sql.DB
	op := func() error {
		d, err := sql.Open("pgx", r.source.connString())
		if err != nil {
			return fmt.Errorf("%w: source db: %w", core.ErrConnectFailed, err)
		}
		if err := d.PingContext(ctx); err != nil {
			d.Close()
			return fmt.Errorf("%w: source db ping: %w", core.ErrConnectFailed, err)
		}
		db = d
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(r.retryPolicy(), ctx)); err != nil {
		return nil, err
	}
	r.sourceDB = db
	return db, nil
}

// Target returns the shared database/sql handle against the MySQL/MariaDB
// target, opening it on first call with the same retry policy as Source.
func (r *Registry) Target(ctx context.Context) (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.targetDB != nil {
		return r.targetDB, nil
	}

	var db *sql.DB
	op := func() error {
		d, err := sql.Open("mysql", r.target.DSN())
		if err != nil {
			return fmt.Errorf("%w: target: %w", core.ErrConnectFailed, err)
		}
		if err := d.PingContext(ctx); err != nil {
			d.Close()
			return fmt.Errorf("%w: target ping: %w", core.ErrConnectFailed, err)
		}
		db = d
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(r.retryPolicy(), ctx)); err != nil {
		return nil, err
	}
	r.targetDB = db
	return db, nil
}

// Close disposes of whichever handles were opened. It is safe to call
// multiple times and safe to call when neither side was ever opened.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var targetErr error
	if r.targetDB != nil {
		targetErr = r.targetDB.Close()
		r.targetDB = nil
	}
	if r.sourceDB != nil {
		if err := r.sourceDB.Close(); err != nil && targetErr == nil {
			targetErr = err
		}
		r.sourceDB = nil
	}
	if r.sourcePool != nil {
		r.sourcePool.Close()
		r.sourcePool = nil
	}
	return targetErr
}
