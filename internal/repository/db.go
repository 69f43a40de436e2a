package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/kk-extractor/internal/common"
)

// DB is an ent SQL driver over either SQLite or Postgres.
type DB struct {
	Driver  *entsql.Driver
	Dialect string

	pool *pgxpool.Pool
}

// Open connects to the run-history database named by cfg.DSN. postgres:// and
// postgresql:// DSNs use a pgx pool; anything else is handed to SQLite.
// Tables are created when missing.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		db  *DB
		err error
	)
	if isPostgres(cfg.DSN) {
		db, err = openPostgres(ctx, cfg, logger)
	} else {
		db, err = openSQLite(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("failed to connect to database", "dialect", dialectFor(cfg.DSN), "error", err)
		return nil, err
	}
	if err := db.migrate(ctx); err != nil {
		db.Close(logger)
		return nil, fmt.Errorf("create tables: %w", err)
	}
	logger.Info("successfully connected to database", "dialect", db.Dialect)
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func dialectFor(dsn string) string {
	if isPostgres(dsn) {
		return dialect.Postgres
	}
	return dialect.SQLite
}

func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "kk-extractor"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Wrap pool as *sql.DB for ent
	sqldb := stdlib.OpenDBFromPool(pool)
	return &DB{Driver: entsql.OpenDB(dialect.Postgres, sqldb), Dialect: dialect.Postgres, pool: pool}, nil
}

func openSQLite(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", dialect.SQLite, "dsn", cfg.DSN)
	sqldb, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps in-memory databases on a single connection
	sqldb.SetMaxOpenConns(1)
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return &DB{Driver: entsql.OpenDB(dialect.SQLite, sqldb), Dialect: dialect.SQLite}, nil
}

// Close closes the database connections gracefully
func (db *DB) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if db.Driver != nil {
		if err := db.Driver.Close(); err != nil {
			logger.Error("failed to close ent driver", "error", err)
		}
	}
	if db.pool != nil {
		db.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.Driver.DB().PingContext(ctx)
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements(db.Dialect) {
		if err := db.Driver.Exec(ctx, stmt, []any{}, nil); err != nil {
			return err
		}
	}
	return nil
}

func schemaStatements(d string) []string {
	idType, tsType := "TEXT", "TIMESTAMP"
	if d == dialect.Postgres {
		idType, tsType = "UUID", "TIMESTAMPTZ"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS extract_run (
	id ` + idType + ` PRIMARY KEY,
	started_at ` + tsType + ` NOT NULL,
	finished_at ` + tsType + ` NULL,
	status TEXT NOT NULL,
	total INTEGER NOT NULL DEFAULT 0,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	empty INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS extract_outcome (
	run_id ` + idType + ` NOT NULL REFERENCES extract_run(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	source_name TEXT NOT NULL,
	checksum TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL DEFAULT 0,
	failure_reason TEXT NOT NULL DEFAULT '',
	records_json TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (run_id, seq)
)`,
		`CREATE INDEX IF NOT EXISTS extract_run_started_at_idx ON extract_run (started_at)`,
	}
}
