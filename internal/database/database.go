package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the SQLite-backed store. Reads go straight to the pool; writes go
// through BeginTx.
type DB struct {
	*sql.DB
	repo
	logger *zerolog.Logger
}

type Options struct {
	BusyTimeoutMS int
	MaxOpenConns  int
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	return Open(path, Options{}, logger)
}

func Open(path string, opts Options, logger *zerolog.Logger) (*DB, error) {
	if opts.BusyTimeoutMS <= 0 {
		opts.BusyTimeoutMS = 5000
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(path, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return &DB{DB: sqlDB, repo: repo{q: sqlDB}, logger: logger}, nil
}

// dsn enables WAL, foreign keys and BEGIN IMMEDIATE for every transaction so
// that check-then-insert runs under the database write lock.
func dsn(path string, opts Options) string {
	return fmt.Sprintf("%s?_txlock=immediate&_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on",
		path, opts.BusyTimeoutMS)
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
            id TEXT PRIMARY KEY,
            number TEXT NOT NULL UNIQUE,
            type TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'Available',
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS guests (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT ''
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            guest_id TEXT NOT NULL REFERENCES guests(id),
            room_id TEXT NOT NULL REFERENCES rooms(id),
            check_in TEXT NOT NULL,
            check_out TEXT NOT NULL,
            status TEXT NOT NULL,
            total_cents INTEGER NOT NULL CHECK (total_cents >= 0),
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL,
            version INTEGER NOT NULL DEFAULT 1,
            CHECK (check_in < check_out)
        )`,
		`CREATE TABLE IF NOT EXISTS audit_log (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            action TEXT NOT NULL,
            entity_type TEXT NOT NULL,
            entity_id TEXT NOT NULL,
            user_id TEXT NOT NULL,
            timestamp TEXT NOT NULL,
            details TEXT NOT NULL DEFAULT ''
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_room_dates ON bookings(room_id, check_in, check_out)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_guest_id ON bookings(guest_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_check_in ON bookings(check_in)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_check_out ON bookings(check_out)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id)`,

		// Exclusion constraint: no two non-cancelled bookings of a room may overlap.
		`CREATE TRIGGER IF NOT EXISTS trg_bookings_no_overlap_insert
        BEFORE INSERT ON bookings
        WHEN NEW.status <> 'Cancelled'
        BEGIN
            SELECT RAISE(ABORT, '` + overlapMarker + `')
            WHERE EXISTS (
                SELECT 1 FROM bookings b
                WHERE b.room_id = NEW.room_id
                  AND b.status <> 'Cancelled'
                  AND b.check_in < NEW.check_out
                  AND NEW.check_in < b.check_out
            );
        END`,
		`CREATE TRIGGER IF NOT EXISTS trg_bookings_no_overlap_update
        BEFORE UPDATE OF room_id, check_in, check_out, status ON bookings
        WHEN NEW.status <> 'Cancelled'
        BEGIN
            SELECT RAISE(ABORT, '` + overlapMarker + `')
            WHERE EXISTS (
                SELECT 1 FROM bookings b
                WHERE b.room_id = NEW.room_id
                  AND b.id <> NEW.id
                  AND b.status <> 'Cancelled'
                  AND b.check_in < NEW.check_out
                  AND NEW.check_in < b.check_out
            );
        END`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// repo implements the repositories against either the pool or a transaction.
type repo struct {
	q querier
}
