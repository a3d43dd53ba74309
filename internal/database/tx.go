package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hotelbooking/internal/domain"
)

// Tx runs the repositories inside one SQLite write transaction.
type Tx struct {
	repo
	tx *sql.Tx
}

// BeginTx starts an immediate transaction; see dsn.
func (db *DB) BeginTx(ctx context.Context) (domain.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{repo: repo{q: tx}, tx: tx}, nil
}

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translate(err))
	}
	return nil
}

func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

var (
	_ domain.Store = (*DB)(nil)
	_ domain.Tx    = (*Tx)(nil)
)
