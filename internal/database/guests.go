package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/models"
)

func (r repo) GetGuestByID(ctx context.Context, id string) (*models.Guest, error) {
	var g models.Guest
	err := r.q.QueryRowContext(ctx, `SELECT id, name, email FROM guests WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("guest", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	return &g, nil
}

func (r repo) UpsertGuest(ctx context.Context, g *models.Guest) error {
	query := `INSERT INTO guests (id, name, email) VALUES (?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`
	if _, err := r.q.ExecContext(ctx, query, g.ID, g.Name, g.Email); err != nil {
		return fmt.Errorf("failed to upsert guest: %w", err)
	}
	return nil
}
