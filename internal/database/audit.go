package database

import (
	"context"
	"fmt"

	"hotelbooking/internal/models"
)

func (r repo) AppendAuditEntry(ctx context.Context, e *models.AuditLogEntry) error {
	query := `INSERT INTO audit_log (id, action, entity_type, entity_id, user_id, timestamp, details)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		e.ID, e.Action, e.EntityType, e.EntityID, e.UserID, formatTime(e.Timestamp), e.Details)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// GetRecentAuditEntries returns newest first; entries with equal timestamps
// keep reverse insertion order.
func (r repo) GetRecentAuditEntries(ctx context.Context, limit int) ([]*models.AuditLogEntry, error) {
	query := `SELECT id, action, entity_type, entity_id, user_id, timestamp, details
              FROM audit_log ORDER BY timestamp DESC, seq DESC LIMIT ?`
	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		var (
			e  models.AuditLogEntry
			ts string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.UserID, &ts, &e.Details); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("failed to parse audit timestamp %s: %w", ts, err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
