package models

import "time"

// AuditLogEntry is append-only: written once per domain event, never updated.
type AuditLogEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	UserID     string    `json:"userId"`
	Timestamp  time.Time `json:"timestamp"`
	Details    string    `json:"details"`
}
