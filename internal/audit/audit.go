// Package audit maps domain events onto append-only audit log entries.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"hotelbooking/internal/events"
	"hotelbooking/internal/models"

	"github.com/google/uuid"
)

// EntryFor builds the audit entry for e. fallbackActor is used when the
// event carries no actor of its own. ok is false for event kinds that are
// not audited.
func EntryFor(e events.Event, fallbackActor string) (entry *models.AuditLogEntry, ok bool, err error) {
	var (
		actor   string
		details any
		entity  = models.EntityBooking
	)

	switch ev := e.(type) {
	case models.BookingCreated:
		actor = ev.CreatedBy
		details = createdDetails{
			GuestID:     ev.GuestID,
			RoomID:      ev.RoomID,
			RoomNumber:  ev.RoomNumber,
			CheckIn:     ev.CheckIn,
			CheckOut:    ev.CheckOut,
			TotalAmount: ev.TotalAmount,
		}
	case models.BookingCancelled:
		actor = ev.CancelledBy
		details = cancelledDetails{GuestID: ev.GuestID, Reason: ev.Reason}
	case models.BookingStatusChanged:
		actor = ev.ChangedBy
		details = statusDetails{From: ev.OldStatus, To: ev.NewStatus}
	case models.RoomStatusChanged:
		actor = ev.ChangedBy
		entity = models.EntityRoom
		details = roomStatusDetails{RoomNumber: ev.RoomNumber, From: ev.OldStatus, To: ev.NewStatus}
	default:
		return nil, false, nil
	}

	if actor == "" {
		actor = fallbackActor
	}
	if actor == "" {
		actor = models.SystemActor
	}

	raw, err := json.Marshal(details)
	if err != nil {
		return nil, false, fmt.Errorf("marshal audit details for %s: %w", e.Kind(), err)
	}

	return &models.AuditLogEntry{
		ID:         uuid.NewString(),
		Action:     string(e.Kind()),
		EntityType: entity,
		EntityID:   e.AggregateID(),
		UserID:     actor,
		Timestamp:  e.OccurredAt().UTC(),
		Details:    string(raw),
	}, true, nil
}

type createdDetails struct {
	GuestID     string       `json:"guestId"`
	RoomID      string       `json:"roomId"`
	RoomNumber  string       `json:"roomNumber"`
	CheckIn     time.Time    `json:"checkIn"`
	CheckOut    time.Time    `json:"checkOut"`
	TotalAmount models.Money `json:"totalAmount"`
}

type cancelledDetails struct {
	GuestID string `json:"guestId"`
	Reason  string `json:"reason,omitempty"`
}

type statusDetails struct {
	From models.BookingStatus `json:"from"`
	To   models.BookingStatus `json:"to"`
}

type roomStatusDetails struct {
	RoomNumber string            `json:"roomNumber"`
	From       models.RoomStatus `json:"from"`
	To         models.RoomStatus `json:"to"`
}
