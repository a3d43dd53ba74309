package models

import (
	"strings"
	"time"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/events"
)

type RoomType string

const (
	RoomStandard RoomType = "Standard"
	RoomDeluxe   RoomType = "Deluxe"
	RoomSuite    RoomType = "Suite"
)

func ParseRoomType(raw string) (RoomType, error) {
	for _, t := range []RoomType{RoomStandard, RoomDeluxe, RoomSuite} {
		if strings.EqualFold(raw, string(t)) {
			return t, nil
		}
	}
	return "", apperrors.Validation("roomType", "unknown room type %q", raw)
}

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "Available"
	RoomOccupied    RoomStatus = "Occupied"
	RoomMaintenance RoomStatus = "Maintenance"
)

func ParseRoomStatus(raw string) (RoomStatus, error) {
	for _, s := range []RoomStatus{RoomAvailable, RoomOccupied, RoomMaintenance} {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", apperrors.Validation("status", "unknown room status %q", raw)
}

type Room struct {
	ID      string     `json:"id" yaml:"id"`
	Number  string     `json:"roomNumber" yaml:"number"`
	Type    RoomType   `json:"roomType" yaml:"type"`
	Status  RoomStatus `json:"status" yaml:"status"`
	Version int64      `json:"-" yaml:"-"`

	events.Recorder `json:"-" yaml:"-"`
}

// SetStatus is the direct status operation. Occupied is owned by the
// check-in/check-out flow and can be neither entered nor left here.
// A real change records RoomStatusChanged.
func (r *Room) SetStatus(status RoomStatus, changedBy string, now time.Time) error {
	switch status {
	case RoomAvailable, RoomMaintenance:
	case RoomOccupied:
		return apperrors.Validation("status", "Occupied can only be set by check-in")
	default:
		return apperrors.Validation("status", "unknown room status %q", status)
	}
	if r.Status == RoomOccupied {
		return apperrors.Domain("cannot set status of room %s while it is Occupied", r.Number)
	}
	if r.Status == status {
		return nil
	}
	r.Record(RoomStatusChanged{
		RoomID:     r.ID,
		RoomNumber: r.Number,
		OldStatus:  r.Status,
		NewStatus:  status,
		ChangedBy:  changedBy,
		At:         now.UTC(),
	})
	r.Status = status
	return nil
}

// Occupy is requested by booking check-in.
func (r *Room) Occupy() error {
	if r.Status != RoomAvailable {
		return apperrors.Domain("cannot occupy room %s with status %s", r.Number, r.Status)
	}
	r.Status = RoomOccupied
	return nil
}

// Release is requested by booking check-out.
func (r *Room) Release() error {
	if r.Status != RoomOccupied {
		return apperrors.Domain("cannot release room %s with status %s", r.Number, r.Status)
	}
	r.Status = RoomAvailable
	return nil
}
