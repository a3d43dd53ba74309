package models

import (
	"strings"
	"time"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/events"
)

type BookingStatus string

const (
	StatusConfirmed  BookingStatus = "Confirmed"
	StatusCheckedIn  BookingStatus = "CheckedIn"
	StatusCheckedOut BookingStatus = "CheckedOut"
	StatusCancelled  BookingStatus = "Cancelled"
)

func ParseBookingStatus(raw string) (BookingStatus, error) {
	for _, s := range []BookingStatus{StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled} {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", apperrors.Validation("status", "unknown booking status %q", raw)
}

// Booking is the aggregate root. It is mutated only through its transition
// methods and is not safe for concurrent use.
type Booking struct {
	ID          string        `json:"id"`
	GuestID     string        `json:"guestId"`
	RoomID      string        `json:"roomId"`
	Range       DateRange     `json:"-"`
	Status      BookingStatus `json:"status"`
	TotalAmount Money         `json:"totalAmount"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Version     int64         `json:"-"`

	events.Recorder `json:"-"`
}

type NewBookingParams struct {
	ID        string
	Guest     Guest
	Room      Room
	Range     DateRange
	Total     Money
	CreatedBy string
	Now       time.Time
}

// NewBooking creates a Confirmed booking and records BookingCreated.
// Availability and guest existence are checked by the caller.
func NewBooking(p NewBookingParams) (*Booking, error) {
	if p.ID == "" {
		return nil, apperrors.Validation("id", "is required")
	}
	if p.Guest.ID == "" {
		return nil, apperrors.Validation("guestId", "is required")
	}
	if p.Room.ID == "" {
		return nil, apperrors.Validation("roomId", "is required")
	}
	if !p.Range.CheckOut.After(p.Range.CheckIn) {
		return nil, apperrors.Validation("checkOut", "must be after checkIn")
	}

	now := p.Now.UTC()
	b := &Booking{
		ID:          p.ID,
		GuestID:     p.Guest.ID,
		RoomID:      p.Room.ID,
		Range:       p.Range,
		Status:      StatusConfirmed,
		TotalAmount: p.Total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.Record(BookingCreated{
		BookingID:   b.ID,
		GuestID:     b.GuestID,
		RoomID:      b.RoomID,
		CheckIn:     b.Range.CheckIn,
		CheckOut:    b.Range.CheckOut,
		TotalAmount: b.TotalAmount,
		CreatedBy:   p.CreatedBy,
		GuestEmail:  p.Guest.Email,
		GuestName:   p.Guest.Name,
		RoomNumber:  p.Room.Number,
		RoomType:    p.Room.Type,
		At:          now,
	})
	return b, nil
}

// UpdateDates moves a Confirmed booking to a new range with a recomputed
// total. Overlap checks are the caller's responsibility. No event is raised.
func (b *Booking) UpdateDates(dr DateRange, total Money, now time.Time) error {
	if b.Status != StatusConfirmed {
		return b.illegal("update dates of")
	}
	b.Range = dr
	b.TotalAmount = total
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) Cancel(guest Guest, cancelledBy, reason string, now time.Time) error {
	if b.Status != StatusConfirmed {
		return b.illegal("cancel")
	}
	at := now.UTC()
	b.Record(BookingCancelled{
		BookingID:   b.ID,
		GuestID:     b.GuestID,
		GuestEmail:  guest.Email,
		GuestName:   guest.Name,
		CancelledBy: cancelledBy,
		Reason:      reason,
		At:          at,
	})
	b.transition(StatusCancelled, cancelledBy, at)
	return nil
}

func (b *Booking) CheckIn(actor string, now time.Time) error {
	if b.Status != StatusConfirmed {
		return b.illegal("check in")
	}
	b.transition(StatusCheckedIn, actor, now.UTC())
	return nil
}

func (b *Booking) CheckOut(actor string, now time.Time) error {
	if b.Status != StatusCheckedIn {
		return b.illegal("check out")
	}
	b.transition(StatusCheckedOut, actor, now.UTC())
	return nil
}

// IsActive reports whether the booking still holds its room for overlap purposes.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

func (b *Booking) transition(to BookingStatus, actor string, at time.Time) {
	from := b.Status
	b.Status = to
	b.UpdatedAt = at
	b.Record(BookingStatusChanged{
		BookingID: b.ID,
		OldStatus: from,
		NewStatus: to,
		ChangedBy: actor,
		At:        at,
	})
}

func (b *Booking) illegal(op string) error {
	return apperrors.Domain("cannot %s booking with status %s", op, b.Status)
}

// CreateBookingCommand carries raw input; dates are validated by the service.
type CreateBookingCommand struct {
	GuestID  string
	RoomID   string
	CheckIn  time.Time
	CheckOut time.Time
	Actor    string
}
