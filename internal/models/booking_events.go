package models

import (
	"time"

	"hotelbooking/internal/events"
)

const (
	EventBookingCreated       events.Kind = "BookingCreated"
	EventBookingCancelled     events.Kind = "BookingCancelled"
	EventBookingStatusChanged events.Kind = "BookingStatusChanged"
	EventRoomStatusChanged    events.Kind = "RoomStatusChanged"
)

// AllEventKinds lists every domain event variant. Audit and integration
// mappings are checked against it in tests.
func AllEventKinds() []events.Kind {
	return []events.Kind{EventBookingCreated, EventBookingCancelled, EventBookingStatusChanged, EventRoomStatusChanged}
}

// BookingEvent closes the set of booking event variants.
type BookingEvent interface {
	events.Event
	bookingEvent()
}

type BookingCreated struct {
	BookingID   string
	GuestID     string
	RoomID      string
	CheckIn     time.Time
	CheckOut    time.Time
	TotalAmount Money
	CreatedBy   string
	GuestEmail  string
	GuestName   string
	RoomNumber  string
	RoomType    RoomType
	At          time.Time
}

func (e BookingCreated) Kind() events.Kind     { return EventBookingCreated }
func (e BookingCreated) AggregateID() string   { return e.BookingID }
func (e BookingCreated) OccurredAt() time.Time { return e.At }
func (BookingCreated) bookingEvent()           {}

type BookingCancelled struct {
	BookingID   string
	GuestID     string
	GuestEmail  string
	GuestName   string
	CancelledBy string
	Reason      string
	At          time.Time
}

func (e BookingCancelled) Kind() events.Kind     { return EventBookingCancelled }
func (e BookingCancelled) AggregateID() string   { return e.BookingID }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }
func (BookingCancelled) bookingEvent()           {}

type BookingStatusChanged struct {
	BookingID string
	OldStatus BookingStatus
	NewStatus BookingStatus
	ChangedBy string
	At        time.Time
}

func (e BookingStatusChanged) Kind() events.Kind     { return EventBookingStatusChanged }
func (e BookingStatusChanged) AggregateID() string   { return e.BookingID }
func (e BookingStatusChanged) OccurredAt() time.Time { return e.At }
func (BookingStatusChanged) bookingEvent()           {}

// RoomStatusChanged is raised by the direct room status operation. Occupancy
// changes from check-in and check-out are covered by BookingStatusChanged.
type RoomStatusChanged struct {
	RoomID     string
	RoomNumber string
	OldStatus  RoomStatus
	NewStatus  RoomStatus
	ChangedBy  string
	At         time.Time
}

func (e RoomStatusChanged) Kind() events.Kind     { return EventRoomStatusChanged }
func (e RoomStatusChanged) AggregateID() string   { return e.RoomID }
func (e RoomStatusChanged) OccurredAt() time.Time { return e.At }
