// Package integration turns committed booking events into messages for
// external consumers.
package integration

import (
	"time"

	"hotelbooking/internal/events"
	"hotelbooking/internal/models"
)

const (
	RoutingBookingCreated   = "booking.created"
	RoutingBookingCancelled = "booking.cancelled"
)

// RoutingKeys lists every key the notification consumer binds to.
func RoutingKeys() []string {
	return []string{RoutingBookingCreated, RoutingBookingCancelled}
}

type BookingCreatedMessage struct {
	BookingID   string       `json:"bookingId"`
	GuestID     string       `json:"guestId"`
	RoomID      string       `json:"roomId"`
	CheckIn     time.Time    `json:"checkIn"`
	CheckOut    time.Time    `json:"checkOut"`
	TotalAmount models.Money `json:"totalAmount"`
	RoomNumber  string       `json:"roomNumber"`
	RoomType    string       `json:"roomType"`
	GuestEmail  string       `json:"guestEmail"`
	GuestName   string       `json:"guestName"`
}

type BookingCancelledMessage struct {
	BookingID  string `json:"bookingId"`
	GuestID    string `json:"guestId"`
	GuestEmail string `json:"guestEmail"`
	GuestName  string `json:"guestName"`
}

// MessageFor maps an event to its routing key and wire body. ok is false for
// kinds that are not published.
func MessageFor(e events.Event) (routingKey string, body any, ok bool) {
	switch ev := e.(type) {
	case models.BookingCreated:
		return RoutingBookingCreated, BookingCreatedMessage{
			BookingID:   ev.BookingID,
			GuestID:     ev.GuestID,
			RoomID:      ev.RoomID,
			CheckIn:     ev.CheckIn.UTC(),
			CheckOut:    ev.CheckOut.UTC(),
			TotalAmount: ev.TotalAmount,
			RoomNumber:  ev.RoomNumber,
			RoomType:    string(ev.RoomType),
			GuestEmail:  ev.GuestEmail,
			GuestName:   ev.GuestName,
		}, true
	case models.BookingCancelled:
		return RoutingBookingCancelled, BookingCancelledMessage{
			BookingID:  ev.BookingID,
			GuestID:    ev.GuestID,
			GuestEmail: ev.GuestEmail,
			GuestName:  ev.GuestName,
		}, true
	default:
		return "", nil, false
	}
}
