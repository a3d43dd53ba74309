package domain

import (
	"context"
	"time"

	"hotelbooking/internal/models"
)

type BookingRepository interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	GetBookingsByGuestID(ctx context.Context, guestID string) ([]*models.Booking, error)
	GetBookingsByCheckInDate(ctx context.Context, date time.Time) ([]*models.Booking, error)
	GetBookingsByCheckOutDate(ctx context.Context, date time.Time) ([]*models.Booking, error)
	// HasOverlappingBooking ignores cancelled bookings and excludeID (may be empty).
	HasOverlappingBooking(ctx context.Context, roomID string, dr models.DateRange, excludeID string) (bool, error)
	AddBooking(ctx context.Context, booking *models.Booking) error
	UpdateBooking(ctx context.Context, booking *models.Booking) error
}

type RoomRepository interface {
	GetRoomByID(ctx context.Context, id string) (*models.Room, error)
	GetRoomByNumber(ctx context.Context, number string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)
	// GetAvailableRooms returns Available rooms with no active booking overlapping dr.
	GetAvailableRooms(ctx context.Context, dr models.DateRange, roomType models.RoomType) ([]*models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	UpsertRoom(ctx context.Context, room *models.Room) error
}

type GuestRepository interface {
	GetGuestByID(ctx context.Context, id string) (*models.Guest, error)
	UpsertGuest(ctx context.Context, guest *models.Guest) error
}

type AuditRepository interface {
	AppendAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error
	GetRecentAuditEntries(ctx context.Context, limit int) ([]*models.AuditLogEntry, error)
}

type Repositories interface {
	BookingRepository
	RoomRepository
	GuestRepository
	AuditRepository
}

// Tx is a write transaction. Rollback after Commit is a no-op.
type Tx interface {
	Repositories
	Commit() error
	Rollback() error
}

type Store interface {
	Repositories
	BeginTx(ctx context.Context) (Tx, error)
}

type PricingCalculator interface {
	CalculatePrice(ctx context.Context, roomType models.RoomType, dr models.DateRange) (models.PriceQuote, error)
}

type MessagePublisher interface {
	PublishJSON(ctx context.Context, routingKey string, payload any) error
}

// SearchCache stores search results per invalidation generation. Callers
// read Generation before querying the store and pass it to SetRooms, so a
// result computed before an Invalidate is never served after it.
type SearchCache interface {
	GetRooms(ctx context.Context, key string) ([]models.AvailableRoom, bool, error)
	Generation(ctx context.Context) (string, error)
	SetRooms(ctx context.Context, gen, key string, rooms []models.AvailableRoom, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// Deduper remembers notifications that were already delivered.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
}

type Notifier interface {
	Notify(ctx context.Context, subject, text string) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, cmd models.CreateBookingCommand) (*models.Booking, error)
	UpdateBookingDates(ctx context.Context, id string, dr models.DateRange, actor string) (*models.Booking, error)
	CancelBooking(ctx context.Context, id, reason, actor string) (*models.Booking, error)
	CheckIn(ctx context.Context, id, actor string) (*models.Booking, error)
	CheckOut(ctx context.Context, id, actor string) (*models.Booking, error)
	SetRoomStatus(ctx context.Context, roomID string, status models.RoomStatus, actor string) (*models.Room, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetGuestBookings(ctx context.Context, guestID string) ([]*models.Booking, error)
	SearchAvailableRooms(ctx context.Context, search models.RoomSearch) ([]models.AvailableRoom, error)
	GetArrivals(ctx context.Context, date time.Time) ([]*models.Booking, error)
	GetDepartures(ctx context.Context, date time.Time) ([]*models.Booking, error)
	GetRecentAuditEntries(ctx context.Context, limit int) ([]*models.AuditLogEntry, error)
}
