package models

const (
	// EntityBooking is the audit entity type of booking events.
	EntityBooking = "Booking"
	// EntityRoom is the audit entity type of room events.
	EntityRoom = "Room"

	// SystemActor is recorded when a command carries no caller identity.
	SystemActor = "system"

	// DefaultCurrency is the fixed currency of every Money value.
	DefaultCurrency = "USD"

	// DefaultMaxBookingDays bounds how far ahead a check-in may be.
	DefaultMaxBookingDays = 365

	// DefaultAuditLimit is used when a caller asks for recent audit entries without a limit.
	DefaultAuditLimit = 50

	// MaxAuditLimit caps a single audit page.
	MaxAuditLimit = 1000

	// DefaultSearchCacheTTL in seconds.
	DefaultSearchCacheTTL = 30

	// DefaultDedupeTTL in seconds for notification idempotency keys.
	DefaultDedupeTTL = 7 * 24 * 60 * 60

	// DateLayout is the calendar date format used by arrivals/departures.
	DateLayout = "2006-01-02"
)
