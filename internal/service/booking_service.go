package service

import (
	"context"
	"fmt"
	"time"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/config"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"
	"hotelbooking/internal/uow"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Command names used for metrics and logs.
const (
	cmdCreateBooking  = "create_booking"
	cmdUpdateDates    = "update_booking_dates"
	cmdCancelBooking  = "cancel_booking"
	cmdCheckIn        = "check_in"
	cmdCheckOut       = "check_out"
	cmdSetRoomStatus  = "set_room_status"
	defaultSearchTTL  = time.Duration(models.DefaultSearchCacheTTL) * time.Second
	errMsgRoomIsTaken = "room %s is already booked for the requested dates"
)

type BookingService struct {
	store          domain.Store
	runner         *uow.Runner
	pricing        domain.PricingCalculator
	cache          domain.SearchCache
	cacheTTL       time.Duration
	maxBookingDays int
	auditLimit     int
	logger         *zerolog.Logger
	now            func() time.Time
	newID          func() string
}

var _ domain.BookingService = (*BookingService)(nil)

// NewBookingService wires the service. cache may be nil. Every committed
// command invalidates the search cache.
func NewBookingService(
	store domain.Store,
	runner *uow.Runner,
	pricing domain.PricingCalculator,
	cache domain.SearchCache,
	cfg config.BookingConfig,
	cacheTTL time.Duration,
	logger *zerolog.Logger,
) *BookingService {
	if cfg.MaxBookingDays <= 0 {
		cfg.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if cfg.DefaultAuditLimit <= 0 {
		cfg.DefaultAuditLimit = models.DefaultAuditLimit
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultSearchTTL
	}
	s := &BookingService{
		store:          store,
		runner:         runner,
		pricing:        pricing,
		cache:          cache,
		cacheTTL:       cacheTTL,
		maxBookingDays: cfg.MaxBookingDays,
		auditLimit:     cfg.DefaultAuditLimit,
		logger:         logger,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	if cache != nil {
		runner.OnCommit(s.invalidateSearch)
	}
	return s
}

func (s *BookingService) invalidateSearch(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to invalidate search cache")
	}
}

// validateStay applies the command-time rules for a requested range.
func (s *BookingService) validateStay(dr models.DateRange, now time.Time) error {
	if err := dr.EnsureNotPast(now); err != nil {
		return err
	}
	limit := models.StartOfDay(now).AddDate(0, 0, s.maxBookingDays)
	if dr.CheckIn.After(limit) {
		return apperrors.Validation("checkIn", "must be within %d days", s.maxBookingDays)
	}
	return nil
}

func (s *BookingService) quote(ctx context.Context, roomType models.RoomType, dr models.DateRange) (models.PriceQuote, error) {
	q, err := s.pricing.CalculatePrice(ctx, roomType, dr)
	if err != nil {
		return models.PriceQuote{}, fmt.Errorf("calculate price: %w", err)
	}
	return q, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, cmd models.CreateBookingCommand) (*models.Booking, error) {
	dr, err := models.NewDateRange(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	if cmd.GuestID == "" {
		return nil, apperrors.Validation("guestId", "is required")
	}
	if cmd.RoomID == "" {
		return nil, apperrors.Validation("roomId", "is required")
	}

	var booking *models.Booking
	_, err = s.runner.Do(ctx, cmdCreateBooking, cmd.Actor, func(ctx context.Context, u *uow.Unit) error {
		now := s.now()
		if err := s.validateStay(dr, now); err != nil {
			return err
		}

		guest, err := u.GetGuestByID(ctx, cmd.GuestID)
		if err != nil {
			return err
		}
		room, err := u.GetRoomByID(ctx, cmd.RoomID)
		if err != nil {
			return err
		}

		taken, err := u.HasOverlappingBooking(ctx, room.ID, dr, "")
		if err != nil {
			return err
		}
		if taken {
			return apperrors.Conflict(errMsgRoomIsTaken, room.Number)
		}

		q, err := s.quote(ctx, room.Type, dr)
		if err != nil {
			return err
		}

		b, err := models.NewBooking(models.NewBookingParams{
			ID:        s.newID(),
			Guest:     *guest,
			Room:      *room,
			Range:     dr,
			Total:     q.TotalPrice,
			CreatedBy: u.Actor(),
			Now:       now,
		})
		if err != nil {
			return err
		}
		u.Track(b)
		if err := u.AddBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// UpdateBookingDates moves a Confirmed booking and re-prices it. The
// booking's own current range is not treated as a conflict.
func (s *BookingService) UpdateBookingDates(ctx context.Context, id string, dr models.DateRange, actor string) (*models.Booking, error) {
	dr, err := models.NewDateRange(dr.CheckIn, dr.CheckOut)
	if err != nil {
		return nil, err
	}

	var booking *models.Booking
	_, err = s.runner.Do(ctx, cmdUpdateDates, actor, func(ctx context.Context, u *uow.Unit) error {
		now := s.now()
		b, err := u.GetBookingByID(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != models.StatusConfirmed {
			// State is checked before the requested dates or availability.
			return b.UpdateDates(dr, b.TotalAmount, now)
		}
		if err := s.validateStay(dr, now); err != nil {
			return err
		}
		room, err := u.GetRoomByID(ctx, b.RoomID)
		if err != nil {
			return err
		}

		taken, err := u.HasOverlappingBooking(ctx, b.RoomID, dr, b.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.Conflict(errMsgRoomIsTaken, room.Number)
		}

		q, err := s.quote(ctx, room.Type, dr)
		if err != nil {
			return err
		}
		if err := b.UpdateDates(dr, q.TotalPrice, now); err != nil {
			return err
		}
		u.Track(b)
		if err := u.UpdateBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, id, reason, actor string) (*models.Booking, error) {
	var booking *models.Booking
	_, err := s.runner.Do(ctx, cmdCancelBooking, actor, func(ctx context.Context, u *uow.Unit) error {
		b, err := u.GetBookingByID(ctx, id)
		if err != nil {
			return err
		}
		guest, err := u.GetGuestByID(ctx, b.GuestID)
		if err != nil {
			return err
		}
		if err := b.Cancel(*guest, u.Actor(), reason, s.now()); err != nil {
			return err
		}
		u.Track(b)
		if err := u.UpdateBooking(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CheckIn marks the booking CheckedIn and its room Occupied in one unit.
func (s *BookingService) CheckIn(ctx context.Context, id, actor string) (*models.Booking, error) {
	return s.moveStay(ctx, cmdCheckIn, id, actor, func(b *models.Booking, room *models.Room, actor string, now time.Time) error {
		if err := b.CheckIn(actor, now); err != nil {
			return err
		}
		return room.Occupy()
	})
}

// CheckOut marks the booking CheckedOut and releases its room.
func (s *BookingService) CheckOut(ctx context.Context, id, actor string) (*models.Booking, error) {
	return s.moveStay(ctx, cmdCheckOut, id, actor, func(b *models.Booking, room *models.Room, actor string, now time.Time) error {
		if err := b.CheckOut(actor, now); err != nil {
			return err
		}
		return room.Release()
	})
}

func (s *BookingService) moveStay(
	ctx context.Context,
	command, id, actor string,
	apply func(b *models.Booking, room *models.Room, actor string, now time.Time) error,
) (*models.Booking, error) {
	var booking *models.Booking
	_, err := s.runner.Do(ctx, command, actor, func(ctx context.Context, u *uow.Unit) error {
		b, err := u.GetBookingByID(ctx, id)
		if err != nil {
			return err
		}
		room, err := u.GetRoomByID(ctx, b.RoomID)
		if err != nil {
			return err
		}
		if err := apply(b, room, u.Actor(), s.now()); err != nil {
			return err
		}
		u.Track(b)
		if err := u.UpdateBooking(ctx, b); err != nil {
			return err
		}
		if err := u.UpdateRoom(ctx, room); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// SetRoomStatus toggles a room between Available and Maintenance.
func (s *BookingService) SetRoomStatus(ctx context.Context, roomID string, status models.RoomStatus, actor string) (*models.Room, error) {
	var room *models.Room
	_, err := s.runner.Do(ctx, cmdSetRoomStatus, actor, func(ctx context.Context, u *uow.Unit) error {
		r, err := u.GetRoomByID(ctx, roomID)
		if err != nil {
			return err
		}
		if err := r.SetStatus(status, u.Actor(), s.now()); err != nil {
			return err
		}
		u.Track(r)
		if err := u.UpdateRoom(ctx, r); err != nil {
			return err
		}
		room = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("room_id", roomID).Str("status", string(status)).Str("actor", actor).Msg("Room status changed")
	return room, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.store.GetBookingByID(ctx, id)
}

func (s *BookingService) GetGuestBookings(ctx context.Context, guestID string) ([]*models.Booking, error) {
	if _, err := s.store.GetGuestByID(ctx, guestID); err != nil {
		return nil, err
	}
	return s.store.GetBookingsByGuestID(ctx, guestID)
}

// SearchAvailableRooms lists Available rooms free for the whole range,
// priced by the pricing collaborator and filtered by nightly price bounds.
func (s *BookingService) SearchAvailableRooms(ctx context.Context, search models.RoomSearch) ([]models.AvailableRoom, error) {
	dr, err := models.NewDateRange(search.Range.CheckIn, search.Range.CheckOut)
	if err != nil {
		return nil, err
	}
	search.Range = dr
	if err := search.Validate(); err != nil {
		return nil, err
	}

	key := search.CacheKey()
	if s.cache != nil {
		cached, ok, err := s.cache.GetRooms(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Search cache lookup failed")
		} else if ok {
			metrics.IncSearchCache(true)
			return cached, nil
		}
		metrics.IncSearchCache(false)
	}

	// Captured before the read so a result that races a committed command's
	// invalidation is never stored as current.
	var (
		gen    string
		genErr error
	)
	if s.cache != nil {
		if gen, genErr = s.cache.Generation(ctx); genErr != nil {
			s.logger.Warn().Err(genErr).Msg("Search cache generation lookup failed")
		}
	}

	rooms, err := s.store.GetAvailableRooms(ctx, dr, search.RoomType)
	if err != nil {
		return nil, err
	}

	result := make([]models.AvailableRoom, 0, len(rooms))
	for _, room := range rooms {
		q, err := s.quote(ctx, room.Type, dr)
		if err != nil {
			return nil, err
		}
		if !search.Matches(q.PricePerNight) {
			continue
		}
		result = append(result, models.AvailableRoom{
			Room:          *room,
			PricePerNight: q.PricePerNight,
			TotalPrice:    q.TotalPrice,
			Nights:        q.Nights,
		})
	}

	if s.cache != nil && genErr == nil {
		if err := s.cache.SetRooms(ctx, gen, key, result, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to store search result")
		}
	}
	return result, nil
}

// GetArrivals lists bookings checking in on the calendar day of date (UTC).
func (s *BookingService) GetArrivals(ctx context.Context, date time.Time) ([]*models.Booking, error) {
	if date.IsZero() {
		return nil, apperrors.Validation("date", "is required")
	}
	return s.store.GetBookingsByCheckInDate(ctx, date)
}

func (s *BookingService) GetDepartures(ctx context.Context, date time.Time) ([]*models.Booking, error) {
	if date.IsZero() {
		return nil, apperrors.Validation("date", "is required")
	}
	return s.store.GetBookingsByCheckOutDate(ctx, date)
}

// GetRecentAuditEntries returns newest first. A non-positive limit uses the
// configured default; limits are capped at models.MaxAuditLimit.
func (s *BookingService) GetRecentAuditEntries(ctx context.Context, limit int) ([]*models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = s.auditLimit
	}
	if limit > models.MaxAuditLimit {
		limit = models.MaxAuditLimit
	}
	return s.store.GetRecentAuditEntries(ctx, limit)
}
