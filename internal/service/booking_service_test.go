package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/integration"
	"hotelbooking/internal/models"
	"hotelbooking/internal/pricing"
	"hotelbooking/internal/repository"
	"hotelbooking/internal/uow"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, routingKey string, payload any) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

type failingPricing struct{}

func (failingPricing) CalculatePrice(context.Context, models.RoomType, models.DateRange) (models.PriceQuote, error) {
	return models.PriceQuote{}, errors.New("rate service unavailable")
}

var testNow = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func jan(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	db        *database.DB
	svc       *BookingService
	publisher *mockPublisher
	cache     *repository.MemorySearchCache
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "hotel.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, r := range []*models.Room{
		{ID: "r-101", Number: "101", Type: models.RoomStandard, Status: models.RoomAvailable},
		{ID: "r-102", Number: "102", Type: models.RoomDeluxe, Status: models.RoomAvailable},
		{ID: "r-201", Number: "201", Type: models.RoomSuite, Status: models.RoomMaintenance},
	} {
		require.NoError(t, db.UpsertRoom(ctx, r))
	}
	require.NoError(t, db.UpsertGuest(ctx, &models.Guest{ID: "g-1", Name: "Ann", Email: "ann@example.com"}))

	rates, err := pricing.NewRateCard(config.PricingConfig{
		NightlyRates: map[string]float64{"Standard": 100, "Deluxe": 150, "Suite": 300},
	})
	require.NoError(t, err)

	publisher := new(mockPublisher)
	cache := repository.NewMemorySearchCache()
	runner := uow.NewRunner(db, integration.NewDispatcher(publisher, &logger), &logger)
	svc := NewBookingService(db, runner, rates, cache, config.BookingConfig{}, time.Minute, &logger)
	svc.now = func() time.Time { return testNow }

	ids := 0
	var mu sync.Mutex
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		ids++
		return fmt.Sprintf("b-%d", ids)
	}

	return &fixture{db: db, svc: svc, publisher: publisher, cache: cache}
}

func (f *fixture) expectPublish(routingKey string) {
	f.publisher.On("PublishJSON", mock.Anything, routingKey, mock.Anything).Return(nil)
}

// createScenarioA books room 101 for [Jan 10, Jan 13).
func (f *fixture) createScenarioA(t *testing.T) *models.Booking {
	t.Helper()
	f.expectPublish(integration.RoutingBookingCreated)
	b, err := f.svc.CreateBooking(context.Background(), models.CreateBookingCommand{
		GuestID:  "g-1",
		RoomID:   "r-101",
		CheckIn:  jan(10),
		CheckOut: jan(13),
		Actor:    "frontdesk",
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) roomStatus(t *testing.T, id string) models.RoomStatus {
	t.Helper()
	r, err := f.db.GetRoomByID(context.Background(), id)
	require.NoError(t, err)
	return r.Status
}

func (f *fixture) auditActions(t *testing.T) []string {
	t.Helper()
	entries, err := f.db.GetRecentAuditEntries(context.Background(), 100)
	require.NoError(t, err)
	actions := make([]string, 0, len(entries))
	// Stored newest first; return in raise order.
	for i := len(entries) - 1; i >= 0; i-- {
		actions = append(actions, entries[i].Action)
	}
	return actions
}

func TestScenarioA_CreateBooking(t *testing.T) {
	f := setup(t)
	b := f.createScenarioA(t)

	assert.Equal(t, models.StatusConfirmed, b.Status)
	assert.Equal(t, "300.00", b.TotalAmount.String())
	assert.False(t, b.HasPendingEvents())

	stored, err := f.svc.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, stored.Range.Equal(b.Range))

	assert.Equal(t, []string{string(models.EventBookingCreated)}, f.auditActions(t))

	f.publisher.AssertCalled(t, "PublishJSON", mock.Anything, integration.RoutingBookingCreated,
		mock.MatchedBy(func(msg integration.BookingCreatedMessage) bool {
			return msg.BookingID == b.ID && msg.RoomNumber == "101" && msg.GuestEmail == "ann@example.com"
		}))
}

func TestScenarioB_OverlapRejected(t *testing.T) {
	f := setup(t)
	f.createScenarioA(t)

	_, err := f.svc.CreateBooking(context.Background(), models.CreateBookingCommand{
		GuestID: "g-1", RoomID: "r-101", CheckIn: jan(12), CheckOut: jan(15),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// Back-to-back stays share no night.
	f.expectPublish(integration.RoutingBookingCreated)
	_, err = f.svc.CreateBooking(context.Background(), models.CreateBookingCommand{
		GuestID: "g-1", RoomID: "r-101", CheckIn: jan(13), CheckOut: jan(15),
	})
	require.NoError(t, err)
}

func TestScenarioC_CheckInAndOut(t *testing.T) {
	f := setup(t)
	b := f.createScenarioA(t)
	ctx := context.Background()

	got, err := f.svc.CheckIn(ctx, b.ID, "frontdesk")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, got.Status)
	assert.Equal(t, models.RoomOccupied, f.roomStatus(t, "r-101"))

	got, err = f.svc.CheckOut(ctx, b.ID, "frontdesk")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedOut, got.Status)
	assert.Equal(t, models.RoomAvailable, f.roomStatus(t, "r-101"))

	assert.Equal(t, []string{
		string(models.EventBookingCreated),
		string(models.EventBookingStatusChanged),
		string(models.EventBookingStatusChanged),
	}, f.auditActions(t))
}

func TestScenarioD_CancelFreesRoom(t *testing.T) {
	f := setup(t)
	b := f.createScenarioA(t)
	ctx := context.Background()

	search := models.RoomSearch{Range: models.DateRange{CheckIn: jan(10), CheckOut: jan(13)}}
	before, err := f.svc.SearchAvailableRooms(ctx, search)
	require.NoError(t, err)
	assert.NotContains(t, roomNumbers(before), "101")

	f.expectPublish(integration.RoutingBookingCancelled)
	got, err := f.svc.CancelBooking(ctx, b.ID, "plans changed", "frontdesk")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	assert.Equal(t, []string{
		string(models.EventBookingCreated),
		string(models.EventBookingCancelled),
		string(models.EventBookingStatusChanged),
	}, f.auditActions(t))

	// The commit invalidated the cached result.
	after, err := f.svc.SearchAvailableRooms(ctx, search)
	require.NoError(t, err)
	assert.Contains(t, roomNumbers(after), "101")

	f.publisher.AssertCalled(t, "PublishJSON", mock.Anything, integration.RoutingBookingCancelled,
		mock.MatchedBy(func(msg integration.BookingCancelledMessage) bool {
			return msg.BookingID == b.ID && msg.GuestName == "Ann"
		}))
}

func TestScenarioE_CheckOutBeforeCheckIn(t *testing.T) {
	f := setup(t)
	b := f.createScenarioA(t)

	_, err := f.svc.CheckOut(context.Background(), b.ID, "frontdesk")
	require.Error(t, err)
	assert.True(t, apperrors.IsDomain(err))
	assert.Contains(t, err.Error(), "Confirmed")
	assert.Equal(t, models.RoomAvailable, f.roomStatus(t, "r-101"))

	stored, err := f.svc.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	assert.Len(t, f.auditActions(t), 1)
}

func TestCreateBookingValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		cmd   models.CreateBookingCommand
		check func(error) bool
	}{
		{
			name:  "checkout before checkin",
			cmd:   models.CreateBookingCommand{GuestID: "g-1", RoomID: "r-101", CheckIn: jan(13), CheckOut: jan(10)},
			check: apperrors.IsValidation,
		},
		{
			name:  "checkin in the past",
			cmd:   models.CreateBookingCommand{GuestID: "g-1", RoomID: "r-101", CheckIn: testNow.AddDate(0, 0, -2), CheckOut: jan(3)},
			check: apperrors.IsValidation,
		},
		{
			name:  "too far ahead",
			cmd:   models.CreateBookingCommand{GuestID: "g-1", RoomID: "r-101", CheckIn: jan(1).AddDate(2, 0, 0), CheckOut: jan(3).AddDate(2, 0, 0)},
			check: apperrors.IsValidation,
		},
		{
			name:  "unknown guest",
			cmd:   models.CreateBookingCommand{GuestID: "g-404", RoomID: "r-101", CheckIn: jan(10), CheckOut: jan(13)},
			check: apperrors.IsNotFound,
		},
		{
			name:  "unknown room",
			cmd:   models.CreateBookingCommand{GuestID: "g-1", RoomID: "r-404", CheckIn: jan(10), CheckOut: jan(13)},
			check: apperrors.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(ctx, tt.cmd)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
		})
	}

	assert.Empty(t, f.auditActions(t))
	f.publisher.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBookingSameDayIsNotPast(t *testing.T) {
	f := setup(t)
	f.expectPublish(integration.RoutingBookingCreated)

	_, err := f.svc.CreateBooking(context.Background(), models.CreateBookingCommand{
		GuestID: "g-1", RoomID: "r-101", CheckIn: jan(1), CheckOut: jan(2),
	})
	require.NoError(t, err)
}

func TestCreateBookingPricingFailureIsInternal(t *testing.T) {
	f := setup(t)
	f.svc.pricing = failingPricing{}

	_, err := f.svc.CreateBooking(context.Background(), models.CreateBookingCommand{
		GuestID: "g-1", RoomID: "r-101", CheckIn: jan(10), CheckOut: jan(13),
	})
	require.Error(t, err)
	assert.False(t, apperrors.IsClient(err))
	assert.Empty(t, f.auditActions(t))
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	f := setup(t)
	f.publisher.On("PublishJSON", mock.Anything, integration.RoutingBookingCreated, mock.Anything).
		Return(errors.New("broker down")).Once()

	b, err := f.svc.CreateBooking(context.Background(), models.CreateBookingCommand{
		GuestID: "g-1", RoomID: "r-101", CheckIn: jan(10), CheckOut: jan(13),
	})
	require.NoError(t, err)

	_, err = f.svc.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Len(t, f.auditActions(t), 1)
}

func TestUpdateBookingDates(t *testing.T) {
	f := setup(t)
	b := f.createScenarioA(t)
	ctx := context.Background()

	t.Run("OverlapWithItselfAllowed", func(t *testing.T) {
		got, err := f.svc.UpdateBookingDates(ctx, b.ID, models.DateRange{CheckIn: jan(11), CheckOut: jan(15)}, "frontdesk")
		require.NoError(t, err)
		assert.Equal(t, "400.00", got.TotalAmount.String())
		assert.Equal(t, models.StatusConfirmed, got.Status)
	})

	t.Run("OverlapWithOtherRejected", func(t *testing.T) {
		f.expectPublish(integration.RoutingBookingCreated)
		other, err := f.svc.CreateBooking(ctx, models.CreateBookingCommand{
			GuestID: "g-1", RoomID: "r-101", CheckIn: jan(20), CheckOut: jan(22),
		})
		require.NoError(t, err)

		_, err = f.svc.UpdateBookingDates(ctx, other.ID, models.DateRange{CheckIn: jan(14), CheckOut: jan(21)}, "frontdesk")
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("NotConfirmed", func(t *testing.T) {
		_, err := f.svc.CheckIn(ctx, b.ID, "frontdesk")
		require.NoError(t, err)

		_, err = f.svc.UpdateBookingDates(ctx, b.ID, models.DateRange{CheckIn: jan(11), CheckOut: jan(16)}, "frontdesk")
		require.Error(t, err)
		assert.True(t, apperrors.IsDomain(err))
	})

	t.Run("UnknownBooking", func(t *testing.T) {
		_, err := f.svc.UpdateBookingDates(ctx, "missing", models.DateRange{CheckIn: jan(11), CheckOut: jan(16)}, "frontdesk")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestIllegalTransitionsLeaveNoTrace(t *testing.T) {
	f := setup(t)
	b := f.createScenarioA(t)
	ctx := context.Background()

	f.expectPublish(integration.RoutingBookingCancelled)
	_, err := f.svc.CancelBooking(ctx, b.ID, "", "frontdesk")
	require.NoError(t, err)
	before := f.auditActions(t)

	for name, op := range map[string]func() error{
		"cancel":    func() error { _, err := f.svc.CancelBooking(ctx, b.ID, "", "x"); return err },
		"check in":  func() error { _, err := f.svc.CheckIn(ctx, b.ID, "x"); return err },
		"check out": func() error { _, err := f.svc.CheckOut(ctx, b.ID, "x"); return err },
		"update dates": func() error {
			_, err := f.svc.UpdateBookingDates(ctx, b.ID, models.DateRange{CheckIn: jan(11), CheckOut: jan(16)}, "x")
			return err
		},
		// Past dates on a closed booking still report the state, not the dates.
		"update dates into the past": func() error {
			past := models.DateRange{CheckIn: jan(1).AddDate(0, 0, -10), CheckOut: jan(1).AddDate(0, 0, -7)}
			_, err := f.svc.UpdateBookingDates(ctx, b.ID, past, "x")
			return err
		},
	} {
		err := op()
		require.Error(t, err, name)
		assert.True(t, apperrors.IsDomain(err), name)
	}
	assert.Equal(t, before, f.auditActions(t))
}

func TestCheckInIntoMaintenanceRoomAborts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.expectPublish(integration.RoutingBookingCreated)
	b, err := f.svc.CreateBooking(ctx, models.CreateBookingCommand{
		GuestID: "g-1", RoomID: "r-201", CheckIn: jan(10), CheckOut: jan(12),
	})
	require.NoError(t, err)

	_, err = f.svc.CheckIn(ctx, b.ID, "frontdesk")
	require.Error(t, err)
	assert.True(t, apperrors.IsDomain(err))

	stored, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
}

func TestConcurrentCreateOnlyOneWins(t *testing.T) {
	f := setup(t)
	f.expectPublish(integration.RoutingBookingCreated)
	f.svc.newID = uuid.NewString

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateBooking(context.Background(), models.CreateBookingCommand{
				GuestID: "g-1", RoomID: "r-101", CheckIn: jan(10), CheckOut: jan(13),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.IsConflict(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestSearchAvailableRooms(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	dr := models.DateRange{CheckIn: jan(10), CheckOut: jan(13)}

	t.Run("ExcludesMaintenance", func(t *testing.T) {
		rooms, err := f.svc.SearchAvailableRooms(ctx, models.RoomSearch{Range: dr})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"101", "102"}, roomNumbers(rooms))
		for _, r := range rooms {
			assert.Equal(t, 3, r.Nights)
		}
	})

	t.Run("FiltersByType", func(t *testing.T) {
		rooms, err := f.svc.SearchAvailableRooms(ctx, models.RoomSearch{Range: dr, RoomType: models.RoomDeluxe})
		require.NoError(t, err)
		assert.Equal(t, []string{"102"}, roomNumbers(rooms))
		assert.Equal(t, "450.00", rooms[0].TotalPrice.String())
	})

	t.Run("FiltersByPrice", func(t *testing.T) {
		minPrice := models.MustMoney(12000)
		rooms, err := f.svc.SearchAvailableRooms(ctx, models.RoomSearch{Range: dr, MinPrice: &minPrice})
		require.NoError(t, err)
		assert.Equal(t, []string{"102"}, roomNumbers(rooms))
	})

	t.Run("InvalidBounds", func(t *testing.T) {
		minPrice, maxPrice := models.MustMoney(200), models.MustMoney(100)
		_, err := f.svc.SearchAvailableRooms(ctx, models.RoomSearch{Range: dr, MinPrice: &minPrice, MaxPrice: &maxPrice})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("InvalidRange", func(t *testing.T) {
		_, err := f.svc.SearchAvailableRooms(ctx, models.RoomSearch{Range: models.DateRange{CheckIn: jan(13), CheckOut: jan(10)}})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("RoomStatusChangeInvalidatesCache", func(t *testing.T) {
		_, err := f.svc.SearchAvailableRooms(ctx, models.RoomSearch{Range: dr})
		require.NoError(t, err)

		_, err = f.svc.SetRoomStatus(ctx, "r-102", models.RoomMaintenance, "housekeeping")
		require.NoError(t, err)

		rooms, err := f.svc.SearchAvailableRooms(ctx, models.RoomSearch{Range: dr})
		require.NoError(t, err)
		assert.Equal(t, []string{"101"}, roomNumbers(rooms))
	})
}

// racingStore runs afterRead once, between the availability read and the
// return, to interleave a command with an in-flight search.
type racingStore struct {
	domain.Store
	afterRead func()
}

func (s *racingStore) GetAvailableRooms(ctx context.Context, dr models.DateRange, roomType models.RoomType) ([]*models.Room, error) {
	rooms, err := s.Store.GetAvailableRooms(ctx, dr, roomType)
	if hook := s.afterRead; hook != nil {
		s.afterRead = nil
		hook()
	}
	return rooms, err
}

func TestSearchAvailableRooms_ResultReadBeforeCommitIsNotCached(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	search := models.RoomSearch{Range: models.DateRange{CheckIn: jan(10), CheckOut: jan(13)}}

	f.svc.store = &racingStore{Store: f.db, afterRead: func() { f.createScenarioA(t) }}

	inFlight, err := f.svc.SearchAvailableRooms(ctx, search)
	require.NoError(t, err)
	assert.Contains(t, roomNumbers(inFlight), "101")

	rooms, err := f.svc.SearchAvailableRooms(ctx, search)
	require.NoError(t, err)
	assert.NotContains(t, roomNumbers(rooms), "101")
}

func TestSetRoomStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	room, err := f.svc.SetRoomStatus(ctx, "r-201", models.RoomAvailable, "housekeeping")
	require.NoError(t, err)
	assert.Equal(t, models.RoomAvailable, room.Status)

	_, err = f.svc.SetRoomStatus(ctx, "r-101", models.RoomOccupied, "housekeeping")
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.SetRoomStatus(ctx, "r-404", models.RoomMaintenance, "housekeeping")
	assert.True(t, apperrors.IsNotFound(err))

	// Only the successful change is audited, against the room.
	assert.Equal(t, []string{string(models.EventRoomStatusChanged)}, f.auditActions(t))
	entries, err := f.db.GetRecentAuditEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EntityRoom, entries[0].EntityType)
	assert.Equal(t, "r-201", entries[0].EntityID)
	assert.Equal(t, "housekeeping", entries[0].UserID)
}

func TestArrivalsAndDepartures(t *testing.T) {
	f := setup(t)
	b := f.createScenarioA(t)
	ctx := context.Background()

	arrivals, err := f.svc.GetArrivals(ctx, jan(10).Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	assert.Equal(t, b.ID, arrivals[0].ID)

	departures, err := f.svc.GetDepartures(ctx, jan(13))
	require.NoError(t, err)
	require.Len(t, departures, 1)

	none, err := f.svc.GetArrivals(ctx, jan(11))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.svc.GetDepartures(ctx, time.Time{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestGuestBookings(t *testing.T) {
	f := setup(t)
	b := f.createScenarioA(t)
	ctx := context.Background()

	bookings, err := f.svc.GetGuestBookings(ctx, "g-1")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, b.ID, bookings[0].ID)

	_, err = f.svc.GetGuestBookings(ctx, "g-404")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRecentAuditEntriesLimit(t *testing.T) {
	f := setup(t)
	b := f.createScenarioA(t)
	ctx := context.Background()
	_, err := f.svc.CheckIn(ctx, b.ID, "frontdesk")
	require.NoError(t, err)

	entries, err := f.svc.GetRecentAuditEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(models.EventBookingStatusChanged), entries[0].Action)
	assert.Equal(t, "frontdesk", entries[0].UserID)

	entries, err = f.svc.GetRecentAuditEntries(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func roomNumbers(rooms []models.AvailableRoom) []string {
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Number)
	}
	return out
}
