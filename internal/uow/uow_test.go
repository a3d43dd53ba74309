package uow

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/database"
	"hotelbooking/internal/events"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls [][]events.Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, evts []events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, evts)
}

var (
	now   = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	guest = models.Guest{ID: "g-1", Name: "Ann", Email: "ann@example.com"}
	room  = models.Room{ID: "r-101", Number: "101", Type: models.RoomStandard, Status: models.RoomAvailable}
)

func setup(t *testing.T) (*database.DB, *recordingDispatcher, *Runner) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "uow.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.UpsertRoom(ctx, &room))
	require.NoError(t, db.UpsertGuest(ctx, &guest))

	d := &recordingDispatcher{}
	return db, d, NewRunner(db, d, &logger)
}

func newBooking(t *testing.T, id string) *models.Booking {
	t.Helper()
	dr, err := models.NewDateRange(now, now.AddDate(0, 0, 2))
	require.NoError(t, err)
	b, err := models.NewBooking(models.NewBookingParams{
		ID: id, Guest: guest, Room: room, Range: dr, Total: models.MustMoney(20000), CreatedBy: "frontdesk", Now: now,
	})
	require.NoError(t, err)
	return b
}

func TestDoAuditsInRaiseOrderAndDispatchesAfterCommit(t *testing.T) {
	db, d, runner := setup(t)
	ctx := context.Background()

	b := newBooking(t, "b-1")
	evts, err := runner.Do(ctx, "create_and_check_in", "frontdesk", func(ctx context.Context, u *Unit) error {
		u.Track(b)
		if err := b.CheckIn(u.Actor(), now); err != nil {
			return err
		}
		return u.AddBooking(ctx, b)
	})
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.False(t, b.HasPendingEvents(), "sources are drained")

	entries, err := db.GetRecentAuditEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, string(models.EventBookingStatusChanged), entries[0].Action)
	assert.Equal(t, string(models.EventBookingCreated), entries[1].Action)
	for _, e := range entries {
		assert.Equal(t, "b-1", e.EntityID)
		assert.Equal(t, "frontdesk", e.UserID)
	}

	require.Len(t, d.calls, 1)
	assert.Equal(t, evts, d.calls[0])
}

func TestDoRollsBackOnError(t *testing.T) {
	db, d, runner := setup(t)
	ctx := context.Background()

	b := newBooking(t, "b-1")
	boom := errors.New("boom")
	_, err := runner.Do(ctx, "create_booking", "frontdesk", func(ctx context.Context, u *Unit) error {
		u.Track(b)
		if err := u.AddBooking(ctx, b); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = db.GetBookingByID(ctx, "b-1")
	assert.True(t, apperrors.IsNotFound(err))
	entries, err := db.GetRecentAuditEntries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, d.calls)
}

func TestDoRollsBackOnStorageConflict(t *testing.T) {
	db, d, runner := setup(t)
	ctx := context.Background()

	_, err := runner.Do(ctx, "create_booking", "frontdesk", func(ctx context.Context, u *Unit) error {
		b := newBooking(t, "b-1")
		u.Track(b)
		return u.AddBooking(ctx, b)
	})
	require.NoError(t, err)

	_, err = runner.Do(ctx, "create_booking", "frontdesk", func(ctx context.Context, u *Unit) error {
		b := newBooking(t, "b-2")
		u.Track(b)
		return u.AddBooking(ctx, b)
	})
	assert.True(t, apperrors.IsConflict(err))

	entries, err := db.GetRecentAuditEntries(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, d.calls, 1)
}

func TestDoWithoutEventsStillCommits(t *testing.T) {
	db, d, runner := setup(t)
	ctx := context.Background()

	evts, err := runner.Do(ctx, "occupy_room", "frontdesk", func(ctx context.Context, u *Unit) error {
		r, err := u.GetRoomByID(ctx, "r-101")
		if err != nil {
			return err
		}
		if err := r.Occupy(); err != nil {
			return err
		}
		return u.UpdateRoom(ctx, r)
	})
	require.NoError(t, err)
	assert.Empty(t, evts)

	r, err := db.GetRoomByID(ctx, "r-101")
	require.NoError(t, err)
	assert.Equal(t, models.RoomOccupied, r.Status)
	require.Len(t, d.calls, 1)
}

func TestOnCommitHooksRunOnlyAfterCommit(t *testing.T) {
	_, _, runner := setup(t)
	ctx := context.Background()

	calls := 0
	runner.OnCommit(func(context.Context) { calls++ })

	_, err := runner.Do(ctx, "noop", "x", func(context.Context, *Unit) error { return nil })
	require.NoError(t, err)
	_, err = runner.Do(ctx, "fail", "x", func(context.Context, *Unit) error { return apperrors.Domain("nope") })
	require.Error(t, err)

	assert.Equal(t, 1, calls)
}
