package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/models"
)

const bookingColumns = `id, guest_id, room_id, check_in, check_out, status,
	total_cents, created_at, updated_at, version`

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (*models.Booking, error) {
	var (
		b                                       models.Booking
		checkIn, checkOut, createdAt, updatedAt string
		cents                                   int64
	)
	err := row.Scan(&b.ID, &b.GuestID, &b.RoomID, &checkIn, &checkOut, &b.Status,
		&cents, &createdAt, &updatedAt, &b.Version)
	if err != nil {
		return nil, err
	}

	if b.Range.CheckIn, err = parseTime(checkIn); err != nil {
		return nil, fmt.Errorf("failed to parse check_in %s: %w", checkIn, err)
	}
	if b.Range.CheckOut, err = parseTime(checkOut); err != nil {
		return nil, fmt.Errorf("failed to parse check_out %s: %w", checkOut, err)
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at %s: %w", createdAt, err)
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at %s: %w", updatedAt, err)
	}
	if b.TotalAmount, err = models.NewMoney(cents); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r repo) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r repo) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("booking", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (r repo) GetBookingsByGuestID(ctx context.Context, guestID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE guest_id = ? ORDER BY check_in ASC`
	bookings, err := r.queryBookings(ctx, query, guestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guest bookings: %w", err)
	}
	return bookings, nil
}

// GetBookingsByCheckInDate returns every booking whose check-in falls on the
// given UTC calendar day, cancelled ones included.
func (r repo) GetBookingsByCheckInDate(ctx context.Context, date time.Time) ([]*models.Booking, error) {
	from, to := dayBounds(date)
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE check_in >= ? AND check_in < ? ORDER BY check_in ASC, id ASC`
	bookings, err := r.queryBookings(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get arrivals: %w", err)
	}
	return bookings, nil
}

func (r repo) GetBookingsByCheckOutDate(ctx context.Context, date time.Time) ([]*models.Booking, error) {
	from, to := dayBounds(date)
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE check_out >= ? AND check_out < ? ORDER BY check_out ASC, id ASC`
	bookings, err := r.queryBookings(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get departures: %w", err)
	}
	return bookings, nil
}

func (r repo) HasOverlappingBooking(ctx context.Context, roomID string, dr models.DateRange, excludeID string) (bool, error) {
	query := `SELECT EXISTS (
                SELECT 1 FROM bookings
                WHERE room_id = ? AND id <> ? AND status <> ?
                  AND check_in < ? AND ? < check_out)`
	var exists bool
	err := r.q.QueryRowContext(ctx, query, roomID, excludeID, models.StatusCancelled,
		formatTime(dr.CheckOut), formatTime(dr.CheckIn)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check overlapping bookings: %w", err)
	}
	return exists, nil
}

func (r repo) AddBooking(ctx context.Context, b *models.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		b.ID,
		b.GuestID,
		b.RoomID,
		formatTime(b.Range.CheckIn),
		formatTime(b.Range.CheckOut),
		b.Status,
		b.TotalAmount.Cents(),
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", translate(err))
	}
	b.Version = 1
	return nil
}

// UpdateBooking writes the mutable fields if the stored version still matches.
func (r repo) UpdateBooking(ctx context.Context, b *models.Booking) error {
	query := `UPDATE bookings
              SET check_in = ?, check_out = ?, status = ?, total_cents = ?, updated_at = ?, version = version + 1
              WHERE id = ? AND version = ?`
	result, err := r.q.ExecContext(ctx, query,
		formatTime(b.Range.CheckIn),
		formatTime(b.Range.CheckOut),
		b.Status,
		b.TotalAmount.Cents(),
		formatTime(b.UpdatedAt),
		b.ID,
		b.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", translate(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if rows == 0 {
		return ErrConcurrentModification
	}
	b.Version++
	return nil
}

func dayBounds(date time.Time) (string, string) {
	start := models.StartOfDay(date)
	return formatTime(start), formatTime(start.AddDate(0, 0, 1))
}
