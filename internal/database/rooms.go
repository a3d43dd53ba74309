package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/models"
)

const roomColumns = `id, number, type, status, version`

func scanRoom(row scanner) (*models.Room, error) {
	var room models.Room
	if err := row.Scan(&room.ID, &room.Number, &room.Type, &room.Status, &room.Version); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r repo) queryRooms(ctx context.Context, query string, args ...any) ([]*models.Room, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r repo) GetRoomByID(ctx context.Context, id string) (*models.Room, error) {
	room, err := scanRoom(r.q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("room", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (r repo) GetRoomByNumber(ctx context.Context, number string) (*models.Room, error) {
	room, err := scanRoom(r.q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE number = ?`, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("room", number)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room by number: %w", err)
	}
	return room, nil
}

func (r repo) ListRooms(ctx context.Context) ([]*models.Room, error) {
	rooms, err := r.queryRooms(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY number ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (r repo) GetAvailableRooms(ctx context.Context, dr models.DateRange, roomType models.RoomType) ([]*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms r
              WHERE r.status = ?
                AND (? = '' OR r.type = ?)
                AND NOT EXISTS (
                    SELECT 1 FROM bookings b
                    WHERE b.room_id = r.id
                      AND b.status <> ?
                      AND b.check_in < ? AND ? < b.check_out
                )
              ORDER BY r.number ASC`
	rooms, err := r.queryRooms(ctx, query,
		models.RoomAvailable,
		roomType, roomType,
		models.StatusCancelled,
		formatTime(dr.CheckOut), formatTime(dr.CheckIn),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get available rooms: %w", err)
	}
	return rooms, nil
}

func (r repo) UpdateRoom(ctx context.Context, room *models.Room) error {
	query := `UPDATE rooms SET status = ?, version = version + 1 WHERE id = ? AND version = ?`
	result, err := r.q.ExecContext(ctx, query, room.Status, room.ID, room.Version)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	if rows == 0 {
		return ErrConcurrentModification
	}
	room.Version++
	return nil
}

// UpsertRoom seeds room metadata. The status of an existing room is kept.
func (r repo) UpsertRoom(ctx context.Context, room *models.Room) error {
	status := room.Status
	if status == "" {
		status = models.RoomAvailable
	}
	query := `INSERT INTO rooms (id, number, type, status, version) VALUES (?, ?, ?, ?, 1)
              ON CONFLICT(id) DO UPDATE SET number = excluded.number, type = excluded.type`
	if _, err := r.q.ExecContext(ctx, query, room.ID, room.Number, room.Type, status); err != nil {
		return fmt.Errorf("failed to upsert room %s: %w", room.Number, translate(err))
	}
	return nil
}
