package database

import (
	"errors"
	"strings"
	"time"

	"hotelbooking/internal/apperrors"

	"github.com/mattn/go-sqlite3"
)

const overlapMarker = "booking_overlap"

var (
	ErrConcurrentModification = apperrors.Conflict("concurrent modification, reload and retry")
	ErrBookingOverlap         = apperrors.Conflict("room is already booked for the requested dates")
)

// translate maps storage-level constraint failures onto the error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		if strings.Contains(sqliteErr.Error(), overlapMarker) {
			return ErrBookingOverlap
		}
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return apperrors.Conflict("%s", sqliteErr.Error())
		}
	}
	if strings.Contains(err.Error(), overlapMarker) {
		return ErrBookingOverlap
	}
	return err
}

// Timestamps are stored as fixed-width UTC text so that string comparison
// in SQL matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
