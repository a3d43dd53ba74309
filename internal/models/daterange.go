package models

import (
	"time"

	"hotelbooking/internal/apperrors"
)

// DateRange is the half-open stay interval [CheckIn, CheckOut).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	if checkIn.IsZero() {
		return DateRange{}, apperrors.Validation("checkIn", "is required")
	}
	if checkOut.IsZero() {
		return DateRange{}, apperrors.Validation("checkOut", "is required")
	}
	dr := DateRange{CheckIn: checkIn.UTC(), CheckOut: checkOut.UTC()}
	if !dr.CheckOut.After(dr.CheckIn) {
		return DateRange{}, apperrors.Validation("checkOut", "must be after checkIn")
	}
	return dr, nil
}

// EnsureNotPast rejects a check-in before the start of now's UTC day.
func (dr DateRange) EnsureNotPast(now time.Time) error {
	if dr.CheckIn.Before(StartOfDay(now)) {
		return apperrors.Validation("checkIn", "must not be in the past")
	}
	return nil
}

// Overlaps uses half-open semantics: a checkout on the same instant as
// another check-in does not overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

// Nights counts calendar nights between the check-in and check-out days,
// never less than one.
func (dr DateRange) Nights() int {
	n := int(StartOfDay(dr.CheckOut).Sub(StartOfDay(dr.CheckIn)).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

func (dr DateRange) Equal(other DateRange) bool {
	return dr.CheckIn.Equal(other.CheckIn) && dr.CheckOut.Equal(other.CheckOut)
}

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
