package models

import (
	"fmt"

	"hotelbooking/internal/apperrors"
)

// PriceQuote is produced by the pricing collaborator; callers never supply totals.
type PriceQuote struct {
	PricePerNight Money `json:"pricePerNight"`
	TotalPrice    Money `json:"totalPrice"`
	Nights        int   `json:"nights"`
}

// AvailableRoom is one search hit.
type AvailableRoom struct {
	Room
	PricePerNight Money `json:"pricePerNight"`
	TotalPrice    Money `json:"totalPrice"`
	Nights        int   `json:"nights"`
}

// RoomSearch describes an availability query. Empty RoomType and nil price
// bounds mean "any".
type RoomSearch struct {
	Range    DateRange
	RoomType RoomType
	MinPrice *Money
	MaxPrice *Money
}

func (s RoomSearch) Validate() error {
	if s.MinPrice != nil && s.MaxPrice != nil && s.MaxPrice.LessThan(*s.MinPrice) {
		return apperrors.Validation("maxPrice", "must not be less than minPrice")
	}
	return nil
}

// Matches reports whether a nightly price falls within the bounds.
func (s RoomSearch) Matches(pricePerNight Money) bool {
	if s.MinPrice != nil && pricePerNight.LessThan(*s.MinPrice) {
		return false
	}
	if s.MaxPrice != nil && s.MaxPrice.LessThan(pricePerNight) {
		return false
	}
	return true
}

// CacheKey identifies the query for the search cache.
func (s RoomSearch) CacheKey() string {
	bound := func(m *Money) string {
		if m == nil {
			return "-"
		}
		return m.String()
	}
	rt := string(s.RoomType)
	if rt == "" {
		rt = "*"
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		s.Range.CheckIn.Format("2006-01-02T15:04:05Z"),
		s.Range.CheckOut.Format("2006-01-02T15:04:05Z"),
		rt, bound(s.MinPrice), bound(s.MaxPrice))
}
