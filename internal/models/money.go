package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"hotelbooking/internal/apperrors"
)

// Money is a non-negative amount in minor units (cents) of the single
// configured currency.
type Money struct {
	cents int64
}

// NewMoney validates that the amount is not negative.
func NewMoney(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, apperrors.Validation("amount", "must not be negative, got %d", cents)
	}
	return Money{cents: cents}, nil
}

// MustMoney is NewMoney for constants and fixtures.
func MustMoney(cents int64) Money {
	m, err := NewMoney(cents)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney accepts decimal strings such as "100", "99.5" or "100.25".
func ParseMoney(raw string) (Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Money{}, apperrors.Validation("amount", "is empty")
	}
	whole, frac, hasFrac := strings.Cut(raw, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return Money{}, apperrors.Validation("amount", "invalid decimal %q", raw)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, apperrors.Validation("amount", "invalid decimal %q", raw)
	}
	if strings.HasPrefix(whole, "-") {
		return Money{}, apperrors.Validation("amount", "must not be negative, got %s", raw)
	}
	var cents int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 {
			return Money{}, apperrors.Validation("amount", "invalid decimal %q", raw)
		}
	}
	return NewMoney(units*100 + cents)
}

func (m Money) Cents() int64 { return m.cents }

func (m Money) IsZero() bool { return m.cents == 0 }

func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}

func (m Money) Multiply(times int64) Money {
	if times < 0 {
		times = 0
	}
	return Money{cents: m.cents * times}
}

// Percent returns p percent of m, rounded half up.
func (m Money) Percent(p int64) Money {
	if p <= 0 {
		return Money{}
	}
	return Money{cents: (m.cents*p + 50) / 100}
}

func (m Money) LessThan(other Money) bool { return m.cents < other.cents }

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", m.cents/100, m.cents%100)
}

// MarshalJSON writes the amount as a decimal number, e.g. 300.00.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return apperrors.Validation("amount", "must be a number")
	}
	parsed, err := ParseMoney(num.String())
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
