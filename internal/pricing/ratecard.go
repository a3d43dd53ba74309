// Package pricing quotes stays from a static rate card.
package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"hotelbooking/internal/config"
	"hotelbooking/internal/models"
)

// RateCard charges a flat nightly rate per room type, plus an optional
// surcharge on Friday and Saturday nights.
type RateCard struct {
	rates            map[models.RoomType]models.Money
	weekendSurcharge int64
}

func NewRateCard(cfg config.PricingConfig) (*RateCard, error) {
	rc := &RateCard{
		rates:            make(map[models.RoomType]models.Money, len(cfg.NightlyRates)),
		weekendSurcharge: cfg.WeekendSurchargePercent,
	}
	for name, rate := range cfg.NightlyRates {
		rt, err := models.ParseRoomType(name)
		if err != nil {
			return nil, err
		}
		m, err := models.NewMoney(int64(math.Round(rate * 100)))
		if err != nil {
			return nil, fmt.Errorf("rate for %s: %w", rt, err)
		}
		rc.rates[rt] = m
	}
	return rc, nil
}

// CalculatePrice prices each night of the stay. PricePerNight is the base
// rate; TotalPrice includes weekend surcharges.
func (rc *RateCard) CalculatePrice(ctx context.Context, roomType models.RoomType, dr models.DateRange) (models.PriceQuote, error) {
	if err := ctx.Err(); err != nil {
		return models.PriceQuote{}, err
	}
	rate, ok := rc.rates[roomType]
	if !ok {
		return models.PriceQuote{}, fmt.Errorf("no rate configured for room type %q", roomType)
	}

	nights := dr.Nights()
	total := models.Money{}
	night := models.StartOfDay(dr.CheckIn)
	for i := 0; i < nights; i++ {
		total = total.Add(rate)
		if rc.weekendSurcharge > 0 && isWeekendNight(night) {
			total = total.Add(rate.Percent(rc.weekendSurcharge))
		}
		night = night.AddDate(0, 0, 1)
	}

	return models.PriceQuote{PricePerNight: rate, TotalPrice: total, Nights: nights}, nil
}

func isWeekendNight(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Friday || wd == time.Saturday
}
