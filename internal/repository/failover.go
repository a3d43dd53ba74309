package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// breaker tracks whether the primary store is considered down and when it
// may be probed again.
type breaker struct {
	mu        sync.Mutex
	isDown    bool
	lastCheck time.Time
	now       func() time.Time
}

// usePrimary reports whether a call should go to the primary. probe is true
// when the primary is down but due for a recovery attempt.
func (b *breaker) usePrimary() (use, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.isDown {
		return true, false
	}
	if b.now().Sub(b.lastCheck) > recoveryInterval {
		b.lastCheck = b.now()
		return true, true
	}
	return false, false
}

func (b *breaker) markDown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.isDown = true
	b.lastCheck = b.now()
}

func (b *breaker) markUp() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.isDown = false
}

func (b *breaker) down() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isDown
}

type FailoverSearchCache struct {
	primary  domain.SearchCache
	fallback domain.SearchCache
	logger   *zerolog.Logger
	state    breaker
}

func NewFailoverSearchCache(primary, fallback domain.SearchCache, logger *zerolog.Logger) *FailoverSearchCache {
	return &FailoverSearchCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		state:    breaker{now: time.Now},
	}
}

// recovered clears whatever the primary cached before it went away; it may
// have missed invalidations.
func (c *FailoverSearchCache) recovered(ctx context.Context) bool {
	if err := c.primary.Invalidate(ctx); err != nil {
		c.state.markDown()
		return false
	}
	c.state.markUp()
	c.logger.Info().Msg("Primary search cache recovered")
	return true
}

func (c *FailoverSearchCache) GetRooms(ctx context.Context, key string) ([]models.AvailableRoom, bool, error) {
	if use, probe := c.state.usePrimary(); use {
		if !probe || c.recovered(ctx) {
			rooms, ok, err := c.primary.GetRooms(ctx, key)
			if err == nil {
				return rooms, ok, nil
			}
			c.logger.Error().Err(err).Msg("Primary search cache failed, falling back to memory")
			c.state.markDown()
		}
	}
	return c.fallback.GetRooms(ctx, key)
}

const (
	primaryGen  = "p:"
	fallbackGen = "f:"
)

// Generation tags the token with the store it came from so SetRooms writes
// to that store only.
func (c *FailoverSearchCache) Generation(ctx context.Context) (string, error) {
	if use, probe := c.state.usePrimary(); use {
		if !probe || c.recovered(ctx) {
			gen, err := c.primary.Generation(ctx)
			if err == nil {
				return primaryGen + gen, nil
			}
			c.logger.Error().Err(err).Msg("Primary search cache failed, falling back to memory")
			c.state.markDown()
		}
	}
	gen, err := c.fallback.Generation(ctx)
	if err != nil {
		return "", err
	}
	return fallbackGen + gen, nil
}

// SetRooms drops the write when the store that issued gen is no longer the
// active one; the other store never saw that generation.
func (c *FailoverSearchCache) SetRooms(ctx context.Context, gen, key string, rooms []models.AvailableRoom, ttl time.Duration) error {
	switch {
	case strings.HasPrefix(gen, primaryGen):
		if c.state.down() {
			return nil
		}
		if err := c.primary.SetRooms(ctx, strings.TrimPrefix(gen, primaryGen), key, rooms, ttl); err != nil {
			c.logger.Error().Err(err).Msg("Primary search cache failed, falling back to memory")
			c.state.markDown()
		}
		return nil
	case strings.HasPrefix(gen, fallbackGen):
		if !c.state.down() {
			return nil
		}
		return c.fallback.SetRooms(ctx, strings.TrimPrefix(gen, fallbackGen), key, rooms, ttl)
	default:
		return fmt.Errorf("unknown search generation %q", gen)
	}
}

// Invalidate clears both stores so a later switch in either direction never
// serves stale availability.
func (c *FailoverSearchCache) Invalidate(ctx context.Context) error {
	if !c.state.down() {
		if err := c.primary.Invalidate(ctx); err != nil {
			c.logger.Error().Err(err).Msg("Primary search cache failed, falling back to memory")
			c.state.markDown()
		}
	}
	return c.fallback.Invalidate(ctx)
}

type FailoverDeduper struct {
	primary  domain.Deduper
	fallback domain.Deduper
	logger   *zerolog.Logger
	state    breaker
}

func NewFailoverDeduper(primary, fallback domain.Deduper, logger *zerolog.Logger) *FailoverDeduper {
	return &FailoverDeduper{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		state:    breaker{now: time.Now},
	}
}

func (d *FailoverDeduper) Seen(ctx context.Context, key string) (bool, error) {
	if use, _ := d.state.usePrimary(); use {
		seen, err := d.primary.Seen(ctx, key)
		if err == nil {
			d.state.markUp()
			if seen {
				return true, nil
			}
			// Keys marked while the primary was down live only in memory.
			return d.fallback.Seen(ctx, key)
		}
		d.logger.Error().Err(err).Msg("Primary dedupe store failed, falling back to memory")
		d.state.markDown()
	}
	return d.fallback.Seen(ctx, key)
}

func (d *FailoverDeduper) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if !d.state.down() {
		err := d.primary.Mark(ctx, key, ttl)
		if err == nil {
			return nil
		}
		d.logger.Error().Err(err).Msg("Primary dedupe store failed, falling back to memory")
		d.state.markDown()
	}
	return d.fallback.Mark(ctx, key, ttl)
}
