// Package uow runs a command inside one transaction and turns the events
// raised by its aggregates into audit entries and integration messages.
package uow

import (
	"context"
	"fmt"
	"time"

	"hotelbooking/internal/apperrors"
	"hotelbooking/internal/audit"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
)

// Dispatcher receives the events of a committed unit.
type Dispatcher interface {
	Dispatch(ctx context.Context, evts []events.Event)
}

// Unit is handed to the command body. Its repositories are bound to the
// open transaction.
type Unit struct {
	domain.Repositories
	actor   string
	sources []events.Source
}

// Track registers an aggregate whose events must be audited and published.
// Sources are drained in tracking order.
func (u *Unit) Track(s events.Source) {
	u.sources = append(u.sources, s)
}

func (u *Unit) Actor() string { return u.actor }

type Runner struct {
	store      domain.Store
	dispatcher Dispatcher
	onCommit   []func(ctx context.Context)
	logger     zerolog.Logger
}

func NewRunner(store domain.Store, dispatcher Dispatcher, logger *zerolog.Logger) *Runner {
	return &Runner{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "uow").Logger(),
	}
}

// OnCommit registers a hook run after every successful commit, before
// dispatch. Hooks must not block for long.
func (r *Runner) OnCommit(fn func(ctx context.Context)) {
	r.onCommit = append(r.onCommit, fn)
}

// Do runs fn in a transaction. After fn succeeds every tracked source is
// drained, one audit entry per event is appended in raise order, and the
// transaction commits. Only then are the events dispatched; dispatch
// failures never reach the caller. Any error before commit rolls back.
// An empty actor runs as models.SystemActor.
func (r *Runner) Do(ctx context.Context, command, actor string, fn func(ctx context.Context, u *Unit) error) ([]events.Event, error) {
	if actor == "" {
		actor = models.SystemActor
	}
	start := time.Now()
	evts, err := r.run(ctx, actor, fn)
	metrics.ObserveCommand(command, time.Since(start).Seconds())

	if err != nil {
		if apperrors.IsClient(err) {
			metrics.IncCommand(command, metrics.OutcomeClientError)
			r.logger.Warn().Err(err).Str("command", command).Str("actor", actor).Msg("command rejected")
		} else {
			metrics.IncCommand(command, metrics.OutcomeFailed)
			r.logger.Error().Err(err).Str("command", command).Str("actor", actor).Msg("command failed")
		}
		return nil, err
	}
	metrics.IncCommand(command, metrics.OutcomeOK)

	for _, hook := range r.onCommit {
		hook(ctx)
	}
	if r.dispatcher != nil {
		r.dispatcher.Dispatch(ctx, evts)
	}

	r.logger.Debug().Str("command", command).Str("actor", actor).Int("events", len(evts)).Msg("command committed")
	return evts, nil
}

func (r *Runner) run(ctx context.Context, actor string, fn func(ctx context.Context, u *Unit) error) ([]events.Event, error) {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	unit := &Unit{Repositories: tx, actor: actor}
	if err := fn(ctx, unit); err != nil {
		return nil, err
	}

	evts := events.Collect(unit.sources...)
	written := 0
	for _, e := range evts {
		entry, ok, err := audit.EntryFor(e, actor)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.logger.Debug().Str("kind", string(e.Kind())).Msg("event kind not audited")
			continue
		}
		if err := tx.AppendAuditEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("audit %s: %w", e.Kind(), err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	metrics.AddAuditEntries(written)
	return evts, nil
}
