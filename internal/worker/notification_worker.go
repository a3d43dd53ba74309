package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"hotelbooking/internal/metrics"

	"github.com/rs/zerolog"
)

// Message is one broker delivery. Ack and Nack must be called at most once.
type Message interface {
	RoutingKey() string
	MessageID() string
	Body() []byte
	// RetryCount is the number of times the message was already retried.
	RetryCount() int
	Ack() error
	// Nack with requeue=false routes the message to the dead-letter exchange.
	Nack(requeue bool) error
}

// Requeuer republishes a copy of msg carrying the new retry count.
type Requeuer interface {
	Requeue(ctx context.Context, msg Message, retryCount int) error
}

type Handler interface {
	Handle(ctx context.Context, routingKey string, body []byte) error
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error that retrying cannot fix, such as a malformed body.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// NotificationWorker acks a message only after its handler succeeded.
// Failures are republished with an incremented retry count after a backoff
// delay; exhausted or permanent failures go to the dead-letter exchange.
type NotificationWorker struct {
	handler     Handler
	requeuer    Requeuer
	retryPolicy RetryPolicy
	logger      zerolog.Logger
	wg          sync.WaitGroup
}

func NewNotificationWorker(handler Handler, requeuer Requeuer, retry RetryPolicy, logger *zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{
		handler:     handler,
		requeuer:    requeuer,
		retryPolicy: retry,
		logger:      logger.With().Str("component", "notification_worker").Logger(),
	}
}

// Start consumes until ctx is done or msgs is closed, then waits for
// pending retries.
func (w *NotificationWorker) Start(ctx context.Context, msgs <-chan Message) {
	w.logger.Info().Msg("notification worker started")
	defer w.logger.Info().Msg("notification worker stopped")
	defer w.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			w.processMessage(ctx, msg)
		}
	}
}

// Wait blocks until scheduled retries have finished.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) processMessage(ctx context.Context, msg Message) {
	log := w.logger.With().Str("routing_key", msg.RoutingKey()).Str("message_id", msg.MessageID()).
		Int("retry", msg.RetryCount()).Logger()

	err := w.handler.Handle(ctx, msg.RoutingKey(), msg.Body())
	if err == nil {
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("ack failed")
		}
		metrics.IncNotification(msg.RoutingKey(), metrics.OutcomeOK)
		return
	}

	if IsPermanent(err) {
		log.Error().Err(err).Msg("permanent failure, dead-lettering")
		w.deadLetter(msg, log)
		return
	}

	w.retryOrFail(ctx, msg, err, log)
}

func (w *NotificationWorker) retryOrFail(ctx context.Context, msg Message, cause error, log zerolog.Logger) {
	retries := msg.RetryCount()
	if w.retryPolicy.Exhausted(retries) {
		log.Error().Err(cause).Msg("retries exhausted, dead-lettering")
		w.deadLetter(msg, log)
		return
	}

	delay := w.retryPolicy.NextDelay(retries + 1)
	log.Warn().Err(cause).Dur("delay", delay).Msg("handler failed, scheduling retry")
	metrics.IncNotification(msg.RoutingKey(), metrics.OutcomeRetried)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.retryLater(ctx, msg, retries+1, delay, log)
	}()
}

// retryLater holds the original delivery unacked until the copy is
// republished, so a crash in between causes redelivery rather than loss.
func (w *NotificationWorker) retryLater(ctx context.Context, msg Message, retryCount int, delay time.Duration, log zerolog.Logger) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		if err := msg.Nack(true); err != nil {
			log.Error().Err(err).Msg("nack on shutdown failed")
		}
		return
	case <-timer.C:
	}

	if err := w.requeuer.Requeue(ctx, msg, retryCount); err != nil {
		log.Error().Err(err).Msg("republish failed, requeueing original")
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Error().Err(nackErr).Msg("nack failed")
		}
		return
	}
	if err := msg.Ack(); err != nil {
		log.Error().Err(err).Msg("ack after republish failed")
	}
}

func (w *NotificationWorker) deadLetter(msg Message, log zerolog.Logger) {
	if err := msg.Nack(false); err != nil {
		log.Error().Err(err).Msg("dead-letter nack failed")
	}
	metrics.IncNotification(msg.RoutingKey(), metrics.OutcomeDeadLetter)
}
