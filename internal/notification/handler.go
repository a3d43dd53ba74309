// Package notification turns booking messages from the broker into guest
// notifications, at most once per booking and routing key.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/integration"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"
	"hotelbooking/internal/worker"

	"github.com/rs/zerolog"
)

type Handler struct {
	notifier  domain.Notifier
	deduper   domain.Deduper
	dedupeTTL time.Duration
	logger    *zerolog.Logger
}

var _ worker.Handler = (*Handler)(nil)

func NewHandler(notifier domain.Notifier, deduper domain.Deduper, dedupeTTL time.Duration, logger *zerolog.Logger) *Handler {
	return &Handler{
		notifier:  notifier,
		deduper:   deduper,
		dedupeTTL: dedupeTTL,
		logger:    logger,
	}
}

// DedupeKey identifies one notification.
func DedupeKey(routingKey, bookingID string) string {
	return "notify:" + routingKey + ":" + bookingID
}

// Handle returns a permanent error for bodies that can never be processed.
// A dedupe store failure is returned as a transient error so the message is
// retried rather than possibly sent twice.
func (h *Handler) Handle(ctx context.Context, routingKey string, body []byte) error {
	bookingID, subject, text, err := render(routingKey, body)
	if err != nil {
		return worker.Permanent(err)
	}

	key := DedupeKey(routingKey, bookingID)
	seen, err := h.deduper.Seen(ctx, key)
	if err != nil {
		return fmt.Errorf("dedupe lookup: %w", err)
	}
	if seen {
		h.logger.Info().Str("booking_id", bookingID).Str("routing_key", routingKey).Msg("Notification already sent, skipping")
		metrics.IncNotification(routingKey, metrics.OutcomeDuplicate)
		return nil
	}

	if err := h.notifier.Notify(ctx, subject, text); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	if err := h.deduper.Mark(ctx, key, h.dedupeTTL); err != nil {
		// Already delivered; a retry would send it again.
		h.logger.Error().Err(err).Str("booking_id", bookingID).Msg("Failed to record sent notification")
	}
	return nil
}

func render(routingKey string, body []byte) (bookingID, subject, text string, err error) {
	switch routingKey {
	case integration.RoutingBookingCreated:
		var msg integration.BookingCreatedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return "", "", "", fmt.Errorf("decode %s: %w", routingKey, err)
		}
		if msg.BookingID == "" {
			return "", "", "", fmt.Errorf("%s: missing bookingId", routingKey)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Dear %s,\n", guestName(msg.GuestName))
		fmt.Fprintf(&b, "your booking %s is confirmed.\n", msg.BookingID)
		fmt.Fprintf(&b, "Room %s (%s)\n", msg.RoomNumber, msg.RoomType)
		fmt.Fprintf(&b, "Check-in: %s\n", msg.CheckIn.Format(models.DateLayout))
		fmt.Fprintf(&b, "Check-out: %s\n", msg.CheckOut.Format(models.DateLayout))
		fmt.Fprintf(&b, "Total: %s %s", msg.TotalAmount, models.DefaultCurrency)
		return msg.BookingID, "Booking confirmed: " + msg.BookingID, b.String(), nil

	case integration.RoutingBookingCancelled:
		var msg integration.BookingCancelledMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return "", "", "", fmt.Errorf("decode %s: %w", routingKey, err)
		}
		if msg.BookingID == "" {
			return "", "", "", fmt.Errorf("%s: missing bookingId", routingKey)
		}
		text := fmt.Sprintf("Dear %s,\nyour booking %s has been cancelled.", guestName(msg.GuestName), msg.BookingID)
		return msg.BookingID, "Booking cancelled: " + msg.BookingID, text, nil

	default:
		return "", "", "", fmt.Errorf("unsupported routing key %q", routingKey)
	}
}

func guestName(name string) string {
	if name == "" {
		return "guest"
	}
	return name
}
