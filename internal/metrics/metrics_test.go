package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		ObserveCommand("create_booking", 0.01)
		IncSearchCache(true)
		IncSearchCache(false)
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(commands.WithLabelValues("cancel_booking", OutcomeOK))
	IncCommand("cancel_booking", OutcomeOK)
	assert.Equal(t, before+1, testutil.ToFloat64(commands.WithLabelValues("cancel_booking", OutcomeOK)))

	beforeAudit := testutil.ToFloat64(auditEntries)
	AddAuditEntries(2)
	assert.Equal(t, beforeAudit+2, testutil.ToFloat64(auditEntries))

	beforePub := testutil.ToFloat64(publishes.WithLabelValues("booking.created", OutcomeFailed))
	IncPublish("booking.created", OutcomeFailed)
	assert.Equal(t, beforePub+1, testutil.ToFloat64(publishes.WithLabelValues("booking.created", OutcomeFailed)))

	beforeNotif := testutil.ToFloat64(notifications.WithLabelValues("booking.cancelled", OutcomeDuplicate))
	IncNotification("booking.cancelled", OutcomeDuplicate)
	assert.Equal(t, beforeNotif+1, testutil.ToFloat64(notifications.WithLabelValues("booking.cancelled", OutcomeDuplicate)))
}
