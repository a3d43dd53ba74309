package export

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubSource struct {
	entries []*models.AuditLogEntry
	err     error
	limit   int
}

func (s *stubSource) GetRecentAuditEntries(_ context.Context, limit int) ([]*models.AuditLogEntry, error) {
	s.limit = limit
	return s.entries, s.err
}

func TestAuditExport(t *testing.T) {
	at := time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC)
	src := &stubSource{entries: []*models.AuditLogEntry{
		{ID: "a-2", Action: "BookingStatusChanged", EntityType: "Booking", EntityID: "b-1", UserID: "frontdesk", Timestamp: at, Details: `{"newStatus":"CheckedIn"}`},
		{ID: "a-1", Action: "BookingCreated", EntityType: "Booking", EntityID: "b-1", UserID: "frontdesk", Timestamp: at.Add(-time.Hour)},
	}}
	logger := zerolog.New(io.Discard)
	dir := filepath.Join(t.TempDir(), "exports")

	exporter := NewAuditExporter(src, dir, &logger)
	exporter.now = func() time.Time { return at }

	path, err := exporter.Export(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "audit_2025-01-10_14-30-00.xlsx"), path)
	assert.Equal(t, 50, src.limit)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{auditSheet}, f.GetSheetList())

	rows, err := f.GetRows(auditSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, auditHeaders, rows[0])
	assert.Equal(t, []string{"2025-01-10 14:30:00", "BookingStatusChanged", "Booking", "b-1", "frontdesk", `{"newStatus":"CheckedIn"}`, "a-2"}, rows[1])
	assert.Equal(t, "BookingCreated", rows[2][1])
}

func TestAuditExportSourceError(t *testing.T) {
	logger := zerolog.New(io.Discard)
	exporter := NewAuditExporter(&stubSource{err: errors.New("db closed")}, t.TempDir(), &logger)

	_, err := exporter.Export(context.Background(), 10)
	assert.Error(t, err)
}
