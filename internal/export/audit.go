// Package export writes the audit trail to spreadsheets for offline review.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const auditSheet = "Audit"

var auditHeaders = []string{"Timestamp (UTC)", "Action", "Entity", "Entity ID", "User", "Details", "Entry ID"}

type auditSource interface {
	GetRecentAuditEntries(ctx context.Context, limit int) ([]*models.AuditLogEntry, error)
}

type AuditExporter struct {
	source auditSource
	dir    string
	logger *zerolog.Logger
	now    func() time.Time
}

func NewAuditExporter(source auditSource, dir string, logger *zerolog.Logger) *AuditExporter {
	return &AuditExporter{source: source, dir: dir, logger: logger, now: time.Now}
}

// Export writes up to limit recent entries, newest first, and returns the
// file path.
func (e *AuditExporter) Export(ctx context.Context, limit int) (string, error) {
	entries, err := e.source.GetRecentAuditEntries(ctx, limit)
	if err != nil {
		return "", fmt.Errorf("error getting audit entries: %w", err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(auditSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeHeader(f); err != nil {
		return "", err
	}

	for i, entry := range entries {
		row := []any{
			entry.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			entry.Action,
			entry.EntityType,
			entry.EntityID,
			entry.UserID,
			entry.Details,
			entry.ID,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(auditSheet, cell, &row); err != nil {
			return "", fmt.Errorf("error writing row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(auditSheet, "A", "A", 20)
	_ = f.SetColWidth(auditSheet, "B", "B", 22)
	_ = f.SetColWidth(auditSheet, "C", "E", 16)
	_ = f.SetColWidth(auditSheet, "F", "F", 80)
	_ = f.SetColWidth(auditSheet, "G", "G", 38)
	_ = f.SetPanes(auditSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("audit_%s.xlsx", e.now().UTC().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("entries", len(entries)).Msg("Audit export created")
	return filePath, nil
}

func writeHeader(f *excelize.File) error {
	for i, header := range auditHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(auditSheet, cell, header); err != nil {
			return fmt.Errorf("error writing header: %w", err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(auditHeaders), 1)
	return f.SetCellStyle(auditSheet, "A1", last, style)
}
