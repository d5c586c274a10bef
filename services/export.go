package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"railops-assistant/internal/database"
)

// ExportService renders the record log as a spreadsheet for the ops team.
type ExportService struct {
	store *database.Store
}

func NewExportService(store *database.Store) *ExportService {
	return &ExportService{store: store}
}

const exportSheet = "Logs"

var exportHeader = []string{
	"ID", "Timestamp", "User", "Category", "Item", "Quantity", "Location", "Status", "Sentiment", "Raw Text",
}

// BuildWorkbook creates an Excel workbook holding the most recent entries,
// newest first. The caller owns closing the returned file.
func (s *ExportService) BuildWorkbook(ctx context.Context, limit int) (*excelize.File, error) {
	entries, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", exportSheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(exportSheet, cell, title)
	}

	for row, e := range entries {
		quantity := any("")
		if e.Quantity != nil {
			quantity = *e.Quantity
		}
		values := []any{
			e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.UserName, e.Category,
			e.Item, quantity, e.Location, e.Status, e.Sentiment, e.RawText,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(exportSheet, cell, v)
		}
	}

	if err := f.SetColWidth(exportSheet, "B", "B", 20); err != nil {
		return nil, fmt.Errorf("failed to format workbook: %w", err)
	}
	return f, nil
}
