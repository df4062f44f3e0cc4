package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"card-pricer/models"
)

const sheetName = "Card Prices"

// XLSXWriter collects rows in a workbook and saves it on Close.
type XLSXWriter struct {
	mu   sync.Mutex
	path string
	file *excelize.File
	row  int
}

// NewXLSXWriter prepares a workbook with a header row.
func NewXLSXWriter(path string) (*XLSXWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("xlsx: create output dir: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	w := &XLSXWriter{path: path, file: f, row: 1}
	if err := w.writeRow(stringsToCells(recordHeader)); err != nil {
		_ = f.Close()
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(recordHeader), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return w, nil
}

// WriteRecord appends one row. Numeric columns are stored as numbers.
func (w *XLSXWriter) WriteRecord(rec models.PriceRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cells := stringsToCells(recordRow(rec))
	p := rec.Price
	cells[7] = p.PredictedPrice.InexactFloat64()
	cells[8] = p.ConfidenceScore
	cells[9] = len(p.RecentSales)
	cells[10] = len(p.ActiveListings)
	cells[14] = p.MarketAnalysis.AvgSalePrice
	cells[15] = p.MarketAnalysis.AvgActivePrice
	cells[16] = p.MarketAnalysis.ActiveListingsCount
	cells[17] = p.MarketAnalysis.RecentSalesCount
	return w.writeRow(cells)
}

func (w *XLSXWriter) writeRow(cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return fmt.Errorf("xlsx: cell name: %w", err)
	}
	if err := w.file.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("xlsx: write row %d: %w", w.row, err)
	}
	w.row++
	return nil
}

// Close saves the workbook to disk.
func (w *XLSXWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.SaveAs(w.path); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("xlsx: save %q: %w", w.path, err)
	}
	return w.file.Close()
}

func stringsToCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
