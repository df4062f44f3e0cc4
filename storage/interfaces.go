package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"card-pricer/models"
)

// RecordWriter is the interface any output backend must satisfy. Writers are
// shared by concurrent batch workers.
type RecordWriter interface {
	WriteRecord(rec models.PriceRecord) error
	Close() error
}

// NewFileWriter picks the file sink by extension: .xlsx gets a workbook,
// .csv or no extension gets CSV, and any other extension is an error.
func NewFileWriter(path string) (RecordWriter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		w, err := NewXLSXWriter(path)
		if err != nil {
			return nil, err
		}
		return w, nil
	case ".csv", "":
		w, err := NewCSVWriter(path)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
}
