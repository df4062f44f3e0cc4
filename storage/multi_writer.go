package storage

import (
	"errors"

	"card-pricer/models"
)

// MultiWriter fans every record out to several sinks.
type MultiWriter struct {
	writers []RecordWriter
}

func NewMultiWriter(writers ...RecordWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteRecord writes to every sink and reports all failures together.
func (m *MultiWriter) WriteRecord(rec models.PriceRecord) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.WriteRecord(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
