package storage

import (
	"sync"

	"card-pricer/models"
)

// MemoryWriter keeps records in memory, for API batches that answer inline.
type MemoryWriter struct {
	mu      sync.Mutex
	records []models.PriceRecord
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (m *MemoryWriter) WriteRecord(rec models.PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything written so far.
func (m *MemoryWriter) Records() []models.PriceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PriceRecord, len(m.records))
	copy(out, m.records)
	return out
}

func (m *MemoryWriter) Close() error { return nil }
