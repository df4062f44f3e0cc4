package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-pricer/models"
)

type stubPricer struct {
	fail     map[string]error
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *stubPricer) GetCardPrice(_ context.Context, q models.CardQuery) (*models.CardPrice, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if err, ok := s.fail[q.Brand]; ok {
		return nil, err
	}
	return &models.CardPrice{Query: BuildSearchQuery(q), PredictedPrice: decimal.NewFromInt(10)}, nil
}

type recordingWriter struct {
	mu      sync.Mutex
	records []models.PriceRecord
	err     error
}

func (w *recordingWriter) WriteRecord(rec models.PriceRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.records = append(w.records, rec)
	return nil
}

func TestProcessManyIsolatesFailures(t *testing.T) {
	pricer := &stubPricer{fail: map[string]error{"Bad": errors.New("marketplace unavailable")}}
	writer := &recordingWriter{}
	b := NewBatchProcessor(pricer, writer, 2, quietLogger(), nil)

	result := b.ProcessMany(context.Background(), []models.CardQuery{
		{Brand: "Topps", SetName: "Chrome", Year: "2020"},
		{Brand: "Bad", SetName: "Set", Year: "2021"},
		{Brand: "Panini", SetName: "Prizm", Year: "2019"},
		{Brand: "Upper Deck", Year: "1993"},
	})

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, result.Total, result.Successful+result.Failed)
	assert.ElementsMatch(t, []models.BatchError{
		{Card: "Bad Set 2021", Error: "marketplace unavailable"},
		{Card: "Upper Deck  1993", Error: "card is missing required fields: SetName"},
	}, result.Errors)

	require.Len(t, writer.records, 2)
	indexByBrand := map[string]int{}
	for _, rec := range writer.records {
		assert.Equal(t, result.RunID, rec.RunID)
		assert.NotNil(t, rec.Price)
		indexByBrand[rec.Card.Brand] = rec.Index
	}
	assert.Equal(t, map[string]int{"Topps": 0, "Panini": 2}, indexByBrand)
}

func TestProcessManyBoundsConcurrency(t *testing.T) {
	pricer := &stubPricer{}
	cards := make([]models.CardQuery, 12)
	for i := range cards {
		cards[i] = models.CardQuery{Brand: "Topps", SetName: "Chrome", Year: "2020"}
	}

	result := NewBatchProcessor(pricer, &recordingWriter{}, 3, quietLogger(), nil).ProcessMany(context.Background(), cards)
	assert.Equal(t, 12, result.Successful)
	assert.LessOrEqual(t, pricer.peak.Load(), int32(3))
}

func TestProcessManyCountsWriteFailures(t *testing.T) {
	writer := &recordingWriter{err: errors.New("disk full")}
	result := NewBatchProcessor(&stubPricer{}, writer, 1, quietLogger(), nil).
		ProcessMany(context.Background(), []models.CardQuery{{Brand: "Topps", SetName: "Chrome", Year: "2020"}})

	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Errors[0].Error, "disk full")
}

func TestProcessManyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cards := []models.CardQuery{
		{Brand: "A", SetName: "B", Year: "1"},
		{Brand: "C", SetName: "D", Year: "2"},
	}
	result := NewBatchProcessor(&stubPricer{}, &recordingWriter{}, 1, quietLogger(), nil).ProcessMany(ctx, cards)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, result.Total, result.Successful+result.Failed)
}

func TestProcessManyEmpty(t *testing.T) {
	result := NewBatchProcessor(&stubPricer{}, &recordingWriter{}, 3, quietLogger(), nil).ProcessMany(context.Background(), nil)
	assert.Equal(t, 0, result.Total)
	assert.NotNil(t, result.Errors)
}

func TestValidateCard(t *testing.T) {
	assert.NoError(t, ValidateCard(models.CardQuery{Brand: "Topps", SetName: "Chrome", Year: "2020"}))

	err := ValidateCard(models.CardQuery{Brand: " ", SetName: "Chrome"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCard)
	assert.Equal(t, "card is missing required fields: Brand, Year", err.Error())
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, models.BatchResult{
		RunID: "run-1", Total: 3, Successful: 2, Failed: 1,
		Errors: []models.BatchError{{Card: "Topps Chrome 2020", Error: "boom"}},
	}, "out.csv")

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "Topps Chrome 2020")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "Results have been written to out.csv")
}
