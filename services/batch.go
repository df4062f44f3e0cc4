package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"card-pricer/metrics"
	"card-pricer/models"
	"card-pricer/utils"
)

// RecordWriter is an output sink for priced cards. Implementations must be
// safe for concurrent use.
type RecordWriter interface {
	WriteRecord(rec models.PriceRecord) error
}

// BatchProcessor prices many cards with bounded concurrency.
type BatchProcessor struct {
	pricer         CardPricer
	writer         RecordWriter
	logger         *utils.Logger
	metrics        *metrics.Metrics
	maxConcurrency int
}

// NewBatchProcessor creates a BatchProcessor admitting maxConcurrency cards at once.
func NewBatchProcessor(pricer CardPricer, writer RecordWriter, maxConcurrency int, logger *utils.Logger, m *metrics.Metrics) *BatchProcessor {
	return &BatchProcessor{
		pricer:         pricer,
		writer:         writer,
		logger:         logger,
		metrics:        m,
		maxConcurrency: maxConcurrency,
	}
}

// ProcessMany prices every card and writes one record per success. A failing
// card is recorded in the result and does not stop the others.
func (b *BatchProcessor) ProcessMany(ctx context.Context, cards []models.CardQuery) models.BatchResult {
	result := models.BatchResult{
		RunID:  uuid.NewString(),
		Total:  len(cards),
		Errors: []models.BatchError{},
	}
	var mu sync.Mutex

	record := func(card models.CardQuery, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			result.Successful++
			b.metrics.BatchCard("ok")
			return
		}
		result.Failed++
		result.Errors = append(result.Errors, models.BatchError{Card: card.Label(), Error: err.Error()})
		b.metrics.BatchCard("failed")
		b.logger.Error("[batch] Error processing %s: %v", card.Label(), err)
	}

	b.logger.Info("[batch] Run %s: %d cards, concurrency %d", result.RunID, len(cards), b.maxConcurrency)

	pool := utils.NewWorkerPool(b.maxConcurrency)
	for i, card := range cards {
		i, card := i, card
		if err := pool.Submit(ctx, func() { record(card, b.processCard(ctx, result.RunID, i, card)) }); err != nil {
			for _, rest := range cards[i:] {
				record(rest, fmt.Errorf("not started: %w", err))
			}
			break
		}
	}
	pool.Wait()

	b.logger.Info("[batch] Run %s complete: %d successful, %d failed", result.RunID, result.Successful, result.Failed)
	return result
}

func (b *BatchProcessor) processCard(ctx context.Context, runID string, index int, card models.CardQuery) error {
	if err := ValidateCard(card); err != nil {
		return err
	}

	price, err := b.pricer.GetCardPrice(ctx, card)
	if err != nil {
		return err
	}

	rec := models.PriceRecord{RunID: runID, Index: index, Card: card, Price: price, PricedAt: time.Now().UTC()}
	if err := b.writer.WriteRecord(rec); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	b.logger.Info("[batch] Successfully processed %s", card.Label())
	return nil
}
