package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"card-pricer/models"
	"card-pricer/utils"
)

const (
	insertColumns = 14
	batchSize     = 50
)

// PostgresWriter keeps a history of priced cards in PostgreSQL. Records are
// buffered and inserted in batches; Close flushes whatever is left.
type PostgresWriter struct {
	db     *sql.DB
	logger *utils.Logger

	mu      sync.Mutex
	pending []models.PriceRecord
	failed  int
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// pings, runs schema migrations and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: 2 * time.Second, Logger: logger}
	if err := retry.Do(ctx, "postgres ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db, logger: logger}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	logger.Info("[postgres] Connected, history table ready")
	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS card_prices (
			id               SERIAL PRIMARY KEY,
			run_id           UUID          NOT NULL,
			card_name        TEXT          NOT NULL,
			player_name      TEXT          NOT NULL DEFAULT '',
			card_number      TEXT          NOT NULL DEFAULT '',
			condition        TEXT          NOT NULL DEFAULT '',
			search_query     TEXT          NOT NULL,
			predicted_price  NUMERIC(12,2) NOT NULL DEFAULT 0,
			confidence       NUMERIC(4,2)  NOT NULL DEFAULT 0,
			market_trend     VARCHAR(16)   NOT NULL,
			avg_sale_price   NUMERIC(12,2) NOT NULL DEFAULT 0,
			avg_active_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			sales_count      INTEGER       NOT NULL DEFAULT 0,
			active_count     INTEGER       NOT NULL DEFAULT 0,
			priced_at        TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_card_prices_query  ON card_prices(search_query);
		CREATE INDEX IF NOT EXISTS idx_card_prices_run    ON card_prices(run_id);
		CREATE INDEX IF NOT EXISTS idx_card_prices_priced ON card_prices(priced_at);
	`)
	return err
}

// WriteRecord queues rec and inserts a batch once enough have accumulated.
// A failed batch insert is logged and counted rather than returned, since it
// covers every queued record and not just rec; Close reports the count.
func (pw *PostgresWriter) WriteRecord(rec models.PriceRecord) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	pw.pending = append(pw.pending, rec)
	if len(pw.pending) < batchSize {
		return nil
	}
	if err := pw.flushLocked(); err != nil {
		pw.logger.Error("[postgres] %v", err)
		pw.failed += len(pw.pending)
		pw.pending = pw.pending[:0]
	}
	return nil
}

// Flush inserts every queued record.
func (pw *PostgresWriter) Flush() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.flushLocked()
}

func (pw *PostgresWriter) flushLocked() error {
	if len(pw.pending) == 0 {
		return nil
	}
	query, args := buildInsert(pw.pending)
	if _, err := pw.db.Exec(query, args...); err != nil {
		return fmt.Errorf("postgres: insert %d records: %w", len(pw.pending), err)
	}
	pw.logger.Debug("[postgres] Inserted %d records", len(pw.pending))
	pw.pending = pw.pending[:0]
	return nil
}

func buildInsert(batch []models.PriceRecord) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*insertColumns)

	for idx, rec := range batch {
		placeholders := make([]string, insertColumns)
		for col := range placeholders {
			placeholders[col] = fmt.Sprintf("$%d", idx*insertColumns+col+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		p, m := rec.Price, rec.Price.MarketAnalysis
		valueArgs = append(valueArgs,
			rec.RunID, rec.Card.Label(), rec.Card.PlayerName, rec.Card.CardNumber, rec.Card.Condition,
			p.Query, p.PredictedPrice.StringFixed(2), p.ConfidenceScore, m.MarketTrend,
			m.AvgSalePrice, m.AvgActivePrice, m.RecentSalesCount, len(p.ActiveListings), rec.PricedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO card_prices (run_id, card_name, player_name, card_number, condition,
			search_query, predicted_price, confidence, market_trend,
			avg_sale_price, avg_active_price, sales_count, active_count, priced_at)
		VALUES %s
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// Close flushes pending records and closes the pool. It fails if any record
// written since the writer was opened never reached the table.
func (pw *PostgresWriter) Close() error {
	flushErr := pw.Flush()

	pw.mu.Lock()
	if pw.failed > 0 {
		flushErr = errors.Join(fmt.Errorf("postgres: %d records were not stored", pw.failed), flushErr)
	}
	pw.mu.Unlock()

	if err := pw.db.Close(); err != nil {
		return err
	}
	return flushErr
}
