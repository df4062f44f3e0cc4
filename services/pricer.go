package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"card-pricer/metrics"
	"card-pricer/models"
	"card-pricer/utils"
)

// Marketplace is the external search collaborator. Sold results should come
// back most recent first and active results cheapest first.
type Marketplace interface {
	SearchSold(ctx context.Context, query string, window models.DateRange, condition string) ([]models.RawListing, error)
	SearchActive(ctx context.Context, query string, condition string) ([]models.RawListing, error)
}

// ResultCache stores finished pricing results. Implementations may be slow or
// unavailable; the pricer treats cache errors as misses.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.CardPrice, bool, error)
	Set(ctx context.Context, key string, price *models.CardPrice) error
}

// CardPricer prices a single card.
type CardPricer interface {
	GetCardPrice(ctx context.Context, q models.CardQuery) (*models.CardPrice, error)
}

// Pricer runs the full pipeline for one card: search, normalize, filter,
// dedupe, analyze, predict.
type Pricer struct {
	market     Marketplace
	logger     *utils.Logger
	normalizer *Normalizer
	filter     *NoiseFilter
	dedup      *Deduplicator
	analyzer   *MarketAnalyzer
	predictor  *Predictor

	cache    ResultCache
	metrics  *metrics.Metrics
	lookback time.Duration
	now      func() time.Time
}

// PricerOption customizes a Pricer.
type PricerOption func(*Pricer)

func WithCache(c ResultCache) PricerOption { return func(p *Pricer) { p.cache = c } }

func WithMetrics(m *metrics.Metrics) PricerOption { return func(p *Pricer) { p.metrics = m } }

func WithLookback(d time.Duration) PricerOption { return func(p *Pricer) { p.lookback = d } }

func WithKeywords(keywords []string) PricerOption {
	return func(p *Pricer) { p.filter = NewNoiseFilter(p.logger, keywords) }
}

func WithClock(now func() time.Time) PricerOption {
	return func(p *Pricer) {
		p.now = now
		p.normalizer.now = now
	}
}

// NewPricer wires the pipeline stages around a marketplace.
func NewPricer(market Marketplace, logger *utils.Logger, opts ...PricerOption) *Pricer {
	p := &Pricer{
		market:     market,
		logger:     logger,
		normalizer: NewNormalizer(logger),
		filter:     NewNoiseFilter(logger, DefaultExcludedKeywords),
		dedup:      NewDeduplicator(logger),
		analyzer:   NewMarketAnalyzer(logger),
		predictor:  NewPredictor(logger),
		lookback:   90 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetCardPrice prices one card. Marketplace failures fail the request;
// unusable records and empty results do not.
func (p *Pricer) GetCardPrice(ctx context.Context, q models.CardQuery) (*models.CardPrice, error) {
	start := time.Now()
	query := BuildSearchQuery(q)
	key := CacheKey(query, q.Condition)

	if cached := p.fromCache(ctx, key); cached != nil {
		p.metrics.ObservePricing("cached", time.Since(start))
		return cached, nil
	}

	p.logger.Info("[pricer] Pricing %q (condition: %q)", query, q.Condition)

	rawSold, rawActive, err := p.fetch(ctx, query, q.Condition)
	if err != nil {
		p.metrics.ObservePricing("error", time.Since(start))
		return nil, err
	}

	soldReport := p.normalizer.NormalizeAll(rawSold, models.KindSale, q.Condition)
	activeReport := p.normalizer.NormalizeAll(rawActive, models.KindActive, q.Condition)
	p.metrics.Dropped("normalize", len(soldReport.Skipped)+len(activeReport.Skipped))

	sales := p.filter.CleanSales(soldReport.Kept)
	active := p.filter.CleanActive(activeReport.Kept)
	p.metrics.Dropped("noise", len(soldReport.Kept)-len(sales)+len(activeReport.Kept)-len(active))

	deduped := p.dedup.Dedupe(active, sales)
	p.metrics.Dropped("dedup", len(active)-len(deduped))
	active = deduped

	snapshot := p.analyzer.Analyze(sales, active)
	prediction := p.predictor.Predict(sales, active, snapshot)

	result := &models.CardPrice{
		Query:           query,
		PredictedPrice:  prediction.PredictedPrice,
		ConfidenceScore: prediction.Confidence,
		RecentSales:     nonNil(sales),
		ActiveListings:  nonNil(active),
		MarketAnalysis:  snapshot,
	}

	p.logger.Info("[pricer] %q → $%s (confidence %.2f, %d sales, %d active, %s market)",
		query, result.PredictedPrice, result.ConfidenceScore, len(sales), len(active), snapshot.MarketTrend)

	p.toCache(ctx, key, result)
	p.metrics.ObservePricing("ok", time.Since(start))
	return result, nil
}

// fetch runs both searches concurrently. The first failure cancels the other.
func (p *Pricer) fetch(ctx context.Context, query, condition string) (sold, active []models.RawListing, err error) {
	end := p.now().UTC()
	window := models.DateRange{Start: end.Add(-p.lookback), End: end}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := p.market.SearchSold(gctx, query, window, condition)
		if err != nil {
			p.metrics.MarketplaceSearch("sold", "error")
			return fmt.Errorf("fetch sold items: %w", err)
		}
		p.metrics.MarketplaceSearch("sold", "ok")
		sold = items
		return nil
	})
	g.Go(func() error {
		items, err := p.market.SearchActive(gctx, query, condition)
		if err != nil {
			p.metrics.MarketplaceSearch("active", "error")
			return fmt.Errorf("fetch active listings: %w", err)
		}
		p.metrics.MarketplaceSearch("active", "ok")
		active = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sold, active, nil
}

func (p *Pricer) fromCache(ctx context.Context, key string) *models.CardPrice {
	if p.cache == nil {
		return nil
	}
	cached, ok, err := p.cache.Get(ctx, key)
	switch {
	case err != nil:
		p.logger.Warn("[pricer] Cache lookup failed for %q: %v", key, err)
		p.metrics.CacheLookup("error")
		return nil
	case !ok:
		p.metrics.CacheLookup("miss")
		return nil
	}
	p.metrics.CacheLookup("hit")
	p.logger.Debug("[pricer] Cache hit for %q", key)
	return cached
}

func (p *Pricer) toCache(ctx context.Context, key string, price *models.CardPrice) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Set(ctx, key, price); err != nil {
		p.logger.Warn("[pricer] Cache store failed for %q: %v", key, err)
	}
}

// CacheKey identifies a pricing result by search string and requested condition.
func CacheKey(query, condition string) string {
	return "card-price:" + strings.ToLower(query) + "|" + strings.ToLower(strings.TrimSpace(condition))
}

func nonNil(l []models.Listing) []models.Listing {
	if l == nil {
		return []models.Listing{}
	}
	return l
}
