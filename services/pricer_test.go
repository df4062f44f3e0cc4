package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-pricer/metrics"
	"card-pricer/models"
)

type fakeMarket struct {
	sold      []models.RawListing
	active    []models.RawListing
	soldErr   error
	activeErr error

	calls      atomic.Int32
	mu         sync.Mutex
	lastQuery  string
	lastWindow models.DateRange
}

func (f *fakeMarket) SearchSold(_ context.Context, query string, window models.DateRange, _ string) ([]models.RawListing, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastQuery, f.lastWindow = query, window
	f.mu.Unlock()
	return f.sold, f.soldErr
}

func (f *fakeMarket) SearchActive(_ context.Context, _ string, _ string) ([]models.RawListing, error) {
	f.calls.Add(1)
	return f.active, f.activeErr
}

type memCache struct {
	mu    sync.Mutex
	items map[string]*models.CardPrice
	err   error
}

func (c *memCache) Get(_ context.Context, key string) (*models.CardPrice, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	p, ok := c.items[key]
	return p, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, p *models.CardPrice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.items[key] = p
	return nil
}

var testCard = models.CardQuery{Brand: "Topps", SetName: "Chrome", Year: "2020", PlayerName: "Luis Robert", Condition: "Ungraded"}

func newTestPricer(m Marketplace, opts ...PricerOption) *Pricer {
	opts = append([]PricerOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewPricer(m, quietLogger(), opts...)
}

func TestGetCardPriceStableMarket(t *testing.T) {
	market := &fakeMarket{
		sold: []models.RawListing{
			rawSale("Robert RC sale 1", "150.00", "2024-05-30T00:00:00Z"),
			rawSale("Robert RC sale 2", "145.00", "2024-05-20T00:00:00Z"),
			rawSale("Robert RC sale 3", "160.00", "2024-05-10T00:00:00Z"),
		},
		active: []models.RawListing{
			rawActive("Robert RC listing 1", "155.00"),
			rawActive("Robert RC listing 2", "165.00"),
			rawActive("Robert RC listing 3", "145.00"),
		},
	}
	p := newTestPricer(market, WithLookback(30*24*time.Hour))

	got, err := p.GetCardPrice(context.Background(), testCard)
	require.NoError(t, err)

	assert.Equal(t, "Topps Chrome 2020 Luis Robert", got.Query)
	assert.Equal(t, "153.07", got.PredictedPrice.StringFixed(2))
	assert.Equal(t, 0.26, got.ConfidenceScore)
	predicted := got.PredictedPrice.InexactFloat64()
	assert.Less(t, predicted-150, 160-predicted)
	assert.Len(t, got.RecentSales, 3)
	assert.Len(t, got.ActiveListings, 3)
	assert.Equal(t, models.MarketNeutral, got.MarketAnalysis.MarketTrend)
	assert.Equal(t, models.SupplyModerate, got.MarketAnalysis.SupplyLevel)
	assert.Equal(t, models.PriceTrendStable, got.MarketAnalysis.PriceTrend)

	assert.Equal(t, "Topps Chrome 2020 Luis Robert", market.lastQuery)
	assert.Equal(t, fixedNow, market.lastWindow.End)
	assert.Equal(t, fixedNow.Add(-30*24*time.Hour), market.lastWindow.Start)
}

func TestGetCardPriceNoData(t *testing.T) {
	p := newTestPricer(&fakeMarket{})

	got, err := p.GetCardPrice(context.Background(), testCard)
	require.NoError(t, err)

	assert.True(t, got.PredictedPrice.IsZero())
	assert.Equal(t, 0.0, got.ConfidenceScore)
	assert.NotNil(t, got.RecentSales)
	assert.Empty(t, got.RecentSales)
	assert.NotNil(t, got.ActiveListings)
	assert.Equal(t, models.Unknown, got.MarketAnalysis.MarketTrend)
}

func TestGetCardPriceExcludesLots(t *testing.T) {
	market := &fakeMarket{
		sold: []models.RawListing{
			rawSale("Robert RC", "100.00", "2024-05-30T00:00:00Z"),
			rawSale("2020 Topps Chrome LOT of 10", "30.00", "2024-05-29T00:00:00Z"),
		},
	}
	p := newTestPricer(market)

	got, err := p.GetCardPrice(context.Background(), testCard)
	require.NoError(t, err)
	require.Len(t, got.RecentSales, 1)
	assert.Equal(t, "Robert RC", got.RecentSales[0].Title)
	assert.Equal(t, "100.00", got.PredictedPrice.StringFixed(2))
	assert.Equal(t, 0.1, got.ConfidenceScore)
}

func TestGetCardPriceSkipsUnusableRecords(t *testing.T) {
	market := &fakeMarket{
		active: []models.RawListing{
			rawActive("Good", "20.00"),
			models.RawListing(`"garbage"`),
			rawActive("Free", "0"),
			rawRecord(map[string]any{"title": "Graded", "price": map[string]string{"value": "900"},
				"condition": map[string]string{"conditionDisplayName": "PSA 10 Graded"}}),
		},
	}
	p := newTestPricer(market)

	got, err := p.GetCardPrice(context.Background(), testCard)
	require.NoError(t, err)
	require.Len(t, got.ActiveListings, 1)
	assert.Equal(t, "Good", got.ActiveListings[0].Title)
}

func TestGetCardPriceTransportFailure(t *testing.T) {
	boom := errors.New("connection reset")
	p := newTestPricer(&fakeMarket{activeErr: boom})

	_, err := p.GetCardPrice(context.Background(), testCard)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetch active listings")
}

func TestGetCardPriceUsesCache(t *testing.T) {
	market := &fakeMarket{active: []models.RawListing{rawActive("Card", "20.00")}}
	cache := &memCache{items: map[string]*models.CardPrice{}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := newTestPricer(market, WithCache(cache), WithMetrics(m))

	first, err := p.GetCardPrice(context.Background(), testCard)
	require.NoError(t, err)
	second, err := p.GetCardPrice(context.Background(), testCard)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(2), market.calls.Load())

	count, err := testutil.GatherAndCount(reg, "card_pricer_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetCardPriceIgnoresCacheErrors(t *testing.T) {
	market := &fakeMarket{active: []models.RawListing{rawActive("Card", "20.00")}}
	p := newTestPricer(market, WithCache(&memCache{err: errors.New("redis down")}))

	got, err := p.GetCardPrice(context.Background(), testCard)
	require.NoError(t, err)
	assert.Len(t, got.ActiveListings, 1)
}

func TestCacheKeyIgnoresCase(t *testing.T) {
	assert.Equal(t, CacheKey("Topps Chrome 2020", " Ungraded"), CacheKey("topps chrome 2020", "ungraded"))
	assert.NotEqual(t, CacheKey("Topps Chrome 2020", "Ungraded"), CacheKey("Topps Chrome 2020", "Graded"))
}

func TestGetCardPriceDropsOverflowingPrices(t *testing.T) {
	tests := []struct {
		name   string
		active []models.RawListing
	}{
		{"beyond float range", []models.RawListing{rawActive("Huge", "1e400")}},
		{"mean would overflow", []models.RawListing{rawActive("Big A", "1e308"), rawActive("Big B", "1.5e308")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPricer(&fakeMarket{active: append(tt.active, rawActive("Normal", "25.00"))})

			var got *models.CardPrice
			require.NotPanics(t, func() {
				var err error
				got, err = p.GetCardPrice(context.Background(), testCard)
				require.NoError(t, err)
			})
			require.Len(t, got.ActiveListings, 1)
			assert.Equal(t, "25.00", got.PredictedPrice.StringFixed(2))
		})
	}
}
