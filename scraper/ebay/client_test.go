package ebay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-pricer/models"
	"card-pricer/utils"
)

type fakeAPI struct {
	tokenCalls  atomic.Int32
	searchCalls atomic.Int32
	lastQuery   atomic.Value
	lastHeaders atomic.Value
	searchCode  int
	tokenCode   int
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if f.tokenCode != 0 {
			w.WriteHeader(f.tokenCode)
			_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "app" || pass != "cert" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-1","expires_in":7200,"token_type":"Application Access Token"}`)
	})
	mux.HandleFunc(searchPath, func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls.Add(1)
		f.lastQuery.Store(r.URL.Query())
		f.lastHeaders.Store(r.Header.Clone())
		if f.searchCode != 0 {
			w.WriteHeader(f.searchCode)
			_, _ = io.WriteString(w, "upstream broke")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total": 2,
			"itemSummaries": []map[string]any{
				{"itemId": "v1|111|0", "title": "Card A", "price": map[string]string{"value": "10.00", "currency": "USD"}},
				{"itemId": "v1|222|0", "title": "Card B", "price": map[string]string{"value": "12.50", "currency": "USD"}},
			},
		})
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI, cps float64) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	c, err := New(Config{
		AppID:             "app",
		CertID:            "cert",
		BaseURL:           srv.URL + "/",
		MarketplaceID:     "EBAY_US",
		CallsPerSecond:    cps,
		RequestTimeout:    5 * time.Second,
		TokenExpiryMargin: time.Hour,
		SearchLimit:       50,
	}, utils.NewLoggerTo(io.Discard, utils.LevelError))
	require.NoError(t, err)
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{AppID: "app"}, utils.NewLoggerTo(io.Discard, utils.LevelError))
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestSearchActiveSendsHeadersAndFilters(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, 100)

	items, err := c.SearchActive(context.Background(), "Topps Chrome 2020", "Ungraded")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	q := api.lastQuery.Load().(url.Values)
	assert.Equal(t, "Topps Chrome 2020", q["q"][0])
	assert.Equal(t, "buyingOptions:{FIXED_PRICE|AUCTION},itemCondition:{UNGRADED}", q["filter"][0])
	assert.Equal(t, "price", q["sort"][0])
	assert.Equal(t, "50", q["limit"][0])

	h := api.lastHeaders.Load().(http.Header)
	assert.Equal(t, "Bearer tok-1", h.Get("Authorization"))
	assert.Equal(t, "EBAY_US", h.Get("X-EBAY-C-MARKETPLACE-ID"))
}

func TestSearchSoldUsesDateWindow(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, 100)

	window := models.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 12, 30, 0, 0, time.UTC),
	}
	_, err := c.SearchSold(context.Background(), "q", window, "")
	require.NoError(t, err)

	q := api.lastQuery.Load().(url.Values)
	assert.Equal(t, "itemEndDate:[2024-01-01T00:00:00.000Z..2024-03-31T12:30:00.000Z]", q["filter"][0])
	assert.Equal(t, "-endDate", q["sort"][0])
}

func TestTokenIsReusedAcrossCalls(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, 100)

	for i := 0; i < 3; i++ {
		_, err := c.SearchActive(context.Background(), "q", "")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), api.tokenCalls.Load())
	assert.Equal(t, int32(3), api.searchCalls.Load())
}

func TestNonSuccessStatusIsTransportError(t *testing.T) {
	api := &fakeAPI{searchCode: http.StatusInternalServerError}
	c := newTestClient(t, api, 100)

	_, err := c.SearchActive(context.Background(), "q", "")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, "upstream broke", te.Body)
	assert.Equal(t, int32(1), api.searchCalls.Load())
}

func TestTokenFailureIsTransportError(t *testing.T) {
	api := &fakeAPI{tokenCode: http.StatusUnauthorized}
	c := newTestClient(t, api, 100)

	_, err := c.SearchSold(context.Background(), "q", models.DateRange{}, "")
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "token", te.Op)
	assert.Equal(t, int32(0), api.searchCalls.Load())
}

func TestCallsAreSpacedByRateLimit(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, 10)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.SearchActive(context.Background(), "q", "")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestRateWaitHonoursContext(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, 0.1)

	_, err := c.SearchActive(context.Background(), "q", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.SearchActive(ctx, "q", "")
	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, int32(1), api.searchCalls.Load())
}

func TestConditionFilterValue(t *testing.T) {
	assert.Equal(t, "UNGRADED", ConditionFilterValue(" ungraded "))
	assert.Equal(t, "USED_VERY_GOOD", ConditionFilterValue("Very Good"))
	assert.Equal(t, "", ConditionFilterValue("PSA 10"))
	assert.Equal(t, activeFilter, ActiveFilter(""))
}
