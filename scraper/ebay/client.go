package ebay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"card-pricer/models"
	"card-pricer/utils"
)

const (
	searchPath = "/buy/browse/v1/item_summary/search"
	tokenPath  = "/identity/v1/oauth2/token"
	apiScope   = "https://api.ebay.com/oauth/api_scope"

	maxErrorBody = 2048
)

// Config holds what the client needs to reach the Browse API.
type Config struct {
	AppID             string
	CertID            string
	BaseURL           string
	MarketplaceID     string
	CallsPerSecond    float64
	RequestTimeout    time.Duration
	TokenExpiryMargin time.Duration
	SearchLimit       int
}

// Client talks to the eBay Browse API. One Client is shared by the whole
// process: it owns the cached access token and the outbound rate gate.
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  oauth2.TokenSource
	limiter *rate.Limiter
	logger  *utils.Logger
}

// New creates a Client. Tokens are fetched lazily on the first search.
func New(cfg Config, logger *utils.Logger) (*Client, error) {
	if cfg.AppID == "" || cfg.CertID == "" {
		return nil, ErrNoCredentials
	}
	if cfg.CallsPerSecond <= 0 {
		cfg.CallsPerSecond = 2
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 100
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	exchange := &clientcredentials.Config{
		ClientID:     cfg.AppID,
		ClientSecret: cfg.CertID,
		TokenURL:     cfg.BaseURL + tokenPath,
		Scopes:       []string{apiScope},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		tokens:  oauth2.ReuseTokenSourceWithExpiry(nil, &tokenExchanger{cfg: exchange, client: httpClient}, cfg.TokenExpiryMargin),
		limiter: rate.NewLimiter(rate.Limit(cfg.CallsPerSecond), 1),
		logger:  logger,
	}, nil
}

// Limiter is the shared outbound gate, for other sources hitting the same marketplace.
func (c *Client) Limiter() *rate.Limiter {
	return c.limiter
}

// SearchSold returns completed sales inside window, most recent first.
func (c *Client) SearchSold(ctx context.Context, query string, window models.DateRange, condition string) ([]models.RawListing, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", SoldFilter(window, condition))
	params.Set("sort", "-endDate")
	params.Set("limit", strconv.Itoa(c.cfg.SearchLimit))
	return c.search(ctx, "sold search", params)
}

// SearchActive returns fixed-price and auction listings, cheapest first.
func (c *Client) SearchActive(ctx context.Context, query string, condition string) ([]models.RawListing, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", ActiveFilter(condition))
	params.Set("sort", "price")
	params.Set("limit", strconv.Itoa(c.cfg.SearchLimit))
	return c.search(ctx, "active search", params)
}

func (c *Client) search(ctx context.Context, op string, params url.Values) ([]models.RawListing, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, tokenError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	endpoint := c.cfg.BaseURL + searchPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ebay %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", c.cfg.MarketplaceID)

	c.logger.Debug("[ebay] %s: %s", op, params.Get("filter"))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload struct {
		Total         int                 `json:"total"`
		ItemSummaries []models.RawListing `json:"itemSummaries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("ebay %s: decode response: %w", op, err)
	}

	c.logger.Info("[ebay] %s returned %d of %d items", op, len(payload.ItemSummaries), payload.Total)
	return payload.ItemSummaries, nil
}

// tokenExchanger performs a fresh client-credentials exchange on every call.
// Caching lives in the ReuseTokenSource wrapped around it, so the expiry
// margin is honoured exactly.
type tokenExchanger struct {
	cfg    *clientcredentials.Config
	client *http.Client
}

func (t *tokenExchanger) Token() (*oauth2.Token, error) {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, t.client)
	return t.cfg.Token(ctx)
}

func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &TransportError{Op: "token", StatusCode: re.Response.StatusCode, Body: string(re.Body), Err: err}
	}
	return &TransportError{Op: "token", Err: err}
}
