package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"card-pricer/models"
	"card-pricer/utils"
)

const (
	soldPageURL  = "https://www.ebay.com/sch/i.html"
	pageTimeout  = 90 * time.Second
	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	soldDateForm = "Jan 2, 2006"
)

var (
	priceRe   = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d{1,2})?)`)
	soldRe    = regexp.MustCompile(`(?i)sold\s+([A-Za-z]{3}\s+\d{1,2},\s+\d{4})`)
	itemIDRe  = regexp.MustCompile(`/itm/(?:[^/?]+/)?(\d+)`)
	rangeWord = regexp.MustCompile(`(?i)\bto\b`)
)

// ActiveSearcher is the part of the API client the browser source delegates to.
type ActiveSearcher interface {
	SearchActive(ctx context.Context, query string, condition string) ([]models.RawListing, error)
}

// BrowserSource reads sold items from the public search results page with a
// headless browser and takes active listings from the API. Both share one
// rate gate so the marketplace sees a single paced client.
type BrowserSource struct {
	active    ActiveSearcher
	limiter   *rate.Limiter
	chromeBin string
	limit     int
	logger    *utils.Logger
}

// NewBrowserSource wires a browser-backed sold feed in front of the API client.
func NewBrowserSource(client *Client, chromeBin string, logger *utils.Logger) *BrowserSource {
	return &BrowserSource{
		active:    client,
		limiter:   client.Limiter(),
		chromeBin: chromeBin,
		limit:     client.cfg.SearchLimit,
		logger:    logger,
	}
}

// SearchActive delegates to the API.
func (b *BrowserSource) SearchActive(ctx context.Context, query string, condition string) ([]models.RawListing, error) {
	return b.active.SearchActive(ctx, query, condition)
}

// soldCard is what the page script extracts per result.
type soldCard struct {
	Title     string `json:"title"`
	Price     string `json:"price"`
	Condition string `json:"condition"`
	SoldDate  string `json:"soldDate"`
	URL       string `json:"url"`
}

// soldItem mirrors the fields of an API item summary so scraped results go
// through the same normalizer.
type soldItem struct {
	ItemID      string    `json:"itemId,omitempty"`
	ItemWebURL  string    `json:"itemWebUrl,omitempty"`
	Title       string    `json:"title"`
	Price       soldPrice `json:"price"`
	Condition   string    `json:"condition,omitempty"`
	ItemEndDate string    `json:"itemEndDate,omitempty"`
}

type soldPrice struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// SearchSold scrapes completed sales for query. Results outside window are
// dropped; the condition is left to the normalizer.
func (b *BrowserSource) SearchSold(ctx context.Context, query string, window models.DateRange, condition string) ([]models.RawListing, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Op: "sold page", Err: err}
	}

	pageURL := SoldPageURL(query)
	b.logger.Info("[browser] Loading sold results: %s", pageURL)

	cards, err := b.scrapeSoldPage(ctx, pageURL)
	if err != nil {
		return nil, &TransportError{Op: "sold page", Err: err}
	}

	seen := utils.NewURLSet()
	items := make([]models.RawListing, 0, len(cards))
	for _, c := range cards {
		if len(items) >= b.limit {
			break
		}
		id := itemIDFromURL(c.URL)
		if id != "" && !seen.Add(id) {
			b.logger.Debug("[browser] Skipping duplicate: %s", c.URL)
			continue
		}

		item := soldItem{
			ItemID:     id,
			ItemWebURL: c.URL,
			Title:      c.Title,
			Price:      soldPrice{Value: parsePriceText(c.Price), Currency: "USD"},
			Condition:  strings.TrimSpace(c.Condition),
		}
		if sold, ok := parseSoldDate(c.SoldDate); ok {
			if sold.Before(window.Start) || sold.After(window.End) {
				continue
			}
			item.ItemEndDate = sold.Format(time.RFC3339)
		}

		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode scraped item: %w", err)
		}
		items = append(items, raw)
	}

	b.logger.Info("[browser] Sold page yielded %d items (%d cards on page)", len(items), len(cards))
	return items, nil
}

func (b *BrowserSource) scrapeSoldPage(ctx context.Context, pageURL string) ([]soldCard, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if bin := findChromeBinary(b.chromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, pageTimeout)
	defer cancelTimeout()

	var cards []soldCard
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(`ul.srp-results`, chromedp.ByQuery),
		chromedp.Evaluate(`
			(function() {
				var results = [];
				var items = document.querySelectorAll('ul.srp-results li.s-item, ul.srp-results li.s-card');
				for (var i = 0; i < items.length; i++) {
					var el = items[i];
					var link = el.querySelector('a.s-item__link, a.su-link, a[href*="/itm/"]');
					var title = el.querySelector('.s-item__title, .s-card__title');
					var price = el.querySelector('.s-item__price, .s-card__price');
					var cond = el.querySelector('.SECONDARY_INFO, .s-card__subtitle');
					var sold = el.querySelector('.s-item__caption--signal, .s-card__caption, .POSITIVE');
					if (!link || !price) continue;
					results.push({
						title:     title ? title.innerText.replace(/^New Listing/i, '').trim() : '',
						price:     price.innerText.trim(),
						condition: cond ? cond.innerText.trim() : '',
						soldDate:  sold ? sold.innerText.trim() : '',
						url:       link.href
					});
				}
				return results;
			})()
		`, &cards),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp sold page: %w", err)
	}
	return cards, nil
}

// SoldPageURL builds the completed-and-sold search URL, newest first.
func SoldPageURL(query string) string {
	params := url.Values{}
	params.Set("_nkw", query)
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("_sop", "13")
	return soldPageURL + "?" + params.Encode()
}

// parsePriceText extracts a dollar amount as plain decimal text. Price ranges
// return "" so the normalizer skips them.
func parsePriceText(s string) string {
	if rangeWord.MatchString(s) {
		return ""
	}
	m := priceRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], ",", "")
}

func parseSoldDate(s string) (time.Time, bool) {
	m := soldRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(soldDateForm, strings.Join(strings.Fields(m[1]), " "))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func itemIDFromURL(u string) string {
	if m := itemIDRe.FindStringSubmatch(u); m != nil {
		return m[1]
	}
	return ""
}

// findChromeBinary locates Chrome/Chromium, preferring the configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range []string{"/usr/bin/chromium", "/snap/bin/chromium", "/opt/google/chrome/google-chrome"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
