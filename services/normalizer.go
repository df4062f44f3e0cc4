package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"card-pricer/models"
	"card-pricer/utils"
)

const itemURLPrefix = "https://www.ebay.com/itm/"

// maxListingPrice keeps every statistic over listing prices finite.
var maxListingPrice = decimal.NewFromInt(1_000_000_000)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// rawItem is the subset of a marketplace item summary the normalizer reads.
// Every field except condition stays raw so a mistyped field never drops the
// record; only the price decides that.
type rawItem struct {
	ItemID        json.RawMessage  `json:"itemId"`
	ItemWebURL    json.RawMessage  `json:"itemWebUrl"`
	Title         json.RawMessage  `json:"title"`
	Price         json.RawMessage  `json:"price"`
	Condition     models.Condition `json:"condition"`
	ConditionID   json.RawMessage  `json:"conditionId"`
	ItemEndDate   json.RawMessage  `json:"itemEndDate"`
	SoldDate      json.RawMessage  `json:"soldDate"`
	BuyingOptions json.RawMessage  `json:"buyingOptions"`
}

// Normalizer converts raw marketplace records into Listings.
type Normalizer struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger, now: time.Now}
}

// NormalizeAll normalizes one feed, keeping the listings that pass and
// recording why the rest were skipped.
func (n *Normalizer) NormalizeAll(raw []models.RawListing, kind models.ListingKind, condition string) models.NormalizeReport {
	report := models.NormalizeReport{Kept: make([]models.Listing, 0, len(raw))}

	for _, r := range raw {
		listing, skip := n.Normalize(r, kind, condition)
		if skip != nil {
			n.logger.Debug("[normalizer] Skipped %s record (%s): %s", kind, skip.Reason, skip.Detail)
			report.Skipped = append(report.Skipped, *skip)
			continue
		}
		report.Kept = append(report.Kept, listing)
	}

	n.logger.Info("[normalizer] %s: normalized %d → %d listings (skipped %d)",
		kind, len(raw), len(report.Kept), len(report.Skipped))
	return report
}

// Normalize maps one raw record to a Listing. A non-nil Skip means the record
// was dropped; that is expected and never an error.
func (n *Normalizer) Normalize(raw models.RawListing, kind models.ListingKind, condition string) (models.Listing, *models.Skip) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.Listing{}, &models.Skip{Reason: models.SkipMalformed, Detail: truncate(string(trimmed), 80)}
	}

	var item rawItem
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return models.Listing{}, &models.Skip{Reason: models.SkipMalformed, Detail: err.Error()}
	}

	title := models.ScalarString(item.Title)

	price, skip := parsePrice(item.Price)
	if skip != nil {
		skip.Detail = title + ": " + skip.Detail
		return models.Listing{}, skip
	}

	display, id := item.Condition.Resolve(models.ScalarString(item.ConditionID))
	if !MatchesCondition(condition, display) {
		return models.Listing{}, &models.Skip{
			Reason: models.SkipConditionMismatch,
			Detail: fmt.Sprintf("%s - expected: %s, got: %s", title, condition, display),
		}
	}

	listing := models.Listing{
		Kind:             kind,
		Title:            normaliseText(title),
		Price:            price,
		ConditionDisplay: display,
		ConditionID:      id,
		URL:              itemURL(models.ScalarString(item.ItemID), models.ScalarString(item.ItemWebURL)),
	}

	switch kind {
	case models.KindSale:
		date := n.saleDate(item)
		listing.Date = &date
	case models.KindActive:
		listing.ListingType = models.ListingTypeAuction
		for _, opt := range stringList(item.BuyingOptions) {
			if opt == "FIXED_PRICE" {
				listing.ListingType = models.ListingTypeBuyItNow
				break
			}
		}
	}
	return listing, nil
}

// saleDate prefers the end date, then the sold date, then now.
func (n *Normalizer) saleDate(item rawItem) time.Time {
	for _, raw := range []json.RawMessage{item.ItemEndDate, item.SoldDate} {
		if t, ok := parseDate(models.ScalarString(raw)); ok {
			return t
		}
	}
	n.logger.Warn("[normalizer] No usable sale date for %q, using current time", models.ScalarString(item.Title))
	return n.now().UTC()
}

// MatchesCondition applies the requested-condition rule. An empty request
// admits everything; "ungraded" and "graded" are matched by substring, any
// other value needs a case-insensitive exact match.
func MatchesCondition(requested, display string) bool {
	req := strings.ToLower(strings.TrimSpace(requested))
	if req == "" {
		return true
	}
	got := strings.ToLower(display)

	switch req {
	case "ungraded":
		return !strings.Contains(got, "graded") || strings.Contains(got, "ungraded")
	case "graded":
		return strings.Contains(got, "graded")
	default:
		return req == got
	}
}

func parsePrice(raw json.RawMessage) (decimal.Decimal, *models.Skip) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return decimal.Zero, &models.Skip{Reason: models.SkipMissingPrice, Detail: "no price"}
	}

	var obj struct {
		Value json.RawMessage `json:"value"`
	}
	if trimmed[0] != '{' || json.Unmarshal(trimmed, &obj) != nil {
		return decimal.Zero, &models.Skip{Reason: models.SkipInvalidPrice, Detail: string(trimmed)}
	}

	text := models.ScalarString(obj.Value)
	if text == "" {
		return decimal.Zero, &models.Skip{Reason: models.SkipMissingPrice, Detail: "price has no value"}
	}
	price, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, &models.Skip{Reason: models.SkipInvalidPrice, Detail: text}
	}
	if !price.IsPositive() {
		return decimal.Zero, &models.Skip{Reason: models.SkipNonPositivePrice, Detail: price.String()}
	}
	if price.GreaterThan(maxListingPrice) {
		return decimal.Zero, &models.Skip{Reason: models.SkipPriceOutOfRange, Detail: truncate(text, 40)}
	}
	return price, nil
}

// stringList reads a JSON array of scalars, or a single scalar as a
// one-element list. Anything else is empty.
func stringList(raw json.RawMessage) []string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '[' {
		if s := models.ScalarString(trimmed); s != "" {
			return []string{s}
		}
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if s := models.ScalarString(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// itemURL keeps the numeric middle segment of ids like "v1|1234|0".
func itemURL(itemID, webURL string) string {
	if parts := strings.Split(itemID, "|"); len(parts) > 1 {
		itemID = parts[1]
	}
	if itemID != "" {
		return itemURLPrefix + itemID
	}
	return webURL
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
