package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RawListing is one item summary exactly as the marketplace returned it. It
// is read-only input to the normalizer.
type RawListing = json.RawMessage

// ListingKind separates completed sales from listings still for sale.
type ListingKind string

const (
	KindSale   ListingKind = "SALE"
	KindActive ListingKind = "ACTIVE"
)

// ListingType is only meaningful for active listings.
type ListingType string

const (
	ListingTypeAuction  ListingType = "AUCTION"
	ListingTypeBuyItNow ListingType = "BUY_IT_NOW"
)

// Listing is a normalized marketplace record. Price is always positive.
type Listing struct {
	Kind             ListingKind     `json:"kind"`
	Title            string          `json:"title"`
	Price            decimal.Decimal `json:"price"`
	ConditionDisplay string          `json:"condition"`
	ConditionID      string          `json:"condition_id"`
	URL              string          `json:"url"`
	ListingType      ListingType     `json:"listing_type,omitempty"`
	Date             *time.Time      `json:"sale_date,omitempty"`
}

// PriceFloat is the listing price as a float for statistics.
func (l Listing) PriceFloat() float64 {
	return l.Price.InexactFloat64()
}

// SkipReason explains why a raw record was left out of the working set.
type SkipReason string

const (
	SkipMalformed         SkipReason = "malformed record"
	SkipMissingPrice      SkipReason = "missing price"
	SkipInvalidPrice      SkipReason = "invalid price value"
	SkipNonPositivePrice  SkipReason = "zero or negative price"
	SkipPriceOutOfRange   SkipReason = "price out of range"
	SkipConditionMismatch SkipReason = "condition mismatch"
)

// Skip records one dropped raw record.
type Skip struct {
	Reason SkipReason
	Detail string
}

// NormalizeReport is the outcome of normalizing one feed.
type NormalizeReport struct {
	Kept    []Listing
	Skipped []Skip
}

// Prices extracts listing prices in order.
func Prices(listings []Listing) []float64 {
	out := make([]float64, len(listings))
	for i, l := range listings {
		out[i] = l.PriceFloat()
	}
	return out
}
