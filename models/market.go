package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const Unknown = "unknown"

// Price trend, supply level and market trend values.
const (
	PriceTrendIncreasing = "increasing"
	PriceTrendDecreasing = "decreasing"
	PriceTrendStable     = "stable"

	SupplyHigh     = "high"
	SupplyLow      = "low"
	SupplyModerate = "moderate"

	MarketBullish = "bullish"
	MarketBearish = "bearish"
	MarketNeutral = "neutral"
)

// MarketSnapshot classifies the current market for one card.
type MarketSnapshot struct {
	MarketTrend         string  `json:"market_trend"`
	SupplyLevel         string  `json:"supply_level"`
	PriceTrend          string  `json:"price_trend"`
	AvgSalePrice        float64 `json:"avg_sale_price"`
	AvgActivePrice      float64 `json:"avg_active_price"`
	ActiveListingsCount int     `json:"active_listings_count"`
	RecentSalesCount    int     `json:"recent_sales_count"`
}

// PricePrediction is the estimated price and how much to trust it.
type PricePrediction struct {
	PredictedPrice decimal.Decimal `json:"predicted_price"`
	Confidence     float64         `json:"confidence"`
}

// CardPrice is the full answer for one pricing request.
type CardPrice struct {
	Query           string          `json:"query"`
	PredictedPrice  decimal.Decimal `json:"predicted_price"`
	ConfidenceScore float64         `json:"confidence_score"`
	RecentSales     []Listing       `json:"recent_sales"`
	ActiveListings  []Listing       `json:"active_listings"`
	MarketAnalysis  MarketSnapshot  `json:"market_analysis"`
}

// PriceRecord is one row handed to an output sink. Index is the card's
// position in the batch input; sinks receive records in completion order.
type PriceRecord struct {
	RunID    string
	Index    int
	Card     CardQuery
	Price    *CardPrice
	PricedAt time.Time
}

// BatchError names the card that failed and why.
type BatchError struct {
	Card  string `json:"card"`
	Error string `json:"error"`
}

// BatchResult summarizes a multi-card run.
type BatchResult struct {
	RunID      string       `json:"run_id"`
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Errors     []BatchError `json:"errors"`
}
