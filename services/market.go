package services

import (
	"card-pricer/models"
	"card-pricer/utils"
)

// MarketAnalyzer classifies price trend, supply and overall market direction.
type MarketAnalyzer struct {
	logger *utils.Logger
}

// NewMarketAnalyzer creates a MarketAnalyzer with the given logger.
func NewMarketAnalyzer(logger *utils.Logger) *MarketAnalyzer {
	return &MarketAnalyzer{logger: logger}
}

// Analyze builds a MarketSnapshot from the filtered sales and active listings.
func (a *MarketAnalyzer) Analyze(sales, active []models.Listing) models.MarketSnapshot {
	if len(sales) == 0 && len(active) == 0 {
		return models.MarketSnapshot{
			MarketTrend: models.Unknown,
			SupplyLevel: models.Unknown,
			PriceTrend:  models.Unknown,
		}
	}

	avgSale := mean(models.Prices(sales))
	avgActive := mean(models.Prices(active))

	priceTrend := ClassifyPriceTrend(avgSale, avgActive)
	supply := ClassifySupply(len(sales), len(active))

	snapshot := models.MarketSnapshot{
		MarketTrend:         ClassifyMarket(priceTrend, supply),
		SupplyLevel:         supply,
		PriceTrend:          priceTrend,
		AvgSalePrice:        round2(avgSale),
		AvgActivePrice:      round2(avgActive),
		ActiveListingsCount: len(active),
		RecentSalesCount:    len(sales),
	}

	a.logger.Debug("[market] %s market: price %s, supply %s (avg sale $%.2f, avg active $%.2f)",
		snapshot.MarketTrend, priceTrend, supply, snapshot.AvgSalePrice, snapshot.AvgActivePrice)
	return snapshot
}

// ClassifyPriceTrend compares the average asking price with the average sale price.
func ClassifyPriceTrend(avgSale, avgActive float64) string {
	switch {
	case avgActive > avgSale*1.1:
		return models.PriceTrendIncreasing
	case avgActive < avgSale*0.9:
		return models.PriceTrendDecreasing
	default:
		return models.PriceTrendStable
	}
}

// ClassifySupply compares how many copies are listed with how many sold.
func ClassifySupply(sales, active int) string {
	switch {
	case float64(active) > float64(sales)*2:
		return models.SupplyHigh
	case float64(active) < float64(sales)*0.5:
		return models.SupplyLow
	default:
		return models.SupplyModerate
	}
}

// ClassifyMarket is bullish only for rising prices on low supply and bearish
// only for falling prices on high supply.
func ClassifyMarket(priceTrend, supply string) string {
	switch {
	case priceTrend == models.PriceTrendIncreasing && supply == models.SupplyLow:
		return models.MarketBullish
	case priceTrend == models.PriceTrendDecreasing && supply == models.SupplyHigh:
		return models.MarketBearish
	default:
		return models.MarketNeutral
	}
}
