package storage

import (
	"strconv"

	"card-pricer/models"
)

// recordHeader is the column order shared by the CSV and XLSX sinks.
var recordHeader = []string{
	"Card Name", "Set", "Year", "Player Name", "Card Number",
	"Card Variation", "Condition", "Predicted Price", "Confidence Score",
	"Recent Sales", "Active Listings", "Market Trend", "Supply Level",
	"Price Trend", "Average Sale Price", "Average Active Price",
	"Active Listings Count", "Recent Sales Count",
}

func recordRow(rec models.PriceRecord) []string {
	c, p := rec.Card, rec.Price
	m := p.MarketAnalysis
	return []string{
		c.Label(),
		c.SetName,
		c.Year,
		c.PlayerName,
		c.CardNumber,
		c.CardVariation,
		c.Condition,
		p.PredictedPrice.StringFixed(2),
		formatFloat(p.ConfidenceScore),
		strconv.Itoa(len(p.RecentSales)),
		strconv.Itoa(len(p.ActiveListings)),
		m.MarketTrend,
		m.SupplyLevel,
		m.PriceTrend,
		formatFloat(m.AvgSalePrice),
		formatFloat(m.AvgActivePrice),
		strconv.Itoa(m.ActiveListingsCount),
		strconv.Itoa(m.RecentSalesCount),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
