package services

import (
	"math"

	"github.com/shopspring/decimal"

	"card-pricer/models"
	"card-pricer/utils"
)

const (
	saleWeightFirst   = 1.0
	saleWeightLast    = 0.5
	activeWeightFirst = 1.0
	activeWeightLast  = 0.7

	bullishMarkup   = 1.05
	bearishMarkdown = 0.95

	saleConfidenceSamples   = 10.0
	activeConfidenceSamples = 15.0
	saleConfidenceShare     = 0.7
	activeConfidenceShare   = 0.3

	activeOnlySamples       = 20.0
	activeOnlyMaxConfidence = 0.5
)

// Predictor turns filtered sales and listings into a price estimate.
type Predictor struct {
	logger *utils.Logger
}

// NewPredictor creates a Predictor with the given logger.
func NewPredictor(logger *utils.Logger) *Predictor {
	return &Predictor{logger: logger}
}

// Predict picks the weighted model when both feeds have data and the plain
// mean when only one does. Sales are expected most recent first and active
// listings cheapest first.
func (p *Predictor) Predict(sales, active []models.Listing, snapshot models.MarketSnapshot) models.PricePrediction {
	switch {
	case len(sales) == 0 && len(active) == 0:
		return models.PricePrediction{PredictedPrice: decimal.Zero}
	case len(sales) == 0 || len(active) == 0:
		return p.PredictMean(sales, active)
	default:
		return p.PredictWeighted(sales, active, snapshot)
	}
}

// PredictWeighted favours recent sales and cheaper listings, then nudges the
// estimate by market direction.
func (p *Predictor) PredictWeighted(sales, active []models.Listing, snapshot models.MarketSnapshot) models.PricePrediction {
	salePrices := models.Prices(sales)
	activePrices := models.Prices(active)

	var weightedSale, weightedActive float64
	if len(salePrices) > 0 {
		weightedSale = weightedAverage(salePrices, linspace(saleWeightFirst, saleWeightLast, len(salePrices)))
	}
	if len(activePrices) > 0 {
		weightedActive = weightedAverage(activePrices, linspace(activeWeightFirst, activeWeightLast, len(activePrices)))
	}

	var predicted float64
	switch snapshot.MarketTrend {
	case models.MarketBullish:
		predicted = math.Max(weightedSale, weightedActive) * bullishMarkup
	case models.MarketBearish:
		predicted = math.Min(weightedSale, weightedActive) * bearishMarkdown
	default:
		predicted = weightedSale
		if weightedActive > 0 {
			predicted = (weightedSale + weightedActive) / 2
		}
	}

	saleConf := sampleConfidence(salePrices, saleConfidenceSamples)
	activeConf := sampleConfidence(activePrices, activeConfidenceSamples)
	confidence := clampConfidence(saleConf*saleConfidenceShare + activeConf*activeConfidenceShare)

	p.logger.Debug("[predictor] weighted sale $%.2f, weighted active $%.2f, %s market → $%.2f (confidence %.2f)",
		weightedSale, weightedActive, snapshot.MarketTrend, predicted, confidence)

	return models.PricePrediction{
		PredictedPrice: toPrice(predicted),
		Confidence:     confidence,
	}
}

// PredictMean is the single-feed fallback. Listing-only estimates are capped
// at half confidence.
func (p *Predictor) PredictMean(sales, active []models.Listing) models.PricePrediction {
	var predicted, confidence float64
	switch {
	case len(sales) > 0:
		predicted = mean(models.Prices(sales))
		confidence = math.Min(1.0, float64(len(sales))/saleConfidenceSamples)
	case len(active) > 0:
		predicted = mean(models.Prices(active))
		confidence = math.Min(activeOnlyMaxConfidence, float64(len(active))/activeOnlySamples)
	}

	return models.PricePrediction{
		PredictedPrice: toPrice(predicted),
		Confidence:     clampConfidence(confidence),
	}
}

// sampleConfidence grows with sample size up to full and shrinks with the
// coefficient of variation.
func sampleConfidence(prices []float64, fullAt float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	conf := math.Min(1.0, float64(len(prices))/fullAt)
	if len(prices) > 1 {
		if m := mean(prices); m > 0 {
			conf *= 1 - math.Min(1, populationStdDev(prices)/m)
		} else {
			conf = 0
		}
	}
	return conf
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	return math.Min(1, round2(c))
}
