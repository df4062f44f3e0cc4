package services

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"card-pricer/models"
)

func TestPredictEmptyFeeds(t *testing.T) {
	p := NewPredictor(quietLogger())
	got := p.Predict(nil, nil, models.MarketSnapshot{MarketTrend: models.Unknown})

	assert.True(t, got.PredictedPrice.IsZero())
	assert.Equal(t, 0.0, got.Confidence)
}

func TestPredictWeightedNeutralMarket(t *testing.T) {
	p := NewPredictor(quietLogger())
	sales := listings(150, 145, 160)
	active := listings(155, 165, 145)
	snap := NewMarketAnalyzer(quietLogger()).Analyze(sales, active)

	got := p.Predict(sales, active, snap)
	assert.Equal(t, "153.07", got.PredictedPrice.StringFixed(2))
	assert.Equal(t, 0.26, got.Confidence)
}

func TestPredictWeightedFavoursRecentSales(t *testing.T) {
	p := NewPredictor(quietLogger())
	snap := models.MarketSnapshot{MarketTrend: models.MarketNeutral}

	rising := p.Predict(listings(200, 100), listings(150), snap)
	falling := p.Predict(listings(100, 200), listings(150), snap)
	assert.True(t, rising.PredictedPrice.GreaterThan(falling.PredictedPrice))
}

func TestPredictWeightedMarketAdjustments(t *testing.T) {
	p := NewPredictor(quietLogger())
	sales := listings(100)
	active := listings(200)

	bull := p.PredictWeighted(sales, active, models.MarketSnapshot{MarketTrend: models.MarketBullish})
	assert.True(t, bull.PredictedPrice.Equal(decimal.RequireFromString("210")))

	bear := p.PredictWeighted(sales, active, models.MarketSnapshot{MarketTrend: models.MarketBearish})
	assert.True(t, bear.PredictedPrice.Equal(decimal.RequireFromString("95")))

	neutral := p.PredictWeighted(sales, active, models.MarketSnapshot{MarketTrend: models.MarketNeutral})
	assert.True(t, neutral.PredictedPrice.Equal(decimal.RequireFromString("150")))
}

func TestPredictMeanSalesOnly(t *testing.T) {
	p := NewPredictor(quietLogger())
	got := p.Predict(listings(10, 20, 30), nil, models.MarketSnapshot{})

	assert.Equal(t, "20.00", got.PredictedPrice.StringFixed(2))
	assert.Equal(t, 0.3, got.Confidence)
}

func TestPredictMeanActiveOnlyIsCapped(t *testing.T) {
	p := NewPredictor(quietLogger())

	few := p.Predict(nil, listings(10, 30), models.MarketSnapshot{})
	assert.Equal(t, "20.00", few.PredictedPrice.StringFixed(2))
	assert.Equal(t, 0.1, few.Confidence)

	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 50
	}
	many := p.Predict(nil, listings(prices...), models.MarketSnapshot{})
	assert.Equal(t, 0.5, many.Confidence)
}

func TestConfidenceStaysInRange(t *testing.T) {
	p := NewPredictor(quietLogger())
	cases := [][2][]float64{
		{{1, 1000, 1, 1000}, {1, 5000}},
		{{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, {10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}},
		{{0.01, 0.02}, {999999}},
	}
	for _, c := range cases {
		for _, trend := range []string{models.MarketBullish, models.MarketBearish, models.MarketNeutral} {
			got := p.Predict(listings(c[0]...), listings(c[1]...), models.MarketSnapshot{MarketTrend: trend})
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)
			assert.True(t, got.PredictedPrice.IsPositive())
		}
	}
}

func TestConfidenceIsFullForLargeUniformFeeds(t *testing.T) {
	p := NewPredictor(quietLogger())
	sales := make([]float64, 12)
	active := make([]float64, 16)
	for i := range sales {
		sales[i] = 10
	}
	for i := range active {
		active[i] = 10
	}
	got := p.Predict(listings(sales...), listings(active...), models.MarketSnapshot{MarketTrend: models.MarketNeutral})
	assert.Equal(t, 1.0, got.Confidence)
}

func TestNonFiniteStatisticsBecomeZero(t *testing.T) {
	assert.True(t, toPrice(math.Inf(1)).IsZero())
	assert.True(t, toPrice(math.NaN()).IsZero())
	assert.Equal(t, 0.0, round2(math.Inf(-1)))
	assert.Equal(t, "12.35", toPrice(12.345).StringFixed(2))
}
