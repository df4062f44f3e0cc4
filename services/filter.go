package services

import (
	"strings"

	"card-pricer/models"
	"card-pricer/utils"
)

// DefaultExcludedKeywords flag bulk lots and pick-your-card listings whose
// price says nothing about a single copy of the card.
var DefaultExcludedKeywords = []string{
	"lot",
	"complete your set",
	"compete your set",
	"you pick",
	"you-pick",
	"you choose",
	"u pick",
	"pick your",
	"complete set",
	"bulk",
	"pick a card",
	"your pick",
	"pick from list",
	"pick from a list",
	"pyc",
	"pick your card",
	"select your card",
	"choose yours",
}

const (
	iqrMultiplier      = 1.5
	iqrWideMultiplier  = 2.5
	iqrMinItems        = 4
	iqrMinRetained     = 0.5
	spreadSigmas       = 3.0
	spreadMinDataPoint = 2
)

// NoiseFilter drops bulk-lot listings and price outliers.
type NoiseFilter struct {
	logger   *utils.Logger
	keywords []string
}

// NewNoiseFilter creates a NoiseFilter excluding the given title keywords.
func NewNoiseFilter(logger *utils.Logger, keywords []string) *NoiseFilter {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &NoiseFilter{logger: logger, keywords: lowered}
}

// CleanSales runs the keyword, IQR and standard-deviation passes over sales.
func (f *NoiseFilter) CleanSales(sales []models.Listing) []models.Listing {
	return f.FilterSpread(f.FilterOutliers(f.FilterKeywords(sales)))
}

// CleanActive runs the keyword and IQR passes over active listings.
func (f *NoiseFilter) CleanActive(active []models.Listing) []models.Listing {
	return f.FilterOutliers(f.FilterKeywords(active))
}

// FilterKeywords drops listings whose title contains an excluded keyword.
func (f *NoiseFilter) FilterKeywords(items []models.Listing) []models.Listing {
	if len(items) == 0 || len(f.keywords) == 0 {
		return items
	}

	kept := make([]models.Listing, 0, len(items))
	for _, item := range items {
		if kw, hit := f.excludedBy(item.Title); hit {
			f.logger.Debug("[filter] EXCLUDED %q ($%s): keyword %q", item.Title, item.Price, kw)
			continue
		}
		kept = append(kept, item)
	}

	f.logger.Info("[filter] Keyword filter: %d → %d listings", len(items), len(kept))
	return kept
}

func (f *NoiseFilter) excludedBy(title string) (string, bool) {
	lower := strings.ToLower(title)
	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// FilterOutliers applies the IQR rule. Fewer than four items pass through
// untouched. If the standard bounds would keep less than half the items the
// bounds are widened once and that result is used as is.
func (f *NoiseFilter) FilterOutliers(items []models.Listing) []models.Listing {
	if len(items) < iqrMinItems {
		return items
	}

	prices := models.Prices(items)
	q1 := percentile(prices, 25)
	q3 := percentile(prices, 75)
	iqr := q3 - q1

	kept, lower, upper := keepWithin(items, q1-iqrMultiplier*iqr, q3+iqrMultiplier*iqr)
	if float64(len(kept)) < float64(len(items))*iqrMinRetained {
		kept, lower, upper = keepWithin(items, q1-iqrWideMultiplier*iqr, q3+iqrWideMultiplier*iqr)
	}

	if dropped := len(items) - len(kept); dropped > 0 {
		f.logger.Info("[filter] IQR filter dropped %d outliers (bounds $%.2f - $%.2f)", dropped, lower, upper)
	}
	return kept
}

// FilterSpread drops items further than three sample standard deviations
// from the mean. It needs at least two prices.
func (f *NoiseFilter) FilterSpread(items []models.Listing) []models.Listing {
	if len(items) < spreadMinDataPoint {
		return items
	}

	prices := models.Prices(items)
	m := mean(prices)
	threshold := spreadSigmas * sampleStdDev(prices)
	if threshold == 0 {
		return items
	}

	kept, _, _ := keepWithin(items, m-threshold, m+threshold)
	if dropped := len(items) - len(kept); dropped > 0 {
		f.logger.Info("[filter] Spread filter dropped %d sales (mean $%.2f, ±$%.2f)", dropped, m, threshold)
	}
	return kept
}

func keepWithin(items []models.Listing, lower, upper float64) ([]models.Listing, float64, float64) {
	kept := make([]models.Listing, 0, len(items))
	for _, item := range items {
		if p := item.PriceFloat(); p >= lower && p <= upper {
			kept = append(kept, item)
		}
	}
	return kept, lower, upper
}
