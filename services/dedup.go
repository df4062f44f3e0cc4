package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"card-pricer/models"
	"card-pricer/utils"
)

var dedupPriceTolerance = decimal.RequireFromString("0.01")

// Deduplicator removes active listings that are really a sale already counted.
type Deduplicator struct {
	logger *utils.Logger
}

// NewDeduplicator creates a Deduplicator with the given logger.
func NewDeduplicator(logger *utils.Logger) *Deduplicator {
	return &Deduplicator{logger: logger}
}

// Dedupe drops active listings whose title matches a sale case-insensitively
// and whose price is within a cent of it. Blank titles never match. If every
// active listing would go, the original set is returned instead.
func (d *Deduplicator) Dedupe(active, sales []models.Listing) []models.Listing {
	if len(active) == 0 || len(sales) == 0 {
		return active
	}

	kept := make([]models.Listing, 0, len(active))
	for _, listing := range active {
		if sale, dup := matchingSale(listing, sales); dup {
			d.logger.Debug("[dedup] DUPLICATE %q $%s matches sale %q $%s",
				listing.Title, listing.Price, sale.Title, sale.Price)
			continue
		}
		kept = append(kept, listing)
	}

	if len(kept) == 0 {
		d.logger.Warn("[dedup] All %d active listings matched sales, keeping the original set", len(active))
		return active
	}

	d.logger.Info("[dedup] Active listings after removing duplicates: %d → %d", len(active), len(kept))
	return kept
}

func matchingSale(listing models.Listing, sales []models.Listing) (models.Listing, bool) {
	title := strings.TrimSpace(listing.Title)
	if title == "" {
		return models.Listing{}, false
	}
	for _, sale := range sales {
		if !strings.EqualFold(title, strings.TrimSpace(sale.Title)) {
			continue
		}
		if listing.Price.Sub(sale.Price).Abs().LessThan(dedupPriceTolerance) {
			return sale, true
		}
	}
	return models.Listing{}, false
}
