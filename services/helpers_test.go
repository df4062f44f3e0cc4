package services

import (
	"encoding/json"
	"io"

	"github.com/shopspring/decimal"

	"card-pricer/models"
	"card-pricer/utils"
)

func quietLogger() *utils.Logger {
	return utils.NewLoggerTo(io.Discard, utils.LevelError)
}

func listing(title string, price float64) models.Listing {
	return models.Listing{Title: title, Price: decimal.NewFromFloat(price)}
}

func listings(prices ...float64) []models.Listing {
	out := make([]models.Listing, len(prices))
	for i, p := range prices {
		out[i] = listing("", p)
	}
	return out
}

func rawRecord(fields map[string]any) models.RawListing {
	b, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}
	return b
}

func rawSale(title, price, endDate string) models.RawListing {
	return rawRecord(map[string]any{
		"title":       title,
		"price":       map[string]string{"value": price, "currency": "USD"},
		"condition":   map[string]string{"conditionDisplayName": "Ungraded", "conditionId": "4000"},
		"itemEndDate": endDate,
	})
}

func rawActive(title, price string, options ...string) models.RawListing {
	if len(options) == 0 {
		options = []string{"FIXED_PRICE"}
	}
	return rawRecord(map[string]any{
		"title":         title,
		"price":         map[string]string{"value": price, "currency": "USD"},
		"condition":     map[string]string{"conditionDisplayName": "Ungraded", "conditionId": "4000"},
		"buyingOptions": options,
	})
}
