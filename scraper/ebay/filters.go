package ebay

import (
	"strings"

	"card-pricer/models"
)

const (
	dateFormat   = "2006-01-02T15:04:05.000Z"
	activeFilter = "buyingOptions:{FIXED_PRICE|AUCTION}"
)

// conditionValues maps card conditions onto marketplace condition filter values.
var conditionValues = map[string]string{
	"new":        "NEW",
	"like new":   "NEW_OTHER",
	"excellent":  "USED_EXCELLENT",
	"very good":  "USED_VERY_GOOD",
	"good":       "USED_GOOD",
	"acceptable": "USED_ACCEPTABLE",
	"for parts":  "FOR_PARTS",
	"ungraded":   "UNGRADED",
	"graded":     "GRADED",
}

// ConditionFilterValue returns the marketplace value for a condition, or ""
// when the condition has no mapping and must be filtered client side only.
func ConditionFilterValue(condition string) string {
	return conditionValues[strings.ToLower(strings.TrimSpace(condition))]
}

// SoldFilter restricts a search to items that ended inside window.
func SoldFilter(window models.DateRange, condition string) string {
	f := "itemEndDate:[" + window.Start.UTC().Format(dateFormat) + ".." + window.End.UTC().Format(dateFormat) + "]"
	return withCondition(f, condition)
}

// ActiveFilter restricts a search to fixed-price and auction listings.
func ActiveFilter(condition string) string {
	return withCondition(activeFilter, condition)
}

func withCondition(filter, condition string) string {
	if v := ConditionFilterValue(condition); v != "" {
		filter += ",itemCondition:{" + v + "}"
	}
	return filter
}
