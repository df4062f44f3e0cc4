package models

import "time"

// DateRange bounds the completed-sales search.
type DateRange struct {
	Start time.Time
	End   time.Time
}
