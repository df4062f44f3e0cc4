package models

import "strings"

// CardQuery identifies the card being priced. It is built once per pricing
// request and never mutated afterwards.
type CardQuery struct {
	Brand         string `json:"brand" validate:"required"`
	SetName       string `json:"set_name" validate:"required"`
	Year          string `json:"year" validate:"required"`
	PlayerName    string `json:"player_name,omitempty"`
	CardNumber    string `json:"card_number,omitempty"`
	CardVariation string `json:"card_variation,omitempty"`
	Condition     string `json:"condition,omitempty"`
}

// Label is the short card identity used in logs and batch error reports.
func (q CardQuery) Label() string {
	return strings.TrimSpace(q.Brand + " " + q.SetName + " " + q.Year)
}
