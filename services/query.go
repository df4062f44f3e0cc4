package services

import (
	"strings"

	"card-pricer/models"
)

// BuildSearchQuery turns card attributes into a marketplace search string:
// "{brand} {set} {year} [player] [#number] [variation]". Blank optional
// fields are left out.
func BuildSearchQuery(q models.CardQuery) string {
	parts := make([]string, 0, 6)
	for _, p := range []string{q.Brand, q.SetName, q.Year} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	if p := strings.TrimSpace(q.PlayerName); p != "" {
		parts = append(parts, p)
	}
	if n := strings.TrimSpace(q.CardNumber); n != "" {
		parts = append(parts, "#"+n)
	}
	if v := strings.TrimSpace(q.CardVariation); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}
