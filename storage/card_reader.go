package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"card-pricer/models"
)

var requiredColumns = []string{"brand", "set_name", "year", "condition"}

// ReadCards loads batch input from a CSV file with a header row. Values are
// trimmed; optional columns may be absent.
func ReadCards(path string) ([]models.CardQuery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", path, err)
	}
	defer f.Close()
	return DecodeCards(f)
}

// DecodeCards parses card rows from r.
func DecodeCards(r io.Reader) ([]models.CardQuery, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("input has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("input is missing column %q", col)
		}
	}

	var cards []models.CardQuery
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		cards = append(cards, models.CardQuery{
			Brand:         get("brand"),
			SetName:       get("set_name"),
			Year:          get("year"),
			Condition:     get("condition"),
			PlayerName:    get("player_name"),
			CardNumber:    get("card_number"),
			CardVariation: get("card_variation"),
		})
	}
	return cards, nil
}
