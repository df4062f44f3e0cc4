package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// UnknownCondition is used whenever a listing carries no usable condition.
const UnknownCondition = "Unknown"

// ConditionKind tags which shape the marketplace used for a condition field.
type ConditionKind int

const (
	ConditionMissing ConditionKind = iota
	ConditionStructured
	ConditionPlain
)

// Condition is the decoded condition field of a raw item summary. The
// marketplace sends either an object with a display name and id, or a bare
// string; anything else decodes as ConditionMissing.
type Condition struct {
	Kind    ConditionKind
	Display string
	ID      string
}

func (c *Condition) UnmarshalJSON(b []byte) error {
	*c = Condition{Kind: ConditionMissing}

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '{':
		var obj struct {
			DisplayName string          `json:"conditionDisplayName"`
			ID          json.RawMessage `json:"conditionId"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil
		}
		c.Kind = ConditionStructured
		c.Display = strings.TrimSpace(obj.DisplayName)
		c.ID = ScalarString(obj.ID)
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		c.Kind = ConditionPlain
		c.Display = s
		c.ID = s
	}
	return nil
}

// Resolve returns the display name and id, substituting UnknownCondition for
// whatever is missing. fallbackID is used when a plain-string condition came
// with a separate top-level id.
func (c Condition) Resolve(fallbackID string) (display, id string) {
	display, id = UnknownCondition, UnknownCondition

	switch c.Kind {
	case ConditionStructured:
		if c.Display != "" {
			display = c.Display
		}
		if c.ID != "" {
			id = c.ID
		}
	case ConditionPlain:
		display = c.Display
		id = c.ID
		if fallbackID != "" {
			id = fallbackID
		}
	}
	return display, id
}

// ScalarString renders a JSON string or number as plain text. Other JSON
// values yield "".
func ScalarString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return ""
	}
	return n.String()
}
