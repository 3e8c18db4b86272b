package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of date field values and date bounds.
const DateLayout = "2006-01-02"

// Bound is a min/max constraint as declared in the schema. Schemas written by
// the form builder store bounds as strings and use "" for "no bound", so the
// raw text is preserved and interpreted on demand.
type Bound struct {
	raw string
}

// NewBound builds a Bound from a decoded JSON/YAML scalar. nil and "" produce
// an unset bound.
func NewBound(value any) Bound {
	text, ok := scalarString(value)
	if !ok {
		return Bound{}
	}
	return Bound{raw: strings.TrimSpace(text)}
}

// IsSet reports whether the bound constrains anything.
func (b Bound) IsSet() bool {
	return b.raw != ""
}

// Float returns the numeric value of the bound.
func (b Bound) Float() (float64, bool) {
	if !b.IsSet() {
		return 0, false
	}
	val, err := strconv.ParseFloat(b.raw, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// Date returns the bound as a calendar date.
func (b Bound) Date() (time.Time, bool) {
	if !b.IsSet() {
		return time.Time{}, false
	}
	val, err := time.Parse(DateLayout, b.raw)
	if err != nil {
		return time.Time{}, false
	}
	return val, true
}

func (b Bound) String() string {
	return b.raw
}

// MarshalJSON emits numeric bounds as numbers and everything else as strings.
func (b Bound) MarshalJSON() ([]byte, error) {
	if !b.IsSet() {
		return []byte(`""`), nil
	}
	if _, err := strconv.ParseFloat(b.raw, 64); err == nil {
		return []byte(b.raw), nil
	}
	return json.Marshal(b.raw)
}

// UnmarshalJSON accepts numbers, strings and null.
func (b *Bound) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("schema: bound: %w", err)
	}
	*b = NewBound(value)
	return nil
}

func scalarString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}
