package render

import (
	"fmt"
	"sort"
	"strings"
)

// Reserved hidden inputs understood by the session handler.
const (
	ActionField  = "action"
	StepField    = "step"
	SessionField = "_session"
	CSRFField    = "_csrf"
)

// HiddenField represents a hidden form input emitted alongside the visible
// partition.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// CSRFToken constructs the hidden field carrying a request token.
func CSRFToken(token string) HiddenField {
	return Hidden(CSRFField, token)
}

// SessionToken constructs the hidden field carrying the form session id.
func SessionToken(id string) HiddenField {
	return Hidden(SessionField, id)
}

// SortedHiddenFields drops empty names, lets later fields win on collisions
// and sorts by name for deterministic output.
func SortedHiddenFields(fields []HiddenField) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	latest := make(map[string]string, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		latest[name] = field.Value
	}
	if len(latest) == 0 {
		return nil
	}

	names := make([]string, 0, len(latest))
	for name := range latest {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]HiddenField, 0, len(names))
	for _, name := range names {
		out = append(out, HiddenField{Name: name, Value: latest[name]})
	}
	return out
}
