// Package state holds the values and validation errors of one form session.
// State is a value: every transition returns a new State and leaves the
// receiver untouched, so callers can keep earlier snapshots around.
package state

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// State pairs the current field values with the current per-field errors.
type State struct {
	values map[string]any
	errors map[string]string
}

// New builds the initial state for a schema. Every contributing field gets
// its declared default coerced to the kind's value type, or the kind's empty
// value when no default is declared. The first declaration of a duplicated
// name wins.
func New(s schema.Schema) State {
	values := make(map[string]any)
	for _, field := range s.Fields() {
		if !field.Contributes() {
			continue
		}
		if _, exists := values[field.Name]; exists {
			continue
		}
		values[field.Name] = Initial(field)
	}
	return State{values: values, errors: map[string]string{}}
}

// Initial returns the starting value of a single field.
func Initial(field schema.Field) any {
	switch field.Kind {
	case schema.KindCheckbox:
		return truthy(field.Default)
	case schema.KindFile:
		return []schema.File{}
	case schema.KindMultipleCheckbox:
		return stringList(field.Default)
	case schema.KindSelect:
		if field.Multiple {
			return stringList(field.Default)
		}
		return scalar(field.Default)
	default:
		return scalar(field.Default)
	}
}

// Values returns a copy of the flat name to value map.
func (s State) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for name, value := range s.values {
		out[name] = cloneValue(value)
	}
	return out
}

// Value returns the current value of a field.
func (s State) Value(name string) (any, bool) {
	value, ok := s.values[name]
	return cloneValue(value), ok
}

// Has reports whether name is a key of the form values.
func (s State) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Errors returns a copy of the error map.
func (s State) Errors() map[string]string {
	out := make(map[string]string, len(s.errors))
	for name, message := range s.errors {
		out[name] = message
	}
	return out
}

// Error returns the error currently attached to a field.
func (s State) Error(name string) (string, bool) {
	message, ok := s.errors[name]
	return message, ok
}

// HasErrors reports whether any field carries an error.
func (s State) HasErrors() bool {
	return len(s.errors) > 0
}

// WithValue returns a copy of s with name set to value.
func (s State) WithValue(name string, value any) State {
	next := s.clone()
	next.values[name] = value
	return next
}

// WithError returns a copy of s with an error attached to name. An empty
// message removes the error.
func (s State) WithError(name, message string) State {
	next := s.clone()
	if message == "" {
		delete(next.errors, name)
	} else {
		next.errors[name] = message
	}
	return next
}

// WithErrors merges errors into a copy of s.
func (s State) WithErrors(errs map[string]string) State {
	next := s.clone()
	for name, message := range errs {
		if message == "" {
			continue
		}
		next.errors[name] = message
	}
	return next
}

// ReplaceErrors returns a copy of s whose error map is exactly errs.
func (s State) ReplaceErrors(errs map[string]string) State {
	next := s.clone()
	next.errors = make(map[string]string, len(errs))
	for name, message := range errs {
		if message == "" {
			continue
		}
		next.errors[name] = message
	}
	return next
}

// ClearErrors removes the errors of the named fields.
func (s State) ClearErrors(names ...string) State {
	next := s.clone()
	for _, name := range names {
		delete(next.errors, name)
	}
	return next
}

func (s State) clone() State {
	values := make(map[string]any, len(s.values))
	for name, value := range s.values {
		values[name] = value
	}
	errors := make(map[string]string, len(s.errors))
	for name, message := range s.errors {
		errors[name] = message
	}
	return State{values: values, errors: errors}
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case []string:
		return append([]string{}, v...)
	case []schema.File:
		return append([]schema.File{}, v...)
	default:
		return value
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on", "checked":
			return true
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

func scalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case []any:
		if len(v) > 0 {
			return scalar(v[0])
		}
		return ""
	case []string:
		if len(v) > 0 {
			return v[0]
		}
		return ""
	default:
		return ""
	}
}

func stringList(value any) []string {
	out := []string{}
	switch v := value.(type) {
	case nil:
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if text := scalar(item); text != "" {
				out = append(out, text)
			}
		}
	default:
		if text := scalar(v); text != "" {
			out = append(out, text)
		}
	}
	return out
}
