package render

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formflow/pkg/engine"
)

// ErrorMapping splits feedback into field-level and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// FieldErrors returns the messages attached to name.
func (m ErrorMapping) FieldErrors(name string) []string {
	return m.Fields[name]
}

// MapErrorPayload merges the view's validation errors with server feedback.
// Payload keys may be plain field names, dotted paths or JSON pointers
// ("/email", "body.email"); the last segment that names a field of the form
// wins. Keys that match no field become form-level messages so nothing is
// lost.
func MapErrorPayload(view engine.View, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}

	known := make(map[string]struct{})
	for _, name := range view.Schema.Names() {
		known[name] = struct{}{}
	}

	for name, message := range view.Errors {
		if message = strings.TrimSpace(message); message != "" {
			mapping.Fields[name] = append(mapping.Fields[name], message)
		}
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		messages := normalizeMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		if name := matchField(key, known); name != "" {
			mapping.Fields[name] = normalizeMessages(append(mapping.Fields[name], messages...))
			continue
		}
		mapping.Form = append(mapping.Form, messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

func matchField(key string, known map[string]struct{}) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if _, ok := known[key]; ok {
		return key
	}
	segments := strings.FieldsFunc(key, func(r rune) bool {
		return r == '/' || r == '.' || r == '[' || r == ']' || r == '$'
	})
	for i := len(segments) - 1; i >= 0; i-- {
		segment := strings.ReplaceAll(strings.ReplaceAll(segments[i], "~1", "/"), "~0", "~")
		if _, ok := known[segment]; ok {
			return segment
		}
	}
	return ""
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
