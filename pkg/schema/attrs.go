package schema

import (
	"fmt"
	"strconv"
	"strings"
)

func asMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[fmt.Sprint(key)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// lowerKeys makes attribute lookups insensitive to the camelCase spelling
// some form builders emit (minLength, sizeLimit, errorMessage...).
func lowerKeys(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		lowered := strings.ToLower(strings.TrimSpace(key))
		if _, exists := out[lowered]; exists && lowered != key {
			continue
		}
		out[lowered] = value
	}
	return out
}

func stringAttr(attrs map[string]any, key string) string {
	text, _ := scalarString(attrs[key])
	return text
}

func boolAttr(attrs map[string]any, key string) bool {
	switch v := attrs[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on", key:
			return true
		}
		return false
	case nil:
		return false
	default:
		f, ok := toFloat(v)
		return ok && f != 0
	}
}

func floatAttr(attrs map[string]any, key string) float64 {
	f, _ := toFloat(attrs[key])
	return f
}

func intAttr(attrs map[string]any, key string) int {
	f, ok := toFloat(attrs[key])
	if !ok || f < 0 {
		return 0
	}
	return int(f)
}

func toFloat(value any) (float64, bool) {
	text, ok := scalarString(value)
	if !ok {
		return 0, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func listAttr(attrs map[string]any, key string) []string {
	var parts []string
	switch v := attrs[key].(type) {
	case string:
		parts = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			if text, ok := scalarString(item); ok {
				parts = append(parts, text)
			}
		}
	case []string:
		parts = v
	}

	var out []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func optionsAttr(attrs map[string]any, key string) []Option {
	list, ok := attrs[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Option, 0, len(list))
	for _, item := range list {
		if raw, ok := asMap(item); ok {
			opt := lowerKeys(raw)
			option := Option{
				Value: stringAttr(opt, "value"),
				Text:  stringAttr(opt, "text"),
			}
			if option.Text == "" {
				option.Text = stringAttr(opt, "label")
			}
			if option.Text == "" {
				option.Text = option.Value
			}
			out = append(out, option)
			continue
		}
		if text, ok := scalarString(item); ok {
			out = append(out, Option{Value: text, Text: text})
		}
	}
	return out
}
