package vanilla

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/sanitize"
	"github.com/goliatone/go-formflow/pkg/schema"
)

var htmlTags = map[string]struct{}{
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "p": {}, "div": {},
}

var safeStyleValue = regexp.MustCompile(`^[#(),.%\w\s-]+$`)

// fieldData builds the template context of one field. The switch covers
// every schema kind; false is returned for kinds that cannot be drawn.
func fieldData(field schema.Field, value any, errs []string) (map[string]any, bool) {
	data := map[string]any{
		"kind":        string(field.Kind),
		"id":          controlID(field),
		"name":        field.Name,
		"label":       sanitize.Inline(field.Label),
		"description": sanitize.Markdown(field.Description),
		"placeholder": field.Placeholder,
		"class":       classList(field.ClassName),
		"required":    field.Required,
		"errors":      errs,
	}
	if data["label"] == "" {
		data["label"] = field.Name
	}

	switch field.Kind {
	case schema.KindText, schema.KindEmail, schema.KindPassword, schema.KindTel,
		schema.KindURL, schema.KindNumber, schema.KindDate, schema.KindColor,
		schema.KindRange, schema.KindHidden:
		data["template"] = "input"
		data["input_type"] = string(field.Kind)
		data["value"] = scalarValue(value)
		if field.Kind == schema.KindPassword {
			data["value"] = ""
		}
		data["min"] = field.Min.String()
		data["max"] = field.Max.String()
		data["minlength"] = positive(field.MinLength)
		data["maxlength"] = positive(field.MaxLength)
		data["pattern"] = field.Pattern
	case schema.KindTextarea:
		data["template"] = "textarea"
		data["value"] = scalarValue(value)
		data["minlength"] = positive(field.MinLength)
		data["maxlength"] = positive(field.MaxLength)
	case schema.KindSelect:
		data["template"] = "select"
		data["multiple"] = field.Multiple
		data["options"] = options(field.Options, selected(value))
	case schema.KindRadio:
		data["template"] = "choices"
		data["input_type"] = "radio"
		data["options"] = options(field.Options, selected(value))
	case schema.KindMultipleCheckbox:
		data["template"] = "choices"
		data["input_type"] = "checkbox"
		data["options"] = options(field.Options, selected(value))
	case schema.KindCheckbox:
		data["template"] = "checkbox"
		checked, _ := value.(bool)
		data["checked"] = checked
	case schema.KindFile:
		data["template"] = "file"
		data["accept"] = strings.Join(field.Accept, ",")
		data["multiple"] = field.Multiple
		data["files"] = files(value)
	case schema.KindHTML:
		data["template"] = "html"
		data["tag"] = htmlTag(field.Presentation.Tag)
		data["style"] = htmlStyle(field.Presentation)
		data["content"] = sanitize.HTML(field.Label)
	case schema.KindDivider:
		data["template"] = "divider"
	case schema.KindUnknown:
		return nil, false
	default:
		return nil, false
	}
	return data, true
}

func controlID(field schema.Field) string {
	base := field.Name
	if base == "" {
		base = field.ID
	}
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return "ff-" + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
}

func classList(value string) string {
	tokens := strings.Fields(value)
	keep := tokens[:0]
	for _, token := range tokens {
		if strings.HasPrefix(token, "formflow-") {
			continue
		}
		keep = append(keep, token)
	}
	return strings.Join(keep, " ")
}

func scalarValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func selected(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func options(opts []schema.Option, chosen []string) []map[string]any {
	out := make([]map[string]any, 0, len(opts))
	for _, opt := range opts {
		out = append(out, map[string]any{
			"value":    opt.Value,
			"text":     opt.Text,
			"selected": slices.Contains(chosen, opt.Value),
		})
	}
	return out
}

func files(value any) []map[string]any {
	list, _ := value.([]schema.File)
	out := make([]map[string]any, 0, len(list))
	for _, file := range list {
		out = append(out, map[string]any{"name": file.Name, "type": file.Type, "size": file.Size})
	}
	return out
}

func htmlTag(tag string) string {
	if _, ok := htmlTags[tag]; ok {
		return tag
	}
	return "div"
}

func htmlStyle(p schema.Presentation) string {
	var parts []string
	if p.Color != "" && safeStyleValue.MatchString(p.Color) {
		parts = append(parts, "color: "+p.Color)
	}
	if p.Bold {
		parts = append(parts, "font-weight: bold")
	}
	if p.Italic {
		parts = append(parts, "font-style: italic")
	}
	if p.FontSize > 0 {
		parts = append(parts, "font-size: "+strconv.FormatFloat(p.FontSize, 'f', -1, 64)+"px")
	}
	switch p.TextAlign {
	case "left", "right", "center", "justify":
		parts = append(parts, "text-align: "+p.TextAlign)
	}
	return strings.Join(parts, "; ")
}
