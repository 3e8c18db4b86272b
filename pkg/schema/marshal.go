package schema

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MarshalJSON encodes the schema in the same partition/elements wire format
// that Parse accepts.
func (s Schema) MarshalJSON() ([]byte, error) {
	out := make([]map[string]any, 0, len(s.Partitions))
	for _, partition := range s.Partitions {
		elements := make([]map[string]any, 0, len(partition.Fields))
		for _, field := range partition.Fields {
			elements = append(elements, field.wireAttrs())
		}
		entry := map[string]any{"elements": elements}
		if partition.Label != "" {
			entry["label"] = partition.Label
		}
		out = append(out, entry)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the wire format. Configuration errors are returned so
// that strict decoding (for example of API payloads) can reject them.
func (s *Schema) UnmarshalJSON(data []byte) error {
	result := Parse(data)
	if result.Invalid {
		return &ConfigError{Issues: result.Issues}
	}
	*s = result.Schema
	return nil
}

// ConfigError reports why a schema payload could not be used.
type ConfigError struct {
	Issues []Issue
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Message)
	}
	return "schema: invalid configuration: " + strings.Join(parts, "; ")
}

func (f Field) wireAttrs() map[string]any {
	attrs := map[string]any{
		"type": f.Type,
	}
	if f.Kind != KindUnknown {
		attrs["type"] = string(f.Kind)
	}
	putString(attrs, "id", f.ID)
	putString(attrs, "name", f.Name)
	putString(attrs, "label", f.Label)
	putString(attrs, "description", f.Description)
	putString(attrs, "placeholder", f.Placeholder)
	putString(attrs, "classname", f.ClassName)
	if f.Required {
		attrs["required"] = true
	}
	if f.Default != nil {
		attrs["value"] = f.Default
	}
	if f.Min.IsSet() {
		attrs["min"] = f.Min
	}
	if f.Max.IsSet() {
		attrs["max"] = f.Max
	}
	if f.MinLength > 0 {
		attrs["minlength"] = f.MinLength
	}
	if f.MaxLength > 0 {
		attrs["maxlength"] = f.MaxLength
	}
	putString(attrs, "pattern", f.Pattern)
	if len(f.Accept) > 0 {
		attrs["accept"] = strings.Join(f.Accept, ",")
	}
	if f.SizeLimit > 0 {
		attrs["sizelimit"] = f.SizeLimit
	}
	if f.Multiple {
		attrs["multiple"] = true
	}
	if len(f.Options) > 0 {
		attrs["options"] = f.Options
	}

	putString(attrs, "errormessage", f.Messages.Required)
	putString(attrs, "errormessagemin", f.Messages.Min)
	putString(attrs, "errormessagemax", f.Messages.Max)
	putString(attrs, "errormessageminlength", f.Messages.MinLength)
	putString(attrs, "errormessagemaxlength", f.Messages.MaxLength)
	putString(attrs, "errormessagepattern", f.Messages.Pattern)
	putString(attrs, "errormessageaccept", f.Messages.Accept)
	putString(attrs, "errormessagesize", f.Messages.Size)

	if f.Kind == KindHTML {
		putString(attrs, "tag", f.Presentation.Tag)
		putString(attrs, "color", f.Presentation.Color)
		putString(attrs, "textAlign", f.Presentation.TextAlign)
		if f.Presentation.Bold {
			attrs["bold"] = true
		}
		if f.Presentation.Italic {
			attrs["italic"] = true
		}
		if f.Presentation.FontSize > 0 {
			attrs["fontSize"] = strconv.FormatFloat(f.Presentation.FontSize, 'f', -1, 64)
		}
	}
	return attrs
}

func putString(attrs map[string]any, key, value string) {
	if value != "" {
		attrs[key] = value
	}
}
