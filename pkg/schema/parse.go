package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Issue describes a configuration problem found while parsing a schema.
type Issue struct {
	Partition int    `json:"partition"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("partition %d: %s", i.Partition, i.Message)
	}
	return fmt.Sprintf("partition %d: field %q: %s", i.Partition, i.Field, i.Message)
}

// Result is the outcome of parsing a schema. Parsing never fails: malformed
// input yields an empty Schema with Invalid set so callers can show an
// "invalid configuration" state and render nothing.
type Result struct {
	Schema  Schema
	Invalid bool
	Issues  []Issue
}

// ParseOption customises parsing.
type ParseOption func(*parseConfig)

type parseConfig struct {
	strictNames bool
}

// WithStrictNames rejects schemas that reuse a field name. By default a
// duplicate is reported as an issue and both fields share the result key.
func WithStrictNames() ParseOption {
	return func(cfg *parseConfig) {
		cfg.strictNames = true
	}
}

var errTrailingData = errors.New("unexpected data after top-level value")

// ParseString parses a JSON-encoded schema string.
func ParseString(raw string, options ...ParseOption) Result {
	return Parse([]byte(raw), options...)
}

// Parse decodes a JSON schema payload. A payload that decodes to a JSON
// string is decoded once more, since stored event configurations are
// frequently double encoded.
func Parse(data []byte, options ...ParseOption) Result {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Result{}
	}

	value, err := decodeJSON(trimmed)
	if err != nil {
		return invalid(fmt.Sprintf("invalid JSON configuration: %v", err))
	}
	if nested, ok := value.(string); ok {
		inner := bytes.TrimSpace([]byte(nested))
		if len(inner) == 0 {
			return Result{}
		}
		value, err = decodeJSON(inner)
		if err != nil {
			return invalid(fmt.Sprintf("invalid JSON configuration: %v", err))
		}
	}
	return FromValue(value, options...)
}

// FromValue builds a schema from an already decoded structure: the result of
// json/yaml decoding into any, a []map[string]any, a []Partition or a Schema.
func FromValue(value any, options ...ParseOption) Result {
	cfg := parseConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	var (
		schema Schema
		issues []Issue
	)

	switch typed := value.(type) {
	case nil:
		return Result{}
	case Schema:
		schema = cloneSchema(typed)
	case []Partition:
		schema = cloneSchema(Schema{Partitions: typed})
	case []map[string]any:
		items := make([]any, len(typed))
		for i := range typed {
			items[i] = typed[i]
		}
		return FromValue(items, options...)
	case []any:
		for idx, item := range typed {
			raw, ok := asMap(item)
			if !ok {
				return invalid(fmt.Sprintf("partition %d is not an object", idx))
			}
			partition, partitionIssues, err := buildPartition(idx, raw)
			if err != nil {
				return invalid(err.Error())
			}
			issues = append(issues, partitionIssues...)
			schema.Partitions = append(schema.Partitions, partition)
		}
	default:
		return invalid(fmt.Sprintf("schema must be an array of partitions, got %T", value))
	}

	checked, rejected := checkSchema(schema, cfg)
	issues = append(issues, checked...)
	if rejected {
		return Result{Invalid: true, Issues: issues}
	}
	return Result{Schema: schema, Issues: issues}
}

func invalid(message string) Result {
	return Result{
		Invalid: true,
		Issues:  []Issue{{Partition: -1, Message: message}},
	}
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return value, nil
}

func buildPartition(idx int, raw map[string]any) (Partition, []Issue, error) {
	attrs := lowerKeys(raw)
	partition := Partition{
		Label: stringAttr(attrs, "label"),
	}
	if partition.Label == "" {
		partition.Label = stringAttr(attrs, "title")
	}

	elements, ok := attrs["elements"]
	if !ok || elements == nil {
		return partition, nil, nil
	}
	list, ok := elements.([]any)
	if !ok {
		return Partition{}, nil, fmt.Errorf("partition %d: elements must be an array", idx)
	}

	var issues []Issue
	for fieldIdx, item := range list {
		rawField, ok := asMap(item)
		if !ok {
			return Partition{}, nil, fmt.Errorf("partition %d: element %d is not an object", idx, fieldIdx)
		}
		field := buildField(rawField)
		if field.Kind == KindUnknown {
			issues = append(issues, Issue{
				Partition: idx,
				Field:     field.Name,
				Message:   fmt.Sprintf("unsupported field type %q", field.Type),
			})
		}
		partition.Fields = append(partition.Fields, field)
	}
	return partition, issues, nil
}

func buildField(raw map[string]any) Field {
	attrs := lowerKeys(raw)
	field := Field{
		ID:          stringAttr(attrs, "id"),
		Type:        stringAttr(attrs, "type"),
		Name:        strings.TrimSpace(stringAttr(attrs, "name")),
		Label:       stringAttr(attrs, "label"),
		Description: stringAttr(attrs, "description"),
		Placeholder: stringAttr(attrs, "placeholder"),
		ClassName:   stringAttr(attrs, "classname"),
		Required:    boolAttr(attrs, "required"),
		Default:     attrs["value"],
		Min:         NewBound(attrs["min"]),
		Max:         NewBound(attrs["max"]),
		MinLength:   intAttr(attrs, "minlength"),
		MaxLength:   intAttr(attrs, "maxlength"),
		Pattern:     stringAttr(attrs, "pattern"),
		Accept:      listAttr(attrs, "accept"),
		SizeLimit:   floatAttr(attrs, "sizelimit"),
		Multiple:    boolAttr(attrs, "multiple"),
		Options:     optionsAttr(attrs, "options"),
		Messages: Messages{
			Required:  stringAttr(attrs, "errormessage"),
			Min:       stringAttr(attrs, "errormessagemin"),
			Max:       stringAttr(attrs, "errormessagemax"),
			MinLength: stringAttr(attrs, "errormessageminlength"),
			MaxLength: stringAttr(attrs, "errormessagemaxlength"),
			Pattern:   stringAttr(attrs, "errormessagepattern"),
			Accept:    stringAttr(attrs, "errormessageaccept"),
			Size:      stringAttr(attrs, "errormessagesize"),
		},
		Presentation: Presentation{
			Tag:       strings.ToLower(stringAttr(attrs, "tag")),
			Color:     stringAttr(attrs, "color"),
			Bold:      boolAttr(attrs, "bold"),
			Italic:    boolAttr(attrs, "italic"),
			FontSize:  floatAttr(attrs, "fontsize"),
			TextAlign: stringAttr(attrs, "textalign"),
		},
	}
	field.Kind = ParseKind(field.Type)
	return field
}

func checkSchema(schema Schema, cfg parseConfig) ([]Issue, bool) {
	var (
		issues   []Issue
		rejected bool
	)
	owners := make(map[string]int)

	for pIdx, partition := range schema.Partitions {
		for _, field := range partition.Fields {
			if !field.Kind.IsInput() {
				continue
			}
			if field.Name == "" {
				issues = append(issues, Issue{Partition: pIdx, Message: fmt.Sprintf("%s field %q has no name", field.Kind, field.ID)})
				continue
			}
			if first, ok := owners[field.Name]; ok {
				issues = append(issues, Issue{
					Partition: pIdx,
					Field:     field.Name,
					Message:   fmt.Sprintf("duplicate field name (first declared in partition %d)", first),
				})
				if cfg.strictNames {
					rejected = true
				}
				continue
			}
			owners[field.Name] = pIdx

			if field.Pattern != "" {
				if _, err := regexp.Compile(field.Pattern); err != nil {
					issues = append(issues, Issue{Partition: pIdx, Field: field.Name, Message: fmt.Sprintf("invalid pattern: %v", err)})
				}
			}
		}
	}
	return issues, rejected
}

func cloneSchema(in Schema) Schema {
	out := Schema{Partitions: make([]Partition, len(in.Partitions))}
	for i, partition := range in.Partitions {
		out.Partitions[i] = Partition{
			Label:  partition.Label,
			Fields: append([]Field(nil), partition.Fields...),
		}
	}
	if len(out.Partitions) == 0 {
		out.Partitions = nil
	}
	return out
}
