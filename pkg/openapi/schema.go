package openapi

import (
	"fmt"
	"regexp"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/sanitize"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// SubmissionSchema describes the values a valid submission of s carries:
// one property per contributing field with its constraints, required
// fields listed, plus the optional ticket type.
func SubmissionSchema(s schema.Schema) *openapi3.Schema {
	return objectSchema(s, true)
}

// PayloadSchema only checks value types. Constraint failures are left to
// the form validator so they surface as per-field messages.
func PayloadSchema(s schema.Schema) *openapi3.Schema {
	return objectSchema(s, false)
}

// CheckPayload reports values whose JSON type does not match their field.
// payload must hold decoded JSON values.
func CheckPayload(s schema.Schema, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	if err := PayloadSchema(s).VisitJSON(payload, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("openapi: payload: %w", err)
	}
	return nil
}

func objectSchema(s schema.Schema, constraints bool) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	out.Properties = openapi3.Schemas{}

	var required []string
	seen := make(map[string]struct{})
	for _, field := range s.Fields() {
		if !field.Contributes() {
			continue
		}
		if _, dup := seen[field.Name]; dup {
			continue
		}
		seen[field.Name] = struct{}{}

		out.Properties[field.Name] = openapi3.NewSchemaRef("", fieldSchema(field, constraints))
		if constraints && field.Required {
			required = append(required, field.Name)
		}
	}
	if _, taken := seen[schema.TicketTypeField]; !taken {
		ticket := openapi3.NewStringSchema()
		ticket.Description = "Ticket type chosen for the registration."
		out.Properties[schema.TicketTypeField] = openapi3.NewSchemaRef("", ticket)
	}

	out.Required = required
	if !constraints {
		out.WithAnyAdditionalProperties()
	}
	return out
}

func fieldSchema(field schema.Field, constraints bool) *openapi3.Schema {
	var out *openapi3.Schema
	switch field.Kind {
	case schema.KindCheckbox:
		out = openapi3.NewBoolSchema()
	case schema.KindNumber, schema.KindRange:
		out = openapi3.NewFloat64Schema()
		if constraints {
			if min, ok := field.Min.Float(); ok {
				out.WithMin(min)
			}
			if max, ok := field.Max.Float(); ok {
				out.WithMax(max)
			}
		}
	case schema.KindMultipleCheckbox:
		out = openapi3.NewArraySchema().WithItems(optionSchema(field, constraints))
	case schema.KindSelect:
		if field.Multiple {
			out = openapi3.NewArraySchema().WithItems(optionSchema(field, constraints))
		} else {
			out = optionSchema(field, constraints)
		}
	case schema.KindRadio:
		out = optionSchema(field, constraints)
	case schema.KindFile:
		file := openapi3.NewObjectSchema().
			WithProperty("name", openapi3.NewStringSchema()).
			WithProperty("type", openapi3.NewStringSchema()).
			WithProperty("size", openapi3.NewInt64Schema())
		out = openapi3.NewArraySchema().WithItems(file)
	case schema.KindDate:
		out = openapi3.NewStringSchema()
		if constraints {
			out.WithFormat("date")
			ext := map[string]any{}
			if _, ok := field.Min.Date(); ok {
				ext["x-formflow-min"] = field.Min.String()
			}
			if _, ok := field.Max.Date(); ok {
				ext["x-formflow-max"] = field.Max.String()
			}
			if len(ext) > 0 {
				out.Extensions = ext
			}
		}
	default:
		out = openapi3.NewStringSchema()
		if constraints {
			applyText(out, field)
		}
	}

	out.Title = sanitize.Text(field.Label)
	out.Description = sanitize.Text(field.Description)
	return out
}

func applyText(out *openapi3.Schema, field schema.Field) {
	switch field.Kind {
	case schema.KindEmail:
		out.WithFormat("email")
	case schema.KindURL:
		out.WithFormat("uri")
	case schema.KindPassword:
		out.WithFormat("password")
	case schema.KindColor:
		out.WithPattern("^#[0-9a-fA-F]{6}$")
	}
	if !field.Kind.IsTextLike() {
		return
	}
	if field.MinLength > 0 {
		out.WithMinLength(int64(field.MinLength))
	}
	if field.MaxLength > 0 {
		out.WithMaxLength(int64(field.MaxLength))
	}
	if field.Pattern != "" {
		if _, err := regexp.Compile(field.Pattern); err == nil {
			out.WithPattern(field.Pattern)
		}
	}
}

func optionSchema(field schema.Field, constraints bool) *openapi3.Schema {
	out := openapi3.NewStringSchema()
	if !constraints || len(field.Options) == 0 {
		return out
	}
	values := make([]any, 0, len(field.Options))
	for _, option := range field.Options {
		values = append(values, option.Value)
	}
	return out.WithEnum(values...)
}
