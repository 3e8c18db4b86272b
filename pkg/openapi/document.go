package openapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Version is the OpenAPI version emitted by NewDocument.
const Version = "3.0.3"

// Info carries the document metadata.
type Info struct {
	Title       string
	Version     string
	Description string
}

// Form is one named schema to document.
type Form struct {
	Name   string
	Title  string
	Schema schema.Schema
}

// NewDocument builds a document with one registration and one listing
// operation per form. Forms are documented in name order.
func NewDocument(info Info, forms ...Form) (*openapi3.T, error) {
	if strings.TrimSpace(info.Title) == "" {
		info.Title = "formflow"
	}
	if strings.TrimSpace(info.Version) == "" {
		info.Version = "1.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       info.Title,
			Version:     info.Version,
			Description: info.Description,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Error":            openapi3.NewSchemaRef("", errorSchema()),
				"ValidationErrors": openapi3.NewSchemaRef("", validationErrorsSchema()),
			},
		},
	}
	doc.Paths.Set("/healthz", &openapi3.PathItem{Get: healthOperation()})

	sorted := append([]Form(nil), forms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	seen := make(map[string]struct{}, len(sorted))
	for _, form := range sorted {
		name := strings.TrimSpace(form.Name)
		if name == "" {
			return nil, errors.New("openapi: form name is required")
		}
		component := ComponentName(name)
		if _, dup := seen[component]; dup {
			return nil, fmt.Errorf("openapi: duplicate form %q", name)
		}
		seen[component] = struct{}{}
		addForm(doc, name, component, form)
	}
	return doc, nil
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(info Info, forms ...Form) *openapi3.T {
	doc, err := NewDocument(info, forms...)
	if err != nil {
		panic(err)
	}
	return doc
}

// Validate checks a document against the OpenAPI rules.
func Validate(ctx context.Context, doc *openapi3.T) error {
	if doc == nil {
		return errors.New("openapi: document is nil")
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("openapi: validate: %w", err)
	}
	return nil
}

// ComponentName maps a form name onto the characters OpenAPI allows in
// component keys.
func ComponentName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func addForm(doc *openapi3.T, name, component string, form Form) {
	title := form.Title
	if title == "" {
		title = name
	}

	submission := SubmissionSchema(form.Schema)
	submission.Title = title
	doc.Components.Schemas[component+".Submission"] = openapi3.NewSchemaRef("", submission)
	submissionRef := openapi3.NewSchemaRef(componentRef(component+".Submission"), submission)
	record := recordSchema(submissionRef)
	doc.Components.Schemas[component+".Record"] = openapi3.NewSchemaRef("", record)
	recordRef := openapi3.NewSchemaRef(componentRef(component+".Record"), record)

	register := openapi3.NewOperation()
	register.OperationID = "register_" + component
	register.Summary = "Register for " + title
	register.Tags = []string{name}
	register.Parameters = openapi3.Parameters{{
		Value: openapi3.NewHeaderParameter("X-Formflow-Session").
			WithDescription("Attendee session; one registration is accepted per session.").
			WithSchema(openapi3.NewStringSchema()),
	}}
	register.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(submissionRef),
	}
	register.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusCreated, jsonResponse("Registration stored", recordRef)),
		openapi3.WithStatus(http.StatusBadRequest, jsonResponse("Malformed payload", errorRef())),
		openapi3.WithStatus(http.StatusConflict, jsonResponse("Already registered for this event", errorRef())),
		openapi3.WithStatus(http.StatusUnprocessableEntity, jsonResponse("Validation failed", openapi3.NewSchemaRef(componentRef("ValidationErrors"), validationErrorsSchema()))),
	)

	list := openapi3.NewOperation()
	list.OperationID = "list_" + component
	list.Summary = "List registrations for " + title
	list.Tags = []string{name}
	records := openapi3.NewArraySchema()
	records.Items = recordRef
	list.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, jsonResponse("Stored registrations", openapi3.NewSchemaRef("", records))),
	)

	escaped := url.PathEscape(name)
	doc.Paths.Set("/forms/"+escaped+"/registrations", &openapi3.PathItem{Post: register})
	doc.Paths.Set("/submissions/"+escaped, &openapi3.PathItem{Get: list})
}

func healthOperation() *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = "health"
	op.Summary = "Liveness check"
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusOK, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Service is up")}),
	)
	return op
}

func jsonResponse(description string, ref *openapi3.SchemaRef) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{
		Value: openapi3.NewResponse().WithDescription(description).WithJSONSchemaRef(ref),
	}
}

func componentRef(name string) string {
	return "#/components/schemas/" + name
}

func errorRef() *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(componentRef("Error"), errorSchema())
}

func errorSchema() *openapi3.Schema {
	out := openapi3.NewObjectSchema().WithProperty("error", openapi3.NewStringSchema())
	out.Required = []string{"error"}
	return out
}

func validationErrorsSchema() *openapi3.Schema {
	messages := openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())
	messages.Description = "First failing rule message per field name."
	out := openapi3.NewObjectSchema().WithProperty("errors", messages)
	out.Required = []string{"errors"}
	return out
}

func recordSchema(values *openapi3.SchemaRef) *openapi3.Schema {
	out := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewUUIDSchema()).
		WithProperty("form", openapi3.NewStringSchema()).
		WithProperty("session", openapi3.NewStringSchema()).
		WithProperty(schema.TicketTypeField, openapi3.NewStringSchema()).
		WithProperty("createdAt", openapi3.NewDateTimeSchema())
	out.Properties["values"] = values
	out.Required = []string{"id", "form", "session", "values", "createdAt"}
	return out
}
