package openapi_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/schema"
)

const eventSchema = `[
  {"label": "Attendee", "elements": [
    {"type": "text", "name": "name", "label": "Full name", "required": true, "minlength": 2, "pattern": "^[A-Za-z ]+$"},
    {"type": "email", "name": "email", "required": true},
    {"type": "html", "label": "<p>Details</p>"},
    {"type": "number", "name": "age", "min": 18, "max": 99}
  ]},
  {"elements": [
    {"type": "select", "name": "shirt", "options": [{"value": "s"}, {"value": "m"}]},
    {"type": "multiple-checkbox", "name": "tracks", "options": [{"value": "go"}, {"value": "rust"}]},
    {"type": "checkbox", "name": "agree"},
    {"type": "date", "name": "arrival", "min": "2024-05-01"},
    {"type": "file", "name": "photo"}
  ]}
]`

func parse(t *testing.T, raw string) schema.Schema {
	t.Helper()
	result := schema.ParseString(raw)
	if result.Invalid {
		t.Fatalf("parse: %v", result.Issues)
	}
	return result.Schema
}

func asMap(t *testing.T, value any) map[string]any {
	t.Helper()
	payload, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSubmissionSchema_Properties(t *testing.T) {
	got := asMap(t, openapi.SubmissionSchema(parse(t, eventSchema)))

	if diff := cmp.Diff([]any{"name", "email"}, got["required"]); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	props := got["properties"].(map[string]any)
	wantTypes := map[string]string{
		"name":                 "string",
		"email":                "string",
		"age":                  "number",
		"shirt":                "string",
		"tracks":               "array",
		"agree":                "boolean",
		"arrival":              "string",
		"photo":                "array",
		schema.TicketTypeField: "string",
	}
	gotTypes := make(map[string]string, len(props))
	for name, prop := range props {
		gotTypes[name], _ = prop.(map[string]any)["type"].(string)
	}
	if diff := cmp.Diff(wantTypes, gotTypes); diff != "" {
		t.Fatalf("property types mismatch (-want +got):\n%s", diff)
	}

	name := props["name"].(map[string]any)
	if name["minLength"] != float64(2) || name["pattern"] != "^[A-Za-z ]+$" || name["title"] != "Full name" {
		t.Fatalf("unexpected name schema: %v", name)
	}
	if props["email"].(map[string]any)["format"] != "email" {
		t.Fatalf("expected email format")
	}
	age := props["age"].(map[string]any)
	if age["minimum"] != float64(18) || age["maximum"] != float64(99) {
		t.Fatalf("unexpected age bounds: %v", age)
	}
	if diff := cmp.Diff([]any{"s", "m"}, props["shirt"].(map[string]any)["enum"]); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
	if props["arrival"].(map[string]any)["x-formflow-min"] != "2024-05-01" {
		t.Fatalf("expected date bound extension: %v", props["arrival"])
	}
}

func TestCheckPayload(t *testing.T) {
	s := parse(t, eventSchema)

	valid := map[string]any{
		"name":                 "Ada",
		"age":                  float64(36),
		"tracks":               []any{"go"},
		"agree":                true,
		"unknown":              "kept",
		schema.TicketTypeField: "vip",
	}
	if err := openapi.CheckPayload(s, valid); err != nil {
		t.Fatalf("expected payload to pass: %v", err)
	}

	// Constraint failures are left to the form validator.
	if err := openapi.CheckPayload(s, map[string]any{"age": float64(3), "shirt": "xl"}); err != nil {
		t.Fatalf("expected type-only check, got %v", err)
	}

	err := openapi.CheckPayload(s, map[string]any{"age": "old", "agree": "yes"})
	if err == nil {
		t.Fatalf("expected type mismatch")
	}
	if !strings.HasPrefix(err.Error(), "openapi: payload:") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNewDocument(t *testing.T) {
	doc := openapi.MustNewDocument(
		openapi.Info{Title: "Events"},
		openapi.Form{Name: "summit", Title: "Summit 2024", Schema: parse(t, eventSchema)},
		openapi.Form{Name: "meetup", Schema: parse(t, `[{"elements": [{"type": "text", "name": "name"}]}]`)},
	)

	ctx := context.Background()
	if err := openapi.Validate(ctx, doc); err != nil {
		t.Fatalf("validate: %v", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loader := openapi3.NewLoader()
	loaded, err := loader.LoadFromData(raw)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := loaded.Validate(ctx); err != nil {
		t.Fatalf("reloaded document invalid: %v", err)
	}

	var paths []string
	for path := range loaded.Paths.Map() {
		paths = append(paths, path)
	}
	want := map[string]bool{
		"/healthz":                    true,
		"/forms/summit/registrations": true,
		"/forms/meetup/registrations": true,
		"/submissions/summit":         true,
		"/submissions/meetup":         true,
	}
	if len(paths) != len(want) {
		t.Fatalf("unexpected paths %v", paths)
	}
	for _, path := range paths {
		if !want[path] {
			t.Fatalf("unexpected path %q", path)
		}
	}

	register := loaded.Paths.Find("/forms/summit/registrations").Post
	if register.OperationID != "register_summit" || register.Summary != "Register for Summit 2024" {
		t.Fatalf("unexpected operation %+v", register)
	}
	if _, ok := loaded.Components.Schemas["summit.Submission"]; !ok {
		t.Fatalf("expected submission component")
	}
	if loaded.Info.Version != "1.0.0" {
		t.Fatalf("expected default version, got %q", loaded.Info.Version)
	}
}

func TestNewDocument_RejectsDuplicateNames(t *testing.T) {
	_, err := openapi.NewDocument(openapi.Info{},
		openapi.Form{Name: "a b"},
		openapi.Form{Name: "a_b"},
	)
	if err == nil {
		t.Fatalf("expected duplicate component error")
	}
	if _, err := openapi.NewDocument(openapi.Info{}, openapi.Form{Name: " "}); err == nil {
		t.Fatalf("expected missing name error")
	}
}

func TestComponentName(t *testing.T) {
	if got := openapi.ComponentName("spring summit/2024"); got != "spring_summit_2024" {
		t.Fatalf("unexpected component name %q", got)
	}
}
