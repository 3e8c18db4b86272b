package schema_test

import (
	"encoding/json"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formflow/pkg/schema"
)

const registrationSchema = `[
  {
    "label": "Attendee",
    "elements": [
      {"id": "f1", "type": "text", "name": "name", "label": "Full name", "required": true, "minlength": "2", "maxlength": 40},
      {"id": "f2", "type": "email", "name": "email", "required": "true", "errormessage": "Email please"},
      {"id": "f3", "type": "html", "label": "<b>Terms</b>", "tag": "h2", "fontSize": "18"},
      {"id": "f4", "type": "divider"}
    ]
  },
  {
    "elements": [
      {"id": "f5", "type": "number", "name": "age", "min": 18, "max": "", "errormessagemin": "Too young"},
      {"id": "f6", "type": "multiple-checkbox", "name": "tracks", "options": [{"value": "go", "text": "Go"}, {"value": "rust"}]},
      {"id": "f7", "type": "file", "name": "photo", "accept": "image/*, .pdf", "sizelimit": 2},
      {"id": "f8", "type": "select", "name": "shirt", "multiple": true, "value": ["m"]}
    ]
  }
]`

func TestParse_RegistrationSchema(t *testing.T) {
	result := schema.ParseString(registrationSchema)
	if result.Invalid {
		t.Fatalf("expected valid schema, issues: %v", result.Issues)
	}
	if len(result.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", result.Issues)
	}

	s := result.Schema
	if got := len(s.Partitions); got != 2 {
		t.Fatalf("expected 2 partitions, got %d", got)
	}
	if s.Partitions[0].Label != "Attendee" {
		t.Fatalf("expected partition label, got %q", s.Partitions[0].Label)
	}

	name := s.Partitions[0].Fields[0]
	if name.Kind != schema.KindText || !name.Required || name.MinLength != 2 || name.MaxLength != 40 {
		t.Fatalf("unexpected name field: %+v", name)
	}

	email, ok := s.Lookup("email")
	if !ok || !email.Required || email.Messages.Required != "Email please" {
		t.Fatalf("unexpected email field: %+v", email)
	}

	html := s.Partitions[0].Fields[2]
	if html.Contributes() {
		t.Fatalf("html field must not contribute a key")
	}
	if html.Presentation.Tag != "h2" || html.Presentation.FontSize != 18 {
		t.Fatalf("unexpected html presentation: %+v", html.Presentation)
	}

	age, _ := s.Lookup("age")
	if min, ok := age.Min.Float(); !ok || min != 18 {
		t.Fatalf("expected min 18, got %v %v", min, ok)
	}
	if age.Max.IsSet() {
		t.Fatalf("empty max must mean no bound")
	}

	tracks, _ := s.Lookup("tracks")
	wantOptions := []schema.Option{{Value: "go", Text: "Go"}, {Value: "rust", Text: "rust"}}
	if diff := cmp.Diff(wantOptions, tracks.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	photo, _ := s.Lookup("photo")
	if diff := cmp.Diff([]string{"image/*", ".pdf"}, photo.Accept); diff != "" {
		t.Fatalf("accept mismatch (-want +got):\n%s", diff)
	}
	if photo.SizeLimitBytes() != 2*1024*1024 {
		t.Fatalf("unexpected size limit bytes %d", photo.SizeLimitBytes())
	}

	shirt, _ := s.Lookup("shirt")
	if !shirt.MultiValued() {
		t.Fatalf("multi-select must be multi valued")
	}

	wantNames := []string{"name", "email", "age", "tracks", "photo", "shirt"}
	if diff := cmp.Diff(wantNames, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_MalformedDegradesToEmpty(t *testing.T) {
	cases := map[string]string{
		"broken json":     `[{"elements": [`,
		"object root":     `{"elements": []}`,
		"scalar element":  `[{"elements": [42]}]`,
		"trailing data":   `[] []`,
		"bad elements":    `[{"elements": "nope"}]`,
		"partition array": `[[1, 2]]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			result := schema.ParseString(raw)
			if !result.Invalid {
				t.Fatalf("expected invalid result")
			}
			if !result.Schema.Empty() {
				t.Fatalf("expected empty schema, got %+v", result.Schema)
			}
			if len(result.Issues) == 0 {
				t.Fatalf("expected a configuration issue")
			}
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "[]", "null", `""`} {
		result := schema.ParseString(raw)
		if result.Invalid {
			t.Fatalf("%q: expected valid result, got %v", raw, result.Issues)
		}
		if !result.Schema.Empty() {
			t.Fatalf("%q: expected empty schema", raw)
		}
	}
}

func TestParse_DoubleEncodedPayload(t *testing.T) {
	encoded, err := json.Marshal(registrationSchema)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	direct := schema.ParseString(registrationSchema)
	nested := schema.Parse(encoded)
	if diff := cmp.Diff(direct, nested, cmp.AllowUnexported(schema.Bound{})); diff != "" {
		t.Fatalf("double encoded parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Idempotent(t *testing.T) {
	first := schema.ParseString(registrationSchema)
	second := schema.ParseString(registrationSchema)
	if diff := cmp.Diff(first, second, cmp.AllowUnexported(schema.Bound{})); diff != "" {
		t.Fatalf("parse is not deterministic (-first +second):\n%s", diff)
	}
}

func TestParse_DuplicateNames(t *testing.T) {
	raw := `[
	  {"elements": [{"type": "text", "name": "email"}]},
	  {"elements": [{"type": "email", "name": "email"}]}
	]`

	lenient := schema.ParseString(raw)
	if lenient.Invalid {
		t.Fatalf("duplicates should only warn by default")
	}
	if len(lenient.Issues) != 1 || lenient.Issues[0].Field != "email" || lenient.Issues[0].Partition != 1 {
		t.Fatalf("unexpected issues: %+v", lenient.Issues)
	}

	strict := schema.ParseString(raw, schema.WithStrictNames())
	if !strict.Invalid || !strict.Schema.Empty() {
		t.Fatalf("strict parsing must reject duplicate names: %+v", strict)
	}
}

func TestParse_ReportsUnsupportedAndUnnamed(t *testing.T) {
	raw := `[{"elements": [
	  {"id": "a", "type": "signature", "name": "sig"},
	  {"id": "b", "type": "text"},
	  {"id": "c", "type": "text", "name": "code", "pattern": "([a-z"}
	]}]`
	result := schema.ParseString(raw)
	if result.Invalid {
		t.Fatalf("unexpected invalid result")
	}

	messages := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		messages = append(messages, issue.Message)
	}
	if len(messages) != 3 {
		t.Fatalf("expected three issues, got %v", messages)
	}
	if !strings.Contains(messages[0], `unsupported field type "signature"`) {
		t.Fatalf("unexpected first issue %q", messages[0])
	}

	sig := result.Schema.Partitions[0].Fields[0]
	if sig.Kind != schema.KindUnknown || sig.Contributes() {
		t.Fatalf("unknown kinds must not contribute: %+v", sig)
	}
	if diff := cmp.Diff([]string{"code"}, result.Schema.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestSchema_MarshalRoundTrip(t *testing.T) {
	parsed := schema.ParseString(registrationSchema).Schema

	payload, err := json.Marshal(parsed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded schema.Schema
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(parsed, decoded, cmp.AllowUnexported(schema.Bound{}), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSchema_UnmarshalRejectsInvalid(t *testing.T) {
	var decoded schema.Schema
	err := json.Unmarshal([]byte(`{"elements": []}`), &decoded)
	if err == nil {
		t.Fatalf("expected configuration error")
	}
	if !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDocument_Formats(t *testing.T) {
	fsys := fstest.MapFS{
		"event.jsonc": {Data: []byte(`[
		  // attendee details
		  {"elements": [{"type": "text", "name": "name", "required": true}]}
		]`)},
		"event.yaml": {Data: []byte(`
- label: Attendee
  elements:
    - type: text
      name: name
      required: true
    - type: number
      name: age
      min: 18
`)},
	}

	jsoncDoc, err := schema.LoadFS(fsys, "event.jsonc")
	if err != nil {
		t.Fatalf("load jsonc: %v", err)
	}
	if jsoncDoc.Format() != schema.FormatJSONC {
		t.Fatalf("expected jsonc format, got %q", jsoncDoc.Format())
	}
	if result := jsoncDoc.Parse(); result.Invalid || len(result.Schema.Names()) != 1 {
		t.Fatalf("unexpected jsonc result: %+v", result)
	}

	yamlDoc, err := schema.LoadFS(fsys, "event.yaml")
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	result := yamlDoc.Parse()
	if result.Invalid {
		t.Fatalf("unexpected yaml issues: %v", result.Issues)
	}
	age, ok := result.Schema.Lookup("age")
	if !ok {
		t.Fatalf("expected age field")
	}
	if min, _ := age.Min.Float(); min != 18 {
		t.Fatalf("expected yaml min 18, got %v", min)
	}
	if result.Schema.Partitions[0].Label != "Attendee" {
		t.Fatalf("expected yaml label")
	}
}

func TestDocument_JSONWithComments(t *testing.T) {
	fsys := fstest.MapFS{
		"event.json": {Data: []byte(`[
		  // attendee details
		  {"elements": [
		    {"type": "text", "name": "name", "required": true}, /* badge */
		    {"type": "email", "name": "email"},
		  ]}
		]`)},
	}

	doc, err := schema.LoadFS(fsys, "event.json")
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if doc.Format() != schema.FormatJSON {
		t.Fatalf("expected json format, got %q", doc.Format())
	}
	result := doc.Parse()
	if result.Invalid {
		t.Fatalf("unexpected issues: %v", result.Issues)
	}
	if diff := cmp.Diff([]string{"name", "email"}, result.Schema.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestDocument_CBOR(t *testing.T) {
	encoded, err := cbor.Marshal([]any{
		map[string]any{
			"label": "Attendee",
			"elements": []any{
				map[string]any{"type": "text", "name": "name", "required": true},
				map[string]any{"type": "number", "name": "age", "min": 18},
				map[string]any{"type": "select", "name": "shirt", "options": []any{"s", "m"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fsys := fstest.MapFS{
		"event.cbor":  {Data: encoded},
		"broken.cbor": {Data: []byte{0xff, 0x00}},
	}

	doc, err := schema.LoadFS(fsys, "event.cbor")
	if err != nil {
		t.Fatalf("load cbor: %v", err)
	}
	if doc.Format() != schema.FormatCBOR {
		t.Fatalf("expected cbor format, got %q", doc.Format())
	}
	result := doc.Parse()
	if result.Invalid {
		t.Fatalf("unexpected cbor issues: %v", result.Issues)
	}
	if diff := cmp.Diff([]string{"name", "age", "shirt"}, result.Schema.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	age, _ := result.Schema.Lookup("age")
	if min, _ := age.Min.Float(); min != 18 {
		t.Fatalf("expected cbor min 18, got %v", min)
	}
	if result.Schema.Partitions[0].Label != "Attendee" {
		t.Fatalf("expected cbor label")
	}

	broken, err := schema.LoadFS(fsys, "broken.cbor")
	if err != nil {
		t.Fatalf("load broken: %v", err)
	}
	if result := broken.Parse(); !result.Invalid {
		t.Fatalf("expected invalid result for malformed cbor")
	}
}

func TestKinds_Classification(t *testing.T) {
	for _, kind := range schema.Kinds() {
		if schema.ParseKind(string(kind)) != kind {
			t.Fatalf("kind %q does not round trip", kind)
		}
	}
	if schema.ParseKind("TEXT") != schema.KindText {
		t.Fatalf("kind parsing should ignore case")
	}
	if schema.KindDivider.IsInput() || schema.KindHTML.IsInput() {
		t.Fatalf("presentational kinds must not be inputs")
	}
	if !schema.KindDate.IsRanged() || schema.KindText.IsRanged() {
		t.Fatalf("unexpected ranged classification")
	}
}
