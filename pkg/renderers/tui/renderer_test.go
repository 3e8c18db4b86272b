package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/schema"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	passwords    []string
	infoMessages []string
	prompts      []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
	passPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	s.prompts = append(s.prompts, cfg.Message)
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Password(_ context.Context, cfg InputConfig) (string, error) {
	if s.passPos >= len(s.passwords) {
		return "", errors.New("no password scripted")
	}
	s.prompts = append(s.prompts, cfg.Message)
	val := s.passwords[s.passPos]
	s.passPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	s.prompts = append(s.prompts, cfg.Message)
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	s.prompts = append(s.prompts, cfg.Message)
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	s.prompts = append(s.prompts, cfg.Message)
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	s.prompts = append(s.prompts, cfg.Message)
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

const registration = `[
  {"label": "Attendee", "elements": [
    {"type": "text", "name": "name", "label": "Full name", "required": true},
    {"type": "html", "label": "<b>Choose wisely</b>"},
    {"type": "email", "name": "email", "label": "Email"}
  ]},
  {"label": "Preferences", "elements": [
    {"type": "multiple-checkbox", "name": "tracks", "label": "Tracks", "options": [{"value": "go", "text": "Go"}, {"value": "rust", "text": "Rust"}]},
    {"type": "select", "name": "shirt", "label": "Shirt", "options": [{"value": "s", "text": "Small"}, {"value": "m", "text": "Medium"}]},
    {"type": "checkbox", "name": "agree", "label": "I agree", "required": true}
  ]}
]`

func newForm(raw string) *engine.Form {
	return engine.Parse([]byte(raw), engine.WithName("registration"))
}

func fill(t *testing.T, driver *stubDriver, raw string, opts ...Option) ([]byte, error) {
	t.Helper()
	r, err := New(append([]Option{WithPromptDriver(driver)}, opts...)...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r.Fill(context.Background(), newForm(raw))
}

func TestFill_WalksPartitions(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Ada", "ada@example.com"},
		multiIdx:  [][]int{{0, 1}},
		selectIdx: []int{1},
		confirm:   []bool{true},
	}
	out, err := fill(t, driver, registration)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}

	want := `{"agree":true,"email":"ada@example.com","name":"Ada","shirt":"m","tracks":["go","rust"]}`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	wantInfo := []string{
		"registration (step 1 of 2): Attendee",
		"Choose wisely",
		"registration (step 2 of 2): Preferences",
	}
	if diff := cmp.Diff(wantInfo, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
	wantPrompts := []string{"Full name", "Email", "Tracks", "Shirt", "I agree"}
	if diff := cmp.Diff(wantPrompts, driver.prompts); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
}

func TestFill_RepromptsFailingFieldsOnly(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"", "", "Ada"},
		multiIdx:  [][]int{{}},
		selectIdx: []int{0},
		confirm:   []bool{false, true},
	}
	out, err := fill(t, driver, registration, WithTheme(Theme{ErrorPrefix: "! "}))
	if err != nil {
		t.Fatalf("fill: %v", err)
	}

	want := `{"agree":true,"email":"","name":"Ada","shirt":"s","tracks":[]}`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	wantPrompts := []string{"Full name", "Email", "Full name", "Tracks", "Shirt", "I agree", "I agree"}
	if diff := cmp.Diff(wantPrompts, driver.prompts); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
	for _, fragment := range []string{"! Full name: This field is required.", "! I agree: This field is required."} {
		if !contains(driver.infoMessages, fragment) {
			t.Fatalf("expected %q in %v", fragment, driver.infoMessages)
		}
	}
}

func TestFill_MaxAttempts(t *testing.T) {
	driver := &stubDriver{inputs: []string{"", ""}}
	raw := `[{"elements": [{"type": "text", "name": "name", "required": true}]}]`
	_, err := fill(t, driver, raw, WithMaxAttempts(2))
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestFill_EmptyAndInvalid(t *testing.T) {
	for name, raw := range map[string]string{"empty": `[]`, "invalid": `{"elements": []}`} {
		t.Run(name, func(t *testing.T) {
			driver := &stubDriver{}
			_, err := fill(t, driver, raw)
			if !errors.Is(err, ErrNoFields) {
				t.Fatalf("expected ErrNoFields, got %v", err)
			}
			if name == "invalid" && len(driver.infoMessages) != 1 {
				t.Fatalf("expected configuration notice, got %v", driver.infoMessages)
			}
		})
	}
}

func TestFill_FileSelection(t *testing.T) {
	resolver := FileResolverFunc(func(path string) (schema.File, error) {
		switch path {
		case "big.png":
			return schema.File{Name: path, Type: "image/png", Size: 2 * 1024 * 1024}, nil
		case "small.png":
			return schema.File{Name: path, Type: "image/png", Size: 1024}, nil
		default:
			return schema.File{}, errors.New("not found")
		}
	})
	driver := &stubDriver{inputs: []string{"big.png", "small.png"}}
	raw := `[{"elements": [{"type": "file", "name": "photo", "label": "Photo", "required": true, "sizelimit": 1, "accept": "image/*"}]}]`

	out, err := fill(t, driver, raw, WithFileResolver(resolver))
	if err != nil {
		t.Fatalf("fill: %v", err)
	}

	want := `{"photo":[{"name":"small.png","type":"image/png","size":1024}]}`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if !contains(driver.infoMessages, "File size must be under 1MB.") {
		t.Fatalf("expected size rejection notice, got %v", driver.infoMessages)
	}
}

func TestFill_OutputFormats(t *testing.T) {
	raw := `[{"elements": [
	  {"type": "text", "name": "name"},
	  {"type": "multiple-checkbox", "name": "tracks", "options": [{"value": "go"}, {"value": "rust"}]},
	  {"type": "checkbox", "name": "agree"}
	]}]`
	script := func() *stubDriver {
		return &stubDriver{inputs: []string{"Ada"}, multiIdx: [][]int{{0, 1}}, confirm: []bool{true}}
	}

	cases := map[OutputFormat]string{
		OutputFormatFormURLEncoded: "agree=true&name=Ada&tracks%5B%5D=go&tracks%5B%5D=rust",
		OutputFormatPrettyText:     "agree=true\nname=Ada\ntracks[0]=go\ntracks[1]=rust\n",
	}
	for format, want := range cases {
		out, err := fill(t, script(), raw, WithOutputFormat(format))
		if err != nil {
			t.Fatalf("%s: fill: %v", format, err)
		}
		if diff := cmp.Diff(want, string(out)); diff != "" {
			t.Fatalf("%s output mismatch (-want +got):\n%s", format, diff)
		}
	}

	out, err := fill(t, script(), raw, WithOutputFormat(OutputFormatCBOR))
	if err != nil {
		t.Fatalf("cbor: fill: %v", err)
	}
	var decoded map[string]any
	if err := cbor.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("cbor decode: %v", err)
	}
	wantDecoded := map[string]any{"agree": true, "name": "Ada", "tracks": []any{"go", "rust"}}
	if diff := cmp.Diff(wantDecoded, decoded); diff != "" {
		t.Fatalf("cbor mismatch (-want +got):\n%s", diff)
	}
}

func TestFill_SubmitTransformer(t *testing.T) {
	driver := &stubDriver{inputs: []string{"Ada"}}
	raw := `[{"elements": [{"type": "text", "name": "name"}]}]`
	out, err := fill(t, driver, raw, WithSubmitTransformer(func(values map[string]any) (map[string]any, error) {
		values["source"] = "cli"
		return values, nil
	}))
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if diff := cmp.Diff(`{"name":"Ada","source":"cli"}`, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	if _, err := New(WithPromptDriver(&stubDriver{}), WithOutputFormat("xml")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	if _, ok := ParseOutputFormat("cbor"); !ok {
		t.Fatalf("cbor should be a known format")
	}
}

func TestRender_TextSummary(t *testing.T) {
	form := newForm(registration)
	if form.Next() {
		t.Fatalf("expected first partition to fail validation")
	}

	r, err := New(WithPromptDriver(&stubDriver{}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := r.Render(context.Background(), form.View(), render.RenderOptions{Notice: "Welcome back"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	got := string(out)
	for _, fragment := range []string{
		"Welcome back\n",
		"registration (step 1 of 2): Attendee\n",
		"Full name *: \n  This field is required.\n",
		"Choose wisely\n",
		"[Next]\n",
	} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("expected %q in output:\n%s", fragment, got)
		}
	}
	if strings.Contains(got, "[Back]") {
		t.Fatalf("first partition must not offer back:\n%s", got)
	}
}

func contains(messages []string, want string) bool {
	for _, message := range messages {
		if strings.Contains(message, want) {
			return true
		}
	}
	return false
}
