package template_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-formflow/pkg/render/template/gotemplate"
)

func newEngine(t *testing.T, opts ...gotemplate.Option) *gotemplate.Engine {
	t.Helper()
	files := fstest.MapFS{
		"hello.tmpl":      {Data: []byte(`Hello {{ name|trim }}!`)},
		"use-global.tmpl": {Data: []byte(`env={{ settings.env }}`)},
		"files.tmpl":      {Data: []byte(`{% for f in files %}{{ f.name }} ({{ f.size|megabytes }});{% endfor %}`)},
		"checked.tmpl":    {Data: []byte(`{% if values|contains:"go" %}go{% endif %}{% if values|contains:"zig" %}zig{% endif %}`)},
	}
	engine, err := gotemplate.New(append([]gotemplate.Option{gotemplate.WithFS(files)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	var buf bytes.Buffer
	got, err := engine.RenderTemplate("hello", map[string]any{"name": "  Ada "}, &buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hello Ada!" || buf.String() != got {
		t.Fatalf("unexpected output %q / %q", got, buf.String())
	}
}

func TestEngine_GlobalContext(t *testing.T) {
	engine := newEngine(t, gotemplate.WithGlobalData(map[string]any{"settings": map[string]any{"env": "staging"}}))

	got, err := engine.RenderTemplate("use-global.tmpl", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "env=staging" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_StructDataAndFilters(t *testing.T) {
	engine := newEngine(t)

	type file struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
	got, err := engine.RenderTemplate("files", map[string]any{
		"files": []file{{Name: "a.png", Size: 1536 * 1024}, {Name: "b.pdf", Size: 2 * 1024 * 1024}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "a.png (1.5 MB);b.pdf (2 MB);" {
		t.Fatalf("unexpected output %q", got)
	}

	checked, err := engine.RenderTemplate("checked", map[string]any{"values": []string{"go", "rust"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if checked != "go" {
		t.Fatalf("unexpected output %q", checked)
	}
}

func TestEngine_RenderStringAndFilters(t *testing.T) {
	engine := newEngine(t)
	if err := engine.RegisterFilter("shout_formflow", func(input any, _ any) (any, error) {
		text, _ := input.(string)
		if text == "" {
			return nil, errors.New("empty input")
		}
		return strings.ToUpper(text) + "!", nil
	}); err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("shout_formflow", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}

	got, err := engine.Render(`{{ word|shout_formflow }}`, map[string]any{"word": "hi"})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "HI!" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestNew_RequiresSource(t *testing.T) {
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without templates")
	}
}

func TestNewEngine_GoTemplate(t *testing.T) {
	files := fstest.MapFS{
		"templates/greeting.tmpl": {Data: []byte(`Hi {{ attendee.name|trim }}{% if tracks|contains:"go" %} (go){% endif %}`)},
	}
	engine, err := gotemplate.NewEngine(gotemplate.EngineGoTemplate, gotemplate.WithFS(files), gotemplate.WithExtension(".tmpl"))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	type attendee struct {
		Name string `json:"name"`
	}
	got, err := engine.RenderTemplate("templates/greeting.tmpl", map[string]any{
		"attendee": attendee{Name: " Ada "},
		"tracks":   []string{"go"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hi Ada (go)" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestNewEngine_Names(t *testing.T) {
	files := fstest.MapFS{"hello.tmpl": {Data: []byte(`hello`)}}
	for _, name := range append(gotemplate.Engines(), "") {
		if _, err := gotemplate.NewEngine(name, gotemplate.WithFS(files)); err != nil {
			t.Fatalf("engine %q: %v", name, err)
		}
	}
	if _, err := gotemplate.NewEngine("jinja", gotemplate.WithFS(files)); err == nil {
		t.Fatalf("expected unknown engine error")
	}
	if _, err := gotemplate.NewEngine(gotemplate.EngineGoTemplate); err == nil {
		t.Fatalf("expected error without templates")
	}
}
