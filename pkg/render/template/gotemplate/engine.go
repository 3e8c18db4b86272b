package gotemplate

import (
	"errors"
	"fmt"
	"io"
	"strings"

	gotemplatepkg "github.com/goliatone/go-template"

	"github.com/goliatone/go-formflow/pkg/render/template"
)

// Engine names accepted by NewEngine.
const (
	EnginePongo2     = "pongo2"
	EngineGoTemplate = "go-template"
)

// Engines lists the accepted engine names.
func Engines() []string {
	return []string{EnginePongo2, EngineGoTemplate}
}

// NewEngine builds the named engine. An empty name selects pongo2.
func NewEngine(name string, options ...Option) (template.TemplateRenderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EnginePongo2:
		return New(options...)
	case EngineGoTemplate:
		return NewGoTemplate(options...)
	default:
		return nil, fmt.Errorf("gotemplate: unknown engine %q (want one of %v)", name, Engines())
	}
}

// goTemplate runs templates on the go-template engine. Data goes through the
// same normalisation as the pongo2 engine so structs are addressed by their
// json names in both.
type goTemplate struct {
	inner template.TemplateRenderer
}

var _ template.TemplateRenderer = (*goTemplate)(nil)

// NewGoTemplate constructs a go-template backed engine from the same options
// as New. The formflow filters are registered before the first render.
func NewGoTemplate(options ...Option) (template.TemplateRenderer, error) {
	cfg := &config{extension: ".tmpl"}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.baseDir == "" && cfg.templates == nil {
		return nil, errors.New("gotemplate: need to provide either base dir or fs.FS")
	}

	var opts []gotemplatepkg.Option
	if cfg.baseDir != "" {
		opts = append(opts, gotemplatepkg.WithBaseDir(cfg.baseDir))
	}
	if cfg.templates != nil {
		opts = append(opts, gotemplatepkg.WithFS(cfg.templates))
	}
	opts = append(opts, gotemplatepkg.WithExtension(cfg.extension))
	if len(cfg.funcs) > 0 {
		opts = append(opts, gotemplatepkg.WithTemplateFunc(cfg.funcs))
	}
	if len(cfg.globals) > 0 {
		globals, err := toContext(cfg.globals)
		if err != nil {
			return nil, fmt.Errorf("gotemplate: apply global data: %w", err)
		}
		opts = append(opts, gotemplatepkg.WithGlobalData(map[string]any(globals)))
	}
	opts = append(opts, cfg.goTemplate...)

	inner, err := gotemplatepkg.NewRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: create go-template engine: %w", err)
	}
	registerDefaultFilters()
	return &goTemplate{inner: inner}, nil
}

func (g *goTemplate) Render(name string, data any, out ...io.Writer) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: convert data: %w", err)
	}
	return g.inner.Render(name, map[string]any(ctx), out...)
}

func (g *goTemplate) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: convert data: %w", err)
	}
	return g.inner.RenderTemplate(name, map[string]any(ctx), out...)
}

func (g *goTemplate) RenderString(content string, data any, out ...io.Writer) (string, error) {
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: convert data: %w", err)
	}
	return g.inner.RenderString(content, map[string]any(ctx), out...)
}

func (g *goTemplate) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	return g.inner.RegisterFilter(name, fn)
}

func (g *goTemplate) GlobalContext(data any) error {
	ctx, err := toContext(data)
	if err != nil {
		return err
	}
	return g.inner.GlobalContext(map[string]any(ctx))
}
