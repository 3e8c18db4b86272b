// Package vanilla renders the active partition of a form as plain HTML with
// no client-side runtime. Navigation and submission are regular form posts
// carrying an "action" button value.
package vanilla

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/render"
	rendertemplate "github.com/goliatone/go-formflow/pkg/render/template"
	"github.com/goliatone/go-formflow/pkg/render/template/gotemplate"
)

// Name is the registry name of this renderer.
const Name = "vanilla"

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateEngine   string
	templateRenderer rendertemplate.TemplateRenderer
	theme            *theme.RendererConfig
	page             *Page
	logger           zerolog.Logger
}

// Page wraps the form in a standalone HTML document.
type Page struct {
	Title      string
	Heading    string
	Lang       string
	Stylesheet string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateEngine selects the engine that executes the templates, one of
// gotemplate.Engines(). Empty keeps the pongo2 default.
func WithTemplateEngine(name string) Option {
	return func(cfg *config) {
		cfg.templateEngine = name
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithTheme applies resolved theme tokens, CSS variables and asset URLs.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(c *config) {
		c.theme = cfg
	}
}

// WithPage renders full HTML documents instead of a bare form fragment.
func WithPage(page Page) Option {
	return func(cfg *config) {
		p := page
		cfg.page = &p
	}
}

// WithLogger attaches a logger used to report fields that cannot be drawn.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// Renderer draws one partition per call.
type Renderer struct {
	templates rendertemplate.TemplateRenderer
	theme     *theme.RendererConfig
	page      *Page
	logger    zerolog.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS(), logger: zerolog.Nop()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	templates := cfg.templateRenderer
	if templates == nil {
		engine, err := gotemplate.NewEngine(cfg.templateEngine,
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		templates = engine
	}

	return &Renderer{
		templates: templates,
		theme:     cfg.theme,
		page:      cfg.page,
		logger:    cfg.logger,
	}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render draws the active partition of view with its values and errors.
func (r *Renderer) Render(ctx context.Context, view engine.View, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, errors.New("vanilla renderer: template renderer is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view = render.Localize(view, opts)
	mapping := render.MapErrorPayload(view, opts.Errors)

	fields := make([]map[string]any, 0, len(view.Partition.Fields))
	for _, field := range view.Partition.Fields {
		data, ok := fieldData(field, view.Value(field.Name), mapping.FieldErrors(field.Name))
		if !ok {
			r.logger.Warn().Str("form", view.Name).Str("field", field.ID).Str("type", field.Type).Msg("unsupported field type")
			continue
		}
		fields = append(fields, data)
	}

	steps := make([]map[string]any, 0, len(view.Steps))
	for _, step := range view.Steps {
		steps = append(steps, map[string]any{
			"index":  step.Index,
			"number": step.Index + 1,
			"label":  step.Label,
			"active": step.Active,
			"done":   step.Done,
		})
	}

	hidden := make([]map[string]any, 0, len(opts.Hidden))
	for _, field := range render.SortedHiddenFields(opts.Hidden) {
		hidden = append(hidden, map[string]any{"name": field.Name, "value": field.Value})
	}

	data := map[string]any{
		"form": map[string]any{
			"name":       view.Name,
			"action":     opts.Action,
			"index":      view.Index,
			"count":      view.Count,
			"is_first":   view.IsFirst,
			"can_submit": view.CanSubmit,
			"empty":      view.Empty(),
			"invalid":    view.Invalid,
			"notice":     strings.TrimSpace(opts.Notice),
			"errors":     mapping.Form,
		},
		"partition": map[string]any{"label": view.Partition.Label},
		"steps":     steps,
		"fields":    fields,
		"hidden":    hidden,
		"classes":   defaultClasses(),
		"text":      chromeText(opts),
	}

	body, err := r.templates.RenderTemplate("templates/form.tmpl", data)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return r.wrap(body, view.Name)
}

// RenderMessage draws a standalone status message, such as a registration
// confirmation.
func (r *Renderer) RenderMessage(title, message string) ([]byte, error) {
	body, err := r.templates.RenderTemplate("templates/message.tmpl", map[string]any{
		"title":   title,
		"message": message,
		"classes": defaultClasses(),
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render message: %w", err)
	}
	return r.wrap(body, title)
}

func (r *Renderer) wrap(body, title string) ([]byte, error) {
	if r.page == nil {
		return []byte(body), nil
	}
	page := *r.page
	if page.Title == "" {
		page.Title = title
	}
	if page.Lang == "" {
		page.Lang = "en"
	}
	if page.Stylesheet == "" {
		page.Stylesheet = r.stylesheetURL()
	}

	out, err := r.templates.RenderTemplate("templates/page.tmpl", map[string]any{
		"page": map[string]any{
			"title":      page.Title,
			"heading":    page.Heading,
			"lang":       page.Lang,
			"stylesheet": page.Stylesheet,
		},
		"theme": themeContext(r.theme),
		"body":  body,
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render page: %w", err)
	}
	return []byte(out), nil
}

func (r *Renderer) stylesheetURL() string {
	if r.theme != nil && r.theme.AssetURL != nil {
		if url := r.theme.AssetURL(StylesheetAsset); url != "" {
			return url
		}
	}
	return "/assets/" + StylesheetName
}

func chromeText(opts render.RenderOptions) map[string]string {
	return map[string]string{
		"next":    render.Text(opts, render.KeyNext),
		"back":    render.Text(opts, render.KeyBack),
		"submit":  render.Text(opts, render.KeySubmit),
		"empty":   render.Text(opts, render.KeyEmpty),
		"accepts": render.Text(opts, render.KeyAccepts),
		"invalid": render.Text(opts, render.KeyInvalid),
	}
}

func themeContext(cfg *theme.RendererConfig) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	return map[string]any{
		"name":     cfg.Theme,
		"variant":  cfg.Variant,
		"css_vars": cssVarsStyle(cfg.CSSVars),
	}
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		if strings.HasPrefix(key, "--") && !strings.ContainsAny(vars[key], "<>{};") {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {")
	for _, key := range keys {
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(vars[key])
		b.WriteString(";")
	}
	b.WriteString(" }")
	return b.String()
}
