// Package formflow is the quick entry point to the form engine: parse a
// schema into a form session and render its active step as HTML.
package formflow

import (
	"context"
	"errors"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/schemastore"
)

// Form is a live form session.
type Form = engine.Form

// RenderOptions describes per-request overrides such as the form action,
// hidden fields or a notice shown above the fields.
type RenderOptions = render.RenderOptions

// Parse decodes raw JSON, JSONC, YAML or CBOR schema bytes into a new form
// session. Malformed input yields an empty session flagged invalid rather
// than an error.
func Parse(raw []byte, options ...engine.Option) *Form {
	return engine.Parse(raw, options...)
}

// LoadFile reads a schema file and returns a form session named after the
// file stem.
func LoadFile(path string, options ...engine.Option) (*Form, error) {
	doc, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}
	options = append([]engine.Option{engine.WithName(schemastore.NameFromPath(path))}, options...)
	return engine.New(doc.Parse(), options...), nil
}

// RenderHTML renders the active step of form with the built-in vanilla
// renderer.
func RenderHTML(ctx context.Context, form *Form, opts RenderOptions, options ...vanilla.Option) ([]byte, error) {
	if form == nil {
		return nil, errors.New("formflow: form is required")
	}
	renderer, err := vanilla.New(options...)
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx, form.View(), opts)
}
