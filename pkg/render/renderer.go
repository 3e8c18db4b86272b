package render

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/engine"
)

// Renderer converts a form snapshot into a byte representation (HTML, text).
// Renderers only draw the active partition of the view.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view engine.View, options RenderOptions) ([]byte, error)
}
