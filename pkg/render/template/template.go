// Package template defines the engine seam used by the HTML renderer. The
// gotemplate subpackage provides the pongo2-backed engine; any engine with
// the go-template method set can be passed to the renderer instead.
package template

import "io"

// TemplateRenderer renders named template files or inline template strings.
// Every render returns the output and also writes it to each out writer.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	// RegisterFilter adds a filter usable from every template.
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	// GlobalContext merges data into the values every template sees.
	GlobalContext(data any) error
}
