package render

// RenderOptions describe per-request data that renderers can use without
// touching the form session.
type RenderOptions struct {
	// Action is the URL the rendered form posts to. Empty keeps the current URL.
	Action string
	// Hidden fields are emitted alongside the visible controls, sorted by name.
	Hidden []HiddenField
	// Errors carries server-side feedback keyed by field name or JSON pointer.
	// It is merged with the view's own errors through MapErrorPayload.
	Errors map[string][]string
	// Notice is a single outcome message shown above the form, such as a
	// rejected duplicate registration.
	Notice string

	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}
