package render

import (
	"errors"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// ErrMissingTranslator is passed to MissingTranslationHandler when no
// translator is configured.
var ErrMissingTranslator = errors.New("render: translator not configured")

// Translator resolves message keys for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate implements Translator.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler decides the text used when a key cannot be
// translated. args carries a map with the "default" text.
type MissingTranslationHandler func(locale, key string, args []any, err error) string

// Chrome keys used by renderers for their own labels.
const (
	KeyNext    = "formflow.next"
	KeyBack    = "formflow.back"
	KeySubmit  = "formflow.submit"
	KeyEmpty   = "formflow.empty"
	KeyAccepts = "formflow.accepts"
	KeyInvalid = "formflow.invalid"
)

var chromeDefaults = map[string]string{
	KeyNext:    "Next",
	KeyBack:    "Back",
	KeySubmit:  "Submit",
	KeyEmpty:   "No fields to render",
	KeyAccepts: "Accepted types",
	KeyInvalid: "This form is not configured correctly.",
}

// Text translates a chrome key, falling back to the built-in English text.
func Text(opts RenderOptions, key string) string {
	return translate(opts, key, chromeDefaults[key])
}

// Localize returns a copy of the view whose partition and field labels are
// translated. Keys follow "<form>.<field>.label", "<form>.<field>.description"
// and "<form>.partition.<index>.label"; untranslated keys keep the schema
// text.
func Localize(view engine.View, opts RenderOptions) engine.View {
	if opts.Translator == nil {
		return view
	}
	prefix := strings.TrimSpace(view.Name)
	if prefix == "" {
		prefix = "form"
	}

	partition := view.Partition
	partition.Label = translate(opts, prefix+".partition."+strconv.Itoa(view.Index)+".label", partition.Label)
	fields := make([]schema.Field, 0, len(partition.Fields))
	for _, field := range partition.Fields {
		if field.Name != "" {
			field.Label = translate(opts, prefix+"."+field.Name+".label", field.Label)
			field.Description = translate(opts, prefix+"."+field.Name+".description", field.Description)
			field.Placeholder = translate(opts, prefix+"."+field.Name+".placeholder", field.Placeholder)
		}
		fields = append(fields, field)
	}
	partition.Fields = fields
	view.Partition = partition

	steps := append(view.Steps[:0:0], view.Steps...)
	for i := range steps {
		steps[i].Label = translate(opts, prefix+".partition."+strconv.Itoa(steps[i].Index)+".label", steps[i].Label)
	}
	view.Steps = steps
	return view
}

func translate(opts RenderOptions, key, fallback string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}

	onMissing := opts.OnMissing
	if opts.Translator == nil {
		if onMissing != nil {
			return onMissing(opts.Locale, key, []any{map[string]any{"default": fallback}}, ErrMissingTranslator)
		}
		return fallback
	}

	result, err := opts.Translator.Translate(opts.Locale, key)
	if err == nil && strings.TrimSpace(result) != "" && result != key {
		return result
	}
	if onMissing != nil {
		return onMissing(opts.Locale, key, []any{map[string]any{"default": fallback}}, err)
	}
	return fallback
}
