// Package tui fills forms from a terminal. Fill walks the partitions of an
// engine.Form with survey prompts and serializes the submitted values;
// Render prints a read-only text summary of the active partition.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/sanitize"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/state"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Name is the registry name of this renderer.
const Name = "tui"

const divider = "----------------------------------------"

// Renderer prompts for form values in a terminal.
type Renderer struct {
	driver            PromptDriver
	out               io.Writer
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	files             FileResolver
	maxAttempts       int
	logger            zerolog.Logger
}

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		files:        osFileResolver{},
		logger:       zerolog.Nop(),
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	if _, ok := ParseOutputFormat(string(r.outputFormat)); !ok {
		return nil, fmt.Errorf("tui: unsupported output format %q", r.outputFormat)
	}
	if r.driver == nil {
		r.driver = newSurveyDriver(r.out)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports the media type produced by Render.
func (r *Renderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

// OutputContentType reports the media type of the payload returned by Fill.
func (r *Renderer) OutputContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	case OutputFormatCBOR:
		return "application/cbor"
	default:
		return "application/json"
	}
}

// Render writes a plain text summary of the active partition with its
// current values and errors. It never prompts.
func (r *Renderer) Render(ctx context.Context, view engine.View, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var b strings.Builder
	if opts.Notice != "" {
		fmt.Fprintf(&b, "%s%s\n", r.theme.InfoPrefix, opts.Notice)
	}
	if view.Empty() {
		if view.Invalid {
			fmt.Fprintf(&b, "%s%s\n", r.theme.ErrorPrefix, render.Text(opts, render.KeyInvalid))
		}
		fmt.Fprintln(&b, render.Text(opts, render.KeyEmpty))
		return []byte(b.String()), nil
	}

	view = render.Localize(view, opts)
	mapping := render.MapErrorPayload(view, opts.Errors)
	b.WriteString(stepHeader(view))
	b.WriteString("\n")
	for _, message := range mapping.Form {
		fmt.Fprintf(&b, "%s%s\n", r.theme.ErrorPrefix, message)
	}

	for _, field := range view.Partition.Fields {
		switch field.Kind {
		case schema.KindHTML:
			if text := sanitize.Text(field.Label); text != "" {
				fmt.Fprintln(&b, text)
			}
			continue
		case schema.KindDivider:
			fmt.Fprintln(&b, divider)
			continue
		case schema.KindHidden, schema.KindUnknown:
			continue
		}

		marker := ""
		if field.Required {
			marker = " *"
		}
		fmt.Fprintf(&b, "%s%s: %s\n", fieldLabel(field), marker, displayValue(field, view.Value(field.Name)))
		for _, message := range mapping.FieldErrors(field.Name) {
			fmt.Fprintf(&b, "  %s%s\n", r.theme.ErrorPrefix, message)
		}
	}

	var actions []string
	if !view.IsFirst {
		actions = append(actions, render.Text(opts, render.KeyBack))
	}
	if view.CanSubmit {
		actions = append(actions, render.Text(opts, render.KeySubmit))
	} else {
		actions = append(actions, render.Text(opts, render.KeyNext))
	}
	fmt.Fprintf(&b, "[%s]\n", strings.Join(actions, "] ["))
	return []byte(b.String()), nil
}

// Fill prompts for every partition of the form, re-prompting fields that
// fail validation, and returns the serialized values once Submit succeeds.
func (r *Renderer) Fill(ctx context.Context, form *engine.Form) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if form == nil {
		return nil, errors.New("tui: form is required")
	}

	view := form.View()
	if view.Empty() {
		if view.Invalid {
			if err := r.driver.Info(ctx, r.theme.ErrorPrefix+render.Text(render.RenderOptions{}, render.KeyInvalid)); err != nil {
				return nil, err
			}
		}
		return nil, ErrNoFields
	}

	var retry map[string]struct{}
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		view = form.View()
		if retry == nil {
			if err := r.driver.Info(ctx, r.theme.InfoPrefix+stepHeader(view)); err != nil {
				return nil, err
			}
		}

		fields := view.Partition.Fields
		if retry != nil && view.CanSubmit {
			fields = view.Schema.Fields()
		}
		seen := make(map[string]struct{})
		for _, field := range fields {
			if retry != nil {
				if _, ok := retry[field.Name]; !ok || !field.Contributes() {
					continue
				}
				if _, dup := seen[field.Name]; dup {
					continue
				}
				seen[field.Name] = struct{}{}
			}
			if err := r.promptField(ctx, form, field, view.Value(field.Name)); err != nil {
				return nil, err
			}
		}

		if !view.CanSubmit {
			if form.Next() {
				retry, attempts = nil, 0
				continue
			}
		} else {
			var collected map[string]any
			submitted, err := form.Submit(ctx, func(_ context.Context, values map[string]any) error {
				collected = values
				return nil
			})
			if err != nil {
				return nil, err
			}
			if submitted {
				return r.output(collected)
			}
		}

		attempts++
		errs := form.State().Errors()
		r.logger.Debug().Str("form", form.Name()).Int("partition", view.Index).Int("errors", len(errs)).Int("attempt", attempts).Msg("re-prompting invalid fields")
		if r.maxAttempts > 0 && attempts >= r.maxAttempts {
			return nil, ErrTooManyAttempts
		}
		if err := r.reportErrors(ctx, view.Schema, errs); err != nil {
			return nil, err
		}
		retry = make(map[string]struct{}, len(errs))
		for name := range errs {
			retry[name] = struct{}{}
		}
	}
}

func (r *Renderer) reportErrors(ctx context.Context, sch schema.Schema, errs map[string]string) error {
	for _, name := range sch.Names() {
		message, ok := errs[name]
		if !ok {
			continue
		}
		field, _ := sch.Lookup(name)
		if err := r.driver.Info(ctx, fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, fieldLabel(field), message)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) promptField(ctx context.Context, form *engine.Form, field schema.Field, current any) error {
	message := r.theme.PromptPrefix + fieldLabel(field)
	help := sanitize.Text(field.Description)

	switch field.Kind {
	case schema.KindHTML:
		text := sanitize.Text(field.Label)
		if text == "" {
			return nil
		}
		return r.driver.Info(ctx, text)
	case schema.KindDivider:
		return r.driver.Info(ctx, divider)
	case schema.KindHidden, schema.KindUnknown:
		return nil
	case schema.KindCheckbox:
		checked, _ := current.(bool)
		answer, err := r.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: checked, Help: help})
		if err != nil {
			return err
		}
		form.Change(state.Check(field.Name, answer))
		return nil
	case schema.KindSelect, schema.KindRadio:
		if field.Kind == schema.KindSelect && field.Multiple {
			values, err := r.promptMulti(ctx, field, message, help, current)
			if err != nil {
				return err
			}
			form.Change(state.Select(field.Name, values...))
			return nil
		}
		if len(field.Options) == 0 {
			return nil
		}
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      message,
			Options:      optionTexts(field.Options),
			DefaultIndex: optionIndex(field.Options, scalarText(current)),
			Help:         help,
		})
		if err != nil {
			return err
		}
		if idx >= 0 && idx < len(field.Options) {
			form.Change(state.Input(field.Name, field.Options[idx].Value))
		}
		return nil
	case schema.KindMultipleCheckbox:
		values, err := r.promptMulti(ctx, field, message, help, current)
		if err != nil {
			return err
		}
		chosen := make(map[string]bool, len(values))
		for _, value := range values {
			chosen[value] = true
		}
		for _, option := range field.Options {
			form.Change(state.Toggle(field.Name, option.Value, chosen[option.Value]))
		}
		return nil
	case schema.KindFile:
		return r.promptFiles(ctx, form, field, message, help)
	case schema.KindTextarea:
		answer, err := r.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: scalarText(current), Help: help})
		if err != nil {
			return err
		}
		form.Change(state.Input(field.Name, answer))
		return nil
	case schema.KindPassword:
		answer, err := r.driver.Password(ctx, InputConfig{Message: message, Help: help, Validator: validator(field)})
		if err != nil {
			return err
		}
		form.Change(state.Input(field.Name, answer))
		return nil
	case schema.KindText, schema.KindEmail, schema.KindTel, schema.KindURL,
		schema.KindNumber, schema.KindDate, schema.KindColor, schema.KindRange:
		if field.Kind == schema.KindDate && help == "" {
			help = "YYYY-MM-DD"
		}
		answer, err := r.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   scalarText(current),
			Help:      help,
			Validator: validator(field),
		})
		if err != nil {
			return err
		}
		form.Change(state.Input(field.Name, strings.TrimSpace(answer)))
		return nil
	default:
		r.logger.Warn().Str("field", field.Name).Str("kind", field.Kind.String()).Msg("skipping unsupported field kind")
		return nil
	}
}

func (r *Renderer) promptMulti(ctx context.Context, field schema.Field, message, help string, current any) ([]string, error) {
	if len(field.Options) == 0 {
		return nil, nil
	}
	chosen, _ := current.([]string)
	var defaults []int
	for _, value := range chosen {
		if idx := optionIndex(field.Options, value); idx >= 0 {
			defaults = append(defaults, idx)
		}
	}
	indices, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  message,
		Options:  optionTexts(field.Options),
		Defaults: defaults,
		Help:     help,
	})
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(field.Options) {
			values = append(values, field.Options[idx].Value)
		}
	}
	return values, nil
}

func (r *Renderer) promptFiles(ctx context.Context, form *engine.Form, field schema.Field, message, help string) error {
	var hints []string
	if help != "" {
		hints = append(hints, help)
	}
	if len(field.Accept) > 0 {
		hints = append(hints, render.Text(render.RenderOptions{}, render.KeyAccepts)+": "+strings.Join(field.Accept, ", "))
	}
	if field.SizeLimit > 0 {
		hints = append(hints, validation.SizeMessage(field.SizeLimit))
	}

	raw, err := r.driver.Input(ctx, InputConfig{
		Message: message + " (comma separated paths)",
		Help:    strings.Join(hints, " "),
	})
	if err != nil {
		return err
	}

	ticket := form.BeginFileRead(field.Name)
	var files []schema.File
	for _, path := range splitPaths(raw) {
		file, err := r.files.Resolve(path)
		if err != nil {
			r.logger.Warn().Err(err).Str("field", field.Name).Str("path", path).Msg("cannot read selected file")
			return r.driver.Info(ctx, fmt.Sprintf("%scannot read %s: %v", r.theme.ErrorPrefix, path, err))
		}
		files = append(files, file)
	}
	if !form.CompleteFileRead(ticket, files) {
		return nil
	}
	if message, bad := form.State().Error(field.Name); bad {
		return r.driver.Info(ctx, r.theme.ErrorPrefix+message)
	}
	return nil
}

func (r *Renderer) output(values map[string]any) ([]byte, error) {
	if r.submitTransformer != nil {
		var err error
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return r.serialize(values)
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	case OutputFormatCBOR:
		mode, err := cbor.CanonicalEncOptions().EncMode()
		if err != nil {
			return nil, fmt.Errorf("tui: cbor encoder: %w", err)
		}
		return mode.Marshal(values)
	default:
		return json.Marshal(values)
	}
}

func validator(field schema.Field) func(string) error {
	return func(raw string) error {
		if violation, bad := validation.Validate(field, strings.TrimSpace(raw)); bad {
			return violation
		}
		return nil
	}
}

func stepHeader(view engine.View) string {
	header := view.Name
	if header == "" {
		header = "Form"
	}
	if view.Count > 1 {
		header += fmt.Sprintf(" (step %d of %d)", view.Index+1, view.Count)
	}
	if view.Partition.Label != "" {
		header += ": " + sanitize.Text(view.Partition.Label)
	}
	return header
}

func fieldLabel(field schema.Field) string {
	if label := sanitize.Text(field.Label); label != "" {
		return label
	}
	return field.Name
}

func displayValue(field schema.Field, value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case []string:
		texts := make([]string, 0, len(v))
		for _, item := range v {
			texts = append(texts, optionText(field.Options, item))
		}
		return strings.Join(texts, ", ")
	case []schema.File:
		names := make([]string, 0, len(v))
		for _, file := range v {
			names = append(names, file.Name)
		}
		return strings.Join(names, ", ")
	case string:
		if field.Kind == schema.KindPassword && v != "" {
			return "********"
		}
		if field.Kind == schema.KindSelect || field.Kind == schema.KindRadio {
			return optionText(field.Options, v)
		}
		return v
	default:
		return scalarText(value)
	}
}

func scalarText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func optionTexts(options []schema.Option) []string {
	out := make([]string, 0, len(options))
	for _, option := range options {
		out = append(out, sanitize.Text(option.Text))
	}
	return out
}

func optionIndex(options []schema.Option, value string) int {
	for i, option := range options {
		if option.Value == value {
			return i
		}
	}
	return -1
}

func optionText(options []schema.Option, value string) string {
	if idx := optionIndex(options, value); idx >= 0 {
		return sanitize.Text(options[idx].Text)
	}
	return value
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	for name, value := range values {
		switch v := value.(type) {
		case []string:
			for _, item := range v {
				flattened.Add(name+"[]", item)
			}
		case []schema.File:
			for _, file := range v {
				flattened.Add(name+"[]", file.Name)
			}
		default:
			flattened.Set(name, scalarText(v))
		}
	}
	return flattened.Encode()
}

func prettyPrint(values map[string]any) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		switch v := values[name].(type) {
		case []string:
			for idx, item := range v {
				fmt.Fprintf(&b, "%s[%d]=%s\n", name, idx, item)
			}
		case []schema.File:
			for idx, file := range v {
				fmt.Fprintf(&b, "%s[%d]=%s (%s, %d bytes)\n", name, idx, file.Name, file.Type, file.Size)
			}
		default:
			fmt.Fprintf(&b, "%s=%s\n", name, scalarText(v))
		}
	}
	return b.String()
}
