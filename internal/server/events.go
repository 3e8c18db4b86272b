package server

import (
	"mime/multipart"
	"net/url"
	"slices"
	"strconv"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/state"
)

// eventsFromPayload turns a type-checked JSON registration into input events.
// Absent keys leave the field at its initial value.
func eventsFromPayload(sch schema.Schema, payload map[string]any) []state.Event {
	var events []state.Event
	for _, field := range sch.Fields() {
		if !field.Contributes() {
			continue
		}
		raw, ok := payload[field.Name]
		if !ok || raw == nil {
			continue
		}

		switch field.Kind {
		case schema.KindCheckbox:
			checked, _ := raw.(bool)
			events = append(events, state.Check(field.Name, checked))
		case schema.KindMultipleCheckbox:
			events = append(events, toggles(field, stringsOf(raw))...)
		case schema.KindSelect:
			if field.Multiple {
				events = append(events, state.Select(field.Name, stringsOf(raw)...))
			} else {
				events = append(events, state.Input(field.Name, scalarOf(raw)))
			}
		case schema.KindFile:
			events = append(events, state.Choose(field.Name, filesOf(raw)...))
		default:
			events = append(events, state.Input(field.Name, scalarOf(raw)))
		}
	}
	return events
}

// eventsFromForm turns the posted controls of one partition into input
// events. Controls missing from the post are left untouched so a partial
// post never clears other partitions. Checkbox controls are preceded by an
// empty hidden input, which is how an unchecked box is told apart from an
// absent one.
func eventsFromForm(partition schema.Partition, form url.Values) []state.Event {
	var events []state.Event
	for _, field := range partition.Fields {
		if !field.Contributes() || field.Kind == schema.KindFile {
			continue
		}
		posted, ok := form[field.Name]
		if !ok {
			continue
		}
		values := nonEmpty(posted)

		switch field.Kind {
		case schema.KindCheckbox:
			events = append(events, state.Check(field.Name, slices.Contains(values, "on")))
		case schema.KindMultipleCheckbox:
			events = append(events, toggles(field, values)...)
		case schema.KindSelect:
			if field.Multiple {
				events = append(events, state.Select(field.Name, values...))
			} else {
				events = append(events, state.Input(field.Name, first(posted)))
			}
		default:
			events = append(events, state.Input(field.Name, first(posted)))
		}
	}
	return events
}

// uploadedFiles lists the file metadata posted for name. Browsers send one
// empty part when nothing was chosen; that yields no files and ok=false.
func uploadedFiles(form *multipart.Form, name string) ([]schema.File, bool) {
	if form == nil {
		return nil, false
	}
	var files []schema.File
	for _, header := range form.File[name] {
		if header == nil || header.Filename == "" {
			continue
		}
		files = append(files, schema.File{
			Name: header.Filename,
			Type: header.Header.Get("Content-Type"),
			Size: header.Size,
		})
	}
	return files, len(files) > 0
}

// toggles sets every option of a checkbox group to match selected.
func toggles(field schema.Field, selected []string) []state.Event {
	events := make([]state.Event, 0, len(field.Options))
	for _, option := range field.Options {
		events = append(events, state.Toggle(field.Name, option.Value, slices.Contains(selected, option.Value)))
	}
	return events
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func scalarOf(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func stringsOf(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := scalarOf(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func filesOf(raw any) []schema.File {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]schema.File, 0, len(items))
	for _, item := range items {
		attrs, ok := item.(map[string]any)
		if !ok {
			continue
		}
		file := schema.File{}
		file.Name, _ = attrs["name"].(string)
		file.Type, _ = attrs["type"].(string)
		if size, ok := attrs["size"].(float64); ok {
			file.Size = int64(size)
		}
		out = append(out, file)
	}
	return out
}
