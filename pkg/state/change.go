package state

import (
	"slices"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Event is a raw input event for one field. Which members are read depends
// on the field kind.
type Event struct {
	Name     string
	Value    string
	Checked  bool
	Selected []string
	Files    []schema.File
}

// Input builds an event carrying a typed value.
func Input(name, value string) Event {
	return Event{Name: name, Value: value}
}

// Check builds an event for a single checkbox.
func Check(name string, checked bool) Event {
	return Event{Name: name, Checked: checked}
}

// Toggle builds an event for one box of a checkbox group.
func Toggle(name, value string, checked bool) Event {
	return Event{Name: name, Value: value, Checked: checked}
}

// Select builds an event for a multi-select carrying every selected option.
func Select(name string, selected ...string) Event {
	return Event{Name: name, Selected: selected}
}

// Choose builds an event for a file input.
func Choose(name string, files ...schema.File) Event {
	return Event{Name: name, Files: files}
}

// Apply coerces the event according to the field kind and returns the next
// state. Accepted changes clear the field's error. A file selection with an
// oversized file is rejected as a whole: the previous value stays and the
// size error is set. Events for unknown names or non-input fields return s
// unchanged.
func (s State) Apply(sch schema.Schema, event Event) State {
	field, ok := sch.Lookup(event.Name)
	if !ok || !s.Has(field.Name) {
		return s
	}

	var value any
	switch field.Kind {
	case schema.KindCheckbox:
		value = event.Checked
	case schema.KindFile:
		if violation, bad := validation.CheckSize(field, event.Files); bad {
			return s.WithError(field.Name, violation.Message)
		}
		value = append([]schema.File{}, event.Files...)
	case schema.KindMultipleCheckbox:
		value = toggle(s.values[field.Name], event.Value, event.Checked)
	case schema.KindSelect:
		if field.Multiple {
			value = append([]string{}, event.Selected...)
		} else {
			value = event.Value
		}
	case schema.KindText, schema.KindEmail, schema.KindPassword, schema.KindTel,
		schema.KindURL, schema.KindNumber, schema.KindDate, schema.KindColor,
		schema.KindTextarea, schema.KindRadio, schema.KindHidden, schema.KindRange:
		value = event.Value
	default:
		return s
	}

	next := s.clone()
	next.values[field.Name] = value
	delete(next.errors, field.Name)
	return next
}

func toggle(current any, value string, checked bool) []string {
	list, _ := current.([]string)
	out := append([]string{}, list...)
	idx := slices.Index(out, value)
	switch {
	case checked && idx < 0:
		out = append(out, value)
	case !checked && idx >= 0:
		out = slices.Delete(out, idx, idx+1)
	}
	return out
}
