package engine

import (
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/stepper"
)

// View is an immutable snapshot of a form for renderers.
type View struct {
	Name      string
	Schema    schema.Schema
	Partition schema.Partition
	Index     int
	Count     int
	Steps     []stepper.Step
	Values    map[string]any
	Errors    map[string]string
	Issues    []schema.Issue
	Invalid   bool
	IsFirst   bool
	IsLast    bool
	CanSubmit bool
}

// Empty reports whether there is nothing to render.
func (v View) Empty() bool {
	return v.Schema.Empty()
}

// Value returns the value of a field in the snapshot.
func (v View) Value(name string) any {
	return v.Values[name]
}

// Error returns the error message of a field in the snapshot.
func (v View) Error(name string) string {
	return v.Errors[name]
}

// View captures the active partition with its values and errors.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	view := View{
		Name:      f.name,
		Schema:    f.result.Schema,
		Index:     f.step.Index,
		Count:     f.step.Count,
		Steps:     f.step.Steps(f.result.Schema),
		Values:    f.state.Values(),
		Errors:    f.state.Errors(),
		Issues:    append([]schema.Issue(nil), f.result.Issues...),
		Invalid:   f.result.Invalid,
		IsFirst:   f.step.IsFirst(),
		IsLast:    f.step.IsLast(),
		CanSubmit: f.step.CanSubmit(),
	}
	if partition, ok := f.result.Schema.Partition(f.step.Index); ok {
		view.Partition = partition
	}
	return view
}
