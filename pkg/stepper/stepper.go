// Package stepper implements partition navigation for multi-page forms.
package stepper

import (
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/state"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Stepper is the active partition index of a form with Count partitions.
// The zero Count stepper belongs to an empty schema and never moves.
type Stepper struct {
	Index int
	Count int
}

// Step describes one indicator of the step bar.
type Step struct {
	Index  int
	Label  string
	Active bool
	Done   bool
}

// New starts at the first partition.
func New(count int) Stepper {
	if count < 0 {
		count = 0
	}
	return Stepper{Count: count}
}

// For builds a stepper sized to the schema.
func For(s schema.Schema) Stepper {
	return New(len(s.Partitions))
}

// IsFirst reports whether the active partition is the first one.
func (st Stepper) IsFirst() bool {
	return st.Index <= 0
}

// IsLast reports whether the active partition is the last one.
func (st Stepper) IsLast() bool {
	return st.Count > 0 && st.Index >= st.Count-1
}

// CanSubmit reports whether submission is available from the active partition.
func (st Stepper) CanSubmit() bool {
	return st.IsLast()
}

// Next validates the fields of the active partition. On failure the stepper
// stays put and the returned state carries every error of that partition.
// On success those fields' errors are cleared and the stepper advances. The
// returned bool reports whether the transition happened.
func (st Stepper) Next(s schema.Schema, current state.State) (Stepper, state.State, bool) {
	partition, ok := s.Partition(st.Index)
	if !ok || st.IsLast() {
		return st, current, false
	}

	violations := validation.ValidateFields(partition.Fields, current.Values())
	if len(violations) > 0 {
		return st, current.WithErrors(validation.Messages(violations)), false
	}

	next := current.ClearErrors(names(partition)...)
	return Stepper{Index: st.Index + 1, Count: st.Count}, next, true
}

// Back moves to the previous partition without validating.
func (st Stepper) Back() (Stepper, bool) {
	if st.IsFirst() {
		return st, false
	}
	return Stepper{Index: st.Index - 1, Count: st.Count}, true
}

// JumpTo moves to any partition without validating. Targets outside the
// form are ignored.
func (st Stepper) JumpTo(idx int) (Stepper, bool) {
	if idx < 0 || idx >= st.Count || idx == st.Index {
		return st, false
	}
	return Stepper{Index: idx, Count: st.Count}, true
}

// Steps lists the step indicators. A step is done when it is at or before
// the active one.
func (st Stepper) Steps(s schema.Schema) []Step {
	out := make([]Step, 0, st.Count)
	for idx := 0; idx < st.Count; idx++ {
		step := Step{
			Index:  idx,
			Active: idx == st.Index,
			Done:   idx <= st.Index,
		}
		if partition, ok := s.Partition(idx); ok {
			step.Label = partition.Label
		}
		out = append(out, step)
	}
	return out
}

func names(partition schema.Partition) []string {
	out := make([]string, 0, len(partition.Fields))
	for _, field := range partition.Fields {
		if field.Contributes() {
			out = append(out, field.Name)
		}
	}
	return out
}
