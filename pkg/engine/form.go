// Package engine binds a parsed schema, its state and its stepper into one
// form session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/state"
	"github.com/goliatone/go-formflow/pkg/stepper"
	"github.com/goliatone/go-formflow/pkg/validation"
)

var (
	// ErrNotFinalPartition is returned when Submit is called before the last
	// partition is active.
	ErrNotFinalPartition = errors.New("engine: submit is only available on the last partition")
	// ErrNilSubmit is returned when Submit receives no callback.
	ErrNilSubmit = errors.New("engine: submit callback is required")
)

// SubmitFunc receives the flat name to value map of a valid form.
type SubmitFunc func(ctx context.Context, values map[string]any) error

// Form is a single form session. All methods are safe for concurrent use;
// the submit callback runs outside the lock.
type Form struct {
	mu      sync.Mutex
	result  schema.Result
	state   state.State
	step    stepper.Stepper
	tickets state.Tickets

	name         string
	logger       zerolog.Logger
	observers    []Observer
	parseOptions []schema.ParseOption
}

// New creates a session for an already parsed schema.
func New(result schema.Result, opts ...Option) *Form {
	form := newForm(opts)
	form.load(result)
	return form
}

// Parse creates a session from a raw JSON schema. Malformed input yields an
// empty form whose Invalid reports true.
func Parse(raw []byte, opts ...Option) *Form {
	form := newForm(opts)
	form.load(schema.Parse(raw, form.parseOptions...))
	return form
}

func newForm(opts []Option) *Form {
	form := &Form{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(form)
		}
	}
	return form
}

func (f *Form) load(result schema.Result) {
	f.result = result
	f.state = state.New(result.Schema)
	f.step = stepper.For(result.Schema)
	f.tickets.Reset()

	log := f.logger.With().Str("form", f.name).Logger()
	for _, issue := range result.Issues {
		log.Warn().
			Int("partition", issue.Partition).
			Str("field", issue.Field).
			Msg(issue.Message)
	}
	if result.Invalid {
		log.Warn().Msg("invalid form configuration, rendering no fields")
	}
}

// Reset replaces the schema and starts over with fresh state.
func (f *Form) Reset(result schema.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.load(result)
}

// Name returns the form label.
func (f *Form) Name() string {
	return f.name
}

// Schema returns the parsed schema.
func (f *Form) Schema() schema.Schema {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result.Schema
}

// Issues returns the configuration issues found while parsing.
func (f *Form) Issues() []schema.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]schema.Issue(nil), f.result.Issues...)
}

// Invalid reports whether the schema configuration could not be parsed.
func (f *Form) Invalid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result.Invalid
}

// State returns a snapshot of values and errors.
func (f *Form) State() state.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Stepper returns the navigation position.
func (f *Form) Stepper() stepper.Stepper {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Change applies one input event.
func (f *Form) Change(event state.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = f.state.Apply(f.result.Schema, event)
}

// BeginFileRead reserves a ticket for an asynchronous file selection.
func (f *Form) BeginFileRead(name string) state.Ticket {
	return f.tickets.Issue(name)
}

// CompleteFileRead applies a file selection if its ticket is still the
// newest for the field. Stale selections are dropped and false is returned.
func (f *Form) CompleteFileRead(ticket state.Ticket, files []schema.File) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tickets.Current(ticket) {
		f.logger.Debug().Str("form", f.name).Str("field", ticket.Field).Uint64("ticket", ticket.Seq).Msg("discarding stale file selection")
		return false
	}
	f.state = f.state.Apply(f.result.Schema, state.Choose(ticket.Field, files...))
	return true
}

// Next validates the active partition and advances when it is valid.
func (f *Form) Next() bool {
	f.mu.Lock()
	from := f.step.Index
	next, st, moved := f.step.Next(f.result.Schema, f.state)
	f.step, f.state = next, st
	failed := 0
	if !moved {
		if partition, ok := f.result.Schema.Partition(from); ok {
			for _, field := range partition.Fields {
				if _, bad := st.Error(field.Name); bad && field.Contributes() {
					failed++
				}
			}
		}
	}
	f.mu.Unlock()

	if moved {
		f.navigated(from, next.Index)
	} else if failed > 0 {
		f.logger.Debug().Str("form", f.name).Int("partition", from).Int("errors", failed).Msg("partition validation failed")
		for _, o := range f.observers {
			o.ValidationFailed(f.name, StageNext, failed)
		}
	}
	return moved
}

// Back moves to the previous partition.
func (f *Form) Back() bool {
	f.mu.Lock()
	from := f.step.Index
	next, moved := f.step.Back()
	f.step = next
	f.mu.Unlock()

	if moved {
		f.navigated(from, next.Index)
	}
	return moved
}

// JumpTo moves to the partition at idx.
func (f *Form) JumpTo(idx int) bool {
	f.mu.Lock()
	from := f.step.Index
	next, moved := f.step.JumpTo(idx)
	f.step = next
	f.mu.Unlock()

	if moved {
		f.navigated(from, next.Index)
	}
	return moved
}

func (f *Form) navigated(from, to int) {
	f.logger.Debug().Str("form", f.name).Int("from", from).Int("to", to).Msg("navigated")
	for _, o := range f.observers {
		o.Navigated(f.name, from, to)
	}
}

// Submit validates every field of every partition. When any field fails
// the error map is replaced by the full set of errors and submit returns
// false without calling fn. Otherwise fn receives a copy of the values and
// its error is returned unchanged; the bool reports whether fn was called.
// Empty or invalid forms are a no-op. The form is not cleared afterwards.
func (f *Form) Submit(ctx context.Context, fn SubmitFunc) (bool, error) {
	if fn == nil {
		return false, ErrNilSubmit
	}

	f.mu.Lock()
	if f.result.Schema.Empty() {
		f.mu.Unlock()
		return false, nil
	}
	if !f.step.CanSubmit() {
		f.mu.Unlock()
		return false, ErrNotFinalPartition
	}
	values := f.state.Values()
	violations := validation.ValidateAll(f.result.Schema, values)
	if len(violations) > 0 {
		f.state = f.state.ReplaceErrors(validation.Messages(violations))
		f.mu.Unlock()

		f.logger.Info().Str("form", f.name).Int("errors", len(violations)).Msg("submission blocked by validation")
		for _, o := range f.observers {
			o.ValidationFailed(f.name, StageSubmit, len(violations))
		}
		return false, nil
	}
	f.state = f.state.ReplaceErrors(nil)
	f.mu.Unlock()

	err := fn(ctx, values)
	for _, o := range f.observers {
		o.Submitted(f.name, err)
	}
	if err != nil {
		f.logger.Error().Err(err).Str("form", f.name).Msg("submission callback failed")
		return true, err
	}
	f.logger.Info().Str("form", f.name).Int("fields", len(values)).Msg("form submitted")
	return true, nil
}

// Validate runs every rule without changing the session.
func (f *Form) Validate() map[string]validation.Violation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return validation.ValidateAll(f.result.Schema, f.state.Values())
}

// String implements fmt.Stringer for logs.
func (f *Form) String() string {
	st := f.Stepper()
	return fmt.Sprintf("form %q step %d/%d", f.name, st.Index+1, st.Count)
}
