package engine

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Option customises a Form.
type Option func(*Form)

// WithLogger attaches a structured logger. Defaults to zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Form) {
		f.logger = logger
	}
}

// WithObserver registers an observer notified of navigation and submission
// outcomes.
func WithObserver(observer Observer) Option {
	return func(f *Form) {
		if observer != nil {
			f.observers = append(f.observers, observer)
		}
	}
}

// WithName labels the form in logs and observer callbacks.
func WithName(name string) Option {
	return func(f *Form) {
		f.name = name
	}
}

// WithParseOptions forwards parser options used by Parse.
func WithParseOptions(options ...schema.ParseOption) Option {
	return func(f *Form) {
		f.parseOptions = append(f.parseOptions, options...)
	}
}
