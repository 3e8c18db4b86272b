package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrNoFields is returned by Fill when the form has nothing to prompt,
	// either because the schema is empty or because it failed to parse.
	ErrNoFields = errors.New("tui: no fields to render")
	// ErrTooManyAttempts is returned when a partition keeps failing
	// validation after the configured number of retries.
	ErrTooManyAttempts = errors.New("tui: too many invalid attempts")
)
