package engine

// Stage names the transition that triggered validation.
type Stage string

const (
	StageNext   Stage = "next"
	StageSubmit Stage = "submit"
)

// Observer receives form lifecycle notifications. Implementations must be
// safe for concurrent use when shared between forms.
type Observer interface {
	Navigated(form string, from, to int)
	ValidationFailed(form string, stage Stage, fields int)
	Submitted(form string, err error)
}
