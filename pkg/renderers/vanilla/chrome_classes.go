package vanilla

// ChromeClass is a typed identifier for semantic chrome CSS classes.
type ChromeClass string

const (
	ClassForm      ChromeClass = "formflow-form"
	ClassSteps     ChromeClass = "formflow-steps"
	ClassPartition ChromeClass = "formflow-partition"
	ClassField     ChromeClass = "formflow-field"
	ClassActions   ChromeClass = "formflow-actions"
	ClassError     ChromeClass = "formflow-error"
	ClassNotice    ChromeClass = "formflow-notice"
)

func defaultClasses() map[string]string {
	return map[string]string{
		"form":      string(ClassForm),
		"steps":     string(ClassSteps),
		"partition": string(ClassPartition),
		"field":     string(ClassField),
		"actions":   string(ClassActions),
		"error":     string(ClassError),
		"notice":    string(ClassNotice),
	}
}
