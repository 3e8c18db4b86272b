package validation

import "github.com/goliatone/go-formflow/pkg/schema"

// ValidateFields validates every contributing field of the slice and returns
// the violations keyed by field name. Fields that pass are absent.
func ValidateFields(fields []schema.Field, values map[string]any) map[string]Violation {
	out := make(map[string]Violation)
	for _, field := range fields {
		if !field.Contributes() {
			continue
		}
		if _, seen := out[field.Name]; seen {
			continue
		}
		if violation, bad := Validate(field, values[field.Name]); bad {
			out[field.Name] = violation
		}
	}
	return out
}

// ValidatePartition validates only the fields of partition idx. An out of
// range index yields no violations.
func ValidatePartition(s schema.Schema, idx int, values map[string]any) map[string]Violation {
	partition, ok := s.Partition(idx)
	if !ok {
		return map[string]Violation{}
	}
	return ValidateFields(partition.Fields, values)
}

// ValidateAll validates every field of every partition.
func ValidateAll(s schema.Schema, values map[string]any) map[string]Violation {
	return ValidateFields(s.Fields(), values)
}

// Messages flattens violations into the field name to message map held by
// form state.
func Messages(violations map[string]Violation) map[string]string {
	out := make(map[string]string, len(violations))
	for name, violation := range violations {
		out[name] = violation.Message
	}
	return out
}
