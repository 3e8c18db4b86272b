package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Rule identifies the constraint a value violated.
type Rule string

const (
	RuleRequired  Rule = "required"
	RuleMin       Rule = "min"
	RuleMax       Rule = "max"
	RuleMinLength Rule = "minlength"
	RuleMaxLength Rule = "maxlength"
	RulePattern   Rule = "pattern"
	RuleAccept    Rule = "accept"
	RuleSize      Rule = "size"
)

// Default messages used when a field does not declare its own.
const (
	MessageRequired       = "This field is required."
	MessageRequiredOption = "At least one option must be selected."
	MessageMin            = "Value too short"
	MessageMax            = "Value too long"
	MessagePattern        = "Invalid format."
	MessageAccept         = "Invalid file type."
)

// Violation is the first failed rule of a field.
type Violation struct {
	Field   string `json:"field"`
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) Error() string {
	return v.Message
}

// Validate checks a value against the field's rules in a fixed order
// (required, range, length, pattern, file) and reports the first failure.
// It has no side effects: repeated calls give the same answer.
func Validate(field schema.Field, value any) (Violation, bool) {
	if !field.Contributes() {
		return Violation{}, false
	}
	fail := func(rule Rule, custom, fallback string) (Violation, bool) {
		message := custom
		if message == "" {
			message = fallback
		}
		return Violation{Field: field.Name, Rule: rule, Message: message}, true
	}

	empty := isEmpty(value)
	if field.Required {
		if field.Kind == schema.KindMultipleCheckbox {
			if empty {
				return fail(RuleRequired, field.Messages.Required, MessageRequiredOption)
			}
		} else if empty {
			return fail(RuleRequired, field.Messages.Required, MessageRequired)
		}
	}

	if field.Kind.IsRanged() {
		if rule, ok := checkRange(field, value); ok {
			if rule == RuleMin {
				return fail(RuleMin, field.Messages.Min, MessageMin)
			}
			return fail(RuleMax, field.Messages.Max, MessageMax)
		}
	}

	if field.Kind.IsTextLike() {
		length := utf8.RuneCountInString(textOf(value))
		if field.MinLength > 0 && length < field.MinLength {
			return fail(RuleMinLength, field.Messages.MinLength, fmt.Sprintf("Minimum length is %d.", field.MinLength))
		}
		if field.MaxLength > 0 && length > field.MaxLength {
			return fail(RuleMaxLength, field.Messages.MaxLength, fmt.Sprintf("Maximum length is %d.", field.MaxLength))
		}
	}

	if field.Pattern != "" && !empty {
		if text, ok := scalarText(value); ok {
			if re, err := compile(field.Pattern); err == nil && !re.MatchString(text) {
				return fail(RulePattern, field.Messages.Pattern, MessagePattern)
			}
		}
	}

	if field.Kind == schema.KindFile {
		files, _ := value.([]schema.File)
		if len(files) > 0 {
			if len(field.Accept) > 0 && !acceptsAll(field.Accept, files) {
				return fail(RuleAccept, field.Messages.Accept, MessageAccept)
			}
			if violation, bad := CheckSize(field, files); bad {
				return violation, true
			}
		}
	}

	return Violation{}, false
}

// CheckSize reports a size violation when any file exceeds the field's
// size limit. It is shared with the change handler, which rejects oversized
// selections before they reach the form values.
func CheckSize(field schema.Field, files []schema.File) (Violation, bool) {
	limit := field.SizeLimitBytes()
	if limit <= 0 {
		return Violation{}, false
	}
	for _, file := range files {
		if file.Size > limit {
			message := field.Messages.Size
			if message == "" {
				message = SizeMessage(field.SizeLimit)
			}
			return Violation{Field: field.Name, Rule: RuleSize, Message: message}, true
		}
	}
	return Violation{}, false
}

// SizeMessage formats the default size-limit message.
func SizeMessage(limitMB float64) string {
	return fmt.Sprintf("File size must be under %sMB.", strconv.FormatFloat(limitMB, 'f', -1, 64))
}

// Accepts reports whether a single file matches an accept list. "type/*"
// entries match by MIME prefix, other entries by exact MIME type or by
// filename suffix.
func Accepts(accept []string, file schema.File) bool {
	mime := strings.ToLower(strings.TrimSpace(file.Type))
	name := strings.ToLower(file.Name)
	for _, entry := range accept {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.HasSuffix(entry, "/*") {
			if strings.HasPrefix(mime, strings.TrimSuffix(entry, "*")) {
				return true
			}
			continue
		}
		if mime == entry || strings.HasSuffix(name, entry) {
			return true
		}
	}
	return false
}

func acceptsAll(accept []string, files []schema.File) bool {
	for _, file := range files {
		if !Accepts(accept, file) {
			return false
		}
	}
	return true
}

func checkRange(field schema.Field, value any) (Rule, bool) {
	if field.Kind == schema.KindDate {
		text, ok := scalarText(value)
		if !ok {
			return "", false
		}
		date, err := time.Parse(schema.DateLayout, strings.TrimSpace(text))
		if err != nil {
			return "", false
		}
		if min, ok := field.Min.Date(); ok && date.Before(min) {
			return RuleMin, true
		}
		if max, ok := field.Max.Date(); ok && date.After(max) {
			return RuleMax, true
		}
		return "", false
	}

	number, ok := numberOf(value)
	if !ok {
		return "", false
	}
	if min, ok := field.Min.Float(); ok && number < min {
		return RuleMin, true
	}
	if max, ok := field.Max.Float(); ok && number > max {
		return RuleMax, true
	}
	return "", false
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case []string:
		return len(v) == 0
	case []schema.File:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

func textOf(value any) string {
	text, _ := scalarText(value)
	return text
}

func scalarText(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

func numberOf(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		// Blank input counts as zero.
		if strings.TrimSpace(v) == "" {
			return 0, true
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

var patterns sync.Map

func compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patterns.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patterns.Store(pattern, re)
	return re, nil
}
