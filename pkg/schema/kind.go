package schema

import "strings"

// Kind is the tagged type of a form field. It decides how a field renders,
// which value type it stores and which validation rules apply.
type Kind string

const (
	KindUnknown          Kind = ""
	KindText             Kind = "text"
	KindEmail            Kind = "email"
	KindPassword         Kind = "password"
	KindTel              Kind = "tel"
	KindURL              Kind = "url"
	KindNumber           Kind = "number"
	KindDate             Kind = "date"
	KindColor            Kind = "color"
	KindTextarea         Kind = "textarea"
	KindSelect           Kind = "select"
	KindCheckbox         Kind = "checkbox"
	KindMultipleCheckbox Kind = "multiple-checkbox"
	KindRadio            Kind = "radio"
	KindFile             Kind = "file"
	KindHidden           Kind = "hidden"
	KindHTML             Kind = "html"
	KindRange            Kind = "range"
	KindDivider          Kind = "divider"
)

var knownKinds = []Kind{
	KindText,
	KindEmail,
	KindPassword,
	KindTel,
	KindURL,
	KindNumber,
	KindDate,
	KindColor,
	KindTextarea,
	KindSelect,
	KindCheckbox,
	KindMultipleCheckbox,
	KindRadio,
	KindFile,
	KindHidden,
	KindHTML,
	KindRange,
	KindDivider,
}

// Kinds lists every recognised field kind in declaration order.
func Kinds() []Kind {
	return append([]Kind(nil), knownKinds...)
}

// ParseKind resolves the schema "type" attribute. Unrecognised values map to
// KindUnknown.
func ParseKind(raw string) Kind {
	candidate := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, kind := range knownKinds {
		if kind == candidate {
			return kind
		}
	}
	return KindUnknown
}

// IsInput reports whether fields of this kind contribute a key to the
// submitted result.
func (k Kind) IsInput() bool {
	switch k {
	case KindDivider, KindHTML, KindUnknown:
		return false
	default:
		return true
	}
}

// IsTextLike reports whether length constraints apply.
func (k Kind) IsTextLike() bool {
	switch k {
	case KindText, KindTextarea, KindPassword, KindEmail, KindTel, KindURL:
		return true
	default:
		return false
	}
}

// IsRanged reports whether min/max constraints apply.
func (k Kind) IsRanged() bool {
	switch k {
	case KindNumber, KindRange, KindDate:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	if k == KindUnknown {
		return "unknown"
	}
	return string(k)
}
