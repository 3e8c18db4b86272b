package schema

// TicketTypeField is the reserved result key carrying the ticket type chosen
// for a registration. Stores keep it apart from the other values.
const TicketTypeField = "ticketTypeId"

// Schema is an ordered sequence of partitions (form pages). All partitions
// write into one flat result map keyed by field name.
type Schema struct {
	Partitions []Partition
}

// Partition is a single page of a multi-step form.
type Partition struct {
	Label  string
	Fields []Field
}

// Option is a selectable choice for select, radio and checkbox-group fields.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Messages holds the custom error messages declared through the
// errormessage* keys. Empty entries fall back to the validator defaults.
type Messages struct {
	Required  string
	Min       string
	Max       string
	MinLength string
	MaxLength string
	Pattern   string
	Accept    string
	Size      string
}

// Presentation carries display-only attributes of html fields.
type Presentation struct {
	Tag       string
	Color     string
	Bold      bool
	Italic    bool
	FontSize  float64
	TextAlign string
}

// Field is one entry of a partition. Kind selects the variant; attributes that
// do not apply to a kind are ignored by the engine.
type Field struct {
	ID          string
	Kind        Kind
	Type        string // raw "type" attribute, kept for unknown kinds
	Name        string
	Label       string
	Description string
	Placeholder string
	ClassName   string
	Required    bool
	Default     any

	Min       Bound
	Max       Bound
	MinLength int
	MaxLength int
	Pattern   string
	Accept    []string
	SizeLimit float64 // megabytes
	Multiple  bool
	Options   []Option

	Messages     Messages
	Presentation Presentation
}

// Contributes reports whether the field owns a key in the form values.
func (f Field) Contributes() bool {
	return f.Kind.IsInput() && f.Name != ""
}

// MultiValued reports whether the field stores a list of values.
func (f Field) MultiValued() bool {
	switch f.Kind {
	case KindMultipleCheckbox, KindFile:
		return true
	case KindSelect:
		return f.Multiple
	default:
		return false
	}
}

// SizeLimitBytes converts the megabyte limit into bytes. Zero means no limit.
func (f Field) SizeLimitBytes() int64 {
	if f.SizeLimit <= 0 {
		return 0
	}
	return int64(f.SizeLimit * 1024 * 1024)
}

// Empty reports whether the schema has nothing to render.
func (s Schema) Empty() bool {
	return len(s.Partitions) == 0
}

// Fields returns every field across all partitions in order.
func (s Schema) Fields() []Field {
	var out []Field
	for _, partition := range s.Partitions {
		out = append(out, partition.Fields...)
	}
	return out
}

// Lookup finds the first contributing field with the given name.
func (s Schema) Lookup(name string) (Field, bool) {
	if name == "" {
		return Field{}, false
	}
	for _, partition := range s.Partitions {
		for _, field := range partition.Fields {
			if field.Name == name && field.Contributes() {
				return field, true
			}
		}
	}
	return Field{}, false
}

// Partition returns the partition at idx.
func (s Schema) Partition(idx int) (Partition, bool) {
	if idx < 0 || idx >= len(s.Partitions) {
		return Partition{}, false
	}
	return s.Partitions[idx], true
}

// Names lists the result keys in schema order, without duplicates.
func (s Schema) Names() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, field := range s.Fields() {
		if !field.Contributes() {
			continue
		}
		if _, ok := seen[field.Name]; ok {
			continue
		}
		seen[field.Name] = struct{}{}
		out = append(out, field.Name)
	}
	return out
}

// File is the metadata of a file selected for a file field. Contents are not
// held by the engine; callers keep them alongside the submission.
type File struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}
