package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Document wraps a raw schema payload, its origin and its encoding.
type Document struct {
	source Source
	format Format
	raw    []byte
}

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(src Source, format Format, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if format == "" {
		format = FormatFromPath(src.Location())
	}
	clone := append([]byte(nil), raw...)
	return Document{source: src, format: format, raw: clone}, nil
}

// LoadFile reads a schema document from disk. Only I/O failures are returned
// as errors; content problems surface through Document.Parse.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return NewDocument(SourceFromFile(path), FormatFromPath(path), data)
}

// LoadFS reads a schema document from an fs.FS.
func LoadFS(fsys fs.FS, name string) (Document, error) {
	if fsys == nil {
		return Document{}, errors.New("schema: filesystem is required")
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Document{}, fmt.Errorf("schema: read %s: %w", name, err)
	}
	return NewDocument(SourceFromFS(name), FormatFromPath(name), data)
}

// Source returns the origin metadata for the document.
func (d Document) Source() Source {
	return d.source
}

// Format reports the document encoding.
func (d Document) Format() Format {
	return d.format
}

// Raw returns a defensive copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Parse decodes the document according to its format.
func (d Document) Parse(options ...ParseOption) Result {
	switch d.format {
	case FormatYAML:
		var value any
		if err := yaml.Unmarshal(d.raw, &value); err != nil {
			return invalid(fmt.Sprintf("invalid YAML configuration: %v", err))
		}
		return FromValue(value, options...)
	case FormatCBOR:
		value, err := decodeCBOR(d.raw)
		if err != nil {
			return invalid(fmt.Sprintf("invalid CBOR configuration: %v", err))
		}
		return FromValue(value, options...)
	default:
		// Comments and trailing commas are accepted in .json files too.
		return Parse(jsonc.ToJSON(d.raw), options...)
	}
}

func decodeCBOR(raw []byte) (any, error) {
	mode, err := cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		return nil, err
	}
	var value any
	if err := mode.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}
