package schema

import (
	"path"
	"path/filepath"
	"strings"
)

// Source identifies where a schema document originated so loaders can operate
// on files or fs.FS entries without leaking implementation details.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindFS     SourceKind = "fs"
	SourceKindInline SourceKind = "inline"
)

// Format is the encoding of a schema document.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONC Format = "jsonc"
	FormatYAML  Format = "yaml"
	FormatCBOR  Format = "cbor"
)

// FormatFromPath infers the document format from a file extension. Unknown
// extensions are treated as JSON.
func FormatFromPath(name string) Format {
	switch strings.ToLower(path.Ext(filepath.ToSlash(name))) {
	case ".jsonc":
		return FormatJSONC
	case ".yaml", ".yml":
		return FormatYAML
	case ".cbor":
		return FormatCBOR
	default:
		return FormatJSON
	}
}

type fileSource struct {
	path string
}

func (s fileSource) Location() string {
	return s.path
}

func (s fileSource) Kind() SourceKind {
	return SourceKindFile
}

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type fsSource struct {
	name string
}

func (s fsSource) Location() string {
	return s.name
}

func (s fsSource) Kind() SourceKind {
	return SourceKindFS
}

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: name}
}

type inlineSource struct {
	label string
}

func (s inlineSource) Location() string {
	return s.label
}

func (s inlineSource) Kind() SourceKind {
	return SourceKindInline
}

// SourceInline labels a schema held in memory, such as an event's stored
// form configuration.
func SourceInline(label string) Source {
	return inlineSource{label: label}
}
