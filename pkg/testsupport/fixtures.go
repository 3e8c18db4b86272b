// Package testsupport holds helpers shared by package tests for schema
// fixtures and parsed forms.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// WriteSchemas writes each name/content pair into a fresh temp directory and
// returns the directory.
func WriteSchemas(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

// MustLoadDocument reads a schema fixture from disk.
func MustLoadDocument(t *testing.T, path string) schema.Document {
	t.Helper()

	doc, err := schema.LoadFile(path)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	return doc
}

// MustParse parses raw schema bytes and fails the test when the result is
// invalid.
func MustParse(t *testing.T, raw string, options ...schema.ParseOption) schema.Result {
	t.Helper()

	result := schema.Parse([]byte(raw), options...)
	if result.Invalid {
		t.Fatalf("parse schema: %+v", result.Issues)
	}
	return result
}

// MustForm builds a form session from raw schema bytes.
func MustForm(t *testing.T, raw string, options ...engine.Option) *engine.Form {
	t.Helper()
	return engine.New(MustParse(t, raw), options...)
}
