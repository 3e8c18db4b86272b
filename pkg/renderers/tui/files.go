package tui

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// FileResolver turns a path typed at the prompt into file metadata.
type FileResolver interface {
	Resolve(path string) (schema.File, error)
}

// FileResolverFunc adapts a function to FileResolver.
type FileResolverFunc func(path string) (schema.File, error)

// Resolve implements FileResolver.
func (fn FileResolverFunc) Resolve(path string) (schema.File, error) {
	return fn(path)
}

type osFileResolver struct{}

func (osFileResolver) Resolve(path string) (schema.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return schema.File{}, err
	}
	if info.IsDir() {
		return schema.File{}, fmt.Errorf("%s is a directory", path)
	}
	return schema.File{
		Name: filepath.Base(path),
		Type: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Size: info.Size(),
	}, nil
}

func splitPaths(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
