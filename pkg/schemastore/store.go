// Package schemastore keeps a directory of named form schemas in memory and
// reloads them when the files change.
package schemastore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Entry is one loaded schema file. A file whose content is malformed is still
// listed, with an Invalid result, so the form renders as unavailable instead
// of disappearing.
type Entry struct {
	Name     string        `json:"name"`
	Location string        `json:"location"`
	Format   schema.Format `json:"format"`
	Result   schema.Result `json:"-"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for reload diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithParseOptions forwards options to every schema parse.
func WithParseOptions(options ...schema.ParseOption) Option {
	return func(s *Store) {
		s.parseOptions = append(s.parseOptions, options...)
	}
}

// WithWatchDebounce sets how long Watch waits for events to settle before
// reloading. Non-positive values keep DefaultWatchDebounce.
func WithWatchDebounce(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// Store holds the schemas found under one filesystem root, keyed by file
// name without extension.
type Store struct {
	mu           sync.RWMutex
	fsys         fs.FS
	dir          string
	entries      map[string]Entry
	parseOptions []schema.ParseOption
	logger       zerolog.Logger
	onChange     []func(names []string)
	onError      []func(err error)

	watcher  *fsnotify.Watcher
	debounce time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// LoadFS walks fsys and parses every .json, .jsonc, .yaml, .yml and .cbor file.
// Two files resolving to the same name are rejected.
func LoadFS(fsys fs.FS, options ...Option) (*Store, error) {
	if fsys == nil {
		return nil, errors.New("schemastore: filesystem is required")
	}
	s := &Store{
		fsys:     fsys,
		logger:   zerolog.Nop(),
		debounce: DefaultWatchDebounce,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}

	entries, err := s.scan()
	if err != nil {
		return nil, err
	}
	s.entries = entries
	return s, nil
}

// Open loads the schemas under dir. Unlike LoadFS the resulting store can
// Watch the directory.
func Open(dir string, options ...Option) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("schemastore: absolute path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("schemastore: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schemastore: %s is not a directory", dir)
	}
	s, err := LoadFS(os.DirFS(abs), options...)
	if err != nil {
		return nil, err
	}
	s.dir = abs
	return s, nil
}

// Get returns the entry registered under name.
func (s *Store) Get(name string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[name]
	return entry, ok
}

// Names lists the schema names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries lists every entry sorted by name.
func (s *Store) Entries() []Entry {
	names := s.Names()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(names))
	for _, name := range names {
		if entry, ok := s.entries[name]; ok {
			out = append(out, entry)
		}
	}
	return out
}

// OnChange registers a callback run after every successful reload with the
// names now in the store.
func (s *Store) OnChange(fn func(names []string)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// OnError registers a callback run when a reload fails.
func (s *Store) OnError(fn func(err error)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = append(s.onError, fn)
}

// Reload rescans the filesystem. On error the previous schemas are kept.
func (s *Store) Reload() error {
	entries, err := s.scan()
	if err != nil {
		s.logger.Error().Err(err).Msg("schema reload failed, keeping previous schemas")
		s.mu.RLock()
		listeners := append(([]func(error))(nil), s.onError...)
		s.mu.RUnlock()
		for _, fn := range listeners {
			fn(err)
		}
		return err
	}

	s.mu.Lock()
	previous := len(s.entries)
	s.entries = entries
	listeners := append(([]func([]string))(nil), s.onChange...)
	s.mu.Unlock()

	s.logger.Info().Int("previous", previous).Int("schemas", len(entries)).Msg("schemas reloaded")
	names := s.Names()
	for _, fn := range listeners {
		fn(names)
	}
	return nil
}

func (s *Store) scan() (map[string]Entry, error) {
	entries := make(map[string]Entry)
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !IsSchemaFile(p) {
			return nil
		}

		name := NameFromPath(p)
		if existing, ok := entries[name]; ok {
			return fmt.Errorf("schemastore: duplicate form %q (files %s and %s)", name, existing.Location, p)
		}

		doc, err := schema.LoadFS(s.fsys, p)
		if err != nil {
			return fmt.Errorf("schemastore: %w", err)
		}
		result := doc.Parse(s.parseOptions...)
		log := s.logger.With().Str("form", name).Str("file", p).Logger()
		for _, issue := range result.Issues {
			log.Warn().Int("partition", issue.Partition).Str("field", issue.Field).Msg(issue.Message)
		}
		if result.Invalid {
			log.Warn().Msg("invalid form configuration")
		}

		entries[name] = Entry{
			Name:     name,
			Location: p,
			Format:   doc.Format(),
			Result:   result,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// IsSchemaFile reports whether a path carries a schema extension. Hidden
// files are skipped so editor swap files do not load.
func IsSchemaFile(p string) bool {
	base := path.Base(filepath.ToSlash(p))
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(path.Ext(base)) {
	case ".json", ".jsonc", ".yaml", ".yml", ".cbor":
		return true
	default:
		return false
	}
}

// NameFromPath derives the form name from a schema file path.
func NameFromPath(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}
