package schemastore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is how long Watch waits after the last relevant event
// before reloading.
const DefaultWatchDebounce = 100 * time.Millisecond

var (
	// ErrNotWatchable is returned by Watch for stores built with LoadFS.
	ErrNotWatchable = errors.New("schemastore: store has no directory to watch")
	// ErrClosed is returned by Watch once the store has been closed.
	ErrClosed = errors.New("schemastore: store closed")
)

// Watch reloads the store whenever a schema file under its directory is
// written, created, removed or renamed. Directories are watched rather than
// files so atomic saves are picked up, and directories created later are
// added as they appear. Bursts of events within the debounce window cause a
// single reload.
func (s *Store) Watch() error {
	if s.dir == "" {
		return ErrNotWatchable
	}

	s.mu.Lock()
	select {
	case <-s.stopCh:
		s.mu.Unlock()
		return ErrClosed
	default:
	}
	if s.watcher != nil {
		s.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("schemastore: create watcher: %w", err)
	}
	s.watcher = watcher
	s.mu.Unlock()

	if err := addTree(watcher, s.dir, s.dir); err != nil {
		s.mu.Lock()
		s.watcher = nil
		s.mu.Unlock()
		watcher.Close()
		return fmt.Errorf("schemastore: watch directory: %w", err)
	}

	go s.watchLoop(watcher)

	s.logger.Info().Str("dir", s.dir).Dur("debounce", s.debounce).Msg("watching schemas for changes")
	return nil
}

// Close stops watching. It is safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.stopCh)
		watcher := s.watcher
		s.mu.Unlock()
		if watcher != nil {
			err = watcher.Close()
		}
	})
	return err
}

// addTree watches dir and every non-hidden directory beneath it.
func addTree(watcher *fsnotify.Watcher, root, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}

func (s *Store) watchLoop(watcher *fsnotify.Watcher) {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&relevant == 0 {
				continue
			}

			if event.Op&fsnotify.Create != 0 && s.addCreatedDir(watcher, event.Name) {
				timer.Reset(s.debounce)
				continue
			}
			if !IsSchemaFile(event.Name) {
				continue
			}

			s.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema file changed")
			timer.Reset(s.debounce)

		case <-timer.C:
			if err := s.Reload(); err != nil {
				s.logger.Error().Err(err).Msg("file watch reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error().Err(err).Msg("file watcher error")

		case <-s.stopCh:
			return
		}
	}
}

// addCreatedDir starts watching name when it is a new directory. Files moved
// in with it are picked up by the reload that follows.
func (s *Store) addCreatedDir(watcher *fsnotify.Watcher, name string) bool {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return false
	}
	if strings.HasPrefix(filepath.Base(name), ".") {
		return true
	}
	if err := addTree(watcher, name, name); err != nil {
		s.logger.Error().Err(err).Str("dir", name).Msg("watch new directory failed")
		return true
	}
	s.logger.Debug().Str("dir", name).Msg("watching new schema directory")
	return true
}
