// Package filesystem provides a record source backed by a local directory.
// Each matching file directly under the root is one patient record.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.RecordSource = (*Connector)(nil)

// DefaultIgnored lists file names that are never treated as records.
var DefaultIgnored = []string{"example.json"}

// Connector lists, reads and watches record files in a directory.
type Connector struct {
	rootPath   string
	extensions map[string]bool
	ignored    map[string]bool

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// Option configures the connector.
type Option func(*Connector)

// WithExtensions restricts records to the given extensions (with leading dot).
func WithExtensions(exts ...string) Option {
	return func(c *Connector) {
		if len(exts) == 0 {
			return
		}
		c.extensions = make(map[string]bool, len(exts))
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			c.extensions[e] = true
		}
	}
}

// WithIgnored replaces the list of ignored file names.
func WithIgnored(names ...string) Option {
	return func(c *Connector) {
		c.ignored = make(map[string]bool, len(names))
		for _, n := range names {
			c.ignored[n] = true
		}
	}
}

// New creates a filesystem record source rooted at rootPath.
func New(rootPath string, opts ...Option) *Connector {
	c := &Connector{rootPath: rootPath}
	WithExtensions(".json", ".yaml", ".yml")(c)
	WithIgnored(DefaultIgnored...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RootPath returns the watched directory.
func (c *Connector) RootPath() string {
	return c.rootPath
}

// Validate checks the root path exists and is a directory.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("root path error: %s does not exist", c.rootPath)
		}
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", c.rootPath)
	}
	return nil
}

// List returns the paths of all record files, sorted.
func (c *Connector) List(ctx context.Context) ([]string, error) {
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(c.rootPath)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var uris []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(c.rootPath, entry.Name())
		if !c.matches(path) {
			continue
		}
		uris = append(uris, path)
	}

	sort.Strings(uris)
	return uris, nil
}

// Read returns the bytes of a record file.
func (c *Connector) Read(_ context.Context, uri string) (*domain.RawRecord, error) {
	content, err := os.ReadFile(uri)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %s", domain.ErrSourceRead, domain.ErrNotFound, uri)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceRead, err)
	}
	return &domain.RawRecord{URI: uri, Content: content}, nil
}

// Watch streams changes to record files until ctx is cancelled.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RecordChange, error) {
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.rootPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.rootPath, err)
	}

	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	changes := make(chan domain.RecordChange)

	go func() {
		defer close(changes)
		defer c.closeWatcher(watcher)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				change := c.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error on %s: %v", c.rootPath, err)
			}
		}
	}()

	return changes, nil
}

// Close stops any active watcher. Safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if w != nil {
		return w.Close()
	}
	return nil
}

func (c *Connector) closeWatcher(w *fsnotify.Watcher) {
	c.mu.Lock()
	if c.watcher == w {
		c.watcher = nil
	}
	c.mu.Unlock()
	w.Close()
}

// handleFsEvent converts an fsnotify event into a record change.
// Returns nil for events that do not concern a record file.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.RecordChange {
	if !c.matches(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Create):
		if isDir(event.Name) {
			return nil
		}
		return &domain.RecordChange{Type: domain.ChangeCreated, URI: event.Name}

	case event.Has(fsnotify.Write):
		if isDir(event.Name) {
			return nil
		}
		return &domain.RecordChange{Type: domain.ChangeUpdated, URI: event.Name}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &domain.RecordChange{Type: domain.ChangeDeleted, URI: event.Name}
	}

	// Chmod only
	return nil
}

// matches reports whether path names a record file.
func (c *Connector) matches(path string) bool {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		rel = path
	}
	if isHidden(rel) {
		return false
	}
	name := filepath.Base(path)
	if c.ignored[name] {
		return false
	}
	return c.extensions[strings.ToLower(filepath.Ext(name))]
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
