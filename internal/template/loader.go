package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/logging"
)

// Loader reads template JSON documents, validates them once, and caches the
// result per path. Cached entries are invalidated when the backing file
// changes, so edits during development take effect without a restart while
// steady-state requests never re-read or re-validate.
type Loader struct {
	mu      sync.RWMutex
	cache   map[string]*loaded
	watcher *fsnotify.Watcher
	logger  logging.Logger
	done    chan struct{}
}

type loaded struct {
	tpl *Template
	bag *errors.Bag
}

// NewLoader creates a loader. The fsnotify watcher is best-effort: if the
// platform cannot provide one the loader still works, it just never
// invalidates.
func NewLoader(logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Nop()
	}
	l := &Loader{
		cache:  make(map[string]*loaded),
		logger: logger,
		done:   make(chan struct{}),
	}
	if w, err := fsnotify.NewWatcher(); err == nil {
		l.watcher = w
		go l.watch()
	}
	return l
}

// Close stops the invalidation watcher.
func (l *Loader) Close() error {
	close(l.done)
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

func (l *Loader) watch() {
	for {
		select {
		case <-l.done:
			return
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				l.invalidate(ev.Name)
			}
		case _, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (l *Loader) invalidate(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, path)
}

// Load returns the validated template at path, from cache when possible.
// The returned bag holds the preflight defect set; a template with defects
// is returned alongside its bag so tooling can show both.
func (l *Loader) Load(path string) (*Template, *errors.Bag, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	l.mu.RLock()
	entry, hit := l.cache[abs]
	l.mu.RUnlock()
	if hit {
		return entry.tpl, entry.bag, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("read template: %w", err)
	}
	tpl, bag, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}

	l.mu.Lock()
	l.cache[abs] = &loaded{tpl: tpl, bag: bag}
	l.mu.Unlock()
	if l.watcher != nil {
		// Watch the directory: editors replace files by rename, which
		// drops a watch on the file itself.
		_ = l.watcher.Add(filepath.Dir(abs))
	}
	return tpl, bag, nil
}

// Parse decodes and validates one template document.
func Parse(data []byte) (*Template, *errors.Bag, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode template: %w", err)
	}
	bag := ValidateEnvelope(raw)

	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, nil, fmt.Errorf("decode template: %w", err)
	}
	return &tpl, bag, nil
}
