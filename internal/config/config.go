// Package config loads, merges, and clamps the frozen configuration
// snapshot used by the submission pipeline. Bootstrap layers an optional
// site-local drop-in file and an optional filter hook over built-in
// defaults, sanitizes every override against the schema derived from the
// defaults tree, clamps anchor-governed integers into their bounds, and
// freezes the result. Config never fails to the caller: a rejected override
// logs one warning and falls back, and Get always returns a valid snapshot.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/logging"
)

// DefaultDropinName is the site-local override file looked up relative to
// the working directory when no explicit path is configured.
const DefaultDropinName = "eforms.config.yaml"

// FilterHook lets the embedding application adjust the merged tree before
// the final sanitize pass. The returned tree is sanitized exactly like the
// drop-in; a hook cannot smuggle an invalid value past the schema.
type FilterHook func(tree map[string]any) map[string]any

// Provider owns one frozen snapshot. Bootstrap runs once on first Get and
// is idempotent; every Get hands out an isolated deep copy so callers can
// never corrupt the stored snapshot through reference semantics.
type Provider struct {
	once       sync.Once
	dropinPath string
	filter     FilterHook
	logger     logging.Logger

	snapshot *Config
	warned   map[string]bool
	warnMu   sync.Mutex
}

// Option configures a Provider.
type Option func(*Provider)

// WithDropin overrides the drop-in file path.
func WithDropin(path string) Option {
	return func(p *Provider) { p.dropinPath = path }
}

// WithFilter installs the external filter hook.
func WithFilter(f FilterHook) Option {
	return func(p *Provider) { p.filter = f }
}

// WithLogger installs the warning sink.
func WithLogger(l logging.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider creates an unbootstrapped provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		dropinPath: DefaultDropinName,
		logger:     logging.Nop(),
		warned:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns a deep, isolated copy of the frozen snapshot. The first call
// triggers bootstrap.
func (p *Provider) Get() *Config {
	p.once.Do(p.bootstrap)
	return p.snapshot.Clone()
}

// warn emits one first-seen-wins warning event per path per bootstrap.
func (p *Provider) warn(code, path, reason string) {
	p.warnMu.Lock()
	defer p.warnMu.Unlock()
	if p.warned[path] {
		return
	}
	p.warned[path] = true
	p.logger.Event(logging.SeverityWarning, code, map[string]any{
		"path":   path,
		"reason": reason,
	})
}

func (p *Provider) bootstrap() {
	defaults := defaultTree()
	rejected := func(path, reason string) {
		p.warn(errors.CodeConfigDropinRejected, path, reason)
	}

	tree := defaults
	if dropin := p.loadDropin(); dropin != nil {
		clean := sanitizeTree(dropin, defaults, "", rejected)
		merged, err := mergeTree(defaults, clean, "")
		if err != nil {
			// An unknown key surviving sanitize means the trees are out of
			// sync; abort the whole merge and keep defaults.
			p.logger.Event(logging.SeverityWarning, errors.CodeConfigDropinDiscarded, map[string]any{
				"reason": err.Error(),
			})
		} else {
			tree = merged
		}
	}

	if p.filter != nil {
		hooked := p.filter(deepCopyTree(tree))
		if hooked != nil {
			clean := sanitizeTree(hooked, defaults, "", rejected)
			merged, err := mergeTree(defaults, clean, "")
			if err == nil {
				tree = merged
			}
		}
	}

	// Final full-tree sanitize: nothing type- or enum-invalid survives to
	// the snapshot regardless of which layer introduced it.
	clean := sanitizeTree(tree, defaults, "", rejected)
	final, err := mergeTree(defaults, clean, "")
	if err != nil {
		final = defaults
	}

	clampTree(final, defaults, func(path, reason string) {
		p.warn(errors.CodeConfigAnchorMissing, path, reason)
	})

	p.snapshot = decodeTree(final)
}

// loadDropin reads the optional drop-in override file. A missing file is
// normal; anything else that is not a clean decode to a mapping discards
// the whole file with a logged warning.
func (p *Provider) loadDropin() map[string]any {
	raw, err := os.ReadFile(p.dropinPath)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.Event(logging.SeverityWarning, errors.CodeConfigDropinDiscarded, map[string]any{
				"path":   p.dropinPath,
				"reason": err.Error(),
			})
		}
		return nil
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		p.logger.Event(logging.SeverityWarning, errors.CodeConfigDropinDiscarded, map[string]any{
			"path":   p.dropinPath,
			"reason": err.Error(),
		})
		return nil
	}
	tree, ok := doc.(map[string]any)
	if !ok {
		p.logger.Event(logging.SeverityWarning, errors.CodeConfigDropinDiscarded, map[string]any{
			"path":   p.dropinPath,
			"reason": "not a mapping",
		})
		return nil
	}
	return tree
}

// decodeTree materializes the merged tree into the typed snapshot.
func decodeTree(tree map[string]any) *Config {
	v := viper.New()
	if err := v.MergeConfigMap(tree); err != nil {
		panic(fmt.Sprintf("config: merge of canonical tree failed: %v", err))
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// The tree is sanitized against the defaults shape, so a decode
		// failure is a programmer error in the schema, not user input.
		panic(fmt.Sprintf("config: decode of sanitized tree failed: %v", err))
	}
	return &cfg
}

func deepCopyTree(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		switch tv := v.(type) {
		case map[string]any:
			out[k] = deepCopyTree(tv)
		case []string:
			out[k] = append([]string(nil), tv...)
		case []any:
			out[k] = append([]any(nil), tv...)
		default:
			out[k] = v
		}
	}
	return out
}

// Default returns the built-in defaults as a typed snapshot, clamped. Used
// by tests and by callers that need a baseline without a provider.
func Default() *Config {
	defaults := defaultTree()
	clampTree(defaults, defaultTree(), func(string, string) {})
	return decodeTree(defaults)
}
