// Package throttle implements the per-IP sliding-minute rate limiter
// backed by advisory-locked counter files. One byte is appended to a
// per-key tally file for each accepted request in the current 60-second
// window; crossing the per-minute limit starts a cooldown marked by a
// sentinel file's mtime. The limiter is deliberately fail-open: a lock or
// I/O problem logs a warning and allows the request, because throttling
// must never become an availability outage vector.
package throttle

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/logging"
	"github.com/eforms/eforms/internal/storage"
)

// CodeThrottled is the internal result code for a limited request.
const CodeThrottled = "throttled"

// Result is the throttle decision.
type Result struct {
	OK         bool
	Code       string
	RetryAfter int // seconds; set only on rejection
}

// Throttle is the limiter rooted at <privateDir>/throttle.
type Throttle struct {
	dir    string
	logger logging.Logger
	now    func() time.Time
}

// New creates a limiter.
func New(privateDir string, logger logging.Logger) *Throttle {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Throttle{
		dir:    filepath.Join(privateDir, "throttle"),
		logger: logger,
		now:    time.Now,
	}
}

// Check applies the limiter to one request. Disabled throttling, an
// unresolvable IP key, or privacy mode "none" are explicit pass-throughs,
// not failures.
func (t *Throttle) Check(remoteAddr string, cfg *config.Config) Result {
	if !cfg.Throttle.Enable {
		return Result{OK: true}
	}
	key := t.resolveKey(remoteAddr, cfg)
	if key == "" {
		return Result{OK: true}
	}

	shard := filepath.Join(t.dir, key[:2])
	if err := storage.EnsureDir(shard); err != nil {
		return t.failOpen(err)
	}
	tallyPath := filepath.Join(shard, key+".tally")
	cooldownPath := filepath.Join(shard, key+".cooldown")

	// The lock covers the whole read-decide-write sequence; concurrent
	// checks for the same key fully serialize here.
	lock, err := storage.OpenLocked(tallyPath)
	if err != nil {
		return t.failOpen(err)
	}
	defer lock.Unlock()

	now := t.now()
	windowStart := now.Truncate(time.Minute)
	windowRemaining := int(windowStart.Add(time.Minute).Sub(now).Seconds())
	cooldown := time.Duration(cfg.Throttle.CooldownSeconds) * time.Second

	// Cooldown fast path: while the sentinel is fresh the tally is not
	// even consulted.
	if info, err := os.Stat(cooldownPath); err == nil {
		if until := info.ModTime().Add(cooldown); until.After(now) {
			return reject(windowRemaining, int(until.Sub(now).Seconds()))
		}
	}

	tally := lock.File()
	info, err := tally.Stat()
	if err != nil {
		return t.failOpen(err)
	}
	size := info.Size()
	if info.ModTime().Before(windowStart) {
		if err := tally.Truncate(0); err != nil {
			return t.failOpen(err)
		}
		size = 0
	}

	if size >= int64(cfg.Throttle.MaxPerMinute) {
		t.touchCooldown(cooldownPath)
		return reject(windowRemaining, cfg.Throttle.CooldownSeconds)
	}

	if _, err := tally.WriteAt([]byte{1}, size); err != nil {
		return t.failOpen(err)
	}
	return Result{OK: true}
}

// resolveKey hashes the request IP with the privacy salt. No key means no
// throttling for the request.
func (t *Throttle) resolveKey(remoteAddr string, cfg *config.Config) string {
	if cfg.Privacy.IPMode == "none" || remoteAddr == "" {
		return ""
	}
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	if net.ParseIP(host) == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(cfg.Privacy.IPSalt + host))
	return hex.EncodeToString(sum[:])
}

func (t *Throttle) touchCooldown(path string) {
	if err := storage.CreateExclusive(path); err != nil && !os.IsExist(err) {
		t.logger.Event(logging.SeverityWarning, errors.CodeThrottleLockFailed, map[string]any{"reason": err.Error()})
		return
	}
	now := t.now()
	_ = os.Chtimes(path, now, now)
}

func (t *Throttle) failOpen(err error) Result {
	t.logger.Event(logging.SeverityWarning, errors.CodeThrottleLockFailed, map[string]any{"reason": err.Error()})
	return Result{OK: true}
}

func reject(windowRemaining, cooldownRemaining int) Result {
	retry := 1
	if windowRemaining > retry {
		retry = windowRemaining
	}
	if cooldownRemaining > retry {
		retry = cooldownRemaining
	}
	return Result{Code: CodeThrottled, RetryAfter: retry}
}
