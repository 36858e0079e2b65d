package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/logging"
)

// HealthResult is the outcome of a storage probe.
type HealthResult struct {
	OK     bool
	Reason string
}

// HealthChecker actively exercises the filesystem primitives the token
// store and throttle rely on. A passive writability check is insufficient:
// network filesystems can report writable yet not honor atomic rename or
// exclusive create, so the probe performs both with disposable files.
// Results are memoized per checker (one per request) unless forced, and
// the first failure per request logs exactly one warning.
type HealthChecker struct {
	logger logging.Logger
	memo   *HealthResult
	warned bool
}

// NewHealthChecker creates a per-request checker.
func NewHealthChecker(logger logging.Logger) *HealthChecker {
	if logger == nil {
		logger = logging.Nop()
	}
	return &HealthChecker{logger: logger}
}

// Check probes uploadsDir and its private subdirectory. It never returns
// an error: failures surface as a reasoned unhealthy result.
func (h *HealthChecker) Check(uploadsDir string, force bool) HealthResult {
	if h.memo != nil && !force {
		return *h.memo
	}
	res := probe(uploadsDir)
	h.memo = &res
	if !res.OK && !h.warned {
		h.warned = true
		h.logger.Event(logging.SeverityWarning, errors.CodeStorageHealthFailed, map[string]any{
			"dir":    uploadsDir,
			"reason": res.Reason,
		})
	}
	return res
}

func probe(uploadsDir string) HealthResult {
	private := filepath.Join(uploadsDir, "eforms-private")
	for _, dir := range []string{uploadsDir, private} {
		if err := EnsureDir(dir); err != nil {
			return HealthResult{Reason: fmt.Sprintf("directory unavailable: %v", err)}
		}
	}

	probeTmp := filepath.Join(private, ".probe-tmp")
	probeDst := filepath.Join(private, ".probe-dst")
	defer os.Remove(probeTmp)
	defer os.Remove(probeDst)

	if err := os.WriteFile(probeTmp, []byte("probe"), FileMode); err != nil {
		return HealthResult{Reason: fmt.Sprintf("not writable: %v", err)}
	}
	if err := os.Rename(probeTmp, probeDst); err != nil {
		return HealthResult{Reason: fmt.Sprintf("atomic rename unsupported: %v", err)}
	}
	os.Remove(probeDst)

	if err := CreateExclusive(probeDst); err != nil {
		return HealthResult{Reason: fmt.Sprintf("exclusive create unsupported: %v", err)}
	}
	// The second exclusive create must fail; a filesystem that lets it
	// succeed cannot guard token collisions.
	if err := CreateExclusive(probeDst); err == nil {
		return HealthResult{Reason: "exclusive create not enforced"}
	}
	return HealthResult{OK: true}
}
