package security

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/logging"
	"github.com/eforms/eforms/internal/storage"
)

// Ledger provides at-most-once reservation of submission ids. A token
// record models validity, not consumption; the ledger is what makes a
// given submission id unreplayable. Reservation is an exclusive-create
// sentinel: the first caller wins, every later caller (and any caller the
// filesystem fails for) loses.
type Ledger struct {
	dir    string
	logger logging.Logger
}

// NewLedger creates a ledger rooted at <privateDir>/ledger.
func NewLedger(privateDir string, logger logging.Logger) *Ledger {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Ledger{dir: filepath.Join(privateDir, "ledger"), logger: logger}
}

// Reserve claims a submission id. False means the id was already claimed
// or the claim could not be durably recorded; both reject the submission
// (fail closed).
func (l *Ledger) Reserve(id string) bool {
	sum := sha256.Sum256([]byte(id))
	h := hex.EncodeToString(sum[:])
	path := filepath.Join(l.dir, h[:2], h+".used")
	if err := storage.EnsureDir(filepath.Dir(path)); err != nil {
		l.logger.Event(logging.SeverityError, errors.CodeLedgerIO, map[string]any{"reason": err.Error()})
		return false
	}
	if err := storage.CreateExclusive(path); err != nil {
		if !os.IsExist(err) {
			l.logger.Event(logging.SeverityError, errors.CodeLedgerIO, map[string]any{"reason": err.Error()})
		}
		return false
	}
	return true
}
