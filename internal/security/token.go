package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/logging"
	"github.com/eforms/eforms/internal/storage"
)

// Posted parameter names consumed by token validation.
const (
	ParamToken      = "eforms_token"
	ParamInstanceID = "instance_id"
	ParamMode       = "eforms_mode"
	ParamTimestamp  = "timestamp"
	ParamJSOK       = "js_ok"
)

// Token and instance-id formats, checked before any disk I/O so malformed
// probes never reach the store.
var (
	tokenPattern      = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	instanceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,32}$`)
	formIDPattern     = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)
)

// Record is the persisted token file body. Records are terminal: created
// once by mint, read by validate, never updated in place.
type Record struct {
	Mode       string `json:"mode"` // hidden|js
	FormID     string `json:"form_id"`
	InstanceID string `json:"instance_id"`
	IssuedAt   int64  `json:"issued_at"`
	Expires    int64  `json:"expires"`
}

// MintResult is the successful outcome of minting.
type MintResult struct {
	Token      string `json:"token"`
	InstanceID string `json:"instance_id"`
	Timestamp  int64  `json:"timestamp"`
	Expires    int64  `json:"expires"`
}

// ValidationResult is the uniform outcome of token validation. Every
// failure path produces the same opaque shape so probing clients cannot
// distinguish why a token failed; the real reason is only logged.
type ValidationResult struct {
	TokenOK          bool
	HardFail         bool
	ErrorCode        string
	SoftReasons      []string
	RequireChallenge bool
	Record           *Record
}

// TokenStore mints and validates one-time submission tokens backed by
// sha256-addressed files under the private directory.
type TokenStore struct {
	dir    string
	logger logging.Logger
	now    func() time.Time
}

// NewTokenStore creates a store rooted at <privateDir>/tokens.
func NewTokenStore(privateDir string, logger logging.Logger) *TokenStore {
	if logger == nil {
		logger = logging.Nop()
	}
	return &TokenStore{
		dir:    filepath.Join(privateDir, "tokens"),
		logger: logger,
		now:    time.Now,
	}
}

// recordPath shards by the first two hex characters of the token hash to
// bound directory fan-out.
func (s *TokenStore) recordPath(token string) string {
	sum := sha256.Sum256([]byte(token))
	h := hex.EncodeToString(sum[:])
	return filepath.Join(s.dir, h[:2], h+".json")
}

// Mint creates a fresh token record for a form. The record lands via
// write-temp-then-rename with an exclusive-create guard on the final path:
// a hash collision fails loudly, it never overwrites.
func (s *TokenStore) Mint(formID, mode string, cfg *config.Config) (*MintResult, error) {
	if !formIDPattern.MatchString(formID) {
		return nil, fmt.Errorf("invalid form id")
	}
	token := uuid.NewString()
	instanceID, err := newInstanceID()
	if err != nil {
		return nil, fmt.Errorf("instance id: %w", err)
	}

	issuedAt := s.now().Unix()
	rec := Record{
		Mode:       mode,
		FormID:     formID,
		InstanceID: instanceID,
		IssuedAt:   issuedAt,
		Expires:    issuedAt + int64(cfg.Security.TokenTTLSeconds),
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	path := s.recordPath(token)
	if err := storage.EnsureDir(filepath.Dir(path)); err != nil {
		s.logger.Event(logging.SeverityError, errors.CodeTokenStoreIO, map[string]any{"reason": err.Error()})
		return nil, err
	}
	if err := storage.CreateExclusiveAtomic(path, body); err != nil {
		s.logger.Event(logging.SeverityError, errors.CodeTokenStoreIO, map[string]any{"reason": err.Error()})
		return nil, err
	}
	return &MintResult{
		Token:      token,
		InstanceID: instanceID,
		Timestamp:  rec.IssuedAt,
		Expires:    rec.Expires,
	}, nil
}

// newInstanceID returns 16 random bytes URL-safe encoded.
func newInstanceID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

// Validate checks a posted token against its stored record and, on
// success, folds in the origin and timing soft signals and decides whether
// a challenge is required.
func (s *TokenStore) Validate(post map[string][]string, formID string, meta RequestMeta, cfg *config.Config) ValidationResult {
	fail := func(reason string) ValidationResult {
		s.logger.Event(logging.SeverityWarning, errors.CodeToken, map[string]any{
			"form_id": formID,
			"reason":  reason,
		})
		return ValidationResult{HardFail: true, ErrorCode: errors.CodeToken}
	}

	token := firstValue(post, ParamToken)
	instanceID := firstValue(post, ParamInstanceID)
	if !tokenPattern.MatchString(token) {
		return fail("token format")
	}
	if !instanceIDPattern.MatchString(instanceID) {
		return fail("instance id format")
	}

	raw, err := os.ReadFile(s.recordPath(token))
	if err != nil {
		return fail("record missing")
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fail("record malformed")
	}
	if rec.Mode != "hidden" && rec.Mode != "js" {
		return fail("record malformed")
	}
	if rec.Expires <= rec.IssuedAt {
		return fail("record malformed")
	}
	if rec.FormID != formID {
		return fail("form id mismatch")
	}
	if rec.InstanceID != instanceID {
		return fail("instance id mismatch")
	}
	if hint := firstValue(post, ParamMode); hint != "" && hint != rec.Mode {
		return fail("mode mismatch")
	}
	// A posted render timestamp must agree with the minted record; a
	// disagreement means the hidden fields were spliced across forms.
	if ts, ok := FormTimestamp(post); ok && ts.Unix() != rec.IssuedAt {
		return fail("timestamp mismatch")
	}

	now := s.now()
	// Expiry is exclusive: a token validated at exactly its expiry instant
	// is already expired.
	if rec.Expires <= now.Unix() {
		return fail("expired")
	}

	var soft []string
	if cfg.Security.OriginMode != "off" {
		origin := EvaluateOrigin(meta, cfg)
		if origin.HardFail {
			return ValidationResult{HardFail: true, ErrorCode: errors.CodeOriginForbidden}
		}
		soft = append(soft, origin.SoftReasons...)
	}

	timing := EvaluateTiming(time.Unix(rec.IssuedAt, 0), now, firstValue(post, ParamJSOK) == "1", cfg)
	if timing.HardFail {
		return fail("form too old")
	}
	soft = append(soft, timing.SoftReasons...)

	return ValidationResult{
		TokenOK:          true,
		SoftReasons:      soft,
		RequireChallenge: challengeRequired(cfg, soft),
		Record:           &rec,
	}
}

// Delete removes a consumed record. Replay prevention proper belongs to
// the ledger; deletion just keeps the store from accumulating spent files.
func (s *TokenStore) Delete(token string) {
	if tokenPattern.MatchString(token) {
		os.Remove(s.recordPath(token))
	}
}

// challengeRequired maps the configured challenge mode onto the soft
// signal set.
func challengeRequired(cfg *config.Config, soft []string) bool {
	switch cfg.Challenge.Mode {
	case "always_post":
		return true
	case "auto":
		return len(soft) > 0
	}
	return false
}

// ApplyChallengePass clears the soft reason set after a passed challenge.
// The clear is total rather than filtered to challenge-driving reasons: a
// passed challenge is treated as proof of a human regardless of which
// signal demanded it.
func ApplyChallengePass(res *ValidationResult) {
	res.SoftReasons = nil
	res.RequireChallenge = false
}

// FormTimestamp parses the posted render timestamp, if any.
func FormTimestamp(post map[string][]string) (time.Time, bool) {
	raw := firstValue(post, ParamTimestamp)
	if raw == "" {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(n, 0), true
}

func firstValue(post map[string][]string, key string) string {
	if vs := post[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}
