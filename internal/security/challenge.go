package security

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/logging"
)

// ChallengeVerifier performs the outbound verification call against the
// configured challenge provider. It is the only network call in the core;
// the timeout is anchor-clamped to 1-5s so a slow provider cannot stall
// submissions indefinitely.
type ChallengeVerifier struct {
	logger logging.Logger
	client *http.Client
}

// NewChallengeVerifier creates a verifier. A nil client uses a fresh one;
// the per-call timeout always comes from config.
func NewChallengeVerifier(logger logging.Logger, client *http.Client) *ChallengeVerifier {
	if logger == nil {
		logger = logging.Nop()
	}
	if client == nil {
		client = &http.Client{}
	}
	return &ChallengeVerifier{logger: logger, client: client}
}

// Verify checks a submitted challenge response. The return code is empty
// on success, CHALLENGE_UNCONFIGURED when the deployment demands a
// challenge it has not configured, and EFORMS_ERR_CHALLENGE_FAILED for a
// failed or unverifiable response.
func (c *ChallengeVerifier) Verify(ctx context.Context, response, remoteIP string, cfg *config.Config) (bool, string) {
	if cfg.Challenge.SecretKey == "" || cfg.Challenge.VerifyURL == "" {
		c.logger.Event(logging.SeverityWarning, errors.CodeChallengeUnconfigured, map[string]any{
			"provider": cfg.Challenge.Provider,
		})
		return false, errors.CodeChallengeUnconfigured
	}
	if response == "" {
		return false, errors.CodeChallengeFailed
	}

	timeout := time.Duration(cfg.Challenge.HTTPTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	form := url.Values{}
	form.Set("secret", cfg.Challenge.SecretKey)
	form.Set("response", response)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Challenge.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, errors.CodeChallengeFailed
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Event(logging.SeverityWarning, errors.CodeChallengeFailed, map[string]any{
			"reason": err.Error(),
		})
		return false, errors.CodeChallengeFailed
	}
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || !body.Success {
		return false, errors.CodeChallengeFailed
	}
	return true, ""
}
