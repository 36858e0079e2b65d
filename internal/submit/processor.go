// Package submit orchestrates the per-submission control flow: config
// snapshot, storage health, origin policy, token validation, honeypot,
// throttle, adaptive challenge, and the Normalize/Validate/Coerce pipeline,
// in that order. State that older designs kept in process-wide caches (the
// config snapshot, the request id, the memoized health result) lives in an
// explicit RequestContext constructed once per request.
package submit

import (
	"context"

	"github.com/google/uuid"

	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/fields"
	"github.com/eforms/eforms/internal/logging"
	"github.com/eforms/eforms/internal/pipeline"
	"github.com/eforms/eforms/internal/security"
	"github.com/eforms/eforms/internal/storage"
	"github.com/eforms/eforms/internal/template"
	"github.com/eforms/eforms/internal/throttle"
)

// RequestContext carries the per-request state threaded through the flow.
type RequestContext struct {
	Config    *config.Config
	RequestID string
	Health    *storage.HealthChecker
	Logger    logging.Logger
}

// NewRequestContext resolves the config snapshot once and seeds the
// request id and memoized health checker.
func NewRequestContext(provider *config.Provider, logger logging.Logger) *RequestContext {
	if logger == nil {
		logger = logging.Nop()
	}
	id := uuid.NewString()
	return &RequestContext{
		Config:    provider.Get(),
		RequestID: id,
		Health:    storage.NewHealthChecker(logger),
		Logger:    logger.With("request_id", id),
	}
}

// Submission is one incoming form post.
type Submission struct {
	FormID string
	Post   map[string][]string
	Files  map[string][]pipeline.RawUpload
	Meta   security.RequestMeta
}

// Outcome is the terminal result of processing one submission.
type Outcome struct {
	OK bool
	// Stealth marks a honeypot trip answered as a fake success.
	Stealth    bool
	Code       string // user-facing rejection code, empty on success
	RetryAfter int    // seconds, set with EFORMS_ERR_THROTTLED
	Errors     *errors.Bag
	Values     fields.Values
}

// Processor wires the gate and pipeline components together.
type Processor struct {
	Provider  *config.Provider
	Tokens    *security.TokenStore
	Ledger    *security.Ledger
	Throttle  *throttle.Throttle
	Challenge *security.ChallengeVerifier
	Logger    logging.Logger
}

func reject(code string) Outcome {
	return Outcome{Code: code}
}

// Process runs the full control flow against a validated template. The
// template is assumed to have passed preflight at load time.
func (p *Processor) Process(ctx context.Context, rc *RequestContext, tpl *template.Template, sub Submission) Outcome {
	cfg := rc.Config

	if health := rc.Health.Check(cfg.Uploads.Dir, false); !health.OK {
		bag := errors.NewBag()
		bag.AddGlobal(errors.CodeStorageUnavailable, "server storage unavailable")
		return Outcome{Code: errors.CodeStorageUnavailable, Errors: bag}
	}

	if cfg.Security.OriginMode == "hard" {
		if origin := security.EvaluateOrigin(sub.Meta, cfg); origin.HardFail {
			return reject(errors.CodeOriginForbidden)
		}
	}

	tokenRes := p.Tokens.Validate(sub.Post, sub.FormID, sub.Meta, cfg)
	if !tokenRes.TokenOK {
		return reject(tokenRes.ErrorCode)
	}

	if hp := security.EvaluateHoneypot(sub.Post, cfg); hp.Triggered {
		p.Logger.Event(logging.SeverityInfo, errors.CodeHoneypot, map[string]any{
			"form_id":  sub.FormID,
			"response": hp.Response,
		})
		if hp.Response == "stealth_success" {
			return Outcome{OK: true, Stealth: true}
		}
		return reject(errors.CodeHoneypot)
	}

	if th := p.Throttle.Check(sub.Meta.RemoteAddr, cfg); !th.OK {
		out := reject(errors.CodeThrottled)
		out.RetryAfter = th.RetryAfter
		return out
	}

	if tokenRes.RequireChallenge {
		response := firstPost(sub.Post, "challenge_response")
		ok, code := p.Challenge.Verify(ctx, response, sub.Meta.RemoteAddr, cfg)
		if !ok {
			// Operational codes like a missing provider config stay
			// log-only; the submitter sees the generic failure.
			if !errors.UserFacing(code) {
				code = errors.CodeChallengeFailed
			}
			return reject(code)
		}
		security.ApplyChallengePass(&tokenRes)
	}

	pctx := &pipeline.Context{Template: tpl, Config: cfg}
	normalized := pipeline.Normalize(pctx, sub.Post, sub.Files)
	result := pipeline.Validate(pctx, normalized)
	if !result.OK {
		return Outcome{Errors: result.Bag}
	}
	coerced := pipeline.Coerce(pctx, result.Values)

	// At-most-once consumption: the ledger claim is what makes a replayed
	// submission id fail even though its token record still validates.
	if !p.Ledger.Reserve(sub.FormID + ":" + tokenRes.Record.InstanceID) {
		return reject(errors.CodeToken)
	}
	p.Tokens.Delete(firstPost(sub.Post, security.ParamToken))

	return Outcome{OK: true, Values: coerced, Errors: result.Bag}
}

func firstPost(post map[string][]string, key string) string {
	if vs := post[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}
