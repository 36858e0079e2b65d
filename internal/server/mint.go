package server

import (
	"mime"
	"net/http"
	"regexp"
	"strconv"

	eforms "github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/security"
)

var mintFormIDPattern = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// handleMint issues a one-time submission token for a form. The endpoint
// accepts urlencoded POSTs only and answers with the stable error codes
// external clients match on.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || ct != "application/x-www-form-urlencoded" {
		writeError(w, http.StatusBadRequest, eforms.CodeType)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, eforms.CodeType)
		return
	}

	formID := r.PostFormValue("f")
	if !mintFormIDPattern.MatchString(formID) {
		writeError(w, http.StatusBadRequest, eforms.CodeInvalidFormID)
		return
	}

	cfg := s.provider.Get()
	meta := security.MetaFromHTTP(r)

	if cfg.Security.OriginMode == "hard" {
		if origin := security.EvaluateOrigin(meta, cfg); origin.HardFail {
			writeError(w, http.StatusForbidden, eforms.CodeOriginForbidden)
			return
		}
	}

	if th := s.throttle.Check(meta.RemoteAddr, cfg); !th.OK {
		w.Header().Set("Retry-After", strconv.Itoa(th.RetryAfter))
		writeError(w, http.StatusTooManyRequests, eforms.CodeThrottled)
		return
	}

	minted, err := s.tokens.Mint(formID, cfg.Security.SubmissionTokenMode, cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, eforms.CodeMintFailed)
		return
	}
	writeJSON(w, http.StatusOK, minted)
}
