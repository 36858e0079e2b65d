package security

import "github.com/eforms/eforms/internal/config"

// HoneypotResult reports whether the trap field was filled and which
// response mode applies.
type HoneypotResult struct {
	Triggered bool
	// Response is "stealth_success" (pretend the submission worked) or
	// "hard_fail" (reject visibly).
	Response string
}

// EvaluateHoneypot checks the configured trap field. Humans never see the
// field; any non-empty value means an automated submitter filled it.
func EvaluateHoneypot(post map[string][]string, cfg *config.Config) HoneypotResult {
	res := HoneypotResult{Response: cfg.Spam.HoneypotResponse}
	for _, v := range post[cfg.Spam.HoneypotField] {
		if v != "" {
			res.Triggered = true
			break
		}
	}
	return res
}
