package security

import (
	"time"

	"github.com/eforms/eforms/internal/config"
)

// TimingResult carries the soft and hard signals derived from elapsed fill
// time and the JS-presence flag.
type TimingResult struct {
	SoftReasons []string
	HardFail    bool
}

// EvaluateTiming derives signals from when the form was issued versus now.
// Filling faster than the minimum fill window is a soft spam signal;
// submitting past the maximum form age is a hard failure (the token would
// be near expiry anyway and replayed old forms are indistinguishable from
// abuse). A missing JS flag is soft when the deployment expects JS.
func EvaluateTiming(issuedAt, now time.Time, jsOK bool, cfg *config.Config) TimingResult {
	var res TimingResult
	elapsed := now.Sub(issuedAt)

	if minFill := time.Duration(cfg.Security.MinFillSeconds) * time.Second; elapsed < minFill {
		res.SoftReasons = append(res.SoftReasons, "min_fill")
	}
	if maxAge := time.Duration(cfg.Security.MaxFormAgeSeconds) * time.Second; maxAge > 0 && elapsed > maxAge {
		res.HardFail = true
	}
	if cfg.Spam.JSCheck && !jsOK {
		res.SoftReasons = append(res.SoftReasons, "js_off")
	}
	return res
}
