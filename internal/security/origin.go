package security

import (
	"net/url"
	"strings"

	"github.com/eforms/eforms/internal/config"
)

// OriginState classifies a request's Origin header against the server's
// own origin.
type OriginState string

const (
	OriginSame    OriginState = "same"
	OriginCross   OriginState = "cross"
	OriginMissing OriginState = "missing"
	OriginUnknown OriginState = "unknown"
)

// OriginResult is the policy outcome for one request.
type OriginResult struct {
	State       OriginState
	HardFail    bool
	SoftReasons []string
}

// EvaluateOrigin compares the request's Origin header (scheme+host+port,
// default port inferred per scheme) against the server-derived origin and
// applies the configured mode. Mode "off" is the caller's short-circuit;
// when invoked anyway it still classifies but flags nothing.
func EvaluateOrigin(meta RequestMeta, cfg *config.Config) OriginResult {
	state := classifyOrigin(meta)
	res := OriginResult{State: state}

	switch cfg.Security.OriginMode {
	case "soft":
		if state != OriginSame {
			res.SoftReasons = append(res.SoftReasons, "origin_"+string(state))
		}
	case "hard":
		switch state {
		case OriginCross, OriginUnknown:
			res.HardFail = true
		case OriginMissing:
			if cfg.Security.OriginMissingHard {
				res.HardFail = true
			} else {
				res.SoftReasons = append(res.SoftReasons, "origin_missing")
			}
		}
	}
	return res
}

func classifyOrigin(meta RequestMeta) OriginState {
	raw := strings.TrimSpace(meta.Origin)
	if raw == "" {
		return OriginMissing
	}
	if strings.EqualFold(raw, "null") {
		return OriginUnknown
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return OriginUnknown
	}
	reqScheme, reqHost, reqPort := normalizeOrigin(parsed.Scheme, parsed.Host)
	srvScheme := serverScheme(meta)
	_, srvHost, srvPort := normalizeOrigin(srvScheme, meta.Host)
	if reqScheme == srvScheme && reqHost == srvHost && reqPort == srvPort {
		return OriginSame
	}
	return OriginCross
}

// serverScheme derives the server's scheme from TLS state and the
// forwarded-scheme header set by a fronting proxy.
func serverScheme(meta RequestMeta) string {
	if meta.HTTPS || meta.ForwardedProto == "https" {
		return "https"
	}
	return "http"
}

// normalizeOrigin splits host[:port], inferring the default port for the
// scheme when absent.
func normalizeOrigin(scheme, hostport string) (string, string, string) {
	scheme = strings.ToLower(scheme)
	host := strings.ToLower(hostport)
	port := ""
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.Contains(host[i:], "]") {
		port = host[i+1:]
		host = host[:i]
	}
	if port == "" {
		if scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return scheme, host, port
}
