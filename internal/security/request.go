// Package security implements the anti-abuse gate of the submission
// pipeline: origin classification, timing signals, honeypot evaluation,
// the one-time token lifecycle, adaptive challenge verification, and the
// replay ledger.
package security

import (
	"net/http"
	"strings"
)

// RequestMeta is the transport-independent view of a request the gate
// consumes. It decouples the security checks from net/http so they stay
// testable without a server.
type RequestMeta struct {
	Origin          string // Origin header, verbatim
	Host            string // Host header
	HTTPS           bool
	ForwardedProto  string
	RemoteAddr      string
	UserAgent       string
}

// MetaFromHTTP projects an incoming request into RequestMeta.
func MetaFromHTTP(r *http.Request) RequestMeta {
	return RequestMeta{
		Origin:         r.Header.Get("Origin"),
		Host:           r.Host,
		HTTPS:          r.TLS != nil,
		ForwardedProto: strings.ToLower(r.Header.Get("X-Forwarded-Proto")),
		RemoteAddr:     r.RemoteAddr,
		UserAgent:      r.UserAgent(),
	}
}
