package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eforms/eforms/internal/config"
	"github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/logging"
)

func challengeConfig(verifyURL string) *config.Config {
	cfg := config.Default()
	cfg.Challenge.Mode = "auto"
	cfg.Challenge.Provider = "turnstile"
	cfg.Challenge.SecretKey = "secret"
	cfg.Challenge.VerifyURL = verifyURL
	return cfg
}

func TestChallengeVerifySuccess(t *testing.T) {
	var gotResponse, gotRemoteIP string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostFormValue("secret"))
		gotResponse = r.PostFormValue("response")
		gotRemoteIP = r.PostFormValue("remoteip")
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	v := NewChallengeVerifier(nil, srv.Client())
	ok, code := v.Verify(context.Background(), "client-token", "203.0.113.9", challengeConfig(srv.URL))
	assert.True(t, ok)
	assert.Empty(t, code)
	assert.Equal(t, "client-token", gotResponse)
	assert.Equal(t, "203.0.113.9", gotRemoteIP)
}

func TestChallengeVerifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false}`))
	}))
	defer srv.Close()

	v := NewChallengeVerifier(nil, srv.Client())
	ok, code := v.Verify(context.Background(), "client-token", "", challengeConfig(srv.URL))
	assert.False(t, ok)
	assert.Equal(t, errors.CodeChallengeFailed, code)
}

func TestChallengeVerifyGarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	v := NewChallengeVerifier(nil, srv.Client())
	ok, code := v.Verify(context.Background(), "client-token", "", challengeConfig(srv.URL))
	assert.False(t, ok)
	assert.Equal(t, errors.CodeChallengeFailed, code)
}

func TestChallengeVerifyEmptyResponse(t *testing.T) {
	v := NewChallengeVerifier(nil, nil)
	ok, code := v.Verify(context.Background(), "", "", challengeConfig("http://unused.invalid"))
	assert.False(t, ok)
	assert.Equal(t, errors.CodeChallengeFailed, code)
}

func TestChallengeVerifyUnconfigured(t *testing.T) {
	capture := logging.NewCapture()
	v := NewChallengeVerifier(capture, nil)

	cfg := config.Default()
	cfg.Challenge.Mode = "always_post"
	ok, code := v.Verify(context.Background(), "client-token", "", cfg)
	assert.False(t, ok)
	assert.Equal(t, errors.CodeChallengeUnconfigured, code)
	assert.NotEmpty(t, capture.EventsWithCode(errors.CodeChallengeUnconfigured))
}

func TestChallengeVerifyProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	v := NewChallengeVerifier(nil, nil)
	ok, code := v.Verify(context.Background(), "client-token", "", challengeConfig(srv.URL))
	assert.False(t, ok)
	assert.Equal(t, errors.CodeChallengeFailed, code)
}
