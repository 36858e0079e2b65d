// Package server exposes the HTTP surface of the pipeline: the token mint
// endpoint and the submission endpoint. Handlers translate transport
// details into the transport-independent types the core consumes and map
// outcomes back onto status codes and stable error codes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/eforms/eforms/internal/config"
	eforms "github.com/eforms/eforms/internal/errors"
	"github.com/eforms/eforms/internal/logging"
	"github.com/eforms/eforms/internal/security"
	"github.com/eforms/eforms/internal/submit"
	"github.com/eforms/eforms/internal/template"
	"github.com/eforms/eforms/internal/throttle"
)

// Server hosts the eforms endpoints.
type Server struct {
	provider  *config.Provider
	loader    *template.Loader
	templates string // directory of <form_id>.json documents
	processor *submit.Processor
	tokens    *security.TokenStore
	throttle  *throttle.Throttle
	logger    logging.Logger
	httpSrv   *http.Server
}

// Options configures a Server.
type Options struct {
	Addr         string
	TemplatesDir string
	Provider     *config.Provider
	Logger       logging.Logger
}

// New assembles the server and its component graph.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	cfg := opts.Provider.Get()
	privateDir := cfg.Install.PrivateDir

	tokens := security.NewTokenStore(privateDir, logger)
	th := throttle.New(privateDir, logger)
	s := &Server{
		provider:  opts.Provider,
		loader:    template.NewLoader(logger),
		templates: opts.TemplatesDir,
		tokens:    tokens,
		throttle:  th,
		logger:    logger,
		processor: &submit.Processor{
			Provider:  opts.Provider,
			Tokens:    tokens,
			Ledger:    security.NewLedger(privateDir, logger),
			Throttle:  th,
			Challenge: security.NewChallengeVerifier(logger, nil),
			Logger:    logger,
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/eforms/mint", s.handleMint).Methods(http.MethodPost)
	r.HandleFunc("/eforms/submit", s.handleSubmit).Methods(http.MethodPost)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info(context.Background(), "listening", "addr", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.loader.Close()
	return s.httpSrv.Shutdown(ctx)
}

// loadTemplate resolves a form id to its validated template.
func (s *Server) loadTemplate(formID string) (*template.Template, error) {
	tpl, bag, err := s.loader.Load(fmt.Sprintf("%s/%s.json", s.templates, formID))
	if err != nil {
		return nil, err
	}
	if bag.HasErrors() {
		return nil, fmt.Errorf("template %s failed preflight", formID)
	}
	return tpl, nil
}

// writeJSON emits a response body with the no-store cache policy every
// endpoint carries.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, eforms.CodeMethodNotAllowed)
}
