// Package server exposes the HTTP trigger surface: a health endpoint and a
// secret-guarded webhook that kicks off a sync run in the background.
package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync/atomic"

	"sheetsync/internal/syncer"
)

// secretHeader carries the shared webhook secret.
const secretHeader = "X-Webhook-Secret"

// Runner starts one sync run. *syncer.Syncer satisfies it.
type Runner interface {
	Run(ctx context.Context) (syncer.Report, error)
}

// Server handles the health and webhook endpoints.
//
// Overlapping triggers are merged: while a run is in flight, further webhook
// calls are acknowledged with 409 and do not queue a second run. The
// spreadsheet edit burst that fires several webhooks in a row still results
// in one full refresh, and the caller can simply retry later.
type Server struct {
	Secret string
	Runner Runner
	Logger syncer.Logger

	running atomic.Bool
}

// Handler returns the HTTP handler for the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/webhook/sync", s.handleWebhook)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
	default:
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write([]byte("ok\n"))
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// An unset secret closes the webhook entirely rather than opening it.
	if s.Secret == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(s.Secret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if !s.running.CompareAndSwap(false, true) {
		http.Error(w, "sync already running", http.StatusConflict)
		return
	}

	go func() {
		defer s.running.Store(false)
		if _, err := s.Runner.Run(context.Background()); err != nil && s.Logger != nil {
			s.Logger.Printf("webhook sync failed: %v", err)
		}
	}()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("sync started\n"))
}
