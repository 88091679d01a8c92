/**
 * Copyright 2026 Mejora Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mejora-dev/mejora/internal/log"
	"github.com/mejora-dev/mejora/workflow"
)

const maxWebhookBody = 1 << 20 // GitHub caps payloads at 25 MiB; ours are far smaller

// Config wires the HTTP surface together.
type Config struct {
	Addr          string
	WebhookSecret string
	Workflow      *workflow.Workflow
	Store         RunStore
	Runner        RunnerFunc
	QueueSize     int
}

// Server handles GitHub webhooks and serves run history.
type Server struct {
	cfg        Config
	dispatcher *Dispatcher
	router     chi.Router
}

func New(cfg Config) (*Server, error) {
	if cfg.Workflow == nil {
		return nil, errors.New("server: workflow is required")
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Runner == nil {
		return nil, errors.New("server: runner is required")
	}
	if !cfg.Workflow.HasTriggers() {
		log.Warn("workflow %q has no `on:` triggers configured; every webhook delivery will be ignored", cfg.Workflow.Name)
	}
	s := &Server{
		cfg:        cfg,
		dispatcher: NewDispatcher(cfg.Runner, cfg.Store, cfg.QueueSize),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/hooks/github", s.handleWebhook)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the dispatcher and blocks serving HTTP until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.dispatcher.Start(ctx)

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.dispatcher.Wait()
		return nil
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	kind := r.Header.Get(headerEvent)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := verifySignature(s.cfg.WebhookSecret, body, r.Header.Get(headerSignature)); err != nil {
		log.Warn("webhook: %v", err)
		webhookEventsTotal.WithLabelValues(kind, "false").Inc()
		writeError(w, http.StatusUnauthorized, "signature verification failed")
		return
	}

	ev, ok, err := parseEvent(kind, body)
	if err != nil {
		webhookEventsTotal.WithLabelValues(kind, "false").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		webhookEventsTotal.WithLabelValues(kind, "false").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if !s.cfg.Workflow.Matches(ev) {
		webhookEventsTotal.WithLabelValues(kind, "false").Inc()
		writeJSON(w, http.StatusOK, map[string]string{"status": "no matching trigger"})
		return
	}

	runID := uuid.NewString()
	if !s.dispatcher.Enqueue(runID, ev) {
		webhookEventsTotal.WithLabelValues(kind, "false").Inc()
		writeError(w, http.StatusServiceUnavailable, "run queue is full")
		return
	}
	webhookEventsTotal.WithLabelValues(kind, "true").Inc()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "queued",
		"run_id": runID,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.cfg.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": ids})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.cfg.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
