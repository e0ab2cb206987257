/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package adminserver is the control-plane entry point of spec §6: "A
// single top-level orchestration service accepts start/stop/status
// commands; per component it exposes enable/disable." The core mandates
// no network API, but SPEC_FULL.md's ambient stack ships a small
// go-chi/chi/v5 surface for it rather than leaving these commands
// reachable only by killing the process.
package adminserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/DarsheeeGamer/kos/pkg/supervisor"
)

// Supervisor is the subset of *supervisor.Supervisor this package needs,
// narrowed so tests can fake it without spinning up real components.
type Supervisor interface {
	Healthy() bool
	Status() []supervisor.Status
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error
}

// Server is the admin HTTP surface. Shutdown is the function invoked by
// POST /v1/stop — in cmd/kos-controller this is the cancel func of the
// process's root context, so stopping over HTTP tears down the whole
// orchestration service the same way a SIGTERM would.
type Server struct {
	router     chi.Router
	supervisor Supervisor
	shutdown   func()
}

// New builds a Server. addr is not bound until ListenAndServe is called.
func New(sup Supervisor, shutdown func()) *Server {
	s := &Server{supervisor: sup, shutdown: shutdown}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/statusz", s.handleStatusz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/v1/stop", s.handleStop)
	r.Post("/v1/components/{name}/enable", s.handleEnable)
	r.Post("/v1/components/{name}/disable", s.handleDisable)
	s.router = r
	return s
}

// ListenAndServe blocks serving the admin surface on addr until the
// listener errors. It uses http.ListenAndServe, so there is no handle to
// shut the listener down; cmd/kos-controller runs it in its own goroutine
// for the lifetime of the process.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.supervisor.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatusz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"healthy":    s.supervisor.Healthy(),
		"components": s.supervisor.Status(),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).Info("admin surface received stop command")
	if s.shutdown != nil {
		go s.shutdown()
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.supervisor.Enable(r.Context(), name); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"component": name, "status": "enabled"})
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.supervisor.Disable(r.Context(), name); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"component": name, "status": "disabled"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
