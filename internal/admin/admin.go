// Package admin serves the operator HTTP endpoint: Prometheus metrics,
// a health check and read-only key lookups.
package admin

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DataStore is the read side of the store that /kv/ lookups go through.
type DataStore interface {
	Get(key string) (string, bool)
}

// Server is the admin HTTP handler.
type Server struct {
	store    DataStore
	gatherer prometheus.Gatherer
	router   *http.ServeMux
}

// New creates a new Server instance exposing metrics gathered from g.
func New(store DataStore, g prometheus.Gatherer) *Server {
	s := &Server{
		store:    store,
		gatherer: g,
		router:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// ServeHTTP makes our Server a standard http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// registerRoutes sets up the HTTP routing for the server.
func (s *Server) registerRoutes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.router.HandleFunc("/healthz", s.handleHealth)
	s.router.HandleFunc("/kv/", s.handleKV)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok\n"))
}

// handleKV serves read-only lookups. Writes go through the TCP protocol only.
func (s *Server) handleKV(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	if key == "" {
		http.Error(w, "Key is missing", http.StatusBadRequest)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hash, ok := s.store.Get(key)
	if !ok {
		http.Error(w, "Key not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(hash + "\n"))
}
