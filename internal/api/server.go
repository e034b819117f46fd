// Package api serves the read-side catalog filter endpoints.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"streaming-catalog/internal/store"
	"streaming-catalog/internal/telemetry"
)

// Server wires HTTP handlers for the catalog filter API.
type Server struct {
	store *store.Store
}

// New constructs the API server.
func New(st *store.Store) *Server {
	return &Server{store: st}
}

// Router builds the HTTP router. The API is read-only and consumed by a
// browser frontend on another origin, so CORS is open.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Get("/api/data", s.handleList)
	r.Post("/api/filter", s.handleFilter)
	return r
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	params := map[string]string{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	items, err := s.store.List(r.Context(), params)
	if err != nil {
		log.Printf("list query failed: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var criteria store.FilterCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	telemetry.FilterQueries.Inc()
	items, err := s.store.Filter(r.Context(), criteria)
	if err != nil {
		log.Printf("filter query failed: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
