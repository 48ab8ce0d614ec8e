// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/pythians/internal/domain/catalog"
	"github.com/okian/pythians/internal/domain/denorm"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// List returns every entity of resource; an empty slice is not an error.
	List(ctx context.Context, resource string) ([]*denorm.Record, error)
	// Get returns one entity by its raw path id.
	Get(ctx context.Context, resource, rawID string) (*denorm.Record, error)
	// Ready reports whether the row source is reachable.
	Ready(ctx context.Context) error
}

// Server wires HTTP routes for the scrape API.
type Server struct {
	healthHandler *HealthHandler
	readyHandler  *ReadyHandler
	scrapeHandler *ScrapeHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		readyHandler:  NewReadyHandler(deps),
		scrapeHandler: NewScrapeHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/readyz", MetricsMiddleware(s.readyHandler.HandleReady, "readyz"))
	for _, name := range catalog.Names() {
		mux.HandleFunc(scrapePrefix+name+"/", RequestIDMiddleware(
			MetricsMiddleware(s.scrapeHandler.Handle(name), "scrape_"+name),
		))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
