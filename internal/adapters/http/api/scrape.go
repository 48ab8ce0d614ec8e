package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/pythians/internal/domain/types"
	"github.com/okian/pythians/pkg/logger"
)

const scrapePrefix = "/scrape/"

// ScrapeHandler serves /scrape/{resource}/ and /scrape/{resource}/{id}.
type ScrapeHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewScrapeHandler creates a new scrape handler.
func NewScrapeHandler(deps Dependencies) *ScrapeHandler {
	return &ScrapeHandler{deps: deps, logger: logger.Named("api")}
}

// Handle returns the handler for one resource. The list form answers the
// bare collection path; one further segment is the id.
func (h *ScrapeHandler) Handle(resource string) http.HandlerFunc {
	base := scrapePrefix + resource + "/"
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, base)
		switch {
		case rest == "":
			h.list(w, r, resource)
		case strings.Contains(rest, "/"):
			writeError(w, http.StatusNotFound, "not_found", "")
		default:
			h.get(w, r, resource, rest)
		}
	}
}

func (h *ScrapeHandler) list(w http.ResponseWriter, r *http.Request, resource string) {
	out, err := h.deps.List(r.Context(), resource)
	if err != nil {
		h.fail(w, r, resource, "", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ScrapeHandler) get(w http.ResponseWriter, r *http.Request, resource, rawID string) {
	rec, err := h.deps.Get(r.Context(), resource, rawID)
	if err != nil {
		h.fail(w, r, resource, rawID, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *ScrapeHandler) fail(w http.ResponseWriter, r *http.Request, resource, rawID string, err error) {
	status, code := statusFor(err)
	switch status {
	case http.StatusBadRequest:
		writeError(w, status, code, types.ErrValidation.Error())
	case http.StatusNotFound:
		writeError(w, status, code, fmt.Sprintf("%s/%s not found", resource, rawID))
	default:
		// The service has already logged the failure at error level.
		h.logger.Debug(r.Context(), "scrape request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
		)
		writeError(w, status, code, "")
	}
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
