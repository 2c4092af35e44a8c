package flagwatch

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/flagwatch/shield"
)

// Handler serves the read-only status API:
//
//	GET /healthz          liveness
//	GET /stats            Status as JSON
//	GET /check?h=@name    membership for one or more h parameters
//	GET /recent?limit=n   History from the sqlite sink
func (s *Service) Handler(logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.StatusStack(logger) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.Status())
	})
	r.Get("/check", func(w http.ResponseWriter, r *http.Request) {
		handles := r.URL.Query()["h"]
		if len(handles) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing h parameter"})
			return
		}
		shield.GetLogger(r.Context()).Debug("flagwatch: check", "count", len(handles))
		writeJSON(w, http.StatusOK, s.Check(handles...))
	})
	r.Get("/recent", func(w http.ResponseWriter, r *http.Request) {
		var limit int
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad limit"})
				return
			}
			limit = n
		}
		h, err := s.Recent(r.Context(), limit)
		switch {
		case errors.Is(err, ErrNoHistory):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case err != nil:
			shield.GetLogger(r.Context()).Warn("flagwatch: recent", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
		default:
			writeJSON(w, http.StatusOK, h)
		}
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
