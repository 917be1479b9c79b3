package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/bidintake/internal/intake"
)

// newRouter builds the HTTP facade over the intake service: launch, status,
// and run listing, plus a health probe.
func newRouter(svc *intake.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/intake/runs", func(w http.ResponseWriter, r *http.Request) {
		var req intake.LaunchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		summary, err := svc.Launch(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		status := http.StatusOK
		if req.Background {
			status = http.StatusAccepted
		}
		writeJSON(w, status, summary)
	})

	r.Get("/intake/runs/{runID}", func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.GetStatus(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Debug("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	if svcErr, ok := intake.AsServiceError(err); ok {
		writeJSON(w, svcErr.StatusCode, map[string]string{
			"error":  svcErr.Message,
			"detail": svcErr.Detail,
			"hint":   svcErr.Hint,
		})
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
