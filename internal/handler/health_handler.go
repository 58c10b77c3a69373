package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type HealthResponse struct {
	Success     bool   `json:"success"`
	Status      string `json:"status"`
	CountTables int    `json:"countTables"`
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Health.HealthCheck(ctx); err != nil {
		h.Log.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}

	count, err := h.Health.CountTables(ctx)
	if err != nil {
		h.Log.Warn("counting tables failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded"})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Success: true, Status: "ok", CountTables: count})
}

func (h *Handlers) Realtime(w http.ResponseWriter, r *http.Request) {
	if h.RealtimeServer == nil {
		WriteError(w, "Realtime updates are not configured", http.StatusServiceUnavailable)
		return
	}

	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	h.RealtimeServer.ServeWS(w, r, userID)
}

func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
}

func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, "Not found", http.StatusNotFound)
}
