// Package handlers provides HTTP handlers for the auto-settle routines.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/autosettle/internal/autosettle"
	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for auto-settle endpoints
type Handler struct {
	svc *autosettle.Service
	log zerolog.Logger
}

// NewHandler creates a new auto-settle handler
func NewHandler(svc *autosettle.Service, log zerolog.Logger) *Handler {
	if svc == nil {
		panic("autosettle handler requires a service, must not be nil")
	}
	return &Handler{
		svc: svc,
		log: log.With().Str("handler", "autosettle").Logger(),
	}
}

// RegisterRoutes registers auto-settle routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/autosettle", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Post("/warm", h.HandleWarm)
		r.Post("/settle", h.HandleSettle)
		r.Post("/token-accounts/refresh", h.HandleRefreshTokenAccounts)
	})
}

// HandleStatus handles GET /api/autosettle/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// HandleWarm handles POST /api/autosettle/warm
// The pass runs in the background; its outcome is published as an event.
func (h *Handler) HandleWarm(w http.ResponseWriter, r *http.Request) {
	switch reason := h.svc.WarmSkipReason(); reason {
	case "":
	case autosettle.SkipWarmInFlight:
		writeJSON(w, http.StatusConflict, map[string]string{
			"status": "already_running",
		})
		return
	default:
		writeJSON(w, http.StatusConflict, map[string]string{
			"status": "skipped",
			"reason": reason,
		})
		return
	}

	go h.svc.RunWarm()

	h.log.Info().Msg("Manual cache warm triggered")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
	})
}

// HandleSettle handles POST /api/autosettle/settle
func (h *Handler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	h.log.Info().Msg("Manual settlement triggered")
	writeJSON(w, http.StatusOK, h.svc.RunSettle())
}

// HandleRefreshTokenAccounts handles POST /api/autosettle/token-accounts/refresh
func (h *Handler) HandleRefreshTokenAccounts(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RefreshTokenAccounts(); err != nil {
		if errors.Is(err, wallet.ErrNotConnected) {
			http.Error(w, "Wallet not connected", http.StatusConflict)
			return
		}
		h.log.Warn().Err(err).Msg("Token account refresh failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
