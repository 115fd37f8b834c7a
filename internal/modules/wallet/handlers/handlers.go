// Package handlers provides HTTP handlers for the wallet session.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for wallet endpoints
type Handler struct {
	session *wallet.Session
	tracker *wallet.TokenAccountTracker
	log     zerolog.Logger
}

// NewHandler creates a new wallet handler. tracker may be nil.
func NewHandler(session *wallet.Session, tracker *wallet.TokenAccountTracker, log zerolog.Logger) *Handler {
	return &Handler{
		session: session,
		tracker: tracker,
		log:     log.With().Str("handler", "wallet").Logger(),
	}
}

// RegisterRoutes registers wallet routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/wallet", func(r chi.Router) {
		r.Get("/", h.HandleStatus)
		r.Post("/connect", h.HandleConnect)
		r.Post("/disconnect", h.HandleDisconnect)
		r.Get("/token-accounts", h.HandleTokenAccounts)
	})
}

// HandleStatus handles GET /api/wallet
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Status())
}

// HandleConnect handles POST /api/wallet/connect
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Connect(); err != nil {
		if errors.Is(err, wallet.ErrNoAdapter) {
			http.Error(w, "No wallet configured", http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Msg("Failed to connect wallet")
		http.Error(w, "Failed to connect wallet", http.StatusInternalServerError)
		return
	}

	if h.tracker != nil {
		if err := h.tracker.Refresh(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("Initial token account load failed")
		}
	}

	writeJSON(w, http.StatusOK, h.session.Status())
}

// HandleDisconnect handles POST /api/wallet/disconnect
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	h.session.Disconnect()
	writeJSON(w, http.StatusOK, h.session.Status())
}

// HandleTokenAccounts handles GET /api/wallet/token-accounts
func (h *Handler) HandleTokenAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := []wallet.TokenAccount{}
	if h.tracker != nil {
		if current := h.tracker.Current(); current != nil {
			accounts = current
		}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
