// Package handlers provides HTTP handlers for market listing and custom markets.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aristath/autosettle/internal/events"
	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CustomMarketStore persists user-added markets
type CustomMarketStore interface {
	Upsert(m markets.CustomMarket) error
	Delete(address string) (bool, error)
}

// Handler provides HTTP handlers for market endpoints
type Handler struct {
	registry     *markets.Registry
	custom       CustomMarketStore
	cache        *markets.Cache
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewHandler creates a new markets handler
func NewHandler(
	registry *markets.Registry,
	custom CustomMarketStore,
	cache *markets.Cache,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		registry:     registry,
		custom:       custom,
		cache:        cache,
		eventManager: eventManager,
		log:          log.With().Str("handler", "markets").Logger(),
	}
}

// RegisterRoutes registers market routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/markets", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/custom", h.HandleAddCustom)
		r.Delete("/custom/{address}", h.HandleDeleteCustom)
	})
}

// MarketView is one entry of GET /api/markets
type MarketView struct {
	markets.Descriptor
	Cached bool `json:"cached"`
}

// HandleList handles GET /api/markets
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	descriptors := h.registry.Descriptors()
	views := make([]MarketView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, MarketView{
			Descriptor: d,
			Cached:     h.cache != nil && h.cache.Has(d.ID()),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode markets response")
	}
}

type addCustomRequest struct {
	Address    string `json:"address"`
	ProgramID  string `json:"programId"`
	Name       string `json:"name"`
	BaseLabel  string `json:"baseLabel"`
	QuoteLabel string `json:"quoteLabel"`
}

// HandleAddCustom handles POST /api/markets/custom
func (h *Handler) HandleAddCustom(w http.ResponseWriter, r *http.Request) {
	var req addCustomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	address, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.Address))
	if err != nil {
		http.Error(w, "Invalid market address", http.StatusBadRequest)
		return
	}
	programID, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.ProgramID))
	if err != nil {
		http.Error(w, "Invalid program id", http.StatusBadRequest)
		return
	}

	market := markets.CustomMarket{
		Address:    address.String(),
		ProgramID:  programID.String(),
		Name:       strings.TrimSpace(req.Name),
		BaseLabel:  req.BaseLabel,
		QuoteLabel: req.QuoteLabel,
	}
	if err := h.custom.Upsert(market); err != nil {
		h.log.Error().Err(err).Str("address", market.Address).Msg("Failed to save custom market")
		http.Error(w, "Failed to save custom market", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("address", market.Address).Str("name", market.Name).Msg("Custom market added")
	if h.eventManager != nil {
		h.eventManager.EmitTyped("markets", &events.CustomMarketsChangedData{
			Action:  "added",
			Address: market.Address,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(market)
}

// HandleDeleteCustom handles DELETE /api/markets/custom/{address}
func (h *Handler) HandleDeleteCustom(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	removed, err := h.custom.Delete(address)
	if err != nil {
		h.log.Error().Err(err).Str("address", address).Msg("Failed to delete custom market")
		http.Error(w, "Failed to delete custom market", http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "Custom market not found", http.StatusNotFound)
		return
	}

	if h.eventManager != nil {
		h.eventManager.EmitTyped("markets", &events.CustomMarketsChangedData{
			Action:  "removed",
			Address: address,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}
