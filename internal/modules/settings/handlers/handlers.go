// Package handlers provides HTTP handlers for preferences and connection settings.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/aristath/autosettle/internal/events"
	"github.com/aristath/autosettle/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// FeeConfigurer reads and updates the transaction fee configuration
type FeeConfigurer interface {
	FeeConfig() chain.FeeConfig
	SetFeeConfig(fees chain.FeeConfig) error
}

// SettingsLister returns every stored setting
type SettingsLister interface {
	GetAll() (map[string]string, error)
}

// Handler provides HTTP handlers for settings endpoints
type Handler struct {
	preferences  *settings.PreferenceStore
	fees         FeeConfigurer
	store        SettingsLister
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(preferences *settings.PreferenceStore, fees FeeConfigurer, store SettingsLister, eventManager *events.Manager, log zerolog.Logger) *Handler {
	if preferences == nil {
		panic("settings handlers: preference store must not be nil")
	}
	return &Handler{
		preferences:  preferences,
		fees:         fees,
		store:        store,
		eventManager: eventManager,
		log:          log.With().Str("handler", "settings").Logger(),
	}
}

// RegisterRoutes registers preference and connection config routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/preferences", func(r chi.Router) {
		r.Get("/", h.HandleGetPreferences)
		r.Put("/{key}", h.HandleUpdatePreference)
	})
	r.Get("/settings", h.HandleListSettings)
	r.Route("/connection", func(r chi.Router) {
		r.Get("/config", h.HandleGetConnectionConfig)
		r.Put("/config", h.HandleUpdateConnectionConfig)
	})
}

// HandleGetPreferences handles GET /api/preferences
func (h *Handler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settings.PreferencesResponse{
		AutoSettleEnabled: h.preferences.Get(),
	})
}

// HandleUpdatePreference handles PUT /api/preferences/{key}
func (h *Handler) HandleUpdatePreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key != settings.KeyAutoSettleEnabled {
		http.Error(w, "Unknown preference", http.StatusNotFound)
		return
	}

	var update settings.SettingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	enabled, ok := update.Value.(bool)
	if !ok {
		http.Error(w, "Value must be a boolean", http.StatusBadRequest)
		return
	}

	// The preference applies in memory even if persisting it fails
	persisted := true
	if err := h.preferences.Set(enabled); err != nil {
		persisted = false
	}

	if h.eventManager != nil {
		h.eventManager.EmitTyped("settings", &events.SettingsChangedData{
			Key:   key,
			Value: enabled,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		key:         enabled,
		"persisted": persisted,
	})
}

// HandleListSettings handles GET /api/settings. Known settings that were
// never written report their default.
func (h *Handler) HandleListSettings(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "Settings storage unavailable", http.StatusServiceUnavailable)
		return
	}

	stored, err := h.store.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list settings")
		http.Error(w, "Failed to list settings", http.StatusInternalServerError)
		return
	}

	keys := make([]string, 0, len(settings.SettingDefaults))
	for key := range settings.SettingDefaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]settings.SettingInfo, 0, len(keys))
	for _, key := range keys {
		info := settings.SettingInfo{
			Key:         key,
			Default:     settings.SettingDefaults[key],
			Description: settings.SettingDescriptions[key],
		}
		if value, ok := stored[key]; ok {
			info.Value = value
			info.Stored = true
		} else {
			info.Value = fmt.Sprint(info.Default)
		}
		out = append(out, info)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"settings": out,
		"count":    len(out),
	})
}

// HandleGetConnectionConfig handles GET /api/connection/config
func (h *Handler) HandleGetConnectionConfig(w http.ResponseWriter, r *http.Request) {
	if h.fees == nil {
		http.Error(w, "Connection config unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, h.fees.FeeConfig())
}

// HandleUpdateConnectionConfig handles PUT /api/connection/config
func (h *Handler) HandleUpdateConnectionConfig(w http.ResponseWriter, r *http.Request) {
	if h.fees == nil {
		http.Error(w, "Connection config unavailable", http.StatusServiceUnavailable)
		return
	}

	var fees chain.FeeConfig
	if err := json.NewDecoder(r.Body).Decode(&fees); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.fees.SetFeeConfig(fees); err != nil {
		h.log.Warn().Err(err).Msg("Rejected connection config update")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.eventManager != nil {
		h.eventManager.EmitTyped("settings", &events.SettingsChangedData{
			Key:   "connectionConfig",
			Value: fees,
		})
	}

	writeJSON(w, http.StatusOK, h.fees.FeeConfig())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
