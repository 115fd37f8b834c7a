package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/autosettle/internal/events"
	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCustomStore struct {
	markets []markets.CustomMarket
}

func (m *memCustomStore) List() ([]markets.CustomMarket, error) {
	return m.markets, nil
}

func (m *memCustomStore) Upsert(c markets.CustomMarket) error {
	for i := range m.markets {
		if m.markets[i].Address == c.Address {
			m.markets[i] = c
			return nil
		}
	}
	m.markets = append(m.markets, c)
	return nil
}

func (m *memCustomStore) Delete(address string) (bool, error) {
	for i := range m.markets {
		if m.markets[i].Address == address {
			m.markets = append(m.markets[:i], m.markets[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func setup(t *testing.T) (http.Handler, *memCustomStore, *markets.Cache, *events.Bus) {
	t.Helper()
	log := zerolog.Nop()
	store := &memCustomStore{}
	registry, err := markets.NewRegistry("", store, log)
	require.NoError(t, err)
	cache := markets.NewCache()
	bus := events.NewBus(log)

	router := chi.NewRouter()
	NewHandler(registry, store, cache, events.NewManager(bus, log), log).RegisterRoutes(router)
	return router, store, cache, bus
}

func TestHandleList_MarksCached(t *testing.T) {
	router, _, cache, _ := setup(t)
	cache.Insert("8BnEgHoWFysVcuFFX7QztDmzuH8r5ZFvyP3sYwn1XTh6", &markets.Market{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/markets/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var views []map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.Equal(t, "8BnEgHoWFysVcuFFX7QztDmzuH8r5ZFvyP3sYwn1XTh6", views[0]["address"])
	assert.Equal(t, true, views[0]["cached"])
}

func TestHandleAddAndDeleteCustom(t *testing.T) {
	router, store, _, bus := setup(t)

	var actions []string
	bus.Subscribe(events.CustomMarketsChanged, func(e *events.Event) {
		actions = append(actions, e.Data["action"].(string))
	})

	address := solana.NewWallet().PublicKey().String()
	program := solana.NewWallet().PublicKey().String()
	body := `{"address":"` + address + `","programId":"` + program + `","name":"NEW/USDC"}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/markets/custom", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.markets, 1)
	assert.Equal(t, "NEW/USDC", store.markets[0].Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/markets/", nil))
	var views []map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
	require.Len(t, views, 2)
	assert.Equal(t, address, views[0]["address"], "custom markets come first")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/markets/custom/"+address, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, store.markets)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/markets/custom/"+address, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{"added", "removed"}, actions)
}

func TestHandleAddCustom_Validation(t *testing.T) {
	router, store, _, _ := setup(t)
	valid := solana.NewWallet().PublicKey().String()

	for _, body := range []string{
		`{`,
		`{"address":"nope","programId":"` + valid + `"}`,
		`{"address":"` + valid + `","programId":"nope"}`,
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/markets/custom", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, store.markets)
}
