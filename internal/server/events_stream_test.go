package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/autosettle/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func readSSE(t *testing.T, r *bufio.Reader) streamMessage {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg streamMessage
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
		return msg
	}
}

func TestEventsStream_SSE(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	h := NewEventsStreamHandler(bus, zerolog.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?types=SETTLEMENT_FAILED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, "connected", readSSE(t, reader).Type)

	// Filtered out
	bus.Emit(events.CacheWarmCompleted, "autosettle", map[string]interface{}{"loaded": 1})
	bus.Emit(events.SettlementFailed, "autosettle", map[string]interface{}{"error": "boom"})

	msg := readSSE(t, reader)
	assert.Equal(t, string(events.SettlementFailed), msg.Type)
	assert.Equal(t, "autosettle", msg.Module)
	assert.Equal(t, "boom", msg.Data["error"])
}

func TestEventsStream_WebSocket(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	h := NewEventsStreamHandler(bus, zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWebSocket))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var msg streamMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "connected", msg.Type)

	bus.Emit(events.WalletStatusChanged, "wallet", map[string]interface{}{"connected": true})

	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, string(events.WalletStatusChanged), msg.Type)
	assert.Equal(t, true, msg.Data["connected"])
}

func TestEventsStream_UnsubscribesOnDisconnect(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	h := NewEventsStreamHandler(bus, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/events/stream?types=SETTINGS_CHANGED", nil)
	_, unsubscribe := h.subscribe(req)
	assert.Equal(t, 1, bus.SubscriberCount(events.SettingsChanged))

	unsubscribe()
	assert.Equal(t, 0, bus.SubscriberCount(events.SettingsChanged))
}
