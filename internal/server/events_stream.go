package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/autosettle/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamBuffer      = 100
	heartbeatInterval = 30 * time.Second
	wsWriteWait       = 10 * time.Second
)

// EventsStreamHandler streams bus events to clients over SSE or websocket.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// streamMessage is the wire shape of a streamed event
type streamMessage struct {
	Type      string                 `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// subscribe registers a buffered channel for the requested event types.
// The returned function removes every subscription.
func (h *EventsStreamHandler) subscribe(r *http.Request) (<-chan *events.Event, func()) {
	types := events.AllEventTypes
	if filter := r.URL.Query().Get("types"); filter != "" {
		types = nil
		for _, t := range strings.Split(filter, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, events.EventType(t))
			}
		}
	}

	eventChan := make(chan *events.Event, streamBuffer)
	handler := func(event *events.Event) {
		// Non-blocking send (drop if channel full)
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	ids := make([]events.SubscriptionID, 0, len(types))
	for _, t := range types {
		ids = append(ids, h.eventBus.Subscribe(t, handler))
	}

	return eventChan, func() {
		for _, id := range ids {
			h.eventBus.Unsubscribe(id)
		}
	}
}

func toMessage(event *events.Event) streamMessage {
	return streamMessage{
		Type:      string(event.Type),
		Module:    event.Module,
		Timestamp: event.Timestamp.Format(time.RFC3339),
		Data:      event.Data,
	}
}

func heartbeat() streamMessage {
	return streamMessage{Type: "heartbeat", Timestamp: time.Now().Format(time.RFC3339)}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan, unsubscribe := h.subscribe(r)
	defer unsubscribe()

	h.log.Info().Str("types_filter", r.URL.Query().Get("types")).Msg("Client connected to event stream")

	h.writeSSE(w, streamMessage{Type: "connected", Message: "Connected to event stream"})
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return
		case event := <-eventChan:
			h.writeSSE(w, toMessage(event))
			flusher.Flush()
		case <-ticker.C:
			h.writeSSE(w, heartbeat())
			flusher.Flush()
		}
	}
}

func (h *EventsStreamHandler) writeSSE(w http.ResponseWriter, msg streamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		data = []byte(`{"error":"failed to encode event"}`)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// ServeWebSocket handles GET /api/events/ws requests.
// The client only receives; anything it sends is discarded.
func (h *EventsStreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is open on the whole API
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	eventChan, unsubscribe := h.subscribe(r)
	defer unsubscribe()

	// CloseRead drains client frames and cancels ctx once the client goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Msg("Client connected to websocket event stream")

	if err := h.writeWS(ctx, conn, streamMessage{Type: "connected", Message: "Connected to event stream"}); err != nil {
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		var msg streamMessage
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from websocket event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-eventChan:
			msg = toMessage(event)
		case <-ticker.C:
			msg = heartbeat()
		}

		if err := h.writeWS(ctx, conn, msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				h.log.Warn().Err(err).Msg("WebSocket write failed")
			}
			return
		}
	}
}

func (h *EventsStreamHandler) writeWS(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteWait)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}
