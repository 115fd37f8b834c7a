// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	ErrorOccurred        EventType = "ERROR_OCCURRED"
	SettingsChanged      EventType = "SETTINGS_CHANGED"
	WalletStatusChanged  EventType = "WALLET_STATUS_CHANGED"
	CustomMarketsChanged EventType = "CUSTOM_MARKETS_CHANGED"
	RPCStatusChanged     EventType = "RPC_STATUS_CHANGED"

	// Periodic auto-settle routines
	CacheWarmCompleted  EventType = "CACHE_WARM_COMPLETED"
	SettlementCompleted EventType = "SETTLEMENT_COMPLETED"
	SettlementFailed    EventType = "SETTLEMENT_FAILED"
)

// AllEventTypes lists every event type a stream client can subscribe to.
var AllEventTypes = []EventType{
	ErrorOccurred,
	SettingsChanged,
	WalletStatusChanged,
	CustomMarketsChanged,
	RPCStatusChanged,
	CacheWarmCompleted,
	SettlementCompleted,
	SettlementFailed,
}

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}
