package events

import "encoding/json"

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// SettingsChangedData contains data for SettingsChanged events
type SettingsChangedData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// EventType returns the event type for SettingsChangedData
func (d *SettingsChangedData) EventType() EventType {
	return SettingsChanged
}

// WalletStatusChangedData contains data for WalletStatusChanged events
type WalletStatusChangedData struct {
	Connected   bool   `json:"connected"`
	PublicKey   string `json:"public_key,omitempty"`
	AutoApprove bool   `json:"auto_approve"`
}

// EventType returns the event type for WalletStatusChangedData
func (d *WalletStatusChangedData) EventType() EventType {
	return WalletStatusChanged
}

// CustomMarketsChangedData contains data for CustomMarketsChanged events
type CustomMarketsChangedData struct {
	Action  string `json:"action"` // "added" or "removed"
	Address string `json:"address"`
}

// EventType returns the event type for CustomMarketsChangedData
func (d *CustomMarketsChangedData) EventType() EventType {
	return CustomMarketsChanged
}

// RPCStatusChangedData is emitted when the RPC endpoint becomes healthy or unhealthy
type RPCStatusChangedData struct {
	Healthy  bool   `json:"healthy"`
	Endpoint string `json:"endpoint"`
	Error    string `json:"error,omitempty"`
}

// EventType returns the event type for RPCStatusChangedData
func (d *RPCStatusChangedData) EventType() EventType {
	return RPCStatusChanged
}

// CacheWarmCompletedData summarises one market cache warming pass
type CacheWarmCompletedData struct {
	RunID         string   `json:"run_id"`
	Loaded        int      `json:"loaded"`
	AlreadyCached int      `json:"already_cached"`
	Failed        int      `json:"failed"`
	FailedMarkets []string `json:"failed_markets,omitempty"`
	Aborted       bool     `json:"aborted"`
	DurationMs    int64    `json:"duration_ms"`
}

// EventType returns the event type for CacheWarmCompletedData
func (d *CacheWarmCompletedData) EventType() EventType {
	return CacheWarmCompleted
}

// SettlementCompletedData summarises one settlement pass
type SettlementCompletedData struct {
	RunID        string   `json:"run_id"`
	Markets      int      `json:"markets"`
	OpenOrders   int      `json:"open_orders"`
	Transactions int      `json:"transactions"`
	Signatures   []string `json:"signatures,omitempty"`
	DurationMs   int64    `json:"duration_ms"`
}

// EventType returns the event type for SettlementCompletedData
func (d *SettlementCompletedData) EventType() EventType {
	return SettlementCompleted
}

// SettlementFailedData describes a failed settlement pass
type SettlementFailedData struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// EventType returns the event type for SettlementFailedData
func (d *SettlementFailedData) EventType() EventType {
	return SettlementFailed
}

// GetTypedData converts the event's map payload to its typed form.
// Returns nil for unknown types or payloads that do not decode.
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	var data EventData
	switch e.Type {
	case ErrorOccurred:
		data = &ErrorEventData{}
	case SettingsChanged:
		data = &SettingsChangedData{}
	case WalletStatusChanged:
		data = &WalletStatusChangedData{}
	case CustomMarketsChanged:
		data = &CustomMarketsChangedData{}
	case RPCStatusChanged:
		data = &RPCStatusChangedData{}
	case CacheWarmCompleted:
		data = &CacheWarmCompletedData{}
	case SettlementCompleted:
		data = &SettlementCompletedData{}
	case SettlementFailed:
		data = &SettlementFailedData{}
	default:
		return nil
	}

	if err := convertMapToStruct(e.Data, data); err != nil {
		return nil
	}
	return data
}

// convertMapToStruct converts a map[string]interface{} to a struct
func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}
