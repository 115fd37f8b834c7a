package settings

// Setting keys persisted in config.db
const (
	KeyAutoSettleEnabled = "autoSettleEnabled"
	KeyPriorityFee       = "priorityFee"
	KeyComputeUnits      = "computeUnits"
)

// Defaults used when a key has never been written
const (
	DefaultAutoSettleEnabled = true
	// DefaultPriorityFee is the compute unit price in micro-lamports
	DefaultPriorityFee  uint64 = 1000
	DefaultComputeUnits uint32 = 200_000
)

// SettingDefaults holds the default value for every known setting
var SettingDefaults = map[string]interface{}{
	KeyAutoSettleEnabled: DefaultAutoSettleEnabled,
	KeyPriorityFee:       DefaultPriorityFee,
	KeyComputeUnits:      DefaultComputeUnits,
}

// SettingDescriptions documents each setting in the settings listing
var SettingDescriptions = map[string]string{
	KeyAutoSettleEnabled: "Settle free open-orders balances for the connected wallet automatically",
	KeyPriorityFee:       "Compute unit price in micro-lamports attached to settlement transactions",
	KeyComputeUnits:      "Compute unit limit requested for each settlement transaction",
}

// SettingUpdate is the request body for PUT /api/preferences/{key}
type SettingUpdate struct {
	Value interface{} `json:"value"`
}

// PreferencesResponse is returned by GET /api/preferences
type PreferencesResponse struct {
	AutoSettleEnabled bool `json:"autoSettleEnabled"`
}

// SettingInfo describes one known setting in GET /api/settings
type SettingInfo struct {
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
	Stored      bool        `json:"stored"`
}
