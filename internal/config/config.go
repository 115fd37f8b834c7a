// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aristath/autosettle/internal/autosettle"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for config.db (always absolute)
	LogLevel  string
	Port      int
	DevMode   bool
	RPCURL    string
	RPCCommit string // processed, confirmed or finalized

	// Wallet
	KeypairPath string // Solana keygen JSON file; empty means no wallet adapter
	AutoApprove bool   // Adapter signs without per-transaction confirmation
	AutoConnect bool   // Connect the wallet session at startup

	// Background routines
	WarmInterval          time.Duration
	SettleInterval        time.Duration
	LoadDelay             time.Duration
	TokenAccountsInterval time.Duration
	DisabledOverride      bool // Kill switch for auto-settlement

	MarketsFile string // Optional JSON file replacing the built-in market list
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("AUTOSETTLE_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Port:      getEnvAsInt("GO_PORT", 8010),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		RPCURL:    getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		RPCCommit: getEnv("SOLANA_COMMITMENT", "confirmed"),

		KeypairPath: getEnv("WALLET_KEYPAIR_PATH", ""),
		AutoApprove: getEnvAsBool("WALLET_AUTO_APPROVE", true),
		AutoConnect: getEnvAsBool("WALLET_AUTO_CONNECT", true),

		WarmInterval:          getEnvAsDuration("AUTOSETTLE_WARM_INTERVAL", 60*time.Second),
		SettleInterval:        getEnvAsDuration("AUTOSETTLE_SETTLE_INTERVAL", 20*time.Second),
		LoadDelay:             getEnvAsDuration("AUTOSETTLE_LOAD_DELAY", 1*time.Second),
		TokenAccountsInterval: getEnvAsDuration("TOKEN_ACCOUNTS_INTERVAL", 30*time.Second),
		DisabledOverride:      getEnvAsBool("AUTO_SETTLE_DISABLED_OVERRIDE", autosettle.AutoSettleDisabledOverride),

		MarketsFile: getEnv("MARKETS_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that intervals are usable and the commitment level is known
func (c *Config) Validate() error {
	if c.WarmInterval <= 0 {
		return fmt.Errorf("AUTOSETTLE_WARM_INTERVAL must be positive, got %s", c.WarmInterval)
	}
	if c.SettleInterval <= 0 {
		return fmt.Errorf("AUTOSETTLE_SETTLE_INTERVAL must be positive, got %s", c.SettleInterval)
	}
	if c.TokenAccountsInterval <= 0 {
		return fmt.Errorf("TOKEN_ACCOUNTS_INTERVAL must be positive, got %s", c.TokenAccountsInterval)
	}
	if c.LoadDelay < 0 {
		return fmt.Errorf("AUTOSETTLE_LOAD_DELAY must not be negative, got %s", c.LoadDelay)
	}

	switch c.RPCCommit {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("unknown SOLANA_COMMITMENT %q", c.RPCCommit)
	}

	if c.RPCURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}

	return nil
}

// ConfigDBPath returns the location of config.db inside the data directory
func (c *Config) ConfigDBPath() string {
	return filepath.Join(c.DataDir, "config.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("20s", "1m") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
