package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the clearing gateway.
type Config struct {
	Port     int
	LogLevel string

	MatchInterval     time.Duration
	MatchIterationCap int
	ExpiryInterval    time.Duration

	SettlementTimeout time.Duration
	DisputeWindow     time.Duration

	WebhookTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AuthMaxSkew     time.Duration

	// GenesisPath points at a TOML genesis file. Empty means an unowned
	// ledger with a single USDC asset.
	GenesisPath string
	// IndexDSN selects the Postgres intent index. Empty keeps the index
	// in memory.
	IndexDSN string
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	matchInterval, err := getDuration("MATCH_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid MATCH_INTERVAL: %w", err)
	}
	if matchInterval <= 0 {
		return nil, fmt.Errorf("invalid MATCH_INTERVAL: must be positive")
	}

	iterationCap, err := getInt("MATCH_ITERATION_CAP", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid MATCH_ITERATION_CAP: %w", err)
	}
	if iterationCap <= 0 {
		return nil, fmt.Errorf("invalid MATCH_ITERATION_CAP: must be positive")
	}

	expiryInterval, err := getDuration("EXPIRY_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid EXPIRY_INTERVAL: %w", err)
	}

	settlementTimeout, err := getDuration("SETTLEMENT_TIMEOUT", 1*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SETTLEMENT_TIMEOUT: %w", err)
	}
	if settlementTimeout < time.Second {
		return nil, fmt.Errorf("invalid SETTLEMENT_TIMEOUT: must be at least 1s")
	}

	disputeWindow, err := getDuration("DISPUTE_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPUTE_WINDOW: %w", err)
	}
	if disputeWindow < time.Second {
		return nil, fmt.Errorf("invalid DISPUTE_WINDOW: must be at least 1s")
	}

	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	authMaxSkew, err := getDuration("AUTH_MAX_SKEW", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_MAX_SKEW: %w", err)
	}

	return &Config{
		Port:              port,
		LogLevel:          logLevel,
		MatchInterval:     matchInterval,
		MatchIterationCap: iterationCap,
		ExpiryInterval:    expiryInterval,
		SettlementTimeout: settlementTimeout,
		DisputeWindow:     disputeWindow,
		WebhookTimeout:    webhookTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ShutdownTimeout:   shutdownTimeout,
		AuthMaxSkew:       authMaxSkew,
		GenesisPath:       os.Getenv("GENESIS_PATH"),
		IndexDSN:          os.Getenv("INDEX_DSN"),
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
