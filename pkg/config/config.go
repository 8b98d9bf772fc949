package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration. It is built once at
// startup and treated as immutable afterwards; components receive it
// (or slices of it) by reference instead of reading ambient globals,
// so tests can inject fake credentials.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Kalshi
	KalshiBaseURL       string
	KalshiAPIKeyID      string
	KalshiPrivateKeyPEM string // PKCS#8 RSA private key, PEM encoded

	// Polymarket
	PolymarketCLOBURL    string
	PolymarketAPIKey     string
	PolymarketSecret     string
	PolymarketPassphrase string
	PolymarketPrivateKey string // hex-encoded ECDSA key, 0x prefix optional
	PolymarketProxy      string // proxy wallet address, empty until deployed
	PolymarketSigType    int    // 0=EOA, 1=proxy, 2=safe

	// Relay service
	RelayURL          string
	RelayPollInterval time.Duration
	RelayMaxAttempts  int
	RelayHTTPTimeout  time.Duration

	// Builder-attribution signing
	SigningMode       string // "local" or "remote"
	SigningServiceURL string // required when SigningMode is "remote"

	// Chain reads
	PolygonRPCURL string

	// Proxy status cache
	ProxyStatusTTL time.Duration

	// Balance circuit breaker
	CircuitBreakerEnabled         bool
	CircuitBreakerCheckInterval   time.Duration
	CircuitBreakerTradeMultiplier float64
	CircuitBreakerMinAbsolute     float64
	CircuitBreakerHysteresisRatio float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Kalshi
		KalshiBaseURL:       getEnvOrDefault("KALSHI_BASE_URL", "https://api.elections.kalshi.com"),
		KalshiAPIKeyID:      os.Getenv("KALSHI_API_KEY_ID"),
		KalshiPrivateKeyPEM: os.Getenv("KALSHI_PRIVATE_KEY_PEM"),

		// Polymarket
		PolymarketCLOBURL:    getEnvOrDefault("POLYMARKET_CLOB_URL", "https://clob.polymarket.com"),
		PolymarketAPIKey:     os.Getenv("POLYMARKET_API_KEY"),
		PolymarketSecret:     os.Getenv("POLYMARKET_SECRET"),
		PolymarketPassphrase: os.Getenv("POLYMARKET_PASSPHRASE"),
		PolymarketPrivateKey: os.Getenv("POLYMARKET_PRIVATE_KEY"),
		PolymarketProxy:      os.Getenv("POLYMARKET_PROXY_ADDRESS"),
		PolymarketSigType:    getIntOrDefault("POLYMARKET_SIGNATURE_TYPE", 1),

		// Relay
		RelayURL:          getEnvOrDefault("RELAY_URL", "https://relayer-v2.polymarket.com"),
		RelayPollInterval: getDurationOrDefault("RELAY_POLL_INTERVAL", 2*time.Second),
		RelayMaxAttempts:  getIntOrDefault("RELAY_MAX_ATTEMPTS", 30),
		RelayHTTPTimeout:  getDurationOrDefault("RELAY_HTTP_TIMEOUT", 15*time.Second),

		// Attribution signing
		SigningMode:       getEnvOrDefault("SIGNING_MODE", "local"),
		SigningServiceURL: os.Getenv("SIGNING_SERVICE_URL"),

		// Chain reads
		PolygonRPCURL: getEnvOrDefault("POLYGON_RPC_URL", "https://polygon-rpc.com"),

		// Proxy status cache
		ProxyStatusTTL: getDurationOrDefault("PROXY_STATUS_TTL", 30*time.Second),

		// Balance circuit breaker
		CircuitBreakerEnabled:         getBoolOrDefault("CIRCUIT_BREAKER_ENABLED", true),
		CircuitBreakerCheckInterval:   getDurationOrDefault("CIRCUIT_BREAKER_CHECK_INTERVAL", time.Minute),
		CircuitBreakerTradeMultiplier: getFloatOrDefault("CIRCUIT_BREAKER_TRADE_MULTIPLIER", 3.0),
		CircuitBreakerMinAbsolute:     getFloatOrDefault("CIRCUIT_BREAKER_MIN_ABSOLUTE", 10.0),
		CircuitBreakerHysteresisRatio: getFloatOrDefault("CIRCUIT_BREAKER_HYSTERESIS_RATIO", 1.5),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "tradegate"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "tradegate"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "tradegate"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid. Missing venue
// credentials are not an error here: the venue is simply unconfigured
// and its signer constructor reports that explicitly.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.RelayURL == "" {
		return fmt.Errorf("RELAY_URL cannot be empty")
	}

	if c.RelayPollInterval <= 0 {
		return fmt.Errorf("RELAY_POLL_INTERVAL must be positive, got %s", c.RelayPollInterval)
	}

	if c.RelayMaxAttempts <= 0 {
		return fmt.Errorf("RELAY_MAX_ATTEMPTS must be positive, got %d", c.RelayMaxAttempts)
	}

	if c.SigningMode != "local" && c.SigningMode != "remote" {
		return fmt.Errorf("SIGNING_MODE must be 'local' or 'remote', got %q", c.SigningMode)
	}

	if c.SigningMode == "remote" && c.SigningServiceURL == "" {
		return fmt.Errorf("SIGNING_SERVICE_URL required when SIGNING_MODE is 'remote'")
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

// KalshiConfigured reports whether Kalshi credentials are present.
func (c *Config) KalshiConfigured() bool {
	return c.KalshiAPIKeyID != "" && c.KalshiPrivateKeyPEM != ""
}

// PolymarketConfigured reports whether Polymarket credentials are present.
func (c *Config) PolymarketConfigured() bool {
	return c.PolymarketPrivateKey != "" && c.PolymarketAPIKey != "" &&
		c.PolymarketSecret != "" && c.PolymarketPassphrase != ""
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
