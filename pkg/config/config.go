package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Session store backends.
const (
	SessionStoreFile     = "file"
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel       string
	HTTPPort       string
	RequestTimeout time.Duration

	// Injected wallet provider
	WalletProviderURL   string
	WalletEventsURL     string
	WalletTrustedClient string
	WalletUnlockMethod  string

	// Remote bridge
	WalletBridgeURL    string
	WalletBridgeEvents bool
	DappName           string
	DappURL            string

	// Networks
	NetworksFile string

	// Session store
	SessionStore string // "file", "memory" or "postgres"
	SessionDir   string
	SessionKey   string
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Presentation
	CopyHintDuration time.Duration

	// Connected account balance polling; zero disables it
	BalancePollInterval time.Duration

	// Connection notifications
	TelegramBotToken string
	TelegramChatID   string

	// Event stream websocket
	WSDialTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort:       getEnvOrDefault("HTTP_PORT", "8080"),
		RequestTimeout: getDurationOrDefault("WALLET_REQUEST_TIMEOUT", 2*time.Minute),

		WalletProviderURL:   os.Getenv("WALLET_PROVIDER_URL"),
		WalletEventsURL:     os.Getenv("WALLET_EVENTS_URL"),
		WalletTrustedClient: getEnvOrDefault("WALLET_TRUSTED_CLIENT", "MetaMask"),
		WalletUnlockMethod:  os.Getenv("WALLET_UNLOCK_METHOD"),

		WalletBridgeURL:    os.Getenv("WALLET_BRIDGE_URL"),
		WalletBridgeEvents: getBoolOrDefault("WALLET_BRIDGE_EVENTS", true),
		DappName:           getEnvOrDefault("WALLET_DAPP_NAME", "ØNE-ARB"),
		DappURL:            os.Getenv("WALLET_DAPP_URL"),

		NetworksFile: os.Getenv("NETWORKS_FILE"),

		SessionStore: getEnvOrDefault("SESSION_STORE", SessionStoreFile),
		SessionDir:   getEnvOrDefault("SESSION_DIR", ".onearb"),
		SessionKey:   getEnvOrDefault("SESSION_KEY", "wallet_session_v1"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "onearb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "onearb"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "onearb_wallet"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		CopyHintDuration: getDurationOrDefault("COPY_HINT_DURATION", 1600*time.Millisecond),

		BalancePollInterval: getDurationOrDefault("BALANCE_POLL_INTERVAL", time.Minute),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 15*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	switch c.SessionStore {
	case SessionStoreFile:
		if c.SessionDir == "" {
			return fmt.Errorf("SESSION_DIR cannot be empty when SESSION_STORE is %q", SessionStoreFile)
		}
	case SessionStoreMemory, SessionStorePostgres:
	default:
		return fmt.Errorf("SESSION_STORE must be 'file', 'memory' or 'postgres', got %q", c.SessionStore)
	}

	if c.SessionKey == "" {
		return fmt.Errorf("SESSION_KEY cannot be empty")
	}

	if c.WalletEventsURL != "" && c.WalletProviderURL == "" {
		return fmt.Errorf("WALLET_EVENTS_URL requires WALLET_PROVIDER_URL")
	}

	if c.CopyHintDuration <= 0 {
		return fmt.Errorf("COPY_HINT_DURATION must be positive, got %v", c.CopyHintDuration)
	}

	if c.BalancePollInterval < 0 {
		return fmt.Errorf("BALANCE_POLL_INTERVAL cannot be negative, got %v", c.BalancePollInterval)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("WALLET_REQUEST_TIMEOUT must be positive, got %v", c.RequestTimeout)
	}

	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	if c.WSReconnectBackoffMult < 1.0 {
		return fmt.Errorf("WS_RECONNECT_BACKOFF_MULTIPLIER must be at least 1.0, got %f", c.WSReconnectBackoffMult)
	}

	if c.WSReconnectInitialDelay <= 0 {
		return fmt.Errorf("WS_RECONNECT_INITIAL_DELAY must be positive, got %v", c.WSReconnectInitialDelay)
	}

	if c.WSReconnectMaxDelay < c.WSReconnectInitialDelay {
		return fmt.Errorf("WS_RECONNECT_MAX_DELAY (%v) must be >= WS_RECONNECT_INITIAL_DELAY (%v)",
			c.WSReconnectMaxDelay, c.WSReconnectInitialDelay)
	}

	return nil
}

// HasInjectedProvider reports whether a host wallet endpoint is configured.
func (c *Config) HasInjectedProvider() bool {
	return c.WalletProviderURL != ""
}

// HasBridge reports whether a remote bridge relay is configured.
func (c *Config) HasBridge() bool {
	return c.WalletBridgeURL != ""
}

// NotificationsEnabled reports whether connection notifications should be sent.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
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

func getFloat64OrDefault(key string, defaultValue float64) float64 {
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
