package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		HTTPPort:                "8080",
		RequestTimeout:          time.Minute,
		SessionStore:            SessionStoreFile,
		SessionDir:              ".onearb",
		SessionKey:              "wallet_session_v1",
		CopyHintDuration:        1600 * time.Millisecond,
		WSReconnectInitialDelay: time.Second,
		WSReconnectMaxDelay:     30 * time.Second,
		WSReconnectBackoffMult:  2.0,
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "MetaMask", cfg.WalletTrustedClient)
	assert.Equal(t, "ØNE-ARB", cfg.DappName)
	assert.Equal(t, SessionStoreFile, cfg.SessionStore)
	assert.Equal(t, "wallet_session_v1", cfg.SessionKey)
	assert.Equal(t, 1600*time.Millisecond, cfg.CopyHintDuration)
	assert.Equal(t, time.Minute, cfg.BalancePollInterval)
	assert.True(t, cfg.WalletBridgeEvents)
	assert.False(t, cfg.HasInjectedProvider())
	assert.False(t, cfg.HasBridge())
	assert.False(t, cfg.NotificationsEnabled())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("WALLET_PROVIDER_URL", "http://127.0.0.1:8545")
	t.Setenv("WALLET_EVENTS_URL", "ws://127.0.0.1:8546/events")
	t.Setenv("WALLET_BRIDGE_URL", "https://relay.example")
	t.Setenv("WALLET_BRIDGE_EVENTS", "false")
	t.Setenv("SESSION_STORE", "postgres")
	t.Setenv("COPY_HINT_DURATION", "2s")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("WS_RECONNECT_BACKOFF_MULTIPLIER", "1.5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.HasInjectedProvider())
	assert.True(t, cfg.HasBridge())
	assert.False(t, cfg.WalletBridgeEvents)
	assert.Equal(t, SessionStorePostgres, cfg.SessionStore)
	assert.Equal(t, 2*time.Second, cfg.CopyHintDuration)
	assert.True(t, cfg.NotificationsEnabled())
	assert.InDelta(t, 1.5, cfg.WSReconnectBackoffMult, 1e-9)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv("SESSION_STORE", "redis")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_STORE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid_config", mutate: func(*Config) {}},
		{name: "memory_store", mutate: func(c *Config) { c.SessionStore = SessionStoreMemory; c.SessionDir = "" }},
		{
			name:    "empty_port",
			mutate:  func(c *Config) { c.HTTPPort = "" },
			wantErr: "HTTP_PORT cannot be empty",
		},
		{
			name:    "unknown_store",
			mutate:  func(c *Config) { c.SessionStore = "console" },
			wantErr: `SESSION_STORE must be 'file', 'memory' or 'postgres', got "console"`,
		},
		{
			name:    "file_store_without_dir",
			mutate:  func(c *Config) { c.SessionDir = "" },
			wantErr: `SESSION_DIR cannot be empty when SESSION_STORE is "file"`,
		},
		{
			name:    "empty_session_key",
			mutate:  func(c *Config) { c.SessionKey = "" },
			wantErr: "SESSION_KEY cannot be empty",
		},
		{
			name:    "events_without_provider",
			mutate:  func(c *Config) { c.WalletEventsURL = "ws://localhost/events" },
			wantErr: "WALLET_EVENTS_URL requires WALLET_PROVIDER_URL",
		},
		{
			name:    "zero_copy_hint",
			mutate:  func(c *Config) { c.CopyHintDuration = 0 },
			wantErr: "COPY_HINT_DURATION must be positive, got 0s",
		},
		{name: "balance_polling_disabled", mutate: func(c *Config) { c.BalancePollInterval = 0 }},
		{
			name:    "negative_balance_interval",
			mutate:  func(c *Config) { c.BalancePollInterval = -time.Second },
			wantErr: "BALANCE_POLL_INTERVAL cannot be negative, got -1s",
		},
		{
			name:    "zero_request_timeout",
			mutate:  func(c *Config) { c.RequestTimeout = 0 },
			wantErr: "WALLET_REQUEST_TIMEOUT must be positive, got 0s",
		},
		{
			name:    "telegram_token_only",
			mutate:  func(c *Config) { c.TelegramBotToken = "token" },
			wantErr: "TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together",
		},
		{
			name:    "backoff_below_one",
			mutate:  func(c *Config) { c.WSReconnectBackoffMult = 0.5 },
			wantErr: "WS_RECONNECT_BACKOFF_MULTIPLIER must be at least 1.0, got 0.500000",
		},
		{
			name:    "zero_reconnect_initial_delay",
			mutate:  func(c *Config) { c.WSReconnectInitialDelay = 0 },
			wantErr: "WS_RECONNECT_INITIAL_DELAY must be positive, got 0s",
		},
		{
			name:    "max_delay_below_initial",
			mutate:  func(c *Config) { c.WSReconnectMaxDelay = 100 * time.Millisecond },
			wantErr: "WS_RECONNECT_MAX_DELAY (100ms) must be >= WS_RECONNECT_INITIAL_DELAY (1s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_BOOL", "nope")
	assert.True(t, getBoolOrDefault("TEST_BOOL", true))
	t.Setenv("TEST_BOOL", "false")
	assert.False(t, getBoolOrDefault("TEST_BOOL", true))

	t.Setenv("TEST_FLOAT", "abc")
	assert.InDelta(t, 2.0, getFloat64OrDefault("TEST_FLOAT", 2.0), 1e-9)
	t.Setenv("TEST_FLOAT", "3.5")
	assert.InDelta(t, 3.5, getFloat64OrDefault("TEST_FLOAT", 2.0), 1e-9)

	t.Setenv("TEST_DURATION", "5")
	assert.Equal(t, time.Second, getDurationOrDefault("TEST_DURATION", time.Second))
	t.Setenv("TEST_DURATION", "250ms")
	assert.Equal(t, 250*time.Millisecond, getDurationOrDefault("TEST_DURATION", time.Second))

	assert.Equal(t, "fallback", getEnvOrDefault("TEST_UNSET_VALUE", "fallback"))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger("")
	assert.NoError(t, err)

	_, err = NewLogger("loud")
	assert.Error(t, err)
}
