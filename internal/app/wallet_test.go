package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mselser95/onearb-wallet/internal/storage"
	"github.com/mselser95/onearb-wallet/internal/testutil"
	"github.com/mselser95/onearb-wallet/internal/walletsession"
	"github.com/mselser95/onearb-wallet/pkg/config"
	"github.com/mselser95/onearb-wallet/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:                "debug",
		HTTPPort:                "0",
		RequestTimeout:          5 * time.Second,
		WalletTrustedClient:     "MetaMask",
		DappName:                "ØNE-ARB",
		SessionStore:            config.SessionStoreFile,
		SessionDir:              t.TempDir(),
		SessionKey:              storage.DefaultSessionKey,
		CopyHintDuration:        50 * time.Millisecond,
		WSDialTimeout:           time.Second,
		WSPingInterval:          time.Second,
		WSReconnectInitialDelay: 10 * time.Millisecond,
		WSReconnectMaxDelay:     100 * time.Millisecond,
		WSReconnectBackoffMult:  2.0,
	}
}

type versionedProvider struct {
	version string
	err     error
}

func (v versionedProvider) Request(context.Context, string, ...any) (json.RawMessage, error) {
	return nil, errors.New("not implemented")
}

func (v versionedProvider) ClientVersion(context.Context) (string, error) {
	return v.version, v.err
}

func TestNewWallet_Guards(t *testing.T) {
	_, err := NewWallet(context.Background(), nil, zap.NewNop())
	assert.EqualError(t, err, "config cannot be nil")

	_, err = NewWallet(context.Background(), testConfig(t), nil)
	assert.EqualError(t, err, "logger cannot be nil")
}

func TestTrustedClient(t *testing.T) {
	assert.Nil(t, trustedClient("", zap.NewNop()))

	trusted := trustedClient("MetaMask", zap.NewNop())
	require.NotNil(t, trusted)

	tests := []struct {
		name string
		p    provider.Provider
		want bool
	}{
		{name: "matching_client", p: versionedProvider{version: "MetaMask/v11.16.0"}, want: true},
		{name: "case_insensitive", p: versionedProvider{version: "metamask/v10"}, want: true},
		{name: "other_wallet", p: versionedProvider{version: "Rabby/0.92"}, want: false},
		{name: "version_error", p: versionedProvider{err: errors.New("boom")}, want: false},
		{name: "no_client_version", p: testutil.NewMockProvider(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trusted(context.Background(), tt.p))
		})
	}
}

func TestSetupStore(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		cfg := testConfig(t)
		store, err := setupStore(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		defer store.Close()

		require.IsType(t, &storage.FileStore{}, store)
		require.NoError(t, store.Save(ctx, storage.Session{Connected: true, Address: testutil.AddressA}))
		_, err = os.Stat(filepath.Join(cfg.SessionDir, storage.DefaultSessionKey+".json"))
		assert.NoError(t, err)
	})

	t.Run("memory", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.SessionStore = config.SessionStoreMemory
		store, err := setupStore(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		defer store.Close()

		require.IsType(t, &storage.MemoryStore{}, store)
		require.NoError(t, store.Save(ctx, storage.Session{Connected: true, Address: testutil.AddressB}))
		s, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, testutil.AddressB, s.Address)
	})
}

func TestSetupRegistry(t *testing.T) {
	cfg := testConfig(t)
	reg, err := setupRegistry(cfg)
	require.NoError(t, err)
	assert.Equal(t, "0x1", reg.Target())

	cfg.NetworksFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = setupRegistry(cfg)
	assert.Error(t, err)
}

func TestNewWallet_NoProvider(t *testing.T) {
	w, err := NewWallet(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	w.Controller.Discover(context.Background())

	state := w.Controller.State()
	assert.False(t, state.HasProvider)
	assert.Equal(t, walletsession.ProviderNone, state.ProviderKind)
	assert.True(t, w.EventsConnected())

	w.Controller.Connect(context.Background())
	assert.Equal(t, walletsession.MsgNotInstalled, w.Controller.State().ErrorMessage)
}

func TestNewWallet_InjectedProviderFlow(t *testing.T) {
	server := testutil.NewWalletServer(t)
	server.SetResult(provider.MethodRequestAccounts, []string{testutil.AddressA})

	cfg := testConfig(t)
	cfg.WalletProviderURL = server.URL

	w, err := NewWallet(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	ctx := context.Background()
	w.Controller.Discover(ctx)

	state := w.Controller.State()
	require.True(t, state.HasProvider)
	assert.Equal(t, walletsession.ProviderExtension, state.ProviderKind)
	assert.Equal(t, testutil.ChainMainnet, state.ChainID)
	assert.False(t, state.Connected())

	w.Controller.Connect(ctx)

	state = w.Controller.State()
	assert.Equal(t, testutil.AddressA, state.Address)
	assert.Empty(t, state.ErrorMessage)

	saved, err := w.Store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, storage.Session{Connected: true, Address: testutil.AddressA}, *saved)
	assert.Equal(t, 1, server.Calls(provider.MethodRequestAccounts))
}

func TestNewWallet_RestoresSavedSession(t *testing.T) {
	server := testutil.NewWalletServer(t)
	server.SetResult(provider.MethodAccounts, []string{testutil.AddressB})

	cfg := testConfig(t)
	cfg.WalletProviderURL = server.URL

	first, err := NewWallet(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Store.Save(context.Background(), storage.Session{Connected: true, Address: testutil.AddressB}))
	require.NoError(t, first.Close())

	w, err := NewWallet(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	w.Controller.Discover(context.Background())
	assert.Equal(t, testutil.AddressB, w.Controller.State().Address)
	assert.Equal(t, 0, server.Calls(provider.MethodRequestAccounts))
}

func TestNewWallet_UntrustedProvider(t *testing.T) {
	server := testutil.NewWalletServer(t)
	server.SetResult("web3_clientVersion", "Rabby/0.92")

	cfg := testConfig(t)
	cfg.WalletProviderURL = server.URL

	w, err := NewWallet(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	w.Controller.Discover(context.Background())
	assert.False(t, w.Controller.State().HasProvider)
}

func TestApp_ReadyAndWalletRoutes(t *testing.T) {
	cfg := testConfig(t)
	cfg.SessionStore = config.SessionStoreMemory

	a, err := New(cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	defer func() { _ = a.wallet.Close() }()

	a.wallet.Controller.Discover(context.Background())
	a.healthChecker.SetReady(true)

	w := httptest.NewRecorder()
	a.httpServer.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session-store":"ok"`)

	w = httptest.NewRecorder()
	a.httpServer.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/wallet", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hasProvider":false`)
}

func TestNewWallet_RemoteBridgeFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/channels/{id}/connect", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"accounts": []string{testutil.AddressA}})
	})
	mux.HandleFunc("POST /v1/channels/{id}/terminate", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	})
	mux.HandleFunc("POST /v1/channels/{id}/rpc", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case provider.MethodChainID:
			resp["result"] = testutil.ChainSepolia
		case provider.MethodAccounts:
			resp["result"] = []string{}
		default:
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	relay := httptest.NewServer(mux)
	defer relay.Close()

	cfg := testConfig(t)
	cfg.WalletBridgeURL = relay.URL
	cfg.WalletBridgeEvents = false

	w, err := NewWallet(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	ctx := context.Background()
	w.Controller.Discover(ctx)

	state := w.Controller.State()
	require.True(t, state.HasProvider)
	assert.Equal(t, walletsession.ProviderRemoteSDK, state.ProviderKind)

	w.Controller.Connect(ctx)

	state = w.Controller.State()
	assert.Equal(t, testutil.AddressA, state.Address)
	assert.Equal(t, testutil.ChainSepolia, state.ChainID)

	w.Controller.Disconnect(ctx)
	assert.False(t, w.Controller.State().Connected())
}
