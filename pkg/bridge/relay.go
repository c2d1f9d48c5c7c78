package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/onearb-wallet/pkg/provider"
	"go.uber.org/zap"
)

// Bridge is a remote wallet connection: the wallet app approves requests relayed to it.
type Bridge interface {
	// Connect asks the wallet app to approve a connection and returns the authorized accounts.
	Connect(ctx context.Context) ([]string, error)

	// Provider returns the request handle for the connected wallet, or nil if none is available yet.
	Provider() provider.Provider
}

// Terminator is implemented by bridges that can end the remote session.
type Terminator interface {
	Terminate(ctx context.Context) error
}

// DefaultHTTPTimeout bounds relay calls that do not wait on the user.
const DefaultHTTPTimeout = 30 * time.Second

// DappMetadata identifies the dashboard to the wallet app.
type DappMetadata struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Config holds RelayClient configuration.
type Config struct {
	BaseURL string
	Dapp    DappMetadata

	// EnableEvents opens the channel's event stream for accountsChanged/chainChanged/disconnect.
	EnableEvents bool

	// HTTPTimeout bounds relay calls other than Connect, which waits for the wallet app's
	// approval and is bounded only by the caller's context.
	HTTPTimeout time.Duration
	Events      provider.EventStreamConfig
	Logger      *zap.Logger
}

// RelayClient talks to an HTTP relay that forwards requests to a wallet app on another device.
// Each client owns one relay channel identified by a random UUID.
type RelayClient struct {
	baseURL    string
	channelID  string
	dapp       DappMetadata
	httpClient *http.Client
	timeout    time.Duration
	provider   *provider.RPCProvider
	logger     *zap.Logger
}

type connectRequest struct {
	Dapp DappMetadata `json:"dapp"`
}

type relayResponse struct {
	Accounts []string           `json:"accounts"`
	Error    *provider.RPCError `json:"error"`
}

// NewRelayClient opens a new relay channel.
func NewRelayClient(ctx context.Context, cfg *Config) (c *RelayClient, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("bridge URL cannot be empty")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	c = &RelayClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		channelID:  uuid.NewString(),
		dapp:       cfg.Dapp,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
	c.logger = cfg.Logger.With(zap.String("channel-id", c.channelID))

	var events *provider.EventStream
	if cfg.EnableEvents {
		events, err = c.openEvents(cfg.Events)
		if err != nil {
			c.logger.Warn("bridge-events-unavailable", zap.Error(err))
			events = nil
		}
	}

	c.provider, err = provider.NewRPCProvider(ctx, &provider.RPCConfig{
		URL:    c.channelURL("rpc"),
		Events: events,
		Logger: c.logger,
	})
	if err != nil {
		if events != nil {
			_ = events.Close()
		}
		return nil, fmt.Errorf("create bridge provider: %w", err)
	}

	c.logger.Info("bridge-channel-opened", zap.String("bridge-url", c.baseURL))
	return c, nil
}

func (c *RelayClient) openEvents(cfg provider.EventStreamConfig) (*provider.EventStream, error) {
	wsURL, err := toWebsocketURL(c.channelURL("events"))
	if err != nil {
		return nil, err
	}

	cfg.URL = wsURL
	cfg.Logger = c.logger

	events, err := provider.NewEventStream(cfg)
	if err != nil {
		return nil, fmt.Errorf("create event stream: %w", err)
	}

	err = events.Start()
	if err != nil {
		_ = events.Close()
		return nil, fmt.Errorf("start event stream: %w", err)
	}

	return events, nil
}

// ChannelID returns the relay channel of this client.
func (c *RelayClient) ChannelID() string {
	return c.channelID
}

// Connect posts a connection request and waits for the wallet app's answer.
func (c *RelayClient) Connect(ctx context.Context) ([]string, error) {
	body, err := json.Marshal(connectRequest{Dapp: c.dapp})
	if err != nil {
		return nil, fmt.Errorf("marshal connect request: %w", err)
	}

	// No client-side timeout: approval in the wallet app may take arbitrarily long.
	resp, err := c.post(ctx, "connect", body)
	if err != nil {
		return nil, err
	}

	c.logger.Info("bridge-connect-approved", zap.Int("account-count", len(resp.Accounts)))
	return resp.Accounts, nil
}

// Terminate ends the relay session.
func (c *RelayClient) Terminate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.post(ctx, "terminate", nil)
	if err != nil {
		return err
	}

	c.logger.Info("bridge-session-terminated")
	return nil
}

// Provider returns the JSON-RPC handle that forwards requests through the channel.
func (c *RelayClient) Provider() provider.Provider {
	if c.provider == nil {
		return nil
	}
	return c.provider
}

// Close releases the channel's provider and event stream.
func (c *RelayClient) Close() error {
	if c.provider == nil {
		return nil
	}
	return c.provider.Close()
}

func (c *RelayClient) post(ctx context.Context, op string, body []byte) (resp *relayResponse, err error) {
	start := time.Now()
	defer func() {
		RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
		}
		RequestsTotal.WithLabelValues(op, result).Inc()
	}()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.channelURL(op), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("bridge-request", zap.String("op", op))

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	resp = &relayResponse{}
	if len(bytes.TrimSpace(raw)) > 0 {
		err = json.Unmarshal(raw, resp)
		if err != nil && httpResp.StatusCode < 300 {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	if httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code %d: %s", httpResp.StatusCode, string(raw))
	}

	return resp, nil
}

func (c *RelayClient) channelURL(op string) string {
	return fmt.Sprintf("%s/v1/channels/%s/%s", c.baseURL, c.channelID, op)
}

func toWebsocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	return u.String(), nil
}
