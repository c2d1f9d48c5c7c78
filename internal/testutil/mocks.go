package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mselser95/onearb-wallet/internal/storage"
	"github.com/mselser95/onearb-wallet/pkg/provider"
)

// ProviderCall records one request made to a MockProvider.
type ProviderCall struct {
	Method string
	Params []any
}

// Gate holds a request until released.
type Gate struct {
	entered  chan struct{}
	release  chan struct{}
	enterOne sync.Once
	freeOne  sync.Once
}

// Entered is closed once a request reaches the gate.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release lets held requests continue.
func (g *Gate) Release() {
	g.freeOne.Do(func() { close(g.release) })
}

func (g *Gate) wait(ctx context.Context) error {
	g.enterOne.Do(func() { close(g.entered) })

	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newGate() *Gate {
	return &Gate{entered: make(chan struct{}), release: make(chan struct{})}
}

// MockProvider is a scripted wallet provider with optional event and unlock capabilities.
type MockProvider struct {
	mu       sync.Mutex
	results  map[string]json.RawMessage
	errs     map[string]error
	gates    map[string]*Gate
	calls    []ProviderCall
	handlers map[int]provider.Handlers
	nextID   int

	events    bool
	unlocked  *bool
	unlockErr error
}

// NewMockProvider creates a provider that supports events and answers null to every request.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		results:  make(map[string]json.RawMessage),
		errs:     make(map[string]error),
		gates:    make(map[string]*Gate),
		handlers: make(map[int]provider.Handlers),
		events:   true,
	}
}

// SetResult makes method return v (JSON-encoded).
func (m *MockProvider) SetResult(method string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal mock result: %v", err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[method] = raw
	delete(m.errs, method)
}

// SetError makes method fail with err.
func (m *MockProvider) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[method] = err
}

// SetRPCError makes method fail with a provider error code.
func (m *MockProvider) SetRPCError(method string, code int, message string) {
	m.SetError(method, &provider.RPCError{Code: code, Message: message})
}

// Block holds calls to method until the returned gate is released.
func (m *MockProvider) Block(method string) *Gate {
	g := newGate()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gates[method] = g
	return g
}

// WithoutEvents removes the event capability.
func (m *MockProvider) WithoutEvents() *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = false
	return m
}

// SetUnlocked enables the unlock capability with the given answer.
func (m *MockProvider) SetUnlocked(unlocked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlocked = &unlocked
	m.unlockErr = nil
}

// SetUnlockError enables the unlock capability and makes it fail.
func (m *MockProvider) SetUnlockError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := false
	m.unlocked = &f
	m.unlockErr = err
}

func (m *MockProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ProviderCall{Method: method, Params: params})
	gate := m.gates[method]
	m.mu.Unlock()

	if gate != nil {
		err := gate.wait(ctx)
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.errs[method]; ok {
		return nil, err
	}
	if raw, ok := m.results[method]; ok {
		return raw, nil
	}
	return json.RawMessage("null"), nil
}

// Capabilities reports the configured optional surface.
func (m *MockProvider) Capabilities() provider.Capabilities {
	m.mu.Lock()
	defer m.mu.Unlock()

	var caps provider.Capabilities
	if m.events {
		caps.Subscribe = m.subscribe
	}
	if m.unlocked != nil {
		caps.IsUnlocked = m.isUnlocked
	}
	return caps
}

func (m *MockProvider) subscribe(h provider.Handlers) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = h
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	}, nil
}

func (m *MockProvider) isUnlocked(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unlockErr != nil {
		return false, m.unlockErr
	}
	return *m.unlocked, nil
}

// Calls returns the requests made for method, or all requests when method is empty.
func (m *MockProvider) Calls(method string) []ProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ProviderCall
	for _, c := range m.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// SubscriberCount returns the number of live subscriptions.
func (m *MockProvider) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

func (m *MockProvider) snapshot() []provider.Handlers {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]provider.Handlers, 0, len(m.handlers))
	for _, h := range m.handlers {
		out = append(out, h)
	}
	return out
}

// EmitAccountsChanged delivers an accountsChanged event synchronously.
func (m *MockProvider) EmitAccountsChanged(accounts []string) {
	for _, h := range m.snapshot() {
		if h.AccountsChanged != nil {
			h.AccountsChanged(accounts)
		}
	}
}

// EmitChainChanged delivers a chainChanged event synchronously.
func (m *MockProvider) EmitChainChanged(chainID string) {
	for _, h := range m.snapshot() {
		if h.ChainChanged != nil {
			h.ChainChanged(chainID)
		}
	}
}

// EmitDisconnect delivers a disconnect event synchronously.
func (m *MockProvider) EmitDisconnect() {
	for _, h := range m.snapshot() {
		if h.Disconnect != nil {
			h.Disconnect(&provider.RPCError{Code: provider.CodeDisconnected, Message: "disconnected"})
		}
	}
}

// MockBridge is a scripted remote bridge.
type MockBridge struct {
	mu           sync.Mutex
	Accounts     []string
	ConnectErr   error
	TerminateErr error
	provider     provider.Provider
	gate         *Gate

	// OnTerminate runs inside Terminate, outside the mock's lock.
	OnTerminate func()

	ConnectCalls   int
	TerminateCalls int
	CloseCalls     int
}

// NewMockBridge returns a bridge handing out p.
func NewMockBridge(p provider.Provider) *MockBridge {
	return &MockBridge{provider: p}
}

// BlockConnect holds Connect until the gate is released.
func (b *MockBridge) BlockConnect() *Gate {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = newGate()
	return b.gate
}

func (b *MockBridge) Connect(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	b.ConnectCalls++
	gate := b.gate
	b.mu.Unlock()

	if gate != nil {
		err := gate.wait(ctx)
		if err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ConnectErr != nil {
		return nil, b.ConnectErr
	}
	return b.Accounts, nil
}

func (b *MockBridge) Provider() provider.Provider {
	if b.provider == nil {
		return nil
	}
	return b.provider
}

func (b *MockBridge) Terminate(context.Context) error {
	b.mu.Lock()
	b.TerminateCalls++
	hook, err := b.OnTerminate, b.TerminateErr
	b.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (b *MockBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCalls++
	return nil
}

// Counts returns connect, terminate and close call counts.
func (b *MockBridge) Counts() (connects, terminates, closes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ConnectCalls, b.TerminateCalls, b.CloseCalls
}

// MockSessionStore is an in-memory SessionStore recording its calls.
type MockSessionStore struct {
	mu      sync.Mutex
	session *storage.Session
	LoadErr error
	Saves   []storage.Session
	Clears  int
}

// NewMockSessionStore returns a store holding s, or an empty one when s is nil.
func NewMockSessionStore(s *storage.Session) *MockSessionStore {
	return &MockSessionStore{session: s}
}

func (m *MockSessionStore) Load(context.Context) (*storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *MockSessionStore) Save(_ context.Context, s storage.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
	m.Saves = append(m.Saves, s)
	return nil
}

func (m *MockSessionStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	m.Clears++
	return nil
}

func (m *MockSessionStore) Close() error {
	return nil
}

// Current returns the stored session, or nil.
func (m *MockSessionStore) Current() *storage.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// SaveCount returns how many times Save was called.
func (m *MockSessionStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Saves)
}

// MockClipboard records writes.
type MockClipboard struct {
	mu    sync.Mutex
	Err   error
	texts []string
}

func (m *MockClipboard) WriteText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.texts = append(m.texts, text)
	return nil
}

// Texts returns everything written so far.
func (m *MockClipboard) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
