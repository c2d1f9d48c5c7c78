package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method string
	params []any
}

// scriptedProvider answers requests from a method -> response table.
type scriptedProvider struct {
	results map[string]string
	errs    map[string]error
	calls   []recordedCall
}

func (p *scriptedProvider) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	p.calls = append(p.calls, recordedCall{method: method, params: params})
	if err, ok := p.errs[method]; ok {
		return nil, err
	}
	if res, ok := p.results[method]; ok {
		return json.RawMessage(res), nil
	}
	return json.RawMessage("null"), nil
}

type eventProvider struct {
	scriptedProvider
}

func (p *eventProvider) Subscribe(h Handlers) (func(), error) { return func() {}, nil }

func (p *eventProvider) IsUnlocked(context.Context) (bool, error) { return true, nil }

func TestProbe(t *testing.T) {
	t.Run("nil-provider", func(t *testing.T) {
		caps := Probe(nil)
		assert.Nil(t, caps.Subscribe)
		assert.Nil(t, caps.IsUnlocked)
	})

	t.Run("request-only", func(t *testing.T) {
		caps := Probe(&scriptedProvider{})
		assert.Nil(t, caps.Subscribe)
		assert.Nil(t, caps.IsUnlocked)
	})

	t.Run("optional-interfaces", func(t *testing.T) {
		caps := Probe(&eventProvider{})
		assert.NotNil(t, caps.Subscribe)
		assert.NotNil(t, caps.IsUnlocked)
	})
}

func TestTypedRequests(t *testing.T) {
	ctx := context.Background()
	p := &scriptedProvider{
		results: map[string]string{
			MethodChainID:         `"0xaa36a7"`,
			MethodAccounts:        `["0xAbC0000000000000000000000000000000000123"]`,
			MethodRequestAccounts: `[]`,
		},
	}

	chainID, err := ChainID(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "0xaa36a7", chainID)

	accounts, err := Accounts(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xAbC0000000000000000000000000000000000123"}, accounts)

	accounts, err = RequestAccounts(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	require.NoError(t, SwitchChain(ctx, p, "0x1"))
	last := p.calls[len(p.calls)-1]
	assert.Equal(t, MethodSwitchChain, last.method)
	require.Len(t, last.params, 1)
	assert.Equal(t, switchChainParams{ChainID: "0x1"}, last.params[0])
}

func TestTypedRequests_Errors(t *testing.T) {
	ctx := context.Background()
	rejected := &RPCError{Code: CodeUserRejected, Message: "User rejected the request."}
	p := &scriptedProvider{
		results: map[string]string{MethodChainID: `42`},
		errs:    map[string]error{MethodRequestAccounts: rejected},
	}

	_, err := ChainID(ctx, p)
	assert.Error(t, err, "non-string chain id must fail to decode")

	_, err = RequestAccounts(ctx, p)
	assert.True(t, HasCode(err, CodeUserRejected))

	accounts, err := Accounts(ctx, p)
	require.NoError(t, err)
	assert.Nil(t, accounts, "null result means no accounts")
}

func TestAsRPCError(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), &RPCError{Code: CodeRequestPending, Message: "pending"})

	providerErr, ok := AsRPCError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeRequestPending, providerErr.Code)

	_, ok = AsRPCError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = AsRPCError(nil)
	assert.False(t, ok)

	assert.False(t, HasCode(errors.New("plain"), CodeUserRejected))
	assert.Contains(t, providerErr.Error(), "-32002")
}
