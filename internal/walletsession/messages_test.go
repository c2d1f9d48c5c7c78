package walletsession

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mselser95/onearb-wallet/pkg/provider"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     string
		wantKind string
	}{
		{name: "nil", err: nil, want: ""},
		{
			name:     "user-rejected",
			err:      &provider.RPCError{Code: provider.CodeUserRejected, Message: "User rejected"},
			want:     MsgUserRejected,
			wantKind: "user_rejected",
		},
		{
			name:     "pending-wrapped",
			err:      fmt.Errorf("bridge connect: %w", &provider.RPCError{Code: provider.CodeRequestPending}),
			want:     MsgRequestPending,
			wantKind: "request_pending",
		},
		{
			name:     "unrecognized-chain",
			err:      &provider.RPCError{Code: provider.CodeUnrecognizedChain},
			want:     MsgUnrecognizedChain,
			wantKind: "unrecognized_chain",
		},
		{
			name:     "provider-message",
			err:      &provider.RPCError{Code: 4100, Message: "The requested account has not been authorized"},
			want:     "The requested account has not been authorized",
			wantKind: "provider",
		},
		{
			name:     "transport",
			err:      errors.New("dial tcp: connection refused"),
			want:     MsgGeneric,
			wantKind: "transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage(tt.err))
			if tt.err != nil {
				assert.Equal(t, tt.wantKind, errorKind(tt.err))
			}
		})
	}
}
