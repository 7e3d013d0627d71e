package minter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"sbt-minter/internal/domain"
	"sbt-minter/internal/evm"
)

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ReasonGeneric},
		{"cancelled", fmt.Errorf("wait: %w", context.Canceled), ReasonCancelled},
		{"deadline", context.DeadlineExceeded, ReasonCancelled},
		{"user rejected", &evm.RPCError{Code: evm.CodeUserRejected, Message: "denied"}, ReasonRejected},
		{"not connected", domain.ErrWalletNotConnected, ReasonNotConnected},
		{"revert with reason", &evm.RevertError{Reason: "Soulbound()"}, "Transaction reverted: Soulbound()"},
		{"revert without reason", &evm.RevertError{}, ReasonGeneric},
		{"submission reason", &domain.SubmissionError{Reason: "custom"}, "custom"},
		{"unknown", errors.New("boom"), ReasonGeneric},
		{"empty batch", &domain.ValidationError{Err: domain.ErrEmptyBatch}, "Invalid input: no addresses to mint to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailureReason(tt.err))
		})
	}
}

func TestRejectionLabel(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLabel string
		wantOK    bool
	}{
		{"malformed", &domain.ValidationError{Err: domain.ErrMalformedAddress}, "malformed_address", true},
		{"empty batch", &domain.ValidationError{Err: domain.ErrEmptyBatch}, "empty_batch", true},
		{"not connected", domain.ErrWalletNotConnected, "wallet_not_connected", true},
		{"mismatch", &domain.NetworkMismatchError{Current: 1}, "network_mismatch", true},
		{"transport", fmt.Errorf("check network: %w", errors.New("connection refused")), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ok := rejectionLabel(tt.err)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
