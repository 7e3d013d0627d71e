package minter

import (
	"context"
	"errors"
	"fmt"

	"sbt-minter/internal/domain"
	"sbt-minter/internal/evm"
)

// Reasons surfaced in the Failed phase when nothing more specific is known.
const (
	ReasonGeneric      = "Transaction failed. Please try again."
	ReasonRejected     = "Transaction rejected in wallet."
	ReasonCancelled    = "Submission cancelled."
	ReasonNotConnected = "Wallet not connected. Connect a wallet and try again."
)

// FailureReason maps any submission error to the human-readable reason recorded
// in the live status. It never returns an empty string.
func FailureReason(err error) string {
	if err == nil {
		return ReasonGeneric
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ReasonCancelled
	}
	if errors.Is(err, evm.ErrUserRejected) {
		return ReasonRejected
	}
	if errors.Is(err, domain.ErrWalletNotConnected) {
		return ReasonNotConnected
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return "Invalid input: " + verr.Error()
	}

	var nerr *domain.NetworkMismatchError
	if errors.As(err, &nerr) {
		return fmt.Sprintf("Wrong network: %s.", nerr.Error())
	}

	var rerr *evm.RevertError
	if errors.As(err, &rerr) && rerr.Reason != "" {
		return "Transaction reverted: " + rerr.Reason
	}

	var serr *domain.SubmissionError
	if errors.As(err, &serr) && serr.Reason != "" {
		return serr.Reason
	}

	return ReasonGeneric
}

// rejectionLabel names a pre-submission rejection for metrics. It reports false
// for wallet or transport errors, which are not rejections of the intent.
func rejectionLabel(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrEmptyBatch):
		return "empty_batch", true
	case errors.Is(err, domain.ErrZeroAddress):
		return "zero_address", true
	case errors.Is(err, domain.ErrMalformedAddress):
		return "malformed_address", true
	case errors.Is(err, domain.ErrWalletNotConnected):
		return "wallet_not_connected", true
	}

	var nerr *domain.NetworkMismatchError
	if errors.As(err, &nerr) {
		return "network_mismatch", true
	}
	return "", false
}
