package domain

import (
	"errors"
	"fmt"
)

// Validation failures. They are detected locally and never reach the wallet.
var (
	// ErrMalformedAddress is returned when text is not a 0x-prefixed 40 hex digit address.
	ErrMalformedAddress = errors.New("malformed address")

	// ErrZeroAddress is returned for the reserved all-zero address.
	ErrZeroAddress = errors.New("zero address")

	// ErrEmptyBatch is returned when batch text yields no addresses.
	ErrEmptyBatch = errors.New("empty batch")
)

// Submission gate failures.
var (
	// ErrWalletNotConnected is returned when the wallet exposes no account.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrMintInProgress is returned when a submission is already pending.
	ErrMintInProgress = errors.New("mint already in progress")
)

// ValidationError reports a rejected mint target.
type ValidationError struct {
	Err      error  // ErrMalformedAddress | ErrZeroAddress | ErrEmptyBatch
	Input    string // offending text, empty for ErrEmptyBatch
	Position int    // 1-based batch position, 0 outside batches
}

func (e *ValidationError) Error() string {
	var msg string
	switch {
	case errors.Is(e.Err, ErrEmptyBatch):
		msg = "no addresses to mint to"
	case errors.Is(e.Err, ErrZeroAddress):
		msg = "cannot mint to the zero address"
	default:
		msg = fmt.Sprintf("invalid address %q: expected 0x followed by 40 hex digits", e.Input)
	}
	if e.Position > 0 {
		return fmt.Sprintf("entry %d: %s", e.Position, msg)
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NetworkMismatchError blocks submission while the wallet is on another chain.
type NetworkMismatchError struct {
	Current uint64
	Target  Network
}

func (e *NetworkMismatchError) Error() string {
	return fmt.Sprintf("wallet is on chain %d, switch to %s (chain %d)", e.Current, e.Target.Name, e.Target.ChainID)
}

// NetworkSwitchError is returned when the wallet refuses or cannot switch networks.
type NetworkSwitchError struct {
	Target Network
	Err    error
}

func (e *NetworkSwitchError) Error() string {
	return fmt.Sprintf("could not switch network automatically, please switch your wallet to %s (chain %d) manually",
		e.Target.Name, e.Target.ChainID)
}

func (e *NetworkSwitchError) Unwrap() error {
	return e.Err
}

// SubmissionError reports a transport or contract rejection.
// Reason is the human-readable text surfaced in the Failed phase.
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	return e.Reason
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
