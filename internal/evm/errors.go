package evm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EIP-1193 provider and JSON-RPC error codes the transport classifies.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeUnrecognizedChain = 4902
	CodeMethodNotFound    = -32601
	CodeExecutionReverted = 3
)

var (
	// ErrUserRejected is returned when the wallet user declines a request.
	ErrUserRejected = errors.New("request rejected by user")

	// ErrUnknownChain is returned when the wallet does not know the requested chain.
	ErrUnknownChain = errors.New("chain not added to wallet")

	// ErrMethodNotSupported is returned when the endpoint does not implement a method.
	ErrMethodNotSupported = errors.New("method not supported by endpoint")
)

// RPCError is a JSON-RPC 2.0 error object. Data often carries ABI-encoded revert data.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Is maps provider codes onto the package sentinels.
func (e *RPCError) Is(target error) bool {
	switch target {
	case ErrUserRejected:
		return e.Code == CodeUserRejected
	case ErrUnknownChain:
		return e.Code == CodeUnrecognizedChain
	case ErrMethodNotSupported:
		return e.Code == CodeMethodNotFound || e.Code == CodeUnsupportedMethod
	}
	return false
}

// RevertData extracts ABI-encoded revert data from the error, if any.
// Nodes return it either as a hex string or nested as {"data": "0x..."}.
func (e *RPCError) RevertData() []byte {
	if len(e.Data) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		if b, err := hexutil.Decode(s); err == nil {
			return b
		}
		return nil
	}

	var nested struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(e.Data, &nested); err == nil && nested.Data != "" {
		if b, err := hexutil.Decode(nested.Data); err == nil {
			return b
		}
	}
	return nil
}

// IsRevert reports whether the error describes reverted contract execution.
func (e *RPCError) IsRevert() bool {
	return e.Code == CodeExecutionReverted ||
		strings.HasPrefix(strings.TrimSpace(e.Message), "execution reverted") ||
		e.RevertData() != nil
}

// RevertMessage returns the node's textual revert message without the standard prefix.
func (e *RPCError) RevertMessage() string {
	msg := strings.TrimSpace(e.Message)
	if !strings.HasPrefix(msg, "execution reverted") {
		return ""
	}
	msg = strings.TrimPrefix(msg, "execution reverted")
	return strings.TrimSpace(strings.TrimPrefix(msg, ":"))
}

// RevertError reports a call or mined transaction that reverted.
// Reason is the decoded contract message, empty when none could be decoded.
type RevertError struct {
	TxHash string
	Reason string
	Data   []byte
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}
