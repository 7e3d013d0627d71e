package evm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers every request with handle's result or error.
func rpcServer(t *testing.T, handle func(req rpcRequest) (interface{}, *RPCError)) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		result, rpcErr := handle(req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_ChainID(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		assert.Equal(t, "eth_chainId", req.Method)
		return "0xaa36a7", nil
	})

	client := NewHTTPClient(server.URL)
	id, err := client.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(11155111), id)
}

func TestHTTPClient_Accounts(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		return []string{"0x1111111111111111111111111111111111111111"}, nil
	})

	client := NewHTTPClient(server.URL)
	accounts, err := client.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), accounts[0])
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	hash := "0x5e1f0a7c2c9b1b7d8e3a4f6c0d2e9b8a7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f"
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		assert.Equal(t, "eth_sendTransaction", req.Method)
		if !assert.Len(t, req.Params, 1) {
			return nil, nil
		}

		obj, _ := req.Params[0].(map[string]interface{})
		assert.Equal(t, "0x9999999999999999999999999999999999999999", obj["to"])
		assert.Equal(t, "0x1111111111111111111111111111111111111111", obj["from"])
		assert.Equal(t, "0xdeadbeef", obj["data"])
		assert.Equal(t, "0x5208", obj["gas"])
		return hash, nil
	})

	client := NewHTTPClient(server.URL)
	got, err := client.SendTransaction(context.Background(), TxRequest{
		From: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		To:   common.HexToAddress("0x9999999999999999999999999999999999999999"),
		Data: []byte{0xde, 0xad, 0xbe, 0xef},
		Gas:  21000,
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(hash), got)
}

func TestHTTPClient_SendTransaction_NotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	_, err := client.SendTransaction(context.Background(), TxRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClient_RetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": "0x1"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(3), WithRetryDelay(time.Millisecond), WithMaxDelay(5*time.Millisecond))
	id, err := client.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClient_MaxRetriesExceeded(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithMaxRetries(2), WithRetryDelay(time.Millisecond))
	_, err := client.ChainID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		calls.Add(1)
		return nil, &RPCError{Code: CodeUserRejected, Message: "User rejected the request."}
	})

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))
	err := client.SwitchChain(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserRejected))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClient_RPCErrorKeepsData(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		return nil, &RPCError{
			Code:    CodeExecutionReverted,
			Message: "execution reverted",
			Data:    json.RawMessage(`"0x8b6ab1a0"`),
		}
	})

	client := NewHTTPClient(server.URL)
	_, err := client.EstimateGas(context.Background(), TxRequest{})

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.True(t, rpcErr.IsRevert())
	assert.Equal(t, []byte{0x8b, 0x6a, 0xb1, 0xa0}, rpcErr.RevertData())
}

func TestHTTPClient_GetTransactionReceipt(t *testing.T) {
	hash := common.HexToHash("0x01")
	var mined atomic.Bool

	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		assert.Equal(t, "eth_getTransactionReceipt", req.Method)
		assert.Equal(t, hash.Hex(), req.Params[0])
		if !mined.Load() {
			return nil, nil
		}
		return map[string]interface{}{
			"transactionHash": hash.Hex(),
			"blockNumber":     "0x10",
			"status":          "0x1",
			"gasUsed":         "0x5208",
			"from":            "0x1111111111111111111111111111111111111111",
			"to":              "0x9999999999999999999999999999999999999999",
		}, nil
	})

	client := NewHTTPClient(server.URL)

	receipt, err := client.GetTransactionReceipt(context.Background(), hash)
	require.NoError(t, err)
	assert.Nil(t, receipt)

	mined.Store(true)
	receipt, err = client.GetTransactionReceipt(context.Background(), hash)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, uint64(16), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	assert.True(t, receipt.Succeeded())
	require.NotNil(t, receipt.To)
	assert.Equal(t, common.HexToAddress("0x9999999999999999999999999999999999999999"), *receipt.To)
}

func TestHTTPClient_Call_AtBlock(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		assert.Equal(t, "eth_call", req.Method)
		if assert.Len(t, req.Params, 2) {
			assert.Equal(t, "0x10", req.Params[1])
		}
		return "0x01", nil
	})

	client := NewHTTPClient(server.URL)
	block := uint64(16)
	out, err := client.Call(context.Background(), TxRequest{}, &block)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, out)
}

func TestHTTPClient_AddChain(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		assert.Equal(t, "wallet_addEthereumChain", req.Method)
		obj := req.Params[0].(map[string]interface{})
		assert.Equal(t, "0xaa36a7", obj["chainId"])
		assert.Equal(t, "Sepolia", obj["chainName"])
		currency := obj["nativeCurrency"].(map[string]interface{})
		assert.Equal(t, "ETH", currency["symbol"])
		assert.Equal(t, float64(18), currency["decimals"])
		return nil, nil
	})

	client := NewHTTPClient(server.URL)
	err := client.AddChain(context.Background(), AddChainParams{
		ChainID:        11155111,
		ChainName:      "Sepolia",
		RPCURLs:        []string{"https://rpc.sepolia.org"},
		CurrencyName:   "Sepolia Ether",
		CurrencySymbol: "ETH",
		Decimals:       18,
	})
	require.NoError(t, err)
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.ChainID(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRPCError_RevertMessage(t *testing.T) {
	e := &RPCError{Code: -32000, Message: "execution reverted: not allowed"}
	assert.True(t, e.IsRevert())
	assert.Equal(t, "not allowed", e.RevertMessage())

	nested := &RPCError{Code: -32603, Message: "Internal error", Data: json.RawMessage(`{"data":"0x1234"}`)}
	assert.Equal(t, []byte{0x12, 0x34}, nested.RevertData())

	other := &RPCError{Code: CodeMethodNotFound, Message: "method not found"}
	assert.False(t, other.IsRevert())
	assert.True(t, errors.Is(other, ErrMethodNotSupported))
}
