package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sbt-minter/internal/domain"
)

const (
	testAccount  = "0x1111111111111111111111111111111111111111"
	testContract = "0x9999999999999999999999999999999999999999"
	testTxHash   = "0x5e1f0a7c2c9b1b7d8e3a4f6c0d2e9b8a7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f"
)

// fakeNode answers the JSON-RPC calls a successful mint makes.
func fakeNode(t *testing.T, chainID string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		var result interface{}
		switch req.Method {
		case "eth_accounts":
			result = []string{testAccount}
		case "eth_chainId":
			result = chainID
		case "eth_estimateGas":
			result = "0x15f90"
		case "eth_sendTransaction":
			result = testTxHash
		case "eth_getTransactionReceipt":
			result = map[string]interface{}{
				"transactionHash": testTxHash,
				"blockNumber":     "0x2a",
				"status":          "0x1",
				"gasUsed":         "0x15f90",
				"from":            testAccount,
				"to":              testContract,
			}
		default:
			t.Errorf("unexpected method %s", req.Method)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(server.Close)
	return server
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.Execute()
	return out.String(), err
}

func TestMintSingle_EndToEnd(t *testing.T) {
	node := fakeNode(t, "0x539")

	out, err := runCLI(t, "mint", "single", "0x2222222222222222222222222222222222222222",
		"--rpc-url", node.URL,
		"--contract-address", testContract,
		"--chain-id", "1337",
		"--log-level", "error",
	)
	require.NoError(t, err)

	var status domain.MintStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, domain.PhaseSuccess, status.Phase)
	assert.Equal(t, strings.ToLower(testTxHash), strings.ToLower(status.TxHash))
}

func TestMintSelf_WrongNetwork(t *testing.T) {
	node := fakeNode(t, "0x1")

	out, err := runCLI(t, "mint", "self",
		"--rpc-url", node.URL,
		"--contract-address", testContract,
		"--chain-id", "1337",
		"--log-level", "error",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Wrong network")
	assert.Contains(t, out, `"phase": "failed"`)
}

func TestMint_RequiresContract(t *testing.T) {
	_, err := runCLI(t, "mint", "self", "--rpc-url", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract_address")
}

func TestBatchPreview_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.txt")
	content := "0x2222222222222222222222222222222222222222,\n0x3333333333333333333333333333333333333333\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out, err := runCLI(t, "batch", "preview", "@"+path)
	require.NoError(t, err)

	var preview domain.BatchPreview
	require.NoError(t, json.Unmarshal([]byte(out), &preview))
	assert.Equal(t, 2, preview.Count)
	assert.Empty(t, preview.Problems)
}

func TestBatchPreview_Invalid(t *testing.T) {
	out, err := runCLI(t, "batch", "preview", "0x2222222222222222222222222222222222222222, nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 address(es) detected, 1 invalid")
	assert.Contains(t, out, "nope")
}

func TestReadBatchArg_Stdin(t *testing.T) {
	text, err := readBatchArg("-", strings.NewReader("a,b"))
	require.NoError(t, err)
	assert.Equal(t, "a,b", text)

	text, err = readBatchArg("a\nb", nil)
	require.NoError(t, err)
	assert.Equal(t, "a\nb", text)
}
