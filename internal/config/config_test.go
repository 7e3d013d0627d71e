package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sbt-minter/internal/domain"
)

const testContract = "0x9999999999999999999999999999999999999999"

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	v := newViper(t)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8545", cfg.RPCURL)
	assert.Equal(t, uint64(11155111), cfg.Chain.ChainID)
	assert.Equal(t, "Sepolia", cfg.Chain.Name)
	assert.Equal(t, uint8(18), cfg.Chain.Decimals)
	assert.Equal(t, []string{"https://rpc.sepolia.org"}, cfg.Chain.RPCURLs)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 3, cfg.RPCMaxRetries)
	assert.Equal(t, "mint", cfg.MintMethod)
	assert.Equal(t, "batchMint", cfg.BatchMintMethod)
	assert.Nil(t, cfg.ContractABI)

	// No contract configured yet.
	assert.Error(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SBTMINTER_CONTRACT_ADDRESS", testContract)
	t.Setenv("SBTMINTER_CHAIN_ID", "137")
	t.Setenv("SBTMINTER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SBTMINTER_POLL_INTERVAL", "500ms")

	cfg, err := Load(newViper(t))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, common.HexToAddress(testContract), cfg.ContractAddress)
	assert.Equal(t, uint64(137), cfg.Chain.ChainID)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
}

func TestLoad_InvalidContractAddress(t *testing.T) {
	v := newViper(t)
	v.Set(KeyContractAddress, "0x1234")

	_, err := Load(v)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedAddress)

	v.Set(KeyContractAddress, "0x0000000000000000000000000000000000000000")
	_, err = Load(v)
	assert.ErrorIs(t, err, domain.ErrZeroAddress)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	abiPath := filepath.Join(dir, "abi.json")
	require.NoError(t, os.WriteFile(abiPath, []byte(`[]`), 0o600))

	path := filepath.Join(dir, "sbtminter.yaml")
	content := "rpc_url: http://node:8545\n" +
		"contract_address: " + testContract + "\n" +
		"contract_abi_path: " + abiPath + "\n" +
		"chain:\n  id: 31337\n  name: Anvil\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := newViper(t)
	require.NoError(t, ReadFile(v, path))

	cfg, err := Load(v)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://node:8545", cfg.RPCURL)
	assert.Equal(t, uint64(31337), cfg.Chain.ChainID)
	assert.Equal(t, "Anvil", cfg.Chain.Name)
	assert.Equal(t, []byte(`[]`), cfg.ContractABI)
}

func TestReadFile_Missing(t *testing.T) {
	v := newViper(t)
	assert.Error(t, ReadFile(v, filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RPCURL:          "http://localhost:8545",
			ContractAddress: common.HexToAddress(testContract),
			Chain:           domain.Network{ChainID: 1},
			PollInterval:    time.Second,
			RPCTimeout:      time.Second,
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "chain 1", cfg.Chain.Name)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc url", func(c *Config) { c.RPCURL = "" }},
		{"zero contract", func(c *Config) { c.ContractAddress = common.Address{} }},
		{"zero chain id", func(c *Config) { c.Chain.ChainID = 0 }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"negative retries", func(c *Config) { c.RPCMaxRetries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
