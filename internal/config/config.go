// Package config loads minter settings from flags, environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"sbt-minter/internal/domain"
)

// EnvPrefix prefixes every environment variable, e.g. SBTMINTER_RPC_URL.
const EnvPrefix = "SBTMINTER"

// Keys.
const (
	KeyRPCURL          = "rpc_url"
	KeyWSURL           = "ws_url"
	KeyContractAddress = "contract_address"
	KeyContractABIPath = "contract_abi_path"
	KeyMintMethod      = "mint_method"
	KeyBatchMintMethod = "batch_mint_method"

	KeyChainID             = "chain.id"
	KeyChainName           = "chain.name"
	KeyChainRPCURLs        = "chain.rpc_urls"
	KeyChainExplorerURLs   = "chain.explorer_urls"
	KeyChainCurrencyName   = "chain.currency_name"
	KeyChainCurrencySymbol = "chain.currency_symbol"
	KeyChainCurrencyDec    = "chain.currency_decimals"

	KeyListenAddr     = "listen_addr"
	KeyAllowedOrigins = "allowed_origins"

	KeyPollInterval  = "poll_interval"
	KeyRPCTimeout    = "rpc_timeout"
	KeyRPCMaxRetries = "rpc_max_retries"
	KeyRPCRateLimit  = "rpc_rate_limit"

	KeyLogLevel  = "log_level"
	KeyLogFormat = "log_format"
	KeyLogFile   = "log_file"
)

// Config is the resolved runtime configuration.
type Config struct {
	RPCURL          string
	WSURL           string
	ContractAddress common.Address
	ContractABI     []byte // nil selects the embedded default ABI
	MintMethod      string
	BatchMintMethod string

	Chain domain.Network

	ListenAddr     string
	AllowedOrigins []string

	PollInterval  time.Duration
	RPCTimeout    time.Duration
	RPCMaxRetries int
	RPCRateLimit  float64

	LogLevel  string
	LogFormat string
	LogFile   string
}

// SetDefaults registers default values and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyRPCURL, "http://127.0.0.1:8545")
	v.SetDefault(KeyWSURL, "")
	v.SetDefault(KeyContractAddress, "")
	v.SetDefault(KeyContractABIPath, "")
	v.SetDefault(KeyMintMethod, "mint")
	v.SetDefault(KeyBatchMintMethod, "batchMint")

	// Sepolia
	v.SetDefault(KeyChainID, 11155111)
	v.SetDefault(KeyChainName, "Sepolia")
	v.SetDefault(KeyChainRPCURLs, []string{"https://rpc.sepolia.org"})
	v.SetDefault(KeyChainExplorerURLs, []string{"https://sepolia.etherscan.io"})
	v.SetDefault(KeyChainCurrencyName, "Sepolia Ether")
	v.SetDefault(KeyChainCurrencySymbol, "ETH")
	v.SetDefault(KeyChainCurrencyDec, 18)

	v.SetDefault(KeyListenAddr, ":8080")
	v.SetDefault(KeyAllowedOrigins, []string{"http://localhost:3000"})

	v.SetDefault(KeyPollInterval, "2s")
	v.SetDefault(KeyRPCTimeout, "30s")
	v.SetDefault(KeyRPCMaxRetries, 3)
	v.SetDefault(KeyRPCRateLimit, 0)

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogFile, "")
}

// ReadFile reads configFile into v. With an empty path it looks for sbtminter.{yaml,json,toml}
// in the working directory and silently continues when there is none.
func ReadFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sbtminter")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// Load builds a Config from v. The result is not validated.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		RPCURL:          strings.TrimSpace(v.GetString(KeyRPCURL)),
		WSURL:           strings.TrimSpace(v.GetString(KeyWSURL)),
		MintMethod:      v.GetString(KeyMintMethod),
		BatchMintMethod: v.GetString(KeyBatchMintMethod),
		Chain: domain.Network{
			ChainID:        v.GetUint64(KeyChainID),
			Name:           v.GetString(KeyChainName),
			RPCURLs:        stringList(v, KeyChainRPCURLs),
			ExplorerURLs:   stringList(v, KeyChainExplorerURLs),
			CurrencyName:   v.GetString(KeyChainCurrencyName),
			CurrencySymbol: v.GetString(KeyChainCurrencySymbol),
			Decimals:       uint8(v.GetUint(KeyChainCurrencyDec)),
		},
		ListenAddr:     v.GetString(KeyListenAddr),
		AllowedOrigins: stringList(v, KeyAllowedOrigins),
		PollInterval:   v.GetDuration(KeyPollInterval),
		RPCTimeout:     v.GetDuration(KeyRPCTimeout),
		RPCMaxRetries:  v.GetInt(KeyRPCMaxRetries),
		RPCRateLimit:   v.GetFloat64(KeyRPCRateLimit),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		LogFile:        v.GetString(KeyLogFile),
	}

	if raw := strings.TrimSpace(v.GetString(KeyContractAddress)); raw != "" {
		addr, err := domain.ValidateAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyContractAddress, err)
		}
		cfg.ContractAddress = addr
	}

	if path := v.GetString(KeyContractABIPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read contract abi: %w", err)
		}
		cfg.ContractABI = data
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a minter.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("%s is required", KeyRPCURL)
	}
	if c.ContractAddress == (common.Address{}) {
		return fmt.Errorf("%s is required and must not be the zero address", KeyContractAddress)
	}
	if c.Chain.ChainID == 0 {
		return fmt.Errorf("%s must be non-zero", KeyChainID)
	}
	if c.Chain.Name == "" {
		c.Chain.Name = fmt.Sprintf("chain %d", c.Chain.ChainID)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive", KeyPollInterval)
	}
	if c.RPCTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyRPCTimeout)
	}
	if c.RPCMaxRetries < 0 {
		return fmt.Errorf("%s must not be negative", KeyRPCMaxRetries)
	}
	return nil
}

// stringList reads a list that may come from a config file array or a
// comma-separated environment variable.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
