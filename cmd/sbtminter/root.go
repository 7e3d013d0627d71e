package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sbt-minter/internal/config"
)

// cliState carries the parsed configuration from the root command to subcommands.
type cliState struct {
	v   *viper.Viper
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	state := &cliState{v: viper.New()}
	config.SetDefaults(state.v)

	var (
		configFile string
		envFile    string
	)

	root := &cobra.Command{
		Use:           "sbtminter",
		Short:         "Soulbound token mint orchestrator",
		Long:          `Mints soulbound tokens to the connected wallet, one address, or a batch of addresses through a JSON-RPC wallet endpoint.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Existing environment variables win over the .env file.
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load env file: %w", err)
			}
			if err := config.ReadFile(state.v, configFile); err != nil {
				return err
			}

			cfg, err := config.Load(state.v)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			state.cfg = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./sbtminter.yaml if present)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.String("rpc-url", "", "wallet JSON-RPC HTTP endpoint")
	flags.String("ws-url", "", "optional WebSocket endpoint for new-head notifications")
	flags.String("contract-address", "", "soulbound token contract address")
	flags.String("contract-abi-path", "", "contract ABI JSON file (default: embedded soulbound ABI)")
	flags.Uint64("chain-id", 0, "target chain id")
	flags.String("chain-name", "", "target chain name")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("log-file", "", "also write logs to this file")

	bindFlags(state.v, root, map[string]string{
		"rpc-url":           config.KeyRPCURL,
		"ws-url":            config.KeyWSURL,
		"contract-address":  config.KeyContractAddress,
		"contract-abi-path": config.KeyContractABIPath,
		"chain-id":          config.KeyChainID,
		"chain-name":        config.KeyChainName,
		"log-level":         config.KeyLogLevel,
		"log-format":        config.KeyLogFormat,
		"log-file":          config.KeyLogFile,
	})

	root.AddCommand(
		newServeCmd(state),
		newMintCmd(state),
		newNetworkCmd(state),
		newBatchCmd(),
	)
	return root
}

// bindFlags binds persistent flags to config keys. Flags only override when set.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}
