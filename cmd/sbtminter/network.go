package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newNetworkCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Inspect or change the wallet's active network",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Compare the wallet's network with the target network",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, stop := signalContext(cmd.Context())
				defer stop()

				a, err := newApp(ctx, state.cfg)
				if err != nil {
					return err
				}
				defer a.Close()

				nc, err := a.minter.Network(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"current_chain_id": nc.CurrentChainID,
					"target_chain_id":  nc.TargetChainID,
					"target_name":      nc.TargetName,
					"matches":          nc.Matches(),
				})
			},
		},
		&cobra.Command{
			Use:   "switch",
			Short: "Ask the wallet to switch to the target network",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, stop := signalContext(cmd.Context())
				defer stop()

				a, err := newApp(ctx, state.cfg)
				if err != nil {
					return err
				}
				defer a.Close()

				if err := a.minter.RequestNetworkSwitch(ctx); err != nil {
					return err
				}
				a.logger.Infof("Wallet is on %s (chain %d)", state.cfg.Chain.Name, state.cfg.Chain.ChainID)
				return nil
			},
		},
	)
	return cmd
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
