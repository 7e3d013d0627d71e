package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sbt-minter/internal/domain"
)

func newMintCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Submit one mint transaction and wait for it to settle",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "self",
			Short: "Mint to the connected wallet address",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMint(cmd.Context(), state, cmd.OutOrStdout(), domain.SelfIntent())
			},
		},
		&cobra.Command{
			Use:   "single <address>",
			Short: "Mint to one address",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMint(cmd.Context(), state, cmd.OutOrStdout(), domain.SingleIntent(args[0]))
			},
		},
		&cobra.Command{
			Use:   "batch <addresses|@file|->",
			Short: "Mint to many addresses in one transaction",
			Long:  "Addresses are separated by commas or newlines. Use @path to read them from a file or - for stdin.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				text, err := readBatchArg(args[0], cmd.InOrStdin())
				if err != nil {
					return err
				}
				return runMint(cmd.Context(), state, cmd.OutOrStdout(), domain.BatchIntent(text))
			},
		},
	)
	return cmd
}

// runMint blocks until the submission settles and prints its terminal status as JSON.
func runMint(ctx context.Context, state *cliState, out io.Writer, intent domain.MintIntent) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	a, err := newApp(ctx, state.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.minter.Submit(ctx, intent)
	if encErr := printJSON(out, status); encErr != nil {
		return encErr
	}
	if err != nil {
		return fmt.Errorf("%s mint failed: %s", intent.Kind, failureText(status, err))
	}
	return nil
}

// readBatchArg resolves @file and - (stdin) batch arguments.
func readBatchArg(arg string, stdin io.Reader) (string, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return "", fmt.Errorf("read batch file: %w", err)
		}
		return string(data), nil
	default:
		return arg, nil
	}
}

func failureText(status domain.MintStatus, err error) string {
	if status.Reason != "" {
		return status.Reason
	}
	return err.Error()
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
