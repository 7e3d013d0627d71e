package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sbt-minter/internal/domain"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Work with batch address lists",
		// Previews are local and need no wallet or contract configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "preview <addresses|@file|->",
		Short: "Count and validate batch addresses without submitting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readBatchArg(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			preview := domain.PreviewBatch(text)
			if err := printJSON(cmd.OutOrStdout(), preview); err != nil {
				return err
			}
			if !preview.Valid() {
				return fmt.Errorf("%d address(es) detected, %d invalid", preview.Count, len(preview.Problems))
			}
			return nil
		},
	})
	return cmd
}
