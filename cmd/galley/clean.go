package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"galley/internal/lint"
)

var cleanCmd = &cobra.Command{
	Use:          "clean",
	Short:        "Drop the persisted lint cache",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		disk, err := lint.OpenDiskCache("galley")
		if err != nil {
			return fmt.Errorf("open disk cache: %w", err)
		}
		if err := disk.DropAll(); err != nil {
			return err
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "lint cache dropped")
		}
		return nil
	},
}
