package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tasosbeast/bill-split-sub001/internal/auth"
	"github.com/tasosbeast/bill-split-sub001/internal/config"
)

func newImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Restore the ledger from a backup file",
		Long: `Restore replaces the entire ledger with the contents of a backup
file. The file may have been written by any historical version of the
app; records that cannot be repaired are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read backup file: %w", err)
			}

			ledger, cleanup, err := openLedger(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := ledger.Restore(cmd.Context(), payload)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			fmt.Printf("Restored %d friends, %d transactions, %d templates.\n",
				len(result.Friends), len(result.Transactions), len(result.Templates))
			for _, skipped := range result.Skipped {
				fmt.Printf("  skipped: %s\n", skipped.Reason)
			}
			return nil
		},
	}
}

func newExportCmd(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger snapshot to a backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ledger, cleanup, err := openLedger(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			payload, err := ledger.Export()
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Println(string(payload))
				return nil
			}
			if err := os.WriteFile(output, payload, 0644); err != nil {
				return fmt.Errorf("failed to write backup file: %w", err)
			}
			fmt.Printf("Exported snapshot to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newHashPassphraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-passphrase <passphrase>",
		Short: "Hash a passphrase for the auth.passphrase_hash config field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassphrase(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}
