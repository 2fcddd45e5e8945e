package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tasosbeast/bill-split-sub001/internal/config"
	"github.com/tasosbeast/bill-split-sub001/internal/storage"
	"github.com/tasosbeast/bill-split-sub001/internal/store"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "splitledger",
		Short: "Track shared expenses and settlements with your friends",
		Long: `splitledger keeps a local ledger of shared expenses: who paid,
who owes whom, and how balances get settled. State lives in a single
SQLite file; the serve command exposes it to UI clients over HTTP.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "",
		fmt.Sprintf("config file (default %s)", config.DefaultPath()))

	root.AddCommand(
		newServeCmd(&configPath),
		newBalancesCmd(&configPath),
		newImportCmd(&configPath),
		newExportCmd(&configPath),
		newHashPassphraseCmd(),
	)
	return root
}

// openLedger builds a ledger over the configured SQLite backend. The
// returned cleanup closes the envelope's backend.
func openLedger(ctx context.Context, cfg config.Config) (*store.Ledger, func(), error) {
	backend, err := storage.NewSQLiteBackend(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	env := storage.NewEnvelope(cfg.Storage.Name, cfg.Storage.Version, backend)
	ledger, err := store.New(ctx, env)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return ledger, func() { backend.Close() }, nil
}
