package main

import (
	"fmt"
	"math"

	gomoney "github.com/Rhymond/go-money"
	"github.com/spf13/cobra"

	"github.com/tasosbeast/bill-split-sub001/internal/config"
)

func newBalancesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Print outstanding balances per friend",
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

			entries := ledger.BalanceList()
			if len(entries) == 0 {
				fmt.Println("All settled up.")
				return nil
			}

			friends := make(map[string]string)
			for _, f := range ledger.Friends() {
				friends[f.ID] = f.Name
			}

			for _, e := range entries {
				name := friends[e.FriendID]
				if name == "" {
					name = e.FriendID
				}
				amount := gomoney.New(int64(math.Round(math.Abs(e.Balance)*100)), cfg.Currency)
				if e.Balance > 0 {
					fmt.Printf("%-24s owes you %s\n", name, amount.Display())
				} else {
					fmt.Printf("%-24s you owe %s\n", name, amount.Display())
				}
			}
			return nil
		},
	}
}
