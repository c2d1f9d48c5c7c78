package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/mselser95/onearb-wallet/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the connected account's native balance",
	Long: `Restores the saved session and reads the account's native currency balance on its
current network through the registry's public RPC endpoint.`,
	RunE: runBalance,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	return withWallet(cmd, func(ctx context.Context, w *app.Wallet) error {
		account := w.Account()
		if account.Address == "" {
			return errors.New("no connected wallet")
		}

		if !w.Registry.IsAllowed(account.ChainID) {
			return fmt.Errorf("wallet is on unsupported network %s", account.ChainID)
		}

		balance, err := w.Balances.NativeBalance(ctx, account.ChainID, account.Address)
		if err != nil {
			return fmt.Errorf("fetch balance: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s on %s: %s\n",
			account.Address, w.Registry.Name(account.ChainID), balance)
		return nil
	})
}
