package cmd

import (
	"context"

	"github.com/mselser95/onearb-wallet/internal/app"
	"github.com/mselser95/onearb-wallet/internal/walletsession"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the wallet session",
		Long:  `Discovers the wallet provider, silently restores the saved session and prints the result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWallet(cmd, func(ctx context.Context, w *app.Wallet) error {
				return printView(cmd, w.Controller.View())
			})
		},
	}

	connectCmd = &cobra.Command{
		Use:   "connect",
		Short: "Request wallet accounts",
		Long: `Asks the wallet for account access and saves the session. The command waits
for the wallet prompt to be approved or rejected, up to WALLET_REQUEST_TIMEOUT.`,
		RunE: runAction((*walletsession.Controller).Connect),
	}

	disconnectCmd = &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the wallet session",
		RunE:  runAction((*walletsession.Controller).Disconnect),
	}

	switchNetworkCmd = &cobra.Command{
		Use:   "switch-network",
		Short: "Switch the wallet to the default network",
		Long: `Asks the wallet to switch to the registry's default network, adding the
network to the wallet first when it does not know it.`,
		RunE: runAction((*walletsession.Controller).SwitchNetwork),
	}

	copyAddressCmd = &cobra.Command{
		Use:   "copy-address",
		Short: "Copy the connected address to the clipboard",
		RunE:  runAction((*walletsession.Controller).CopyAddress),
	}
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statusCmd, connectCmd, disconnectCmd, switchNetworkCmd, copyAddressCmd)
}
