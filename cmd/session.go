package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/mselser95/onearb-wallet/internal/app"
	"github.com/mselser95/onearb-wallet/internal/walletsession"
	"github.com/mselser95/onearb-wallet/pkg/config"
	"github.com/spf13/cobra"
)

// withWallet builds a wallet from the environment, runs discovery and calls fn.
// The wallet is closed before returning.
func withWallet(cmd *cobra.Command, fn func(ctx context.Context, w *app.Wallet) error) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	w, err := app.NewWallet(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()

	w.Controller.Discover(ctx)

	return fn(ctx, w)
}

// runAction is the body of the one-shot action commands.
func runAction(action func(*walletsession.Controller, context.Context)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withWallet(cmd, func(ctx context.Context, w *app.Wallet) error {
			action(w.Controller, ctx)

			view := w.Controller.View()
			err := printView(cmd, view)
			if err != nil {
				return err
			}
			// The view also carries wrong-network guidance, which is not an action failure.
			if w.Controller.State().ErrorMessage != "" {
				return fmt.Errorf("%s failed", cmd.Name())
			}
			return nil
		})
	}
}

func printView(cmd *cobra.Command, view walletsession.View) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	return writeView(out, view)
}

func writeView(out io.Writer, view walletsession.View) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Status:\t%s\n", view.StatusText)
	fmt.Fprintf(w, "Provider:\t%s\n", view.ProviderKind)
	fmt.Fprintf(w, "Connection:\t%s\n", view.ConnectionLabel)
	fmt.Fprintf(w, "Address:\t%s\n", view.AddressLabel)
	fmt.Fprintf(w, "Network:\t%s\n", view.NetworkName)
	fmt.Fprintf(w, "Chain:\t%s\n", view.ChainLabel)
	if view.ConnectHint != "" {
		fmt.Fprintf(w, "Hint:\t%s\n", view.ConnectHint)
	}
	if view.CopyHint != "" {
		fmt.Fprintf(w, "Copy:\t%s\n", view.CopyHint)
	}
	if view.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:\t%s\n", view.ErrorMessage)
	}
	return w.Flush()
}
