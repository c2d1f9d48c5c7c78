package cmd

import (
	"fmt"

	"github.com/mselser95/onearb-wallet/internal/app"
	"github.com/mselser95/onearb-wallet/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wallet session service",
	Long: `Starts the wallet session service, which will:
1. Discover a wallet provider (injected endpoint first, then the remote bridge)
2. Subscribe to provider events and restore the saved session
3. Serve the wallet view and actions on /api/wallet
4. Expose /metrics, /health and /ready

Use --auto-connect to request accounts on startup when no session was restored.`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("auto-connect", false, "Request wallet accounts on startup when no session was restored")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create logger
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	autoConnect, _ := cmd.Flags().GetBool("auto-connect")

	application, err := app.New(cfg, logger, &app.Options{AutoConnect: autoConnect})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	// Run app
	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
