package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "onearb-wallet",
	Short: "ØNE-ARB wallet session service",
	Long: `Wallet session service for the ØNE-ARB arbitrage dashboard.

It discovers a wallet provider (a host-exposed wallet endpoint or a remote
bridge), restores the saved session, and exposes connect, disconnect,
network switching and address copy over HTTP and as one-shot commands.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		envFile, _ := cmd.Flags().GetString("env-file")
		err := godotenv.Load(envFile)
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: load %s: %v\n", envFile, err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file to load before reading configuration")
	rootCmd.PersistentFlags().Bool("json", false, "Print wallet state as JSON")
}
