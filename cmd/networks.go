package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mselser95/onearb-wallet/pkg/config"
	"github.com/mselser95/onearb-wallet/pkg/networks"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List the allowed networks",
	Long:  `Prints the network registry from NETWORKS_FILE, or the built-in one when unset.`,
	RunE:  runNetworks,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(networksCmd)
}

func runNetworks(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry, err := networks.LoadFile(cfg.NetworksFile)
	if err != nil {
		return fmt.Errorf("load networks: %w", err)
	}

	target := registry.Target()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CHAIN ID\tDECIMAL\tNAME\tRPC\n")
	fmt.Fprintf(w, "--------\t-------\t----\t---\n")

	for _, chainID := range registry.Allowlist {
		decimal := "?"
		if dec, ok := networks.Decimal(chainID); ok {
			decimal = dec.String()
		}

		name := registry.Name(chainID)
		if chainID == target {
			name += " (default)"
		}

		rpc := ""
		if n, ok := registry.Lookup(chainID); ok {
			rpc = strings.Join(n.RPCURLs, ", ")
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", chainID, decimal, name, rpc)
	}

	return w.Flush()
}
