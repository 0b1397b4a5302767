// adsctl drives a running pipeline server from the command line:
// inspect status, trigger loop iterations, resolve approvals and list
// experiments.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultAddr = "http://localhost:8080"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	client := &apiClient{}

	root := &cobra.Command{
		Use:   "adsctl",
		Short: "Control a running ad pipeline server",
	}
	root.PersistentFlags().StringVar(&client.base, "addr", envOr("ADSCTL_ADDR", defaultAddr), "pipeline server base URL")

	root.AddCommand(
		statusCmd(client),
		loopCmd(client),
		approvalsCmd(client),
		experimentsCmd(client),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
