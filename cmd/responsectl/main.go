// responsectl is a CLI tool for querying the disaster-response service.
//
// Installation:
//
//	go build -o responsectl ./cmd/responsectl
//	mv responsectl /usr/local/bin/
//
// Usage:
//
//	responsectl events list --type flood --region Sindh,PK
//	responsectl events get <event-id>
//	responsectl events matches <event-id>
//	responsectl events ack <event-id>
//	responsectl ngos list --type fire
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	serverURL string
	outputFmt string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "responsectl",
		Short: "Query disaster events and NGO matches",
		Long: `responsectl is a CLI tool for interacting with the disaster-response service.

It queries correlated disaster events, NGO relevance matches, and the NGO
catalog over the service's HTTP API.`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("RESPONDERD_URL", "http://localhost:8080"), "Base URL of the responderd API")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json")

	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(ngosCmd())
	rootCmd.AddCommand(signalCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
