package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nexconsult/gstin-api/internal/client"
	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "gstctl",
	Short:        "gstctl verifies GSTINs through a running GSTIN API server.",
	SilenceUsage: true,
}

func init() {
	defaultURL := os.Getenv("GSTIN_API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:3000"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "Base URL of the GSTIN API.")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Request timeout. Lookups can take minutes.")
}

func newClient() *client.Client {
	return client.New(serverURL, timeout)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
