package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/adverthide/internal/client"
)

var (
	httpURL    string
	adminToken string
	jsonOutput bool
)

func defaultHTTPURL() string {
	if s := os.Getenv("ADVERTHIDE_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// newClient returns a client for the server named by --url.
func newClient() client.Client {
	return client.NewHTTPClient(httpURL, adminToken)
}

var rootCmd = &cobra.Command{
	Use:           "adverthide <command>",
	Short:         "Demote expired advertisements to registered-only access",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "url", defaultHTTPURL(), "adverthide server URL (remote commands)")
	rootCmd.PersistentFlags().StringVar(&adminToken, "token", os.Getenv("ADVERTHIDE_ADMIN_TOKEN"), "admin token for remote commands")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "updater", Title: "Updater:"},
		&cobra.Group{ID: "database", Title: "Database:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Updater
	rootCmd.AddCommand(tickCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(restoreCmd)

	// Database
	rootCmd.AddCommand(migrateCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
