package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/adverthide/internal/updater"
)

var tickCmd = &cobra.Command{
	Use:     "tick",
	Short:   "Run the updater once, as a page load would",
	GroupID: "updater",
	Long: `Run one tick against the configured database. Nothing happens unless the
check interval has elapsed since the last run.

With --remote the tick is requested from a running server instead, which
always runs as admin and needs --token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, _ := cmd.Flags().GetBool("admin")
		remote, _ := cmd.Flags().GetBool("remote")

		var res *updater.Result
		if remote {
			c := newClient()
			defer c.Close()
			r, err := c.Tick(context.Background())
			if err != nil {
				return fmt.Errorf("requesting tick: %w", err)
			}
			res = r
		} else {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := newRuntime(context.Background(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := context.Background()
			if admin {
				ctx = updater.WithAdmin(ctx)
			}
			r := rt.updater.Tick(ctx)
			res = &r
		}

		if jsonOutput {
			return printJSON(res)
		}
		printResult(res)
		return nil
	},
}

func init() {
	tickCmd.Flags().Bool("admin", false, "tick in a privileged context (runs even when admin_only is set)")
	tickCmd.Flags().Bool("remote", false, "ask the server at --url to tick")
}
