package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/adverthide/internal/updater"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show the plugin settings and when the next run is due",
	GroupID: "updater",
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, _ := cmd.Flags().GetBool("remote")

		var st *updater.Status
		if remote {
			c := newClient()
			defer c.Close()
			s, err := c.Status(context.Background())
			if err != nil {
				return fmt.Errorf("fetching status: %w", err)
			}
			st = s
		} else {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			u := updater.New(db, updater.Config{
				Element: cfg.PluginElement,
				Folder:  cfg.PluginFolder,
				Logger:  logger,
			})
			s, err := u.Status(context.Background())
			if err != nil {
				return err
			}
			st = s
		}

		if jsonOutput {
			return printJSON(st)
		}
		printStatus(st)
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("remote", false, "ask the server at --url")
}
