package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/adverthide/internal/store/mysql"
	"github.com/alfredjeanlab/adverthide/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Create a host-compatible schema for development and tests",
	GroupID: "database",
	Long: `Create the content, fields, fields_values and extensions tables (with the
configured table prefix) and the plugin's default row. A real host site
already has these tables; never point this at production.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		switch cfg.DBDriver {
		case "mysql":
			err = mysql.Migrate(cfg.DatabaseURL, cfg.TablePrefix)
		default:
			err = postgres.Migrate(cfg.DatabaseURL, cfg.TablePrefix)
		}
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "driver", cfg.DBDriver, "prefix", cfg.TablePrefix)
		if !jsonOutput {
			fmt.Println("Schema is up to date")
		}
		return nil
	},
}
