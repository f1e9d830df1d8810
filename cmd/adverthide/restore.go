package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/adverthide/internal/model"
	"github.com/alfredjeanlab/adverthide/internal/store"
)

var restoreCmd = &cobra.Command{
	Use:     "restore",
	Short:   "Move demoted advertisements back to the public group",
	GroupID: "updater",
	Long: `Set access back from the registered group to the public group for every
item tagged as advertising, optionally limited to some categories. This undoes
all demotions, including ones whose hide date has passed, so the next tick will
demote those again unless their hide date is changed first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		catsFlag, _ := cmd.Flags().GetString("categories")
		if !yes {
			return errors.New("restore changes access on many items; pass --yes to confirm")
		}
		cats, err := parseCategories(catsFlag)
		if err != nil {
			return err
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		var restored int64
		err = st.RunInTransaction(ctx, func(tx store.Store) error {
			params, err := tx.LoadParams(ctx, cfg.PluginElement, cfg.PluginFolder)
			if err != nil {
				return err
			}
			settings, _ := params.Settings()
			if err := settings.Validate(); err != nil {
				return err
			}
			fieldID, err := tx.FieldID(ctx, model.FieldAdvertising)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("custom field %q not found", model.FieldAdvertising)
			}
			if err != nil {
				return err
			}
			restored, err = tx.RestoreAccess(ctx, model.RestoreQuery{
				AdvertisingField: fieldID,
				From:             settings.RegisteredGroup,
				To:               settings.PublicGroup,
				Categories:       cats,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		logger.Info("access restored", "items", restored, "categories", model.JoinIDs(cats))

		if jsonOutput {
			return printJSON(map[string]int64{"restored": restored})
		}
		fmt.Printf("Restored %d items\n", restored)
		return nil
	},
}

func init() {
	restoreCmd.Flags().Bool("yes", false, "confirm the bulk update")
	restoreCmd.Flags().String("categories", "", "comma-separated category ids to limit the restore to")
}
