package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/adverthide/internal/model"
)

// fieldInfo reports whether a required custom field exists.
type fieldInfo struct {
	Name  string `json:"name"`
	ID    int64  `json:"id,omitempty"`
	Found bool   `json:"found"`
}

var fieldsCmd = &cobra.Command{
	Use:     "fields",
	Short:   "Check that the advertising and hiding custom fields exist",
	GroupID: "updater",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		var infos []fieldInfo
		missing := 0
		for _, name := range []string{model.FieldAdvertising, model.FieldHiding} {
			id, err := st.FieldID(context.Background(), name)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				missing++
				infos = append(infos, fieldInfo{Name: name})
			case err != nil:
				return fmt.Errorf("looking up field %s: %w", name, err)
			default:
				infos = append(infos, fieldInfo{Name: name, ID: id, Found: true})
			}
		}

		if jsonOutput {
			if err := printJSON(infos); err != nil {
				return err
			}
		} else {
			printFields(infos)
		}
		if missing > 0 {
			return fmt.Errorf("%d required field(s) missing", missing)
		}
		return nil
	},
}
