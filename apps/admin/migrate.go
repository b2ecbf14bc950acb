package main

import (
	"github.com/spf13/cobra"

	"github.com/genzugar/backend/storage/database"
)

var runMigrationFunc = database.RunMigration // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := cli.openDB()
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close() //nolint:errcheck
			}
			return runMigrationFunc(cmd.Context(), db, args[0], args[1:]...)
		},
	}
}
