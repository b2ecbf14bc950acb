package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/genzugar/backend/apps/shared"
	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/storage/database"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	conf := core.Conf

	logger, err := shared.NewLogger(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer logger.Sync()

	repos, closeDB, err := shared.OpenRepositories(conf, logger)
	if err != nil {
		logger.Error("opening repositories", err)
		return err
	}
	defer closeDB() //nolint:errcheck

	svcs, closeSvcs, err := shared.NewServices(context.Background(), conf, logger, repos)
	if err != nil {
		logger.Error("setting up services", err)
		return err
	}
	defer closeSvcs()

	cli := &commandLine{
		svcs: svcs,
		openDB: func() (*sql.DB, error) {
			if conf.Database.InMemory() {
				return nil, errInMemory
			}
			return database.Open(conf)
		},
		out: os.Stdout,
	}
	return cli.rootCmd().Execute()
}
