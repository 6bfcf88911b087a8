package main

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/kampus/apps/shared"
	"github.com/trezcool/kampus/storage/database"
)

var (
	migrateFunc = runMigration // mockable

	errNoMigrations = errors.New("migrations need the postgres database engine")

	// commands that drop data
	destructiveMigrations = map[string]bool{"down": true, "down-to": true, "redo": true, "reset": true}
)

func runMigration(ctx context.Context, st *shared.Storage, command string, args ...string) error {
	db, ok := st.DB.(*sqlx.DB)
	if !ok {
		return errNoMigrations
	}
	return database.RunMigration(ctx, db.DB, command, args...)
}

func (cli *commandLine) migrate(args []string) error {
	if destructiveMigrations[args[0]] {
		if err := cli.confirm("Migration " + args[0] + " may drop data. Continue?"); err != nil {
			return err
		}
	}
	return migrateFunc(context.Background(), cli.storage, args[0], args[1:]...)
}
