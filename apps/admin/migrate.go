package main

import "github.com/trezcool/darasa/storage/database"

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate() error {
	return migrateFunc(cli.db)
}
