package main

import (
	"flag"

	"polyglot.link/configs/configsdatabase"
	"polyglot.link/configs/configslog"
	"polyglot.link/database"
)

func main() {
	configslog.InitLogger()
	defer configslog.SyncLogger()
	migrateFlag := flag.Bool("migrate", false, "Run database initialization (creates and updates tables)")
	flag.Parse()

	configsdatabase.InitDB()
	defer configsdatabase.CloseDB()

	db := configsdatabase.GetDB()

	configslog.SLog.Info("Running database initialization...")
	database.Initialize(db, *migrateFlag)

	configslog.SLog.Info("Database initialization finished.")
}
