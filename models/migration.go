package models

import (
	"log"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&StockItem{},
		&HistoryEntry{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
