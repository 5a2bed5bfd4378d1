package models

import (
	"log"

	"github.com/coraeos/obari_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Org{}, &User{},
		&Deal{}, &DealLineItem{},
		&EqualsSnapshot{},
		&TradeOrder{}, &TransportBooking{},
	)
	if err != nil {
		log.Fatalf("failed to migrate tables: %v", err)
	}
}
