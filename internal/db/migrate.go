package db

import (
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.PricingRule{},
		&models.PricingLog{},
		&models.ExcludedAd{},
		&models.SystemSetting{},
	)
}
