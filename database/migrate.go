package database

import (
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Migrate membuat/menyesuaikan tabel order engine dan tabel katalog yang dibaca.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Product{},
		&models.VariantGroup{},
		&models.Variant{},
		&models.ModifierGroup{},
		&models.Modifier{},
		&models.OrderSequence{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderItemModifier{},
		&models.Payment{},
	)
	if err != nil {
		utils.ErrorLogger.Errorf("AutoMigrate failed: %v", err)
		return err
	}
	utils.InfoLogger.Info("AutoMigrate completed")
	return nil
}
