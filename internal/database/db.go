package database

import (
	"fmt"

	"cruise-backend/internal/config"
	"cruise-backend/internal/logger"
	"cruise-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config, log *zap.Logger) error {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logger.GormLevel(cfg.LogLevel)),
	})
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.AffiliateProfile{},
		&models.AffiliateProduct{},
		&models.AffiliateSale{},
		&models.CommissionLedger{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	// Settlement reads filter on (status, confirmed_at) and (sale_id, entry_type)
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_affiliate_sales_status_confirmed ON affiliate_sales(status, confirmed_at)").Error; err != nil {
		log.Warn("settlement index for affiliate_sales could not be created", zap.Error(err))
	}
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_commission_ledgers_sale_entry ON commission_ledgers(sale_id, entry_type)").Error; err != nil {
		log.Warn("settlement index for commission_ledgers could not be created", zap.Error(err))
	}

	log.Info("database connected, migration complete")
	return nil
}
