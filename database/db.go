package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"fieldservice-backend/logger"
	"fieldservice-backend/models"
)

var DB *gorm.DB

// zerologWriter lets gorm's logger print through zerolog.
type zerologWriter struct {
	log zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msg(fmt.Sprintf(format, args...))
}

// Connect opens the shared connection pool.
func Connect(dsn string) error {
	gl := gormlogger.New(zerologWriter{log: logger.WithComponent("gorm")}, gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gl})
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	DB = db
	return nil
}

// Close releases the pool.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MigratePublic migrates the platform tables and seeds plan defaults.
func MigratePublic() error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SET LOCAL search_path = public`).Error; err != nil {
			return fmt.Errorf("set search_path failed: %w", err)
		}
		if err := tx.AutoMigrate(
			&models.Company{}, &models.Profile{}, &models.Subscription{},
			&models.FeatureFlag{}, &models.UsageLimit{}, &models.PlatformSetting{},
			&models.StripeEvent{},
		); err != nil {
			return fmt.Errorf("public automigrate failed: %w", err)
		}
		return seedPlatformDefaults(tx)
	})
}

func seedPlatformDefaults(tx *gorm.DB) error {
	flags := []models.FeatureFlag{
		{Plan: models.PlanFree, Feature: models.FeatureSMS, Enabled: false},
		{Plan: models.PlanFree, Feature: models.FeaturePortal, Enabled: true},
		{Plan: models.PlanFree, Feature: models.FeatureReceiptsEmail, Enabled: false},
		{Plan: models.PlanPro, Feature: models.FeatureSMS, Enabled: true},
		{Plan: models.PlanPro, Feature: models.FeaturePortal, Enabled: true},
		{Plan: models.PlanPro, Feature: models.FeatureReceiptsEmail, Enabled: true},
		{Plan: models.PlanBusiness, Feature: models.FeatureSMS, Enabled: true},
		{Plan: models.PlanBusiness, Feature: models.FeaturePortal, Enabled: true},
		{Plan: models.PlanBusiness, Feature: models.FeatureReceiptsEmail, Enabled: true},
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&flags).Error; err != nil {
		return fmt.Errorf("seed feature flags: %w", err)
	}

	settings := []models.PlatformSetting{
		{Key: models.SettingSMSKillSwitch, UpdatedBy: "system"},
		{Key: models.SettingEmailKillSwitch, UpdatedBy: "system"},
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
		return fmt.Errorf("seed platform settings: %w", err)
	}

	var n int64
	if err := tx.Model(&models.UsageLimit{}).Where("company_id = ''").Count(&n).Error; err != nil {
		return fmt.Errorf("count usage limits: %w", err)
	}
	if n > 0 {
		return nil
	}
	limits := []models.UsageLimit{
		{Plan: models.PlanPro, Metric: models.MetricSMSMonthly, MonthlyLimit: 500},
		{Plan: models.PlanBusiness, Metric: models.MetricSMSMonthly, MonthlyLimit: 2000},
	}
	if err := tx.Create(&limits).Error; err != nil {
		return fmt.Errorf("seed usage limits: %w", err)
	}
	return nil
}
