package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/getyoursite/getyoursite/app/models"
	"github.com/getyoursite/getyoursite/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

func GetDB() *gorm.DB {
	return DB
}

// MySQLDSN builds the DSN from the DB_* keys.
func MySQLDSN() string {
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", "getyoursite"),
	)
}

// SetupDatabase connects to MySQL with retries. Schema changes are applied by
// cmd/migrate; AutoMigrate only runs in dev.
func SetupDatabase() error {
	var err error
	dsn := MySQLDSN()

	logLevel := logger.Warn
	if env.IsDev() {
		logLevel = logger.Info
	}

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logLevel),
		})
		if err == nil {
			if env.IsDev() {
				if err := DB.AutoMigrate(&models.PaymentTransaction{}, &models.PaymentWebhookEvent{}); err != nil {
					log.Warnf("AutoMigrate failed: %v", err)
				}
			}
			return nil
		}

		log.Warnf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Infof("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	return fmt.Errorf("connect mysql: %w", err)
}
