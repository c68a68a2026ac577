package data

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/nostrlabs/nostroracle/src/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var allModels = []interface{}{
	&types.SystemStats{}, &types.Setting{},
	&types.NostrEvent{}, &types.VerificationRecord{},
	&types.ClaimRecord{}, &types.SourceRecord{},
	&types.ClaimCache{},
}

// ConnectMySQL opens a gorm DB with sane defaults.
func ConnectMySQL(dsn string) (*gorm.DB, error) {
	dsn = ensureParam(dsn, "parseTime", "true")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
		dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
	}

	gormLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{SlowThreshold: time.Second, LogLevel: logger.Warn, IgnoreRecordNotFoundError: true, Colorful: false},
	)

	return gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
}

// Migrate creates the schema and seeds the single stats row.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels...); err != nil {
		return err
	}
	var stats types.SystemStats
	err := db.First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := db.Create(&types.SystemStats{ID: 1}).Error; err != nil {
			return err
		}
		log.Printf("data: system stats initialized")
		return nil
	}
	return err
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}
