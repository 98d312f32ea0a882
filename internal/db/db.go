package db

import (
	"errors"
	"log"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/ads-account-gateway/internal/db/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned by store lookups that match no row.
var ErrNotFound = errors.New("record not found")

// InitDB opens the database named by dsn and runs migrations. postgres:// and
// postgresql:// URLs use the PostgreSQL driver; anything else is a SQLite path.
func InitDB(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Printf("🗄️  Database ready (%s)", dialector.Name())
	return db, nil
}

// Migrate creates or updates the gateway tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Credential{}, &models.AccountAssociation{}, &models.ToolCallLog{})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
