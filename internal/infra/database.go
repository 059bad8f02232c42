package infra

import (
	"fmt"
	"strings"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// IsSQLite reports whether dsn selects the embedded SQLite driver.
// Accepted forms: "sqlite://path.db", "file:name?mode=memory", "*.db".
func IsSQLite(dsn string) bool {
	return strings.HasPrefix(dsn, sqlitePrefix) ||
		strings.HasPrefix(dsn, "file:") ||
		strings.HasSuffix(dsn, ".db")
}

// NewDatabase opens a GORM connection. Postgres is the production target;
// SQLite serves local runs and tests. The schema itself is owned by the SQL
// migrations in /migrations (see MigrateUp) for Postgres, and by AutoMigrate
// for SQLite.
func NewDatabase(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	if IsSQLite(dsn) {
		db, err := gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix)), cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite has a single writer; one connection serialises the
		// sequence allocator the way a row lock does on Postgres.
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	return db, nil
}

// AutoMigrate creates the schema from the GORM models and seeds the document
// sequences. Used for SQLite only.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return SeedSequences(db)
}

// SeedSequences inserts one counter row per document type. Existing rows are
// left untouched so a re-run never rewinds a counter.
func SeedSequences(db *gorm.DB) error {
	rows := []model.DocumentSequence{
		{DocumentType: domain.DocumentTypeQuotation, Prefix: domain.DocumentTypeQuotation.Prefix()},
		{DocumentType: domain.DocumentTypeInvoice, Prefix: domain.DocumentTypeInvoice.Prefix()},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
