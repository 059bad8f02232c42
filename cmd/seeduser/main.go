// seeduser creates or updates the demo admin and seeds the currency and tax
// registries. Safe to re-run.
// Usage: go run ./cmd/seeduser
package main

import (
	"context"
	"os"
	"time"

	"weconnect-crm/internal/config"
	"weconnect-crm/internal/infra"
	"weconnect-crm/internal/model"
	"weconnect-crm/internal/repository"
	"weconnect-crm/internal/router"
	"weconnect-crm/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}
	if err := infra.MigrateUp(db, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("migrate error")
	}
	ctx := context.Background()

	email := envOr("SEED_ADMIN_EMAIL", "admin@weconnect.local")
	password := envOr("SEED_ADMIN_PASSWORD", "change-me-now")
	hash, err := service.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}
	admin := model.User{Email: email, Name: "Admin Demo", PasswordHash: hash, Role: router.RoleAdmin}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]any{"password_hash": hash, "role": router.RoleAdmin, "deleted_at": nil}),
	}).Create(&admin).Error
	if err != nil {
		log.Fatal().Err(err).Msg("user upsert error")
	}

	registry := repository.NewRegistryRepository(db)
	currencies := []model.Currency{
		{Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRate: decimal.NewFromInt(1), IsActive: true, IsDefault: true},
		{Code: "EUR", Name: "Euro", Symbol: "€", ExchangeRate: decimal.RequireFromString("0.92"), IsActive: true},
		{Code: "GBP", Name: "Pound Sterling", Symbol: "£", ExchangeRate: decimal.RequireFromString("0.79"), IsActive: true},
		{Code: "INR", Name: "Indian Rupee", Symbol: "₹", ExchangeRate: decimal.RequireFromString("83.10"), IsActive: true},
	}
	for i := range currencies {
		if err := registry.UpsertCurrency(ctx, &currencies[i]); err != nil {
			log.Fatal().Err(err).Str("code", currencies[i].Code).Msg("currency upsert error")
		}
	}

	for _, t := range []model.TaxRate{
		{Name: "GST 18%", Rate: decimal.NewFromInt(18), IsActive: true},
		{Name: "VAT 20%", Rate: decimal.NewFromInt(20), IsActive: true},
		{Name: "Exempt", Rate: decimal.Zero, IsActive: true},
	} {
		var n int64
		if err := db.WithContext(ctx).Model(&model.TaxRate{}).Where("name = ?", t.Name).Count(&n).Error; err != nil {
			log.Fatal().Err(err).Msg("tax rate lookup error")
		}
		if n > 0 {
			continue
		}
		if err := registry.CreateTaxRate(ctx, &t); err != nil {
			log.Fatal().Err(err).Str("name", t.Name).Msg("tax rate insert error")
		}
	}

	if err := infra.SeedSequences(db); err != nil {
		log.Fatal().Err(err).Msg("sequence seed error")
	}
	log.Info().Str("email", email).Msg("admin user and registries seeded")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
