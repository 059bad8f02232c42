package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/dto"
	"weconnect-crm/internal/model"
	"weconnect-crm/internal/pricing"
	"weconnect-crm/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	cacheKeyCurrencies = "registry:currencies"
	cacheKeyTaxRates   = "registry:tax_rates"
)

// RegistryService is the read side of the currency and tax-rate registry.
// Lookups are cached in Redis; a nil client or a Redis failure falls back to
// the database.
type RegistryService interface {
	ListCurrencies(ctx context.Context) ([]dto.CurrencyResponse, error)
	ListTaxRates(ctx context.Context) ([]dto.TaxRateResponse, error)
	// ValidateCurrency resolves an active currency or returns
	// *domain.UnknownCurrencyOrTaxError.
	ValidateCurrency(ctx context.Context, code string) (*model.Currency, error)
	ValidateTaxRate(ctx context.Context, id uuid.UUID) (*model.TaxRate, error)
	// Table snapshots every currency, active or not, for formatting.
	Table(ctx context.Context) (pricing.CurrencyTable, error)
	Invalidate(ctx context.Context)
}

type registryService struct {
	repo repository.RegistryRepository
	rdb  *redis.Client
	ttl  time.Duration
}

func NewRegistryService(repo repository.RegistryRepository, rdb *redis.Client, ttl time.Duration) RegistryService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &registryService{repo: repo, rdb: rdb, ttl: ttl}
}

// currencyTable implements pricing.CurrencyTable over a snapshot.
type currencyTable map[string]pricing.CurrencyInfo

func (t currencyTable) LookupCurrency(code string) (pricing.CurrencyInfo, bool) {
	info, ok := t[strings.ToUpper(code)]
	return info, ok
}

func (s *registryService) currencies(ctx context.Context) ([]model.Currency, error) {
	var out []model.Currency
	if s.cacheGet(ctx, cacheKeyCurrencies, &out) {
		return out, nil
	}
	out, err := s.repo.ListCurrencies(ctx, false)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cacheKeyCurrencies, out)
	return out, nil
}

func (s *registryService) taxRates(ctx context.Context) ([]model.TaxRate, error) {
	var out []model.TaxRate
	if s.cacheGet(ctx, cacheKeyTaxRates, &out) {
		return out, nil
	}
	out, err := s.repo.ListTaxRates(ctx, false)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cacheKeyTaxRates, out)
	return out, nil
}

func (s *registryService) ListCurrencies(ctx context.Context) ([]dto.CurrencyResponse, error) {
	all, err := s.currencies(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.CurrencyResponse, 0, len(all))
	for _, c := range all {
		if !c.IsActive {
			continue
		}
		resp = append(resp, dto.CurrencyResponse{
			Code:         c.Code,
			Name:         c.Name,
			Symbol:       c.Symbol,
			ExchangeRate: c.ExchangeRate,
			MinorUnits:   pricing.MinorUnits(c.Code),
			IsDefault:    c.IsDefault,
		})
	}
	return resp, nil
}

func (s *registryService) ListTaxRates(ctx context.Context) ([]dto.TaxRateResponse, error) {
	all, err := s.taxRates(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.TaxRateResponse, 0, len(all))
	for _, t := range all {
		if !t.IsActive {
			continue
		}
		resp = append(resp, dto.TaxRateResponse{ID: t.ID.String(), Name: t.Name, Rate: t.Rate})
	}
	return resp, nil
}

func (s *registryService) ValidateCurrency(ctx context.Context, code string) (*model.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	all, err := s.currencies(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Code == code && all[i].IsActive {
			return &all[i], nil
		}
	}
	return nil, &domain.UnknownCurrencyOrTaxError{Kind: "currency", Ref: code}
}

func (s *registryService) ValidateTaxRate(ctx context.Context, id uuid.UUID) (*model.TaxRate, error) {
	all, err := s.taxRates(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id && all[i].IsActive {
			return &all[i], nil
		}
	}
	return nil, &domain.UnknownCurrencyOrTaxError{Kind: "tax_rate", Ref: id.String()}
}

func (s *registryService) Table(ctx context.Context) (pricing.CurrencyTable, error) {
	all, err := s.currencies(ctx)
	if err != nil {
		return nil, err
	}
	t := make(currencyTable, len(all))
	for _, c := range all {
		t[c.Code] = pricing.CurrencyInfo{Code: c.Code, Symbol: c.Symbol}
	}
	return t, nil
}

func (s *registryService) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, cacheKeyCurrencies, cacheKeyTaxRates).Err(); err != nil {
		log.Warn().Err(err).Msg("registry: cache invalidation failed")
	}
}

func (s *registryService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.rdb == nil {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Debug().Err(err).Str("key", key).Msg("registry: cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("registry: cache entry corrupt")
		return false
	}
	return true
}

func (s *registryService) cacheSet(ctx context.Context, key string, v any) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("registry: cache write failed")
	}
}
