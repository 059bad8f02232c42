package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/dto"
	"weconnect-crm/internal/infra"
	"weconnect-crm/internal/model"
	"weconnect-crm/internal/repository"
	"weconnect-crm/internal/service"
	"weconnect-crm/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// stubNotifier records "document sent" jobs instead of pushing to Redis.
type stubNotifier struct {
	mu   sync.Mutex
	jobs []worker.DocumentSentPayload
	err  error
}

func (n *stubNotifier) EnqueueDocumentSent(_ context.Context, p worker.DocumentSentPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.jobs = append(n.jobs, p)
	return nil
}

var _ service.Notifier = (*stubNotifier)(nil)
var _ service.Notifier = (*worker.Dispatcher)(nil)

// env wires the document services over an in-memory SQLite database.
type env struct {
	db        *gorm.DB
	docRepo   repository.DocumentRepository
	parties   repository.PartyRepository
	products  repository.ProductRepository
	registry  service.RegistryService
	prefill   service.PrefillService
	docs      service.DocumentService
	trash     service.TrashService
	notifier  *stubNotifier
	taxRateID uuid.UUID
	actor     service.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := infra.NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, infra.AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	ctx := context.Background()
	regRepo := repository.NewRegistryRepository(db)
	require.NoError(t, regRepo.UpsertCurrency(ctx, &model.Currency{Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRate: dec("1"), IsActive: true, IsDefault: true}))
	require.NoError(t, regRepo.UpsertCurrency(ctx, &model.Currency{Code: "EUR", Name: "Euro", Symbol: "€", ExchangeRate: dec("0.92"), IsActive: true}))
	require.NoError(t, regRepo.UpsertCurrency(ctx, &model.Currency{Code: "GBP", Name: "Pound Sterling", Symbol: "£", ExchangeRate: dec("0.79"), IsActive: false}))
	vat := &model.TaxRate{Name: "VAT 10%", Rate: dec("10"), IsActive: true}
	require.NoError(t, regRepo.CreateTaxRate(ctx, vat))

	e := &env{
		db:        db,
		docRepo:   repository.NewDocumentRepository(db),
		parties:   repository.NewPartyRepository(db),
		products:  repository.NewProductRepository(db),
		notifier:  &stubNotifier{},
		taxRateID: vat.ID,
		actor:     service.Actor{UserID: uuid.New(), Role: "sales"},
	}
	e.registry = service.NewRegistryService(regRepo, nil, 0)
	e.prefill = service.NewPrefillService(e.parties, e.products, e.docRepo, e.registry)
	e.docs = service.NewDocumentService(
		e.docRepo,
		service.NewNumberingService(repository.NewSequenceRepository(db)),
		e.registry,
		e.prefill,
		e.notifier,
		nil,
	)
	e.trash = service.NewTrashService(repository.DefaultTrashables(db), nil, 2)
	return e
}

// twoLineRequest is the worked example: 220 + 45 = 265.
func twoLineRequest() dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{DocumentFields: dto.DocumentFields{
		Subject:      "Website redesign",
		Party:        dto.PartyInput{Name: "Acme Corp", Email: "buyer@acme.test", City: "Pune"},
		CurrencyCode: "USD",
		Items: []dto.LineItemInput{
			{Name: "Design", Quantity: dec("2"), Unit: "hour", UnitPrice: dec("100"), TaxRate: dec("10")},
			{Name: "Hosting", Quantity: dec("1"), Unit: "month", UnitPrice: dec("50"), DiscountRate: dec("10")},
		},
		Notes: "Net 30",
		Terms: "Prices valid for 30 days",
	}}
}

func (e *env) create(t *testing.T, dt domain.DocumentType, req dto.CreateDocumentRequest) *dto.DocumentResponse {
	t.Helper()
	resp, err := e.docs.Create(context.Background(), e.actor, dt, req)
	require.NoError(t, err)
	return resp
}

func (e *env) transition(t *testing.T, d *dto.DocumentResponse, status string) *dto.DocumentResponse {
	t.Helper()
	dt, _ := domain.ParseDocumentType(d.DocumentType)
	resp, err := e.docs.Transition(context.Background(), e.actor, dt, uuid.MustParse(d.ID), dto.TransitionRequest{Status: status, Version: d.Version})
	require.NoError(t, err)
	return resp
}
