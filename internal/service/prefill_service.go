package service

import (
	"context"
	"errors"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/dto"
	"weconnect-crm/internal/model"
	"weconnect-crm/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrefillService proposes document drafts from related records. It never
// writes: the caller saves the draft through DocumentService.
type PrefillService interface {
	PrefillFromSource(ctx context.Context, kind domain.SourceKind, sourceID uuid.UUID, target domain.DocumentType) (*dto.DocumentDraft, error)
	// SeedItemFromProduct copies catalog values into a new line item. Later
	// catalog edits never reach the item.
	SeedItemFromProduct(ctx context.Context, productID uuid.UUID) (*dto.LineItemInput, error)
}

type prefillService struct {
	parties  repository.PartyRepository
	products repository.ProductRepository
	docs     repository.DocumentRepository
	registry RegistryService
}

func NewPrefillService(
	parties repository.PartyRepository,
	products repository.ProductRepository,
	docs repository.DocumentRepository,
	registry RegistryService,
) PrefillService {
	return &prefillService{parties: parties, products: products, docs: docs, registry: registry}
}

func (s *prefillService) PrefillFromSource(ctx context.Context, kind domain.SourceKind, sourceID uuid.UUID, target domain.DocumentType) (*dto.DocumentDraft, error) {
	if !target.IsValid() {
		return nil, domain.NewValidationError().Add("document_type", "must be QUOTATION or INVOICE")
	}
	switch kind {
	case domain.SourceLead:
		return s.fromLead(ctx, sourceID, target)
	case domain.SourceDeal:
		return s.fromDeal(ctx, sourceID, target)
	case domain.SourceQuotation:
		if target != domain.DocumentTypeInvoice {
			return nil, domain.NewValidationError().Add("document_type", "a quotation can only be converted into an invoice")
		}
		return s.fromQuotation(ctx, sourceID)
	}
	return nil, domain.NewValidationError().Add("source_kind", "must be LEAD, DEAL or QUOTATION")
}

func (s *prefillService) newDraft(ctx context.Context, target domain.DocumentType) *dto.DocumentDraft {
	return &dto.DocumentDraft{
		DocumentType:  string(target),
		CurrencyCode:  s.defaultCurrency(ctx),
		Items:         []dto.LineItemInput{},
		DiscountType:  string(domain.DiscountNone),
		DiscountValue: decimal.Zero,
		Adjustment:    decimal.Zero,
	}
}

func (s *prefillService) fromLead(ctx context.Context, id uuid.UUID, target domain.DocumentType) (*dto.DocumentDraft, error) {
	lead, err := s.parties.FindLead(ctx, id)
	if err != nil {
		return nil, err
	}
	d := s.newDraft(ctx, target)
	d.SourceKind = string(domain.SourceLead)
	d.SourceID = lead.ID.String()
	d.Party = partyFromLead(lead)
	if lead.Currency != nil && *lead.Currency != "" {
		d.CurrencyCode = *lead.Currency
	}
	return d, nil
}

func (s *prefillService) fromDeal(ctx context.Context, id uuid.UUID, target domain.DocumentType) (*dto.DocumentDraft, error) {
	deal, err := s.parties.FindDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	d := s.newDraft(ctx, target)
	d.SourceKind = string(domain.SourceDeal)
	d.SourceID = deal.ID.String()
	d.Subject = deal.Title
	if deal.LeadID != nil {
		lead, err := s.parties.FindLead(ctx, *deal.LeadID)
		switch {
		case err == nil:
			d.Party = partyFromLead(lead)
		case errors.Is(err, domain.ErrNotFound):
			// lead trashed or gone: leave the party for the user to fill
		default:
			return nil, err
		}
	}
	if deal.Currency != nil && *deal.Currency != "" {
		d.CurrencyCode = *deal.Currency
	}
	return d, nil
}

func (s *prefillService) fromQuotation(ctx context.Context, id uuid.UUID) (*dto.DocumentDraft, error) {
	q, err := s.docs.FindByID(ctx, domain.DocumentTypeQuotation, id)
	if err != nil {
		return nil, err
	}
	if q.Status == domain.StatusRejected {
		return nil, domain.NewValidationError().Add("source_id", "a rejected quotation cannot be converted")
	}

	d := &dto.DocumentDraft{
		DocumentType:      string(domain.DocumentTypeInvoice),
		SourceQuotationID: q.ID.String(),
		Subject:           q.Subject,
		Party:             partyFromSnapshot(q.Party),
		CurrencyCode:      q.CurrencyCode,
		Items:             make([]dto.LineItemInput, len(q.Items)),
		DiscountType:      string(q.DiscountType),
		DiscountValue:     q.DiscountValue,
		Adjustment:        q.Adjustment,
		Notes:             q.Notes,
		Terms:             q.Terms,
	}
	if q.SourceKind != nil && q.SourceID != nil {
		d.SourceKind = string(*q.SourceKind)
		d.SourceID = q.SourceID.String()
	}
	for i, it := range q.Items {
		d.Items[i] = itemInputFromModel(it)
	}
	return d, nil
}

func (s *prefillService) SeedItemFromProduct(ctx context.Context, productID uuid.UUID) (*dto.LineItemInput, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	pid := p.ID.String()
	item := &dto.LineItemInput{
		ProductID:    &pid,
		Name:         p.Name,
		Quantity:     decimal.NewFromInt(1),
		Unit:         p.Unit,
		UnitPrice:    p.Price,
		TaxRate:      p.TaxRate,
		DiscountRate: decimal.Zero,
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	return item, nil
}

// defaultCurrency is the registry default, or "" when none is flagged.
func (s *prefillService) defaultCurrency(ctx context.Context) string {
	if s.registry == nil {
		return ""
	}
	list, err := s.registry.ListCurrencies(ctx)
	if err != nil {
		return ""
	}
	for _, c := range list {
		if c.IsDefault {
			return c.Code
		}
	}
	return ""
}

func partyFromLead(l *model.Lead) dto.PartyInput {
	name := l.FullName()
	if name == "" {
		name = l.Company
	}
	return dto.PartyInput{
		Name:    name,
		Email:   l.Email,
		Phone:   l.Phone,
		Address: l.Address,
		City:    l.City,
		State:   l.State,
		Country: l.Country,
		ZipCode: l.ZipCode,
	}
}

func partyFromSnapshot(p model.PartySnapshot) dto.PartyInput {
	return dto.PartyInput{
		Name:    p.Name,
		Email:   p.Email,
		Phone:   p.Phone,
		Address: p.Address,
		City:    p.City,
		State:   p.State,
		Country: p.Country,
		ZipCode: p.ZipCode,
	}
}

// itemInputFromModel copies a stored line by value; no pointer is shared
// with the source document.
func itemInputFromModel(it model.DocumentItem) dto.LineItemInput {
	in := dto.LineItemInput{
		Name:         it.Name,
		Description:  it.Description,
		Quantity:     it.Quantity,
		Unit:         it.Unit,
		UnitPrice:    it.UnitPrice,
		TaxRate:      it.TaxRate,
		DiscountRate: it.DiscountRate,
	}
	if it.ProductID != nil {
		pid := it.ProductID.String()
		in.ProductID = &pid
	}
	return in
}
