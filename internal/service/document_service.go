package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/dto"
	"weconnect-crm/internal/metrics"
	"weconnect-crm/internal/model"
	"weconnect-crm/internal/pricing"
	"weconnect-crm/internal/repository"
	"weconnect-crm/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// DocumentService owns quotation and invoice persistence and lifecycle.
// Both types share one code path; t selects the variant.
type DocumentService interface {
	Create(ctx context.Context, actor Actor, t domain.DocumentType, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	Get(ctx context.Context, t domain.DocumentType, id uuid.UUID) (*dto.DocumentResponse, error)
	List(ctx context.Context, t domain.DocumentType, q dto.DocumentListQuery) (*dto.DocumentListResponse, error)
	Update(ctx context.Context, actor Actor, t domain.DocumentType, id uuid.UUID, req dto.UpdateDocumentRequest) (*dto.DocumentResponse, error)
	UpdateNotes(ctx context.Context, actor Actor, t domain.DocumentType, id uuid.UUID, req dto.UpdateNotesRequest) (*dto.DocumentResponse, error)
	Transition(ctx context.Context, actor Actor, t domain.DocumentType, id uuid.UUID, req dto.TransitionRequest) (*dto.DocumentResponse, error)
	Revert(ctx context.Context, actor Actor, t domain.DocumentType, id uuid.UUID, req dto.RevertRequest) (*dto.DocumentResponse, error)
	History(ctx context.Context, t domain.DocumentType, id uuid.UUID) ([]dto.DocumentEventResponse, error)
	// Convert promotes a quotation into a new invoice with its own number and
	// links the quotation to it. A failed link is reported in Warnings.
	Convert(ctx context.Context, actor Actor, quotationID uuid.UUID) (*dto.DocumentResponse, error)
	// PricePreview runs the pricing engine without storing anything.
	PricePreview(ctx context.Context, req dto.PricingPreviewRequest) (*dto.PricingPreviewResponse, error)
}

// Notifier enqueues the "document sent" email. *worker.Dispatcher satisfies it.
type Notifier interface {
	EnqueueDocumentSent(ctx context.Context, p worker.DocumentSentPayload) error
}

type documentService struct {
	docs      repository.DocumentRepository
	numbering NumberingService
	registry  RegistryService
	prefill   PrefillService
	notifier  Notifier
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewDocumentService(
	docs repository.DocumentRepository,
	numbering NumberingService,
	registry RegistryService,
	prefill PrefillService,
	notifier Notifier,
	m *metrics.Metrics,
) DocumentService {
	return &documentService{
		docs:      docs,
		numbering: numbering,
		registry:  registry,
		prefill:   prefill,
		notifier:  notifier,
		metrics:   m,
		now:       time.Now,
	}
}

// ── Pricing ──────────────────────────────────────────────────────────────────

type pricedFields struct {
	currency   string
	discount   pricing.Discount
	items      []model.DocumentItem
	totals     pricing.Totals
	validUntil *time.Time
	dueDate    *time.Time
}

// mergeValidation folds a *domain.ValidationError into ve and passes any
// other error through.
func mergeValidation(ve *domain.ValidationError, err error) error {
	if err == nil {
		return nil
	}
	var other *domain.ValidationError
	if errors.As(err, &other) {
		for k, v := range other.Fields {
			ve.Add(k, v)
		}
		return nil
	}
	return err
}

func parseDate(ve *domain.ValidationError, field, v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		ve.Add(field, "must be a date formatted YYYY-MM-DD")
		return nil
	}
	return &t
}

// resolveItems seeds product lines, resolves registry tax rates and
// validates ranges. Returned pricing items align with the model items.
func (s *documentService) resolveItems(ctx context.Context, ve *domain.ValidationError, in []dto.LineItemInput) ([]model.DocumentItem, []pricing.Item, error) {
	items := make([]model.DocumentItem, 0, len(in))
	priced := make([]pricing.Item, 0, len(in))

	for i, raw := range in {
		it := raw
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		var productID *uuid.UUID
		if it.ProductID != nil && *it.ProductID != "" {
			id, err := uuid.Parse(*it.ProductID)
			if err != nil {
				ve.Add(field("product_id"), "must be a UUID")
			} else {
				productID = &id
			}
		}

		if productID != nil && strings.TrimSpace(it.Name) == "" {
			seed, err := s.prefill.SeedItemFromProduct(ctx, *productID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				ve.Add(field("product_id"), "product not found")
			case err != nil:
				return nil, nil, err
			default:
				it = mergeSeed(it, *seed)
			}
		}

		if it.TaxRateID != nil && *it.TaxRateID != "" {
			id, err := uuid.Parse(*it.TaxRateID)
			if err != nil {
				ve.Add(field("tax_rate_id"), "must be a UUID")
			} else {
				rate, err := s.registry.ValidateTaxRate(ctx, id)
				if err != nil {
					return nil, nil, err
				}
				it.TaxRate = rate.Rate
			}
		}

		priced = append(priced, pricing.Item{
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TaxRate:      it.TaxRate,
			DiscountRate: it.DiscountRate,
		})
		items = append(items, model.DocumentItem{
			Position:     i,
			ProductID:    productID,
			Name:         strings.TrimSpace(it.Name),
			Description:  it.Description,
			Quantity:     it.Quantity,
			Unit:         it.Unit,
			UnitPrice:    it.UnitPrice,
			TaxRate:      it.TaxRate,
			DiscountRate: it.DiscountRate,
		})
	}

	if err := mergeValidation(ve, pricing.ValidateItems(priced)); err != nil {
		return nil, nil, err
	}
	return items, priced, nil
}

// mergeSeed fills the blanks of a client line from a catalog product.
func mergeSeed(it, seed dto.LineItemInput) dto.LineItemInput {
	it.Name = seed.Name
	if it.Description == "" {
		it.Description = seed.Description
	}
	if it.Unit == "" {
		it.Unit = seed.Unit
	}
	if it.UnitPrice.IsZero() {
		it.UnitPrice = seed.UnitPrice
	}
	if it.TaxRate.IsZero() && (it.TaxRateID == nil || *it.TaxRateID == "") {
		it.TaxRate = seed.TaxRate
	}
	if it.Quantity.IsZero() {
		it.Quantity = seed.Quantity
	}
	return it
}

// price validates the editable fields and recomputes every total. Client
// supplied totals do not exist in the request and are never read.
func (s *documentService) price(ctx context.Context, f dto.DocumentFields) (*pricedFields, error) {
	ve := domain.NewValidationError()

	cur, err := s.registry.ValidateCurrency(ctx, f.CurrencyCode)
	if err != nil {
		return nil, err
	}

	discount := pricing.Discount{
		Type:  domain.DiscountType(strings.ToUpper(f.DiscountType)),
		Value: f.DiscountValue,
	}
	if discount.Type == "" {
		discount.Type = domain.DiscountNone
	}
	if err := mergeValidation(ve, pricing.ValidateDiscount(discount)); err != nil {
		return nil, err
	}

	items, priced, err := s.resolveItems(ctx, ve, f.Items)
	if err != nil {
		return nil, err
	}

	p := &pricedFields{
		currency:   cur.Code,
		discount:   discount,
		items:      items,
		validUntil: parseDate(ve, "valid_until", f.ValidUntil),
		dueDate:    parseDate(ve, "due_date", f.DueDate),
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	p.totals = pricing.PriceDocument(priced, discount, f.Adjustment)
	for i := range p.items {
		p.items[i].LineTotal = p.totals.Items[i].LineTotal
	}
	return p, nil
}

func (p *pricedFields) apply(d *model.SalesDocument) {
	d.CurrencyCode = p.currency
	d.DiscountType = p.discount.Type
	d.DiscountValue = p.discount.Value
	d.Adjustment = p.totals.Adjustment
	d.Subtotal = p.totals.Subtotal
	d.ItemDiscountTotal = p.totals.ItemDiscountTotal
	d.DocumentDiscountAmount = p.totals.DocumentDiscountAmount
	d.TaxTotal = p.totals.TaxTotal
	d.GrossTotal = p.totals.GrossTotal
	d.Total = p.totals.Total
	d.ValidUntil = p.validUntil
	d.DueDate = p.dueDate
	d.Items = p.items
}

func partySnapshot(in dto.PartyInput) model.PartySnapshot {
	return model.PartySnapshot{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   in.Phone,
		Address: in.Address,
		City:    in.City,
		State:   in.State,
		Country: in.Country,
		ZipCode: in.ZipCode,
	}
}

// ── Create / Convert ─────────────────────────────────────────────────────────

type sourceRefs struct {
	kind      *domain.SourceKind
	id        *uuid.UUID
	quotation *model.SalesDocument
}

func (s *documentService) resolveSource(ctx context.Context, t domain.DocumentType, req dto.CreateDocumentRequest) (*sourceRefs, error) {
	ve := domain.NewValidationError()
	refs := &sourceRefs{}

	if (req.SourceKind == "") != (req.SourceID == "") {
		ve.Add("source_id", "source_kind and source_id must be given together")
	} else if req.SourceKind != "" {
		kind := domain.SourceKind(strings.ToUpper(req.SourceKind))
		if !kind.IsParty() {
			ve.Add("source_kind", "must be LEAD or DEAL")
		}
		id, err := uuid.Parse(req.SourceID)
		if err != nil {
			ve.Add("source_id", "must be a UUID")
		}
		refs.kind, refs.id = &kind, &id
	}

	if req.SourceQuotationID != "" {
		if t != domain.DocumentTypeInvoice {
			ve.Add("source_quotation_id", "only invoices can reference a quotation")
			return nil, ve
		}
		qid, err := uuid.Parse(req.SourceQuotationID)
		if err != nil {
			return nil, ve.Add("source_quotation_id", "must be a UUID")
		}
		q, err := s.docs.FindByID(ctx, domain.DocumentTypeQuotation, qid)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			ve.Add("source_quotation_id", "quotation not found")
		case err != nil:
			return nil, err
		case q.Status == domain.StatusRejected:
			ve.Add("source_quotation_id", "a rejected quotation cannot be converted")
		default:
			refs.quotation = q
			if refs.kind == nil && q.SourceKind != nil && q.SourceID != nil {
				kind, id := *q.SourceKind, *q.SourceID
				refs.kind, refs.id = &kind, &id
			}
		}
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *documentService) Create(ctx context.Context, actor Actor, t domain.DocumentType, req dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	if !t.IsValid() {
		return nil, domain.NewValidationError().Add("document_type", "must be QUOTATION or INVOICE")
	}
	priced, err := s.price(ctx, req.DocumentFields)
	if err != nil {
		return nil, err
	}
	refs, err := s.resolveSource(ctx, t, req)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := &model.SalesDocument{
		DocumentType:    t,
		SourceKind:      refs.kind,
		SourceID:        refs.id,
		Subject:         strings.TrimSpace(req.Subject),
		Party:           partySnapshot(req.Party),
		Status:          domain.StatusDraft,
		StatusChangedAt: &now,
		Notes:           req.Notes,
		Terms:           req.Terms,
		Version:         1,
		CreatedBy:       actor.ref(),
	}
	if refs.quotation != nil {
		qid := refs.quotation.ID
		doc.SourceQuotationID = &qid
	}
	priced.apply(doc)

	// The number is allocated in the insert transaction: a failed insert
	// rolls the counter back with it.
	err = runTx(ctx, s.docs.DB(), func(tx *gorm.DB) error {
		number, seq, err := s.numbering.Allocate(ctx, tx, t)
		if err != nil {
			return err
		}
		doc.Number, doc.Sequence = number, seq
		if err := s.docs.Create(ctx, tx, doc); err != nil {
			if repository.IsUniqueViolation(err) {
				return fmt.Errorf("number %s already taken: %w", number, err)
			}
			return fmt.Errorf("create %s: %w", strings.ToLower(string(t)), err)
		}
		return s.docs.AppendEvent(ctx, tx, &model.DocumentEvent{
			DocumentID: doc.ID,
			Action:     model.EventCreated,
			ToStatus:   string(domain.StatusDraft),
			Version:    doc.Version,
			ActorID:    actor.ref(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DocumentCreated(string(t))
	log.Info().
		Str("document_type", string(t)).
		Str("number", doc.Number).
		Str("id", doc.ID.String()).
		Str("total", doc.Total.String()).
		Msg("document created")

	var warnings []string
	if refs.quotation != nil {
		if w := s.linkConversion(ctx, actor, refs.quotation, doc); w != "" {
			warnings = append(warnings, w)
		}
	}
	return s.respond(ctx, doc, warnings), nil
}

// linkConversion records the quotation -> invoice link after the invoice
// committed. It is a separate, retryable write: failure yields a warning
// and the invoice stays saved.
func (s *documentService) linkConversion(ctx context.Context, actor Actor, q *model.SalesDocument, inv *model.SalesDocument) string {
	if err := s.docs.SetConvertedInvoice(ctx, q.ID, inv.ID); err != nil {
		log.Warn().Err(err).Str("quotation", q.Number).Str("invoice", inv.Number).Msg("link quotation to invoice failed")
		return fmt.Sprintf("invoice %s was saved but quotation %s could not be linked to it", inv.Number, q.Number)
	}
	q.ConvertedInvoiceID = &inv.ID
	if err := s.docs.AppendEvent(ctx, nil, &model.DocumentEvent{
		DocumentID: q.ID,
		Action:     model.EventLinked,
		Version:    q.Version,
		ActorID:    actor.ref(),
		Reason:     "converted to invoice " + inv.Number,
	}); err != nil {
		log.Warn().Err(err).Str("quotation", q.Number).Msg("record link event failed")
	}
	return ""
}

func (s *documentService) Convert(ctx context.Context, actor Actor, quotationID uuid.UUID) (*dto.DocumentResponse, error) {
	draft, err := s.prefill.PrefillFromSource(ctx, domain.SourceQuotation, quotationID, domain.DocumentTypeInvoice)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, actor, domain.DocumentTypeInvoice, draft.CreateRequest())
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *documentService) Get(ctx context.Context, t domain.DocumentType, id uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.docs.FindByID(ctx, t, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, doc, nil), nil
}

func (s *documentService) List(ctx context.Context, t domain.DocumentType, q dto.DocumentListQuery) (*dto.DocumentListResponse, error) {
	f := repository.DocumentFilter{Type: t, Search: q.Search, Page: q.Page, Limit: q.Limit}
	if q.Status != "" {
		st := domain.Status(strings.ToUpper(q.Status))
		if !st.IsValidFor(t) {
			return nil, domain.NewValidationError().Add("status", "unknown status for "+strings.ToLower(string(t)))
		}
		f.Status = st
	}
	if q.SourceID != "" {
		id, err := uuid.Parse(q.SourceID)
		if err != nil {
			return nil, domain.NewValidationError().Add("source_id", "must be a UUID")
		}
		f.SourceID = &id
	}

	docs, total, err := s.docs.List(ctx, f)
	if err != nil {
		return nil, err
	}
	table := s.table(ctx)
	_, limit := repository.Page(q.Page, q.Limit)
	page := q.Page
	if page < 1 {
		page = 1
	}
	resp := &dto.DocumentListResponse{Data: make([]dto.DocumentResponse, len(docs)), Total: total, Page: page, Limit: limit}
	for i := range docs {
		resp.Data[i] = toDocumentResponse(&docs[i], table)
	}
	return resp, nil
}

func (s *documentService) History(ctx context.Context, t domain.DocumentType, id uuid.UUID) ([]dto.DocumentEventResponse, error) {
	if _, err := s.docs.FindByID(ctx, t, id); err != nil {
		return nil, err
	}
	events, err := s.docs.ListEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.DocumentEventResponse, len(events))
	for i, e := range events {
		resp[i] = dto.DocumentEventResponse{
			ID:         e.ID.String(),
			Action:     e.Action,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Version:    e.Version,
			ActorID:    uuidString(e.ActorID),
			Reason:     e.Reason,
			CreatedAt:  e.CreatedAt,
		}
	}
	return resp, nil
}

// ── Versioned writes ─────────────────────────────────────────────────────────

// load fetches the document and checks the caller's version up front. The
// conditional UPDATE is still the real guard against concurrent writers.
func (s *documentService) load(ctx context.Context, t domain.DocumentType, id uuid.UUID, version int64) (*model.SalesDocument, error) {
	doc, err := s.docs.FindByID(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if doc.Version != version {
		s.metrics.VersionConflict(string(t))
		return nil, domain.ErrConcurrentModification
	}
	return doc, nil
}

// write applies fields and the audit event in one transaction, then
// reloads the document.
func (s *documentService) write(ctx context.Context, doc *model.SalesDocument, fields map[string]any, items []model.DocumentItem, event model.DocumentEvent) (*model.SalesDocument, error) {
	err := runTx(ctx, s.docs.DB(), func(tx *gorm.DB) error {
		v, err := s.docs.UpdateVersioned(ctx, tx, doc.ID, doc.Version, fields)
		if err != nil {
			return err
		}
		if items != nil {
			if err := s.docs.ReplaceItems(ctx, tx, doc.ID, items); err != nil {
				return err
			}
		}
		event.DocumentID = doc.ID
		event.Version = v
		return s.docs.AppendEvent(ctx, tx, &event)
	})
	if errors.Is(err, domain.ErrConcurrentModification) {
		s.metrics.VersionConflict(string(doc.DocumentType))
	}
	if err != nil {
		return nil, err
	}
	return s.docs.FindByID(ctx, doc.DocumentType, doc.ID)
}

func (s *documentService) Update(ctx context.Context, actor Actor, t domain.DocumentType, id uuid.UUID, req dto.UpdateDocumentRequest) (*dto.DocumentResponse, error) {
	doc, err := s.load(ctx, t, id, req.Version)
	if err != nil {
		return nil, err
	}
	if !domain.AllowsFinancialEdit(doc.Status) {
		return nil, domain.NewValidationError().Add("status", fmt.Sprintf("a %s document only accepts note changes; revert it to DRAFT first", doc.Status))
	}
	priced, err := s.price(ctx, req.DocumentFields)
	if err != nil {
		return nil, err
	}

	party := partySnapshot(req.Party)
	fields := map[string]any{
		"subject":                  strings.TrimSpace(req.Subject),
		"party_name":               party.Name,
		"party_email":              party.Email,
		"party_phone":              party.Phone,
		"party_address":            party.Address,
		"party_city":               party.City,
		"party_state":              party.State,
		"party_country":            party.Country,
		"party_zip_code":           party.ZipCode,
		"currency_code":            priced.currency,
		"discount_type":            priced.discount.Type,
		"discount_value":           priced.discount.Value,
		"adjustment":               priced.totals.Adjustment,
		"subtotal":                 priced.totals.Subtotal,
		"item_discount_total":      priced.totals.ItemDiscountTotal,
		"document_discount_amount": priced.totals.DocumentDiscountAmount,
		"tax_total":                priced.totals.TaxTotal,
		"gross_total":              priced.totals.GrossTotal,
		"total":                    priced.totals.Total,
		"valid_until":              priced.validUntil,
		"due_date":                 priced.dueDate,
		"notes":                    req.Notes,
		"terms":                    req.Terms,
	}
	items := priced.items
	if items == nil {
		items = []model.DocumentItem{}
	}

	updated, err := s.write(ctx, doc, fields, items, model.DocumentEvent{
		Action:     model.EventUpdated,
		FromStatus: string(doc.Status),
		ToStatus:   string(doc.Status),
		ActorID:    actor.ref(),
	})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, updated, nil), nil
}

func (s *documentService) UpdateNotes(ctx context.Context, actor Actor, t domain.DocumentType, id uuid.UUID, req dto.UpdateNotesRequest) (*dto.DocumentResponse, error) {
	doc, err := s.load(ctx, t, id, req.Version)
	if err != nil {
		return nil, err
	}
	updated, err := s.write(ctx, doc, map[string]any{"notes": req.Notes}, nil, model.DocumentEvent{
		Action:     model.EventNotesUpdated,
		FromStatus: string(doc.Status),
		ToStatus:   string(doc.Status),
		ActorID:    actor.ref(),
	})
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, updated, nil), nil
}

// readiness checks what a document needs before it may leave DRAFT.
func readiness(doc *model.SalesDocument, target domain.Status) error {
	ve := domain.NewValidationError()
	if len(doc.Items) == 0 {
		ve.Add("items", "at least one item is required")
	}
	for i, it := range doc.Items {
		if strings.TrimSpace(it.Name) == "" {
			ve.Add(fmt.Sprintf("items[%d].name", i), "is required")
		}
		if !it.UnitPrice.GreaterThan(decimal.Zero) {
			ve.Add(fmt.Sprintf("items[%d].unit_price", i), "must be greater than 0")
		}
	}
	if doc.Party.Name == "" {
		ve.Add("party.name", "is required")
	}
	if target == domain.StatusSent && doc.Party.Email == "" {
		ve.Add("party.email", "is required to send the document")
	}
	return ve.OrNil()
}

func (s *documentService) Transition(ctx context.Context, actor Actor, t domain.DocumentType, id uuid.UUID, req dto.TransitionRequest) (*dto.DocumentResponse, error) {
	doc, err := s.load(ctx, t, id, req.Version)
	if err != nil {
		return nil, err
	}
	target := domain.Status(strings.ToUpper(req.Status))
	opts := domain.TransitionOptions{Reconciliation: req.Reconciliation}
	if !domain.CanTransition(t, doc.Status, target, opts) {
		return nil, &domain.InvalidTransitionError{DocumentType: t, From: doc.Status, To: target}
	}
	if doc.Status == domain.StatusDraft {
		if err := readiness(doc, target); err != nil {
			return nil, err
		}
	}

	reason := ""
	if opts.Reconciliation && doc.Status == domain.StatusDraft && target == domain.StatusPaid {
		reason = "reconciliation"
	}
	updated, err := s.write(ctx, doc, map[string]any{
		"status":            target,
		"status_changed_at": s.now().UTC(),
	}, nil, model.DocumentEvent{
		Action:     model.EventTransition,
		FromStatus: string(doc.Status),
		ToStatus:   string(target),
		ActorID:    actor.ref(),
		Reason:     reason,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(string(t), string(target))
	log.Info().
		Str("number", updated.Number).
		Str("from", string(doc.Status)).
		Str("to", string(target)).
		Int64("version", updated.Version).
		Msg("document transition")

	if target == domain.StatusSent {
		s.notifySent(ctx, updated)
	}
	return s.respond(ctx, updated, nil), nil
}

func (s *documentService) Revert(ctx context.Context, actor Actor, t domain.DocumentType, id uuid.UUID, req dto.RevertRequest) (*dto.DocumentResponse, error) {
	doc, err := s.load(ctx, t, id, req.Version)
	if err != nil {
		return nil, err
	}
	if !domain.CanRevert(t, doc.Status) {
		return nil, &domain.InvalidTransitionError{DocumentType: t, From: doc.Status, To: domain.StatusDraft}
	}
	updated, err := s.write(ctx, doc, map[string]any{
		"status":            domain.StatusDraft,
		"status_changed_at": s.now().UTC(),
	}, nil, model.DocumentEvent{
		Action:     model.EventReverted,
		FromStatus: string(doc.Status),
		ToStatus:   string(domain.StatusDraft),
		ActorID:    actor.ref(),
		Reason:     strings.TrimSpace(req.Reason),
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("number", updated.Number).Str("from", string(doc.Status)).Str("reason", req.Reason).Msg("document reverted to draft")
	return s.respond(ctx, updated, nil), nil
}

// notifySent is best effort: the transition already committed.
func (s *documentService) notifySent(ctx context.Context, doc *model.SalesDocument) {
	if s.notifier == nil || doc.Party.Email == "" {
		return
	}
	p := worker.DocumentSentPayload{
		DocumentID:     doc.ID.String(),
		DocumentType:   string(doc.DocumentType),
		Number:         doc.Number,
		Subject:        doc.Subject,
		ToEmail:        doc.Party.Email,
		PartyName:      doc.Party.Name,
		FormattedTotal: pricing.Format(doc.Total, doc.CurrencyCode, s.table(ctx)),
		DueDate:        formatDate(doc.DueDate),
		ValidUntil:     formatDate(doc.ValidUntil),
	}
	if err := s.notifier.EnqueueDocumentSent(ctx, p); err != nil {
		log.Warn().Err(err).Str("number", doc.Number).Msg("enqueue document sent email failed")
	}
}

// ── Pricing preview ──────────────────────────────────────────────────────────

func (s *documentService) PricePreview(ctx context.Context, req dto.PricingPreviewRequest) (*dto.PricingPreviewResponse, error) {
	ve := domain.NewValidationError()
	discount := pricing.Discount{Type: domain.DiscountType(strings.ToUpper(req.DiscountType)), Value: req.DiscountValue}
	if discount.Type == "" {
		discount.Type = domain.DiscountNone
	}
	if err := mergeValidation(ve, pricing.ValidateDiscount(discount)); err != nil {
		return nil, err
	}
	_, priced, err := s.resolveItems(ctx, ve, req.Items)
	if err != nil {
		return nil, err
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	totals := pricing.PriceDocument(priced, discount, req.Adjustment)
	resp := &dto.PricingPreviewResponse{
		Items:                  make([]dto.PricedItemResponse, len(totals.Items)),
		Subtotal:               totals.Subtotal,
		ItemDiscountTotal:      totals.ItemDiscountTotal,
		DocumentDiscountAmount: totals.DocumentDiscountAmount,
		TaxTotal:               totals.TaxTotal,
		Adjustment:             totals.Adjustment,
		GrossTotal:             totals.GrossTotal,
		Total:                  totals.Total,
		TotalClamped:           totals.Negative(),
		FormattedTotal:         pricing.Format(totals.Total, req.CurrencyCode, s.table(ctx)),
	}
	for i, p := range totals.Items {
		resp.Items[i] = dto.PricedItemResponse(p)
	}
	return resp, nil
}

// ── Mapping ──────────────────────────────────────────────────────────────────

func (s *documentService) table(ctx context.Context) pricing.CurrencyTable {
	t, err := s.registry.Table(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("currency table unavailable, formatting with codes")
		return nil
	}
	return t
}

func (s *documentService) respond(ctx context.Context, doc *model.SalesDocument, warnings []string) *dto.DocumentResponse {
	resp := toDocumentResponse(doc, s.table(ctx))
	resp.Warnings = warnings
	return &resp
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func toDocumentResponse(d *model.SalesDocument, table pricing.CurrencyTable) dto.DocumentResponse {
	resp := dto.DocumentResponse{
		ID:                 d.ID.String(),
		DocumentType:       string(d.DocumentType),
		Number:             d.Number,
		SourceID:           uuidString(d.SourceID),
		SourceQuotationID:  uuidString(d.SourceQuotationID),
		ConvertedInvoiceID: uuidString(d.ConvertedInvoiceID),
		Subject:            d.Subject,
		Party: dto.PartyResponse{
			Name:    d.Party.Name,
			Email:   d.Party.Email,
			Phone:   d.Party.Phone,
			Address: d.Party.Address,
			City:    d.Party.City,
			State:   d.Party.State,
			Country: d.Party.Country,
			ZipCode: d.Party.ZipCode,
		},
		CurrencyCode:           d.CurrencyCode,
		Status:                 string(d.Status),
		NextStatuses:           []string{},
		StatusChangedAt:        d.StatusChangedAt,
		Items:                  make([]dto.LineItemResponse, len(d.Items)),
		DiscountType:           string(d.DiscountType),
		DiscountValue:          d.DiscountValue,
		Adjustment:             d.Adjustment,
		Subtotal:               d.Subtotal,
		ItemDiscountTotal:      d.ItemDiscountTotal,
		DocumentDiscountAmount: d.DocumentDiscountAmount,
		TaxTotal:               d.TaxTotal,
		GrossTotal:             d.GrossTotal,
		Total:                  d.Total,
		TotalClamped:           d.GrossTotal.IsNegative(),
		FormattedTotal:         pricing.Format(d.Total, d.CurrencyCode, table),
		Notes:                  d.Notes,
		Terms:                  d.Terms,
		Version:                d.Version,
		CreatedBy:              uuidString(d.CreatedBy),
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
	if d.SourceKind != nil {
		k := string(*d.SourceKind)
		resp.SourceKind = &k
	}
	if v := formatDate(d.ValidUntil); v != "" {
		resp.ValidUntil = &v
	}
	if v := formatDate(d.DueDate); v != "" {
		resp.DueDate = &v
	}
	for _, st := range domain.NextStatuses(d.DocumentType, d.Status) {
		resp.NextStatuses = append(resp.NextStatuses, string(st))
	}
	for i, it := range d.Items {
		p := pricing.PriceItem(pricing.Item{
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			TaxRate:      it.TaxRate,
			DiscountRate: it.DiscountRate,
		})
		resp.Items[i] = dto.LineItemResponse{
			ID:             it.ID.String(),
			Position:       it.Position,
			ProductID:      uuidString(it.ProductID),
			Name:           it.Name,
			Description:    it.Description,
			Quantity:       it.Quantity,
			Unit:           it.Unit,
			UnitPrice:      it.UnitPrice,
			TaxRate:        it.TaxRate,
			DiscountRate:   it.DiscountRate,
			DiscountAmount: p.DiscountAmount,
			TaxAmount:      p.TaxAmount,
			LineTotal:      it.LineTotal,
		}
	}
	return resp
}
