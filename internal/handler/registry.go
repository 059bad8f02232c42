package handler

import (
	"net/http"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/dto"
	"weconnect-crm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RegistryHandler struct{ svc service.RegistryService }

func NewRegistryHandler(svc service.RegistryService) *RegistryHandler {
	return &RegistryHandler{svc: svc}
}

// Currencies godoc
// @Summary List active currencies
// @Tags registry
// @Produce json
// @Success 200 {array} dto.CurrencyResponse
// @Router /v1/registry/currencies [get]
func (h *RegistryHandler) Currencies(c *gin.Context) {
	resp, err := h.svc.ListCurrencies(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TaxRates godoc
// @Summary List active tax rates
// @Tags registry
// @Produce json
// @Success 200 {array} dto.TaxRateResponse
// @Router /v1/registry/tax-rates [get]
func (h *RegistryHandler) TaxRates(c *gin.Context) {
	resp, err := h.svc.ListTaxRates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Prefill, pricing and numbering ───────────────────────────────────────────

// ComposerHandler backs the document editor: drafts from related records,
// catalog-seeded lines, live totals and the next number.
type ComposerHandler struct {
	prefill   service.PrefillService
	docs      service.DocumentService
	numbering service.NumberingService
}

func NewComposerHandler(prefill service.PrefillService, docs service.DocumentService, numbering service.NumberingService) *ComposerHandler {
	return &ComposerHandler{prefill: prefill, docs: docs, numbering: numbering}
}

// Prefill godoc
// @Summary Propose a document draft from a lead, deal or quotation
// @Description Nothing is stored; post the draft back to create the document.
// @Tags composer
// @Produce json
// @Param source_kind query string true "LEAD | DEAL | QUOTATION"
// @Param source_id query string true "Source ID"
// @Param document_type query string true "QUOTATION | INVOICE"
// @Success 200 {object} dto.DocumentDraft
// @Failure 404 {object} apierror.APIError
// @Router /v1/prefill [get]
func (h *ComposerHandler) Prefill(c *gin.Context) {
	var q dto.PrefillQuery
	if !bindQuery(c, &q) {
		return
	}
	target, ok := domain.ParseDocumentType(q.DocumentType)
	if !ok {
		respondError(c, domain.NewValidationError().Add("document_type", "must be QUOTATION or INVOICE"))
		return
	}
	draft, err := h.prefill.PrefillFromSource(c.Request.Context(), domain.SourceKind(q.SourceKind), uuid.MustParse(q.SourceID), target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// LineItem godoc
// @Summary Seed a line item from a catalog product
// @Tags composer
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} dto.LineItemInput
// @Failure 404 {object} apierror.APIError
// @Router /v1/products/{id}/line-item [get]
func (h *ComposerHandler) LineItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	item, err := h.prefill.SeedItemFromProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// PricePreview godoc
// @Summary Compute totals without storing anything
// @Tags composer
// @Accept json
// @Produce json
// @Param body body dto.PricingPreviewRequest true "Items and discount"
// @Success 200 {object} dto.PricingPreviewResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/pricing/preview [post]
func (h *ComposerHandler) PricePreview(c *gin.Context) {
	var req dto.PricingPreviewRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.docs.PricePreview(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// NextNumber godoc
// @Summary Preview the next document number
// @Description Informational only; the number is bound when the document is saved.
// @Tags composer
// @Produce json
// @Param document_type path string true "quotation | invoice"
// @Success 200 {object} dto.NextNumberResponse
// @Router /v1/numbering/{document_type}/next [get]
func (h *ComposerHandler) NextNumber(c *gin.Context) {
	t, ok := domain.ParseDocumentType(c.Param("document_type"))
	if !ok {
		respondError(c, domain.NewValidationError().Add("document_type", "must be QUOTATION or INVOICE"))
		return
	}
	resp, err := h.numbering.Preview(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
