package handler

import (
	"net/http"

	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/dto"
	"weconnect-crm/internal/service"

	"github.com/gin-gonic/gin"
)

// DocumentsHandler serves quotations and invoices. Each route group is
// bound to one document type; the handlers are shared.
type DocumentsHandler struct {
	svc   service.DocumentService
	trash service.TrashService
}

func NewDocumentsHandler(svc service.DocumentService, trash service.TrashService) *DocumentsHandler {
	return &DocumentsHandler{svc: svc, trash: trash}
}

// Register mounts the document routes for t on g.
func (h *DocumentsHandler) Register(g *gin.RouterGroup, t domain.DocumentType) {
	g.GET("", h.List(t))
	g.POST("", h.Create(t))
	g.GET("/:id", h.Get(t))
	g.PUT("/:id", h.Update(t))
	g.PATCH("/:id/notes", h.UpdateNotes(t))
	g.POST("/:id/transition", h.Transition(t))
	g.POST("/:id/revert", h.Revert(t))
	g.GET("/:id/history", h.History(t))
	g.DELETE("/:id", h.Delete(t))
	if t == domain.DocumentTypeQuotation {
		g.POST("/:id/convert", h.Convert)
	}
}

// Create godoc
// @Summary Create a quotation or invoice in DRAFT
// @Tags documents
// @Accept json
// @Produce json
// @Param type path string true "quotations | invoices"
// @Param body body dto.CreateDocumentRequest true "Document"
// @Success 201 {object} dto.DocumentResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/{type} [post]
func (h *DocumentsHandler) Create(t domain.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.CreateDocumentRequest
		if !bindAndValidate(c, &req) {
			return
		}
		resp, err := h.svc.Create(c.Request.Context(), actor(c), t, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// List godoc
// @Summary List documents
// @Tags documents
// @Produce json
// @Param type path string true "quotations | invoices"
// @Param status query string false "Lifecycle status"
// @Param search query string false "Number, subject or party"
// @Success 200 {object} dto.DocumentListResponse
// @Router /v1/{type} [get]
func (h *DocumentsHandler) List(t domain.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q dto.DocumentListQuery
		if !bindQuery(c, &q) {
			return
		}
		resp, err := h.svc.List(c.Request.Context(), t, q)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *DocumentsHandler) Get(t domain.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		resp, err := h.svc.Get(c.Request.Context(), t, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Update godoc
// @Summary Replace the editable fields of a DRAFT document
// @Description The body carries the version the client loaded; a stale version yields 409.
// @Tags documents
// @Accept json
// @Produce json
// @Param type path string true "quotations | invoices"
// @Param id path string true "Document ID"
// @Param body body dto.UpdateDocumentRequest true "Document"
// @Success 200 {object} dto.DocumentResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/{type}/{id} [put]
func (h *DocumentsHandler) Update(t domain.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req dto.UpdateDocumentRequest
		if !bindAndValidate(c, &req) {
			return
		}
		resp, err := h.svc.Update(c.Request.Context(), actor(c), t, id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *DocumentsHandler) UpdateNotes(t domain.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req dto.UpdateNotesRequest
		if !bindAndValidate(c, &req) {
			return
		}
		resp, err := h.svc.UpdateNotes(c.Request.Context(), actor(c), t, id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Transition godoc
// @Summary Move a document to its next lifecycle status
// @Tags documents
// @Accept json
// @Produce json
// @Param type path string true "quotations | invoices"
// @Param id path string true "Document ID"
// @Param body body dto.TransitionRequest true "Target status"
// @Success 200 {object} dto.DocumentResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/{type}/{id}/transition [post]
func (h *DocumentsHandler) Transition(t domain.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req dto.TransitionRequest
		if !bindAndValidate(c, &req) {
			return
		}
		resp, err := h.svc.Transition(c.Request.Context(), actor(c), t, id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *DocumentsHandler) Revert(t domain.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req dto.RevertRequest
		if !bindAndValidate(c, &req) {
			return
		}
		resp, err := h.svc.Revert(c.Request.Context(), actor(c), t, id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *DocumentsHandler) History(t domain.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		resp, err := h.svc.History(c.Request.Context(), t, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Delete moves the document to the trash.
func (h *DocumentsHandler) Delete(t domain.DocumentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := h.trash.SoftDelete(c.Request.Context(), actor(c), t.Kind(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// Convert godoc
// @Summary Convert a quotation into a new DRAFT invoice
// @Description The invoice gets its own number. If linking the quotation fails the invoice is still returned with a warning.
// @Tags documents
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 201 {object} dto.DocumentResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/quotations/{id}/convert [post]
func (h *DocumentsHandler) Convert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Convert(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
