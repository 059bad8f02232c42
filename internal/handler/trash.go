package handler

import (
	"net/http"
	"time"

	"weconnect-crm/internal/apierror"
	"weconnect-crm/internal/domain"
	"weconnect-crm/internal/dto"
	"weconnect-crm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TrashHandler struct{ svc service.TrashService }

func NewTrashHandler(svc service.TrashService) *TrashHandler { return &TrashHandler{svc: svc} }

// target reads the :kind and :id path parameters.
func (h *TrashHandler) target(c *gin.Context) (domain.EntityKind, uuid.UUID, bool) {
	kind, ok := domain.ParseEntityKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, apierror.New("unknown kind "+c.Param("kind")))
		return "", uuid.Nil, false
	}
	id, ok := parseID(c, "id")
	return kind, id, ok
}

// List godoc
// @Summary List trashed records across kinds, newest first
// @Tags trash
// @Produce json
// @Param kind query string false "USER | LEAD | PRODUCT | QUOTATION | INVOICE"
// @Param search query string false "Name or identifier"
// @Success 200 {object} dto.TrashListResponse
// @Router /v1/trash [get]
func (h *TrashHandler) List(c *gin.Context) {
	var q dto.TrashListQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TrashHandler) Stats(c *gin.Context) {
	resp, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TrashHandler) SoftDelete(c *gin.Context) {
	kind, id, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.svc.SoftDelete(c.Request.Context(), actor(c), kind, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Restore godoc
// @Summary Restore a trashed record
// @Tags trash
// @Param kind path string true "Entity kind"
// @Param id path string true "Record ID"
// @Success 204
// @Failure 409 {object} apierror.APIError "not in trash"
// @Router /v1/trash/{kind}/{id}/restore [post]
func (h *TrashHandler) Restore(c *gin.Context) {
	kind, id, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.svc.Restore(c.Request.Context(), actor(c), kind, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Purge godoc
// @Summary Permanently delete a trashed record
// @Tags trash
// @Param kind path string true "Entity kind"
// @Param id path string true "Record ID"
// @Success 204
// @Failure 409 {object} apierror.APIError "not in trash"
// @Router /v1/trash/{kind}/{id}/purge [delete]
func (h *TrashHandler) Purge(c *gin.Context) {
	kind, id, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.svc.Purge(c.Request.Context(), actor(c), kind, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Sweep godoc
// @Summary Purge everything past the retention window
// @Tags trash
// @Produce json
// @Success 200 {object} dto.SweepResponse
// @Router /v1/trash/sweep [post]
func (h *TrashHandler) Sweep(c *gin.Context) {
	resp, err := h.svc.Sweep(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
