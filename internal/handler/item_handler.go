package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
	"github.com/caraka20/tutontrack/pkg/response"
)

type itemService interface {
	UpdateStatus(ctx context.Context, id int64, req dto.UpdateItemStatusRequest) (*models.TutonItem, error)
	SetDeadline(ctx context.Context, id int64, req dto.SetItemDeadlineRequest) (*models.TutonItem, error)
}

// ItemHandler exposes checklist item endpoints.
type ItemHandler struct {
	items itemService
}

// NewItemHandler constructs an ItemHandler.
func NewItemHandler(items itemService) *ItemHandler {
	return &ItemHandler{items: items}
}

// UpdateStatus godoc
// @Summary Update item status
// @Tags Items
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param payload body dto.UpdateItemStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/status [patch]
func (h *ItemHandler) UpdateStatus(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	item, err := h.items.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// SetDeadline godoc
// @Summary Set or clear the item deadline override
// @Tags Items
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param payload body dto.SetItemDeadlineRequest true "Deadline payload; null clears"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/deadline [put]
func (h *ItemHandler) SetDeadline(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SetItemDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	item, err := h.items.SetDeadline(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
