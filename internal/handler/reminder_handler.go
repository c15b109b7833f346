package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/middleware"
	"github.com/caraka20/tutontrack/internal/models"
	"github.com/caraka20/tutontrack/pkg/response"
)

type reminderService interface {
	Create(ctx context.Context, itemID, adminID int64, req dto.CreateReminderRequest) (*models.Reminder, error)
	UpsertPreference(ctx context.Context, itemID int64, req dto.ReminderPreferenceRequest) (*models.Reminder, error)
	MarkSent(ctx context.Context, id int64) (*models.Reminder, error)
	Cancel(ctx context.Context, id int64) (*models.Reminder, error)
	SetActive(ctx context.Context, id int64, req dto.SetReminderActiveRequest) (*models.Reminder, error)
	SetOffset(ctx context.Context, id int64, req dto.SetReminderOffsetRequest) (*models.Reminder, error)
	ListByItem(ctx context.Context, itemID int64) ([]models.Reminder, error)
	Due(ctx context.Context) ([]dto.DueReminder, error)
}

// ReminderHandler exposes the reminder lifecycle.
type ReminderHandler struct {
	reminders reminderService
}

// NewReminderHandler constructs a ReminderHandler.
func NewReminderHandler(reminders reminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

// ListByItem godoc
// @Summary List item reminders
// @Tags Reminders
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/reminders [get]
func (h *ReminderHandler) ListByItem(c *gin.Context) {
	itemID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	reminders, err := h.reminders.ListByItem(c.Request.Context(), itemID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reminders)
}

// Create godoc
// @Summary Create admin reminder
// @Tags Reminders
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param payload body dto.CreateReminderRequest false "Reminder payload"
// @Success 201 {object} response.Envelope
// @Router /items/{id}/reminders [post]
func (h *ReminderHandler) Create(c *gin.Context) {
	itemID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateReminderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, invalidPayload(err))
			return
		}
	}
	reminder, err := h.reminders.Create(c.Request.Context(), itemID, adminIDFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reminder)
}

// UpsertPreference godoc
// @Summary Upsert the WEB reminder preference of an item
// @Tags Reminders
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param payload body dto.ReminderPreferenceRequest true "Preference payload"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/reminder-preference [put]
func (h *ReminderHandler) UpsertPreference(c *gin.Context) {
	itemID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReminderPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	reminder, err := h.reminders.UpsertPreference(c.Request.Context(), itemID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reminder)
}

// Send godoc
// @Summary Mark reminder sent
// @Tags Reminders
// @Produce json
// @Param id path int true "Reminder ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reminders/{id}/send [post]
func (h *ReminderHandler) Send(c *gin.Context) {
	h.transition(c, h.reminders.MarkSent)
}

// Cancel godoc
// @Summary Cancel reminder
// @Tags Reminders
// @Produce json
// @Param id path int true "Reminder ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reminders/{id}/cancel [post]
func (h *ReminderHandler) Cancel(c *gin.Context) {
	h.transition(c, h.reminders.Cancel)
}

func (h *ReminderHandler) transition(c *gin.Context, apply func(context.Context, int64) (*models.Reminder, error)) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	reminder, err := apply(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reminder)
}

// SetActive godoc
// @Summary Toggle a WEB reminder
// @Tags Reminders
// @Accept json
// @Produce json
// @Param id path int true "Reminder ID"
// @Param payload body dto.SetReminderActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /reminders/{id}/active [patch]
func (h *ReminderHandler) SetActive(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SetReminderActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	reminder, err := h.reminders.SetActive(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reminder)
}

// SetOffset godoc
// @Summary Change a WEB reminder offset
// @Tags Reminders
// @Accept json
// @Produce json
// @Param id path int true "Reminder ID"
// @Param payload body dto.SetReminderOffsetRequest true "Offset in minutes"
// @Success 200 {object} response.Envelope
// @Router /reminders/{id}/offset [patch]
func (h *ReminderHandler) SetOffset(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SetReminderOffsetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	reminder, err := h.reminders.SetOffset(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, reminder)
}

// Due godoc
// @Summary Reminders due now
// @Tags Reminders
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reminders/due [get]
func (h *ReminderHandler) Due(c *gin.Context) {
	due, err := h.reminders.Due(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, middleware.MetaCount, len(due))
	response.OK(c, due, middleware.ExtractMeta(c))
}
