package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
	"github.com/caraka20/tutontrack/pkg/response"
)

type courseDeadlineService interface {
	List(ctx context.Context, courseID int64) ([]models.CourseDeadline, error)
	Upsert(ctx context.Context, courseID int64, req dto.UpsertCourseDeadlineRequest) (*models.CourseDeadline, error)
}

// CourseDeadlineHandler exposes course master deadlines.
type CourseDeadlineHandler struct {
	deadlines courseDeadlineService
}

// NewCourseDeadlineHandler constructs the handler.
func NewCourseDeadlineHandler(deadlines courseDeadlineService) *CourseDeadlineHandler {
	return &CourseDeadlineHandler{deadlines: deadlines}
}

// List godoc
// @Summary List course deadlines
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/deadlines [get]
func (h *CourseDeadlineHandler) List(c *gin.Context) {
	courseID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	deadlines, err := h.deadlines.List(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, deadlines)
}

// Upsert godoc
// @Summary Upsert a course deadline
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body dto.UpsertCourseDeadlineRequest true "Deadline payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/deadlines [put]
func (h *CourseDeadlineHandler) Upsert(c *gin.Context) {
	courseID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpsertCourseDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	deadline, err := h.deadlines.Upsert(c.Request.Context(), courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, deadline)
}
