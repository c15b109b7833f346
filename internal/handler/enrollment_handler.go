package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/models"
	"github.com/caraka20/tutontrack/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req dto.EnrollRequest) (*models.EnrollmentDetail, error)
	Delete(ctx context.Context, id int64, force bool) error
}

type quizService interface {
	AddQuiz(ctx context.Context, enrollmentID int64, req dto.AddQuizRequest) (*models.TutonItem, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
	items       quizService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService, items quizService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, items: items}
}

// Create godoc
// @Summary Enroll student
// @Description Creates the enrollment and seeds its default checklist.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Delete godoc
// @Summary Delete enrollment
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param force query bool false "Delete checklist items and reminders too"
// @Success 204
// @Failure 412 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	force, err := boolQuery(c, "force")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.enrollments.Delete(c.Request.Context(), id, force); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddQuiz godoc
// @Summary Add quiz item
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param payload body dto.AddQuizRequest true "Quiz payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/quiz [post]
func (h *EnrollmentHandler) AddQuiz(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AddQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	item, err := h.items.AddQuiz(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}
