package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/middleware"
	"github.com/caraka20/tutontrack/pkg/response"
)

type progressService interface {
	StudentProgress(ctx context.Context, studentID int64, windowDays *int) (*dto.StudentProgress, bool, error)
	EnrollmentProgress(ctx context.Context, enrollmentID int64, windowDays *int) (*dto.ProgressSummary, error)
	DueSoon(ctx context.Context, studentID int64, windowDays *int, includeUndated bool) ([]dto.DueSoonRow, error)
}

type progressExporter interface {
	StudentProgress(ctx context.Context, studentID int64, format string) (*dto.ExportFile, error)
}

// ProgressHandler serves progress summaries.
type ProgressHandler struct {
	progress progressService
	exporter progressExporter
}

// NewProgressHandler constructs a ProgressHandler.
func NewProgressHandler(progress progressService, exporter progressExporter) *ProgressHandler {
	return &ProgressHandler{progress: progress, exporter: exporter}
}

// StudentProgress godoc
// @Summary Student progress
// @Description Per-enrollment summaries and student totals.
// @Tags Progress
// @Produce json
// @Param id path int true "Student ID"
// @Param windowDays query int false "Due-soon window in days"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/progress [get]
func (h *ProgressHandler) StudentProgress(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	window, err := optionalIntQuery(c, "windowDays")
	if err != nil {
		response.Error(c, err)
		return
	}

	progress, hit, err := h.progress.StudentProgress(c.Request.Context(), studentID, window)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, progress, middleware.ExtractMeta(c))
}

// DueSoon godoc
// @Summary Due-soon items of a student
// @Tags Progress
// @Produce json
// @Param id path int true "Student ID"
// @Param windowDays query int false "Due-soon window in days"
// @Param includeUndated query bool false "List items without a deadline last"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/due-soon [get]
func (h *ProgressHandler) DueSoon(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	window, err := optionalIntQuery(c, "windowDays")
	if err != nil {
		response.Error(c, err)
		return
	}
	includeUndated, err := boolQuery(c, "includeUndated")
	if err != nil {
		response.Error(c, err)
		return
	}

	rows, err := h.progress.DueSoon(c.Request.Context(), studentID, window, includeUndated)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, middleware.MetaCount, len(rows))
	if window != nil {
		middleware.SetMeta(c, middleware.MetaWindowDays, *window)
	}
	response.OK(c, rows, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export student progress
// @Tags Progress
// @Produce text/csv
// @Produce application/pdf
// @Param id path int true "Student ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /students/{id}/progress/export [get]
func (h *ProgressHandler) Export(c *gin.Context) {
	studentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.StudentProgress(c.Request.Context(), studentID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// EnrollmentProgress godoc
// @Summary Enrollment progress
// @Tags Progress
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param windowDays query int false "Due-soon window in days"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/progress [get]
func (h *ProgressHandler) EnrollmentProgress(c *gin.Context) {
	enrollmentID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	window, err := optionalIntQuery(c, "windowDays")
	if err != nil {
		response.Error(c, err)
		return
	}

	summary, err := h.progress.EnrollmentProgress(c.Request.Context(), enrollmentID, window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}
