package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caraka20/tutontrack/internal/middleware"
	"github.com/caraka20/tutontrack/internal/models"
)

// Handlers groups every API handler mounted under the API prefix.
type Handlers struct {
	Auth            *AuthHandler
	Progress        *ProgressHandler
	Enrollments     *EnrollmentHandler
	Items           *ItemHandler
	Reminders       *ReminderHandler
	CourseDeadlines *CourseDeadlineHandler
}

// RegisterRoutes mounts the API. authn authenticates the admin; every active
// admin may call every secured route.
func RegisterRoutes(api gin.IRouter, h Handlers, authn gin.HandlerFunc, logger *zap.Logger) {
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(authn, middleware.RequireRoles(models.RoleOwner, models.RoleAdmin))

	secured.GET("/auth/me", h.Auth.Me)

	secured.GET("/students/:id/progress", h.Progress.StudentProgress)
	secured.GET("/students/:id/progress/export", h.Progress.Export)
	secured.GET("/students/:id/due-soon", h.Progress.DueSoon)
	secured.GET("/enrollments/:id/progress", h.Progress.EnrollmentProgress)

	secured.POST("/enrollments", middleware.Audit(logger, "enrollment.create"), h.Enrollments.Create)
	secured.DELETE("/enrollments/:id", middleware.Audit(logger, "enrollment.delete"), h.Enrollments.Delete)
	secured.POST("/enrollments/:id/quiz", middleware.Audit(logger, "item.quiz.create"), h.Enrollments.AddQuiz)

	secured.PATCH("/items/:id/status", middleware.Audit(logger, "item.status"), h.Items.UpdateStatus)
	secured.PUT("/items/:id/deadline", middleware.Audit(logger, "item.deadline"), h.Items.SetDeadline)
	secured.GET("/items/:id/reminders", h.Reminders.ListByItem)
	secured.POST("/items/:id/reminders", middleware.Audit(logger, "reminder.create"), h.Reminders.Create)
	secured.PUT("/items/:id/reminder-preference", middleware.Audit(logger, "reminder.preference"), h.Reminders.UpsertPreference)

	secured.GET("/reminders/due", h.Reminders.Due)
	secured.POST("/reminders/:id/send", middleware.Audit(logger, "reminder.send"), h.Reminders.Send)
	secured.POST("/reminders/:id/cancel", middleware.Audit(logger, "reminder.cancel"), h.Reminders.Cancel)
	secured.PATCH("/reminders/:id/active", middleware.Audit(logger, "reminder.active"), h.Reminders.SetActive)
	secured.PATCH("/reminders/:id/offset", middleware.Audit(logger, "reminder.offset"), h.Reminders.SetOffset)

	secured.GET("/courses/:id/deadlines", h.CourseDeadlines.List)
	secured.PUT("/courses/:id/deadlines", middleware.Audit(logger, "course.deadline"), h.CourseDeadlines.Upsert)
}
