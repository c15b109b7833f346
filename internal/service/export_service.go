package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caraka20/tutontrack/internal/dto"
	appErrors "github.com/caraka20/tutontrack/pkg/errors"
	"github.com/caraka20/tutontrack/pkg/export"
)

type studentProgressSource interface {
	StudentProgress(ctx context.Context, studentID int64, windowDays *int) (*dto.StudentProgress, bool, error)
}

type datasetRenderer interface {
	Render(format export.Format, data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	TitleFormat string
}

var progressExportHeaders = []string{"Enrollment", "Course", "Total", "Selesai", "Progress %", "Overdue", "Due Soon", "Last Updated"}

// ExportService renders progress summaries as downloadable files.
type ExportService struct {
	progress studentProgressSource
	renderer datasetRenderer
	logger   *zap.Logger
	cfg      ExportConfig
	now      Clock
}

// NewExportService constructs an ExportService.
func NewExportService(progress studentProgressSource, renderer datasetRenderer, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	if !strings.Contains(cfg.TitleFormat, "%") {
		cfg.TitleFormat = "Progress Tuton %s"
	}
	return &ExportService{progress: progress, renderer: renderer, logger: logger, cfg: cfg, now: utcNow}
}

// StudentProgress renders the per-enrollment summary table of a student.
func (s *ExportService) StudentProgress(ctx context.Context, studentID int64, rawFormat string) (*dto.ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, "format must be csv or pdf")
	}

	progress, _, err := s.progress.StudentProgress(ctx, studentID, nil)
	if err != nil {
		return nil, err
	}

	label := strconv.FormatInt(studentID, 10)
	body, err := s.renderer.Render(format, progressDataset(progress), fmt.Sprintf(s.cfg.TitleFormat, label))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}

	s.logger.Info("progress exported", zap.Int64("student_id", studentID), zap.String("format", string(format)), zap.Int("bytes", len(body)))
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("progress-%d-%s.%s", studentID, s.now().Format("20060102"), format.Extension()),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func progressDataset(progress *dto.StudentProgress) export.Dataset {
	rows := make([]map[string]string, 0, len(progress.Items)+1)
	for _, item := range progress.Items {
		updated := ""
		if item.LastUpdated != nil {
			updated = item.LastUpdated.UTC().Format(time.RFC3339)
		}
		rows = append(rows, map[string]string{
			"Enrollment":   strconv.FormatInt(item.EnrollmentID, 10),
			"Course":       item.CourseName,
			"Total":        strconv.Itoa(item.Total),
			"Selesai":      strconv.Itoa(item.Selesai),
			"Progress %":   strconv.Itoa(item.ProgressPct),
			"Overdue":      strconv.Itoa(item.Overdue),
			"Due Soon":     strconv.Itoa(len(item.DueSoon)),
			"Last Updated": updated,
		})
	}
	totals := progress.Summary
	rows = append(rows, map[string]string{
		"Enrollment": "TOTAL",
		"Course":     fmt.Sprintf("%d courses", totals.Courses),
		"Total":      strconv.Itoa(totals.TotalItems),
		"Selesai":    strconv.Itoa(totals.TotalSelesai),
		"Progress %": strconv.Itoa(totals.AvgProgressPct),
		"Overdue":    strconv.Itoa(totals.Overdue),
	})
	return export.Dataset{Headers: progressExportHeaders, Rows: rows}
}
