package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/export"
)

// ExportFormat identifies a summary rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type tutoringViewer interface {
	Get(ctx context.Context, tutoringID, callerID string) (*models.Tutoring, error)
}

type feedbackViewer interface {
	List(ctx context.Context, tutoringID, callerID string) ([]models.Feedback, error)
}

type csvRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportResult carries a rendered summary ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders a tutoring and its feedback as a downloadable summary.
type ExportService struct {
	tutorings tutoringViewer
	feedback  feedbackViewer
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	enabled   bool
}

// NewExportService constructs an ExportService.
func NewExportService(tutorings tutoringViewer, feedback feedbackViewer, enabled bool, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		tutorings: tutorings,
		feedback:  feedback,
		csv:       csv,
		pdf:       pdf,
		logger:    logger,
		enabled:   enabled,
	}
}

// Summary renders the tutoring summary visible to callerID.
func (s *ExportService) Summary(ctx context.Context, tutoringID, callerID string, format ExportFormat) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrFeatureUnavailable, "exports are disabled")
	}
	format = ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "format must be csv or pdf")
	}

	tutoring, err := s.tutorings.Get(ctx, tutoringID, callerID)
	if err != nil {
		return nil, err
	}
	feedback, err := s.feedback.List(ctx, tutoringID, callerID)
	if err != nil {
		return nil, err
	}

	doc := buildSummaryDocument(tutoring, feedback)
	var payload []byte
	switch format {
	case ExportFormatPDF:
		payload, err = s.pdf.Render(doc)
	default:
		payload, err = s.csv.Render(doc)
	}
	if err != nil {
		return nil, internalError(err, "failed to render summary")
	}

	s.logger.Info("tutoring summary exported",
		zap.String("tutoring_id", tutoring.ID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{
		Filename:    fmt.Sprintf("tutoring_%s.%s", tutoring.ID, format),
		ContentType: contentTypeFor(format),
		Payload:     payload,
	}, nil
}

func buildSummaryDocument(tutoring *models.Tutoring, feedback []models.Feedback) export.Document {
	finalReport := ""
	if tutoring.FinalReportRef != nil {
		finalReport = *tutoring.FinalReportRef
	}
	headers := []string{"Evaluator", "Date", "Score", "Comments"}
	rows := make([]map[string]string, 0, len(feedback))
	for _, item := range feedback {
		rows = append(rows, map[string]string{
			"Evaluator": item.EvaluatorID,
			"Date":      item.EvaluationDate.UTC().Format(time.DateOnly),
			"Score":     item.Score,
			"Comments":  item.Comments,
		})
	}
	return export.Document{
		Title: "Tutoring " + tutoring.ID,
		Fields: []export.Field{
			{Label: "Status", Value: string(tutoring.Status)},
			{Label: "Tutor", Value: tutoring.TutorID},
			{Label: "Tutee", Value: tutoring.TuteeID},
			{Label: "Skills", Value: strings.Join(tutoring.Skills, ", ")},
			{Label: "Start date", Value: tutoring.StartDate.UTC().Format(time.DateOnly)},
			{Label: "Expected end", Value: tutoring.ExpectedEndDate.UTC().Format(time.DateOnly)},
			{Label: "Objectives", Value: tutoring.Objectives},
			{Label: "Final report", Value: finalReport},
			{Label: "Feedback count", Value: strconv.Itoa(len(feedback))},
		},
		Table: export.Dataset{Headers: headers, Rows: rows},
	}
}

func contentTypeFor(format ExportFormat) string {
	if format == ExportFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}
