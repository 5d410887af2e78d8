package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/export"
)

var gradebookHeaders = []string{"Student", "Email", "Submitted", "Submitted At", "On Time", "Marks"}

type summaryLister interface {
	Summaries(ctx context.Context, assignmentID string) ([]dto.SubmissionSummary, error)
}

// GradebookFile is a rendered gradebook ready to be sent to the client.
type GradebookFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders assignment gradebooks as CSV or PDF documents.
type ExportService struct {
	assignments assignmentLookup
	submissions summaryLister
	logger      *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(assignments assignmentLookup, submissions summaryLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{assignments: assignments, submissions: submissions, logger: logger}
}

// Gradebook renders every submission of an assignment in the requested format.
func (s *ExportService) Gradebook(ctx context.Context, member *models.Membership, assignmentID, format string) (*GradebookFile, error) {
	if !member.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot export gradebooks")
	}
	exporter, err := export.ForFormat(strings.ToLower(format))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	a, err := s.assignments.FindInClass(ctx, member.ClassID, assignmentID)
	if err != nil {
		return nil, notFoundOr(err, "assignment not found", "failed to load assignment")
	}
	summaries, err := s.submissions.Summaries(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	payload, err := exporter.Render(buildGradebook(a, summaries))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render gradebook")
	}
	s.logger.Info("gradebook exported", zap.String("assignment_id", a.ID), zap.String("format", exporter.Extension()), zap.Int("rows", len(summaries)))
	return &GradebookFile{
		Filename:    fmt.Sprintf("gradebook_%s.%s", a.ID, exporter.Extension()),
		ContentType: exporter.ContentType(),
		Data:        payload,
	}, nil
}

func buildGradebook(a *models.Assignment, summaries []dto.SubmissionSummary) export.Dataset {
	title := a.Name
	if title == "" {
		title = "Untitled assignment"
	}
	rows := make([]map[string]string, 0, len(summaries))
	for _, sum := range summaries {
		row := map[string]string{
			"Student":   sum.FullName,
			"Email":     sum.Email,
			"Submitted": yesNo(sum.Submitted),
		}
		if sum.SubmittedDate != nil {
			at := sum.SubmittedDate.String()
			if sum.SubmittedTime != nil {
				at += " " + sum.SubmittedTime.String()
			}
			row["Submitted At"] = at
		}
		if sum.OnTime != nil {
			row["On Time"] = yesNo(*sum.OnTime)
		}
		if sum.MarksAllotted != nil {
			row["Marks"] = fmt.Sprintf("%d/%d", *sum.MarksAllotted, a.TotalMarks)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Title: title, Headers: gradebookHeaders, Rows: rows}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
