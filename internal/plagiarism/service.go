package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/provenance/internal/metrics"
	"github.com/RishiKendai/provenance/internal/models"
	"github.com/rs/zerolog/log"
)

type DocumentStore interface {
	GetDocument(ctx context.Context, assignmentID string) (*models.Document, error)
}

type ReferenceStore interface {
	GetReferences(ctx context.Context, assignmentID string) ([]models.ReferenceSolution, error)
}

type ReportStore interface {
	SaveReport(ctx context.Context, report *models.Report) error
	SaveCodeReport(ctx context.Context, report *models.CodeReport) error
}

type StatusUpdater interface {
	UpdateStatus(ctx context.Context, assignmentID string, step models.Step) error
}

// Service runs queued analysis jobs against persisted submissions.
type Service struct {
	engine     *Engine
	documents  DocumentStore
	references ReferenceStore
	reports    ReportStore
	status     StatusUpdater
}

func NewService(engine *Engine, documents DocumentStore, references ReferenceStore, reports ReportStore, status StatusUpdater) *Service {
	return &Service{
		engine:     engine,
		documents:  documents,
		references: references,
		reports:    reports,
		status:     status,
	}
}

// Run analyzes the submission named by job and stores the report. The status
// ends as completed or failed.
func (s *Service) Run(ctx context.Context, job models.AnalysisJob) error {
	start := time.Now()
	kind := string(job.Kind)

	s.setStatus(ctx, job.AssignmentID, models.StepAnalyzing)

	err := s.run(ctx, job)
	metrics.AnalysisDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AnalysisCount.WithLabelValues(kind, "failed").Inc()
		s.setStatus(ctx, job.AssignmentID, models.StepFailed)
		log.Error().Err(err).
			Str("assignment_id", job.AssignmentID).
			Str("kind", kind).
			Msg("Analysis failed")
		return err
	}

	metrics.AnalysisCount.WithLabelValues(kind, "completed").Inc()
	s.setStatus(ctx, job.AssignmentID, models.StepCompleted)
	return nil
}

func (s *Service) run(ctx context.Context, job models.AnalysisJob) error {
	doc, err := s.documents.GetDocument(ctx, job.AssignmentID)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("%w: no document for assignment %q", ErrInput, job.AssignmentID)
	}

	kind := job.Kind
	if kind == "" {
		kind = doc.Kind
	}

	switch kind {
	case models.KindText:
		report, err := s.engine.AnalyzeText(ctx, doc.AssignmentID, doc.Text)
		if err != nil {
			return err
		}
		if err := s.reports.SaveReport(ctx, report); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
	case models.KindCode:
		refs, err := s.references.GetReferences(ctx, doc.AssignmentID)
		if err != nil {
			return fmt.Errorf("failed to load reference solutions: %w", err)
		}
		codes := make([]string, 0, len(refs))
		for _, ref := range refs {
			codes = append(codes, ref.Code)
		}
		report, err := s.engine.AnalyzeCode(ctx, doc.AssignmentID, doc.Text, codes)
		if err != nil {
			return err
		}
		if err := s.reports.SaveCodeReport(ctx, report); err != nil {
			return fmt.Errorf("failed to save code report: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown document kind %q", ErrInput, kind)
	}
	return nil
}

func (s *Service) setStatus(ctx context.Context, assignmentID string, step models.Step) {
	if s.status == nil {
		return
	}
	if err := s.status.UpdateStatus(ctx, assignmentID, step); err != nil {
		log.Warn().Err(err).
			Str("assignment_id", assignmentID).
			Str("step", string(step)).
			Msg("Failed to update analysis status")
	}
}

// IsPermanent reports errors that retrying the same job cannot fix.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInput) || errors.Is(err, ErrParse)
}
