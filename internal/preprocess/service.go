package preprocess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrEmptyDocument is returned when a file extracts to no text at all.
var ErrEmptyDocument = errors.New("document contains no text")

type DocumentSaver interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
}

type JobPublisher interface {
	Publish(ctx context.Context, job models.AnalysisJob) (string, error)
}

type StatusUpdater interface {
	UpdateStatus(ctx context.Context, assignmentID string, step models.Step) error
}

type Service struct {
	documents DocumentSaver
	publisher JobPublisher
	status    StatusUpdater
}

func NewService(documents DocumentSaver, publisher JobPublisher, status StatusUpdater) *Service {
	return &Service{
		documents: documents,
		publisher: publisher,
		status:    status,
	}
}

// Submit extracts an uploaded file, stores it as a Document and queues it for
// analysis. It returns the assignment id the report will be filed under.
func (s *Service) Submit(ctx context.Context, filename string, data []byte, kind models.DocumentKind) (string, error) {
	if kind == "" {
		kind = kindFromFilename(filename)
	}
	if kind != models.KindText && kind != models.KindCode {
		return "", fmt.Errorf("%w: unknown document kind %q", ErrUnsupportedFormat, kind)
	}

	assignmentID := uuid.NewString()
	s.setStatus(ctx, assignmentID, models.StepExtracting)

	text, err := Extract(filename, data)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w: %s", ErrEmptyDocument, filename)
	}
	if err != nil {
		s.setStatus(ctx, assignmentID, models.StepFailed)
		return "", err
	}

	doc := &models.Document{
		AssignmentID: assignmentID,
		Filename:     filename,
		Kind:         kind,
		Text:         text,
		CreatedAt:    time.Now(),
	}

	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		s.setStatus(ctx, assignmentID, models.StepFailed)
		return "", fmt.Errorf("failed to store document: %w", err)
	}

	// Queued goes first so a fast worker's analyzing step is not overwritten.
	s.setStatus(ctx, assignmentID, models.StepQueued)

	msgID, err := s.publisher.Publish(ctx, models.AnalysisJob{AssignmentID: assignmentID, Kind: kind})
	if err != nil {
		s.setStatus(ctx, assignmentID, models.StepFailed)
		return "", fmt.Errorf("failed to queue analysis: %w", err)
	}

	log.Info().
		Str("assignment_id", doc.AssignmentID).
		Str("filename", filename).
		Str("kind", string(kind)).
		Str("message_id", msgID).
		Int("length", len(text)).
		Msg("Document queued for analysis")

	return doc.AssignmentID, nil
}

func (s *Service) setStatus(ctx context.Context, assignmentID string, step models.Step) {
	if err := s.status.UpdateStatus(ctx, assignmentID, step); err != nil {
		log.Warn().Err(err).
			Str("assignment_id", assignmentID).
			Str("step", string(step)).
			Msg("Failed to update status")
	}
}

func kindFromFilename(filename string) models.DocumentKind {
	if strings.HasSuffix(strings.ToLower(filename), ".py") {
		return models.KindCode
	}
	return models.KindText
}
