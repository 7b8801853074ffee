package stream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RishiKendai/provenance/internal/models"
)

const (
	fieldAssignmentID = "assignment_id"
	fieldKind         = "kind"
)

var ErrInvalidMessage = errors.New("invalid stream message")

// StreamMessage is a stream entry with its values flattened to strings.
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// ParseJob reads an analysis job from message fields. The kind may be left
// out, in which case the stored document decides.
func ParseJob(msg *StreamMessage) (models.AnalysisJob, error) {
	id := strings.TrimSpace(msg.Fields[fieldAssignmentID])
	if id == "" {
		return models.AnalysisJob{}, fmt.Errorf("%w: %s: missing %s", ErrInvalidMessage, msg.ID, fieldAssignmentID)
	}

	kind := models.DocumentKind(strings.ToLower(strings.TrimSpace(msg.Fields[fieldKind])))
	switch kind {
	case "", models.KindText, models.KindCode:
	default:
		return models.AnalysisJob{}, fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidMessage, msg.ID, kind)
	}

	return models.AnalysisJob{AssignmentID: id, Kind: kind}, nil
}

// jobFields is the inverse of ParseJob.
func jobFields(job models.AnalysisJob) map[string]interface{} {
	fields := map[string]interface{}{fieldAssignmentID: job.AssignmentID}
	if job.Kind != "" {
		fields[fieldKind] = string(job.Kind)
	}
	return fields
}
