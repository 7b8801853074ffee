package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	statusKeyPrefix = "analysis_status:"
	statusTTL       = 12 * time.Hour
)

var validSteps = map[models.Step]bool{
	models.StepIdle:       true,
	models.StepQueued:     true,
	models.StepExtracting: true,
	models.StepAnalyzing:  true,
	models.StepCompleted:  true,
	models.StepFailed:     true,
}

// StatusTracker keeps the current step of each assignment in Redis.
type StatusTracker struct {
	client *redis.Client
}

func NewStatusTracker(client *redis.Client) *StatusTracker {
	return &StatusTracker{client: client}
}

func StatusKey(assignmentID string) string {
	return statusKeyPrefix + assignmentID
}

func (s *StatusTracker) UpdateStatus(ctx context.Context, assignmentID string, step models.Step) error {
	if !validSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := StatusKey(assignmentID)
	if err := s.client.Set(ctx, rkey, string(step), statusTTL).Err(); err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("assignment_id", assignmentID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().
		Str("step", string(step)).
		Str("assignment_id", assignmentID).
		Msg("Status updated in Redis")
	return nil
}

// GetStatus returns StepIdle for assignments with no recorded step.
func (s *StatusTracker) GetStatus(ctx context.Context, assignmentID string) (models.Step, error) {
	val, err := s.client.Get(ctx, StatusKey(assignmentID)).Result()
	if errors.Is(err, redis.Nil) {
		return models.StepIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status from Redis: %w", err)
	}
	return models.Step(val), nil
}
