package stream

import (
	"context"
	"fmt"

	"github.com/RishiKendai/provenance/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Producer struct {
	client    *redis.Client
	streamKey string
}

func NewProducer(client *redis.Client, streamKey string) *Producer {
	return &Producer{client: client, streamKey: streamKey}
}

// Publish appends an analysis job to the stream and returns its entry id.
func (p *Producer) Publish(ctx context.Context, job models.AnalysisJob) (string, error) {
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamKey,
		Values: jobFields(job),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish job: %w", err)
	}

	log.Debug().
		Str("message_id", id).
		Str("assignment_id", job.AssignmentID).
		Msg("Job published")
	return id, nil
}
