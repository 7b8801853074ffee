package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 30 * time.Second
)

type deadLetterWriter interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// DeadLetter is the record pushed for a message that exhausted its retries.
type DeadLetter struct {
	MessageID string                 `json:"message_id"`
	Fields    map[string]interface{} `json:"fields"`
	Error     string                 `json:"error"`
	Attempts  int                    `json:"attempts"`
	FailedAt  time.Time              `json:"failed_at"`
}

type RetryHandler struct {
	client        deadLetterWriter
	deadLetterKey string
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
	// permanent errors skip the remaining attempts.
	permanent func(error) bool
}

func NewRetryHandler(client deadLetterWriter, deadLetterKey string, permanent func(error) bool) *RetryHandler {
	if permanent == nil {
		permanent = func(error) bool { return false }
	}
	return &RetryHandler{
		client:        client,
		deadLetterKey: deadLetterKey,
		maxRetries:    defaultMaxRetries,
		baseDelay:     defaultBaseDelay,
		maxDelay:      defaultMaxDelay,
		permanent:     permanent,
	}
}

// Backoff returns the wait before attempt n+1: base * 2^(n-1), capped.
func (h *RetryHandler) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := h.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= h.maxDelay {
			return h.maxDelay
		}
	}
	return delay
}

// RetryWithBackoff runs fn up to maxRetries times. When every attempt fails,
// or fn fails permanently, the message goes to the dead-letter list and the
// last error is returned.
func (h *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, messageID string, fields map[string]interface{}) error {
	var (
		err      error
		attempts int
	)
	for attempts = 1; attempts <= h.maxRetries; attempts++ {
		if err = fn(); err == nil {
			return nil
		}
		if h.permanent(err) {
			log.Warn().Err(err).Str("message_id", messageID).Msg("Permanent failure, not retrying")
			break
		}
		if attempts == h.maxRetries {
			break
		}

		delay := h.Backoff(attempts)
		log.Warn().Err(err).
			Str("message_id", messageID).
			Int("attempt", attempts).
			Dur("backoff", delay).
			Msg("Processing failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if dlqErr := h.sendToDeadLetter(ctx, messageID, fields, err, attempts); dlqErr != nil {
		log.Error().Err(dlqErr).Str("message_id", messageID).Msg("Failed to write dead letter")
	}
	return err
}

func (h *RetryHandler) sendToDeadLetter(ctx context.Context, messageID string, fields map[string]interface{}, cause error, attempts int) error {
	payload, err := json.Marshal(DeadLetter{
		MessageID: messageID,
		Fields:    fields,
		Error:     cause.Error(),
		Attempts:  attempts,
		FailedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}
	if err := h.client.LPush(ctx, h.deadLetterKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to push dead letter: %w", err)
	}

	log.Error().
		Str("message_id", messageID).
		Str("dead_letter_key", h.deadLetterKey).
		Int("attempts", attempts).
		Msg("Message moved to dead letter queue")
	return nil
}
