package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrInput marks an empty or unusable submission. The caller can fix it.
	ErrInput = errors.New("invalid input")

	// ErrCorpusUnavailable means the reference corpus is empty or unreachable.
	// Analysis must stop rather than report a clean result.
	ErrCorpusUnavailable = errors.New("corpus unavailable")

	// ErrParse marks source code that could not be parsed.
	ErrParse = errors.New("parse error")

	// ErrExternalService wraps embedding or index backend failures.
	ErrExternalService = errors.New("external service error")
)

// CallWithRetry runs fn at most twice, each attempt bounded by timeout.
// The final failure is wrapped with ErrExternalService.
func CallWithRetry(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExternalService, op, err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = fn(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		log.Warn().Err(lastErr).
			Str("op", op).
			Int("attempt", attempt).
			Msg("External call failed")
	}
	return fmt.Errorf("%w: %s: %v", ErrExternalService, op, lastErr)
}
