package download

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tmx-tools/tmx-downloader/internal/http"
)

// ErrRetriesExhausted is wrapped by the error returned once every attempt
// of a retryable operation has failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// withRetry runs fn until it succeeds, fails with a non-retryable error or
// download_max_retries attempts have been made.
func (m *Manager) withRetry(ctx context.Context, what string, fn func() error) error {
	maxTries := max(1, m.settings.DownloadMaxRetries)

	var err error
	for tries := 0; tries < maxTries; tries++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !http.IsRetryable(err) {
			return err
		}
		if tries+1 == maxTries {
			break
		}

		m.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for %s: %v", tries+1, maxTries-1, what, err), Level: LevelWarning})
		if err := m.waitForRetry(ctx, tries); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s: %w after %d attempts: %w", what, ErrRetriesExhausted, maxTries, err)
}

// retryDelay is cooldown * exponent^tries seconds.
func (m *Manager) retryDelay(tries int) time.Duration {
	cooldown := m.settings.DownloadRetryCooldown * math.Pow(m.settings.DownloadRetryExponent, float64(tries))
	return time.Duration(cooldown * float64(time.Second))
}

func (m *Manager) waitForRetry(ctx context.Context, tries int) error {
	delay := m.retryDelay(tries)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
