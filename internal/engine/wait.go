package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// ErrServiceInactive is returned when a service does not become active
// within the allowed time.
var ErrServiceInactive = errors.New("service is not active")

// WaitForActive polls the service until it reports active or timeout
// elapses. Polling starts at interval and backs off exponentially.
func WaitForActive(ctx context.Context, services ports.ServiceManager, name string, timeout, interval time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = max(interval, timeout/4)
	b.MaxElapsedTime = timeout

	var lastErr error
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		active, err := services.IsActive(ctx, name)
		if err != nil {
			lastErr = err
			return err
		}
		if !active {
			lastErr = ErrServiceInactive
			return ErrServiceInactive
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if lastErr == nil {
		lastErr = err
	}
	return fmt.Errorf("%s did not become active within %s after %d checks: %w", name, timeout, attempts, lastErr)
}
