package clock

import (
	"context"
	"errors"
	"time"
)

// Every calls fn once per interval until ctx is canceled. The first call
// happens after one interval. Cancellation ends the loop with a nil error;
// a deadline or an error from fn is returned.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				return err
			}
		}
	}
}
