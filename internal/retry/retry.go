package retry

import (
	"context"
	"time"
)

// Policy is a bounded retry with linear backoff: after the n-th failed
// attempt (n starting at 1) the caller sleeps Backoff*n.
type Policy struct {
	Retries int
	Backoff time.Duration

	// Sleep waits for d or until ctx is done. Nil means a real timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each backoff.
	OnRetry func(attempt int, err error)
}

// Default returns 2 extra attempts with a 1s linear backoff.
func Default() Policy {
	return Policy{Retries: 2, Backoff: time.Second}
}

// Do runs fn until it succeeds, fails with a permanent error, or the retry
// budget is spent. attempt is zero for the first call.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	var err error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}

		// Parent context gone: nothing left to retry for.
		if ctx.Err() != nil {
			return err
		}

		if attempt == p.Retries || !IsRetriable(err) {
			return err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		if sleepErr := p.sleep(ctx, p.Backoff*time.Duration(attempt+1)); sleepErr != nil {
			return err
		}
	}
	return err
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
