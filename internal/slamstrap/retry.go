package slamstrap

import (
	"context"
	"time"
)

// Retrier reruns a flaky operation with a linearly increasing backoff:
// attempt n sleeps n*Delay before the next try. Only network-facing steps
// (the apt operations) go through it; build and VCS failures do not
// self-heal, so retrying them just wastes time.
type Retrier struct {
	Attempts int
	Delay    time.Duration
	Sleep    func(time.Duration) // nil means time.Sleep
}

func (r Retrier) Do(ctx context.Context, d *Diag, what string, run func() error) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var err error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		if err = run(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt == r.Attempts {
			break
		}
		backoff := time.Duration(attempt) * r.Delay
		d.Warnf("%s failed (attempt %d/%d): %v; retrying in %s", what, attempt, r.Attempts, err, backoff)
		sleep(backoff)
	}
	return err
}
