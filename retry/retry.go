package retry

import (
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// Settings controls exponential backoff for re-running errored checks.
type Settings struct {
	InitialBackoff time.Duration
	Multiplier     int
	MaxBackoff     time.Duration
	// MaxRetries bounds the number of attempts. Zero means retry forever.
	MaxRetries int
}

func (s Settings) Verify() error {
	if s.InitialBackoff <= 0 {
		return errors.Newf("initial backoff must be set to >= 0, got %s", s.InitialBackoff)
	}
	if s.Multiplier < 1 {
		return errors.Newf("multiplier must be >= 1, got %d", s.Multiplier)
	}
	if s.MaxBackoff > 0 && s.InitialBackoff > s.MaxBackoff {
		return errors.Newf("initial backoff (%s) must be less than max backoff (%s)", s.InitialBackoff, s.MaxBackoff)
	}
	return nil
}

func DefaultSettings() Settings {
	return Settings{
		InitialBackoff: time.Second,
		Multiplier:     2,
		MaxBackoff:     30 * time.Second,
		MaxRetries:     3,
	}
}

// Retry iterates backoff durations for a single check.
type Retry struct {
	Iteration   int
	NextBackoff time.Duration

	settings Settings
}

func NewRetry(settings Settings) (*Retry, error) {
	if err := settings.Verify(); err != nil {
		return nil, err
	}
	return &Retry{
		Iteration:   1,
		NextBackoff: settings.InitialBackoff,
		settings:    settings,
	}, nil
}

func (r *Retry) ShouldContinue() bool {
	if r.settings.MaxRetries == 0 {
		return true
	}
	return r.Iteration < r.settings.MaxRetries
}

// Wait sleeps for the current backoff, then advances to the next iteration.
// Returns early with the context error if the context is done.
func (r *Retry) Wait(ctx context.Context) error {
	t := time.NewTimer(r.NextBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	r.Next()
	return nil
}

func (r *Retry) Next() {
	next := r.settings.InitialBackoff * time.Duration(math.Pow(float64(r.settings.Multiplier), float64(r.Iteration)))
	if r.settings.MaxBackoff > 0 && next > r.settings.MaxBackoff {
		next = r.settings.MaxBackoff
	}
	r.Iteration++
	r.NextBackoff = next
}
