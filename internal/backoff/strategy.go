package backoff

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Strategy computes the wait before the retry that follows attempt
// (attempt 0 is the first call).
type Strategy interface {
	Delay(attempt int, base time.Duration) time.Duration
}

// Fixed waits the same base delay between every attempt.
type Fixed struct{}

// Delay implements Strategy.
func (Fixed) Delay(_ int, base time.Duration) time.Duration {
	if base < 0 {
		return 0
	}
	return base
}

// ExponentialJitter grows the base delay by Multiplier per attempt, capped at
// Max, with up to Jitter (0..1) extra random spread.
type ExponentialJitter struct {
	Multiplier float64
	Max        time.Duration
	Jitter     float64
}

// Delay implements Strategy.
func (s ExponentialJitter) Delay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	// Prevent overflow by limiting attempt
	if attempt > 30 {
		attempt = 30
	}

	multiplier := s.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	delay := time.Duration(float64(base) * Pow(multiplier, attempt))
	if s.Max > 0 && (delay < 0 || delay > s.Max) {
		delay = s.Max
	}

	jitter := clampJitter(s.Jitter)
	if jitter > 0 {
		jitterAmount := time.Duration(float64(delay) * jitter * rand.Float64())
		if s.Max > 0 && delay+jitterAmount > s.Max {
			delay = s.Max
		} else {
			delay += jitterAmount
		}
	}
	return delay
}

// Sleep waits for d or until ctx is done, whichever comes first.
// Zero or negative durations return immediately.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}

// clampJitter ensures jitter is within valid bounds [0, 1].
func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

// Pow calculates base^exponent using integer exponentiation.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
