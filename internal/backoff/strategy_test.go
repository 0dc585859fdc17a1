package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFixedStrategy(t *testing.T) {
	strategy := Fixed{}

	for attempt := 0; attempt < 5; attempt++ {
		if got := strategy.Delay(attempt, 250*time.Millisecond); got != 250*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 250ms", attempt, got)
		}
	}

	if got := strategy.Delay(0, -time.Second); got != 0 {
		t.Errorf("Delay with negative base = %v, want 0", got)
	}
}

func TestExponentialJitterStrategy(t *testing.T) {
	tests := []struct {
		name     string
		attempt  int
		strategy ExponentialJitter
		expected time.Duration
	}{
		{
			name:     "attempt 0",
			attempt:  0,
			strategy: ExponentialJitter{Multiplier: 2.0, Max: 5 * time.Second},
			expected: 100 * time.Millisecond,
		},
		{
			name:     "attempt 1",
			attempt:  1,
			strategy: ExponentialJitter{Multiplier: 2.0, Max: 5 * time.Second},
			expected: 200 * time.Millisecond,
		},
		{
			name:     "attempt 2",
			attempt:  2,
			strategy: ExponentialJitter{Multiplier: 2.0, Max: 5 * time.Second},
			expected: 400 * time.Millisecond,
		},
		{
			name:     "capped at max",
			attempt:  10,
			strategy: ExponentialJitter{Multiplier: 2.0, Max: time.Second},
			expected: time.Second,
		},
		{
			name:     "default multiplier",
			attempt:  1,
			strategy: ExponentialJitter{},
			expected: 200 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.strategy.Delay(tt.attempt, 100*time.Millisecond)
			if result != tt.expected {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestExponentialJitterStaysWithinMax(t *testing.T) {
	strategy := ExponentialJitter{Multiplier: 2.0, Max: 300 * time.Millisecond, Jitter: 1.0}

	for i := 0; i < 50; i++ {
		got := strategy.Delay(3, 100*time.Millisecond)
		if got > 300*time.Millisecond {
			t.Fatalf("Delay exceeded max: %v", got)
		}
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("Sleep() returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Sleep() returned after %v, want >= 10ms", elapsed)
	}

	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) returned error: %v", err)
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
}

func TestClampJitter(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.5, 0.0},
		{0.0, 0.0},
		{0.5, 0.5},
		{1.0, 1.0},
		{1.5, 1.0},
	}

	for _, tt := range tests {
		result := clampJitter(tt.input)
		if result != tt.expected {
			t.Errorf("clampJitter(%f) = %f, want %f", tt.input, result, tt.expected)
		}
	}
}

func TestPow(t *testing.T) {
	tests := []struct {
		base     float64
		exponent int
		expected float64
	}{
		{2.0, 0, 1.0},
		{2.0, 1, 2.0},
		{2.0, 3, 8.0},
		{3.0, 2, 9.0},
	}

	for _, tt := range tests {
		result := Pow(tt.base, tt.exponent)
		if result != tt.expected {
			t.Errorf("Pow(%f, %d) = %f, want %f", tt.base, tt.exponent, result, tt.expected)
		}
	}
}

func BenchmarkExponentialJitterStrategy(b *testing.B) {
	strategy := ExponentialJitter{Multiplier: 2.0, Max: 5 * time.Second, Jitter: 0.1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		strategy.Delay(i%10, 100*time.Millisecond)
	}
}
