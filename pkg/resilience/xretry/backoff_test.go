package xretry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff_NextDelay(t *testing.T) {
	b := NewExponentialBackoff(
		WithInitialDelay(20*time.Millisecond),
		WithMaxDelay(200*time.Millisecond),
	)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 20 * time.Millisecond},
		{1, 20 * time.Millisecond},
		{2, 40 * time.Millisecond},
		{3, 80 * time.Millisecond},
		{4, 160 * time.Millisecond},
		{5, 200 * time.Millisecond},
		{math.MaxInt32, 200 * time.Millisecond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoff_IgnoresInvalidOptions(t *testing.T) {
	b := NewExponentialBackoff(WithInitialDelay(-1), WithMaxDelay(0), WithMultiplier(0.5))
	assert.Equal(t, 100*time.Millisecond, b.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, b.NextDelay(2))

	// maxDelay 小于 initialDelay 时被提升
	b = NewExponentialBackoff(WithInitialDelay(time.Second), WithMaxDelay(time.Millisecond))
	assert.Equal(t, time.Second, b.NextDelay(3))
}

func TestFullJitterBackoff_Ceiling(t *testing.T) {
	b := NewFullJitterBackoff(50*time.Millisecond, 800*time.Millisecond)

	want := []time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		800 * time.Millisecond,
	}
	for i, w := range want {
		assert.Equal(t, w, b.Ceiling(i+1), "attempt %d", i+1)
	}
}

func TestFullJitterBackoff_InclusiveRange(t *testing.T) {
	b := NewFullJitterBackoff(50*time.Millisecond, 800*time.Millisecond)

	var gotN int64
	b.random = func(n int64) int64 {
		gotN = n
		return n - 1
	}
	assert.Equal(t, 100*time.Millisecond, b.NextDelay(2))
	assert.Equal(t, int64(100*time.Millisecond)+1, gotN)

	b.random = func(int64) int64 { return 0 }
	assert.Equal(t, time.Duration(0), b.NextDelay(5))
}

func TestFullJitterBackoff_Bounds(t *testing.T) {
	b := NewFullJitterBackoff(time.Millisecond, 4*time.Millisecond)
	for attempt := 1; attempt <= 10; attempt++ {
		for range 50 {
			d := b.NextDelay(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, b.Ceiling(attempt))
		}
	}
}

func TestSimpleBackoffs(t *testing.T) {
	assert.Equal(t, time.Second, NewFixedBackoff(time.Second).NextDelay(7))
	assert.Equal(t, time.Duration(0), NewFixedBackoff(-time.Second).NextDelay(1))
	assert.Equal(t, time.Duration(0), NewNoBackoff().NextDelay(3))
}
