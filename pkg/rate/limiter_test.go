package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNoLimiter(t *testing.T) {
	l := &NoLimiter{}
	for i := 0; i < 10000; i++ {
		assert.True(t, l.Allow(""))
		assert.NoError(t, l.Wait(context.Background(), ""))
	}
}

func TestLocalRateLimiter(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(2))

	for i := 0; i < 2; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.False(t, l.Allow("a"))

	// Ensure key partitioning is valid
	for i := 0; i < 2; i++ {
		assert.True(t, l.Allow("b"))
	}
	assert.False(t, l.Allow("b"))
}

func TestLocalRateLimiter_Wait(t *testing.T) {
	l := NewLocalRateLimiter(rate.Limit(1))
	require.True(t, l.Allow("a"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "a"))

	// Other keys are unaffected.
	assert.NoError(t, l.Wait(context.Background(), "b"))
}

func TestLocalRateLimiter_Disabled(t *testing.T) {
	l := NewLocalRateLimiter(0)
	_, ok := l.(*NoLimiter)
	assert.True(t, ok)
}
