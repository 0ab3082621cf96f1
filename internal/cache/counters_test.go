package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCounters_Increment(t *testing.T) {
	c := NewMemoryCounters()
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		n, err := c.Increment(ctx, "verify:rate:1.2.3.4", time.Minute)
		assert.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// Keys are independent.
	n, err := c.Increment(ctx, "verify:rate:5.6.7.8", time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCounters_WindowExpiry(t *testing.T) {
	c := NewMemoryCounters()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.Increment(ctx, "k", time.Minute)
		assert.NoError(t, err)
	}

	// Still inside the window: the count keeps climbing.
	current = current.Add(59 * time.Second)
	n, err := c.Increment(ctx, "k", time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), n)

	// Past the window recorded at first increment: fresh counter.
	current = current.Add(2 * time.Second)
	n, err = c.Increment(ctx, "k", time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCounters_Reset(t *testing.T) {
	c := NewMemoryCounters()
	ctx := context.Background()

	_, _ = c.Increment(ctx, "k", time.Minute)
	_, _ = c.Increment(ctx, "k", time.Minute)
	assert.NoError(t, c.Reset(ctx, "k"))

	n, err := c.Increment(ctx, "k", time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
