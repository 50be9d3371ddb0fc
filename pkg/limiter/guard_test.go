package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardRunsFunction(t *testing.T) {
	g := NewGuard(DefaultGuardConfig("test"))

	ran := false
	err := g.Do(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestGuardPropagatesErrors(t *testing.T) {
	g := NewGuard(DefaultGuardConfig("test"))

	sentinel := errors.New("backend down")
	err := g.Do(context.Background(), func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestGuardOpensBreakerAfterFailures(t *testing.T) {
	cfg := DefaultGuardConfig("test")
	cfg.RequestsPerMinute = 0 // no limiter in this test
	g := NewGuard(cfg)

	sentinel := errors.New("backend down")
	for i := 0; i < 6; i++ {
		_ = g.Do(context.Background(), func(ctx context.Context) error {
			return sentinel
		})
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	err := g.Do(context.Background(), func(ctx context.Context) error {
		t.Fatal("must not be invoked while the breaker is open")
		return nil
	})
	require.Error(t, err)
}

func TestGuardHonorsContextCancellation(t *testing.T) {
	cfg := DefaultGuardConfig("test")
	cfg.RequestsPerMinute = 0.001 // effectively never admits a second call
	cfg.Burst = 1
	g := NewGuard(cfg)

	require.NoError(t, g.Do(context.Background(), func(ctx context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Do(ctx, func(ctx context.Context) error { return nil })
	require.Error(t, err)
}
