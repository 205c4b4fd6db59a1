package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(slog.New(slog.DiscardHandler))
	require.Error(t, s.Add("broken", "every minute", func(context.Context) error { return nil }))
	require.NoError(t, s.Add("close_expired", "@every 1m", func(context.Context) error { return nil }))
	require.NoError(t, s.Add("archive", "0 3 1 * *", func(context.Context) error { return nil }))
	assert.Equal(t, 2, s.Jobs())
}

func TestWrapLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	s := New(slog.New(slog.NewTextHandler(&buf, nil)))

	calls := 0
	s.wrap("archive", func(context.Context) error {
		calls++
		return errors.New("bucket unreachable")
	})()

	assert.Equal(t, 1, calls)
	assert.Contains(t, buf.String(), "scheduler: job failed")
	assert.Contains(t, buf.String(), "bucket unreachable")
}

func TestRunStopsWithContext(t *testing.T) {
	s := New(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
