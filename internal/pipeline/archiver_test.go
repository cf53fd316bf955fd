package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobArchiver struct {
	cutoffs  []time.Time
	archived int64
	err      error
}

func (f *fakeBlobArchiver) ArchiveExecutions(_ context.Context, before time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, before)
	return f.archived, f.err
}

func TestArchiver_RunUsesRetentionCutoff(t *testing.T) {
	blob := &fakeBlobArchiver{archived: 42}
	a := NewArchiver(blob, 90, slog.New(slog.DiscardHandler))

	start := time.Now().UTC()
	require.NoError(t, a.Run(context.Background()))

	require.Len(t, blob.cutoffs, 1)
	want := start.Add(-90 * 24 * time.Hour)
	assert.WithinDuration(t, want, blob.cutoffs[0], time.Minute)
}

func TestArchiver_RunPropagatesFailure(t *testing.T) {
	blob := &fakeBlobArchiver{err: errors.New("bucket unreachable")}
	a := NewArchiver(blob, 30, slog.New(slog.DiscardHandler))

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unreachable")
}

func TestArchiver_RunCronRejectsBadExpression(t *testing.T) {
	a := NewArchiver(&fakeBlobArchiver{}, 30, slog.New(slog.DiscardHandler))

	err := a.RunCron(context.Background(), "not a cron")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing cron expression")
}

func TestArchiver_RunCronStopsOnCancel(t *testing.T) {
	a := NewArchiver(&fakeBlobArchiver{}, 30, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunCron(ctx, "0 3 1 * *") }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cron loop did not stop on cancellation")
	}
}
