package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadJobs(t *testing.T) {
	s := New(nil)

	err := s.Add(Job{Name: "sweep", Spec: "not a spec", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep")

	require.Error(t, s.Add(Job{Name: "empty", Spec: "@every 1m"}))

	require.NoError(t, s.Add(Job{Name: "sweep", Spec: "*/15 * * * *", Run: func(context.Context) error { return nil }}))
	require.Error(t, s.Add(Job{Name: "sweep", Spec: "@every 1m", Run: func(context.Context) error { return nil }}))
}

func TestScheduledJobRunsAndSurvivesFailures(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	require.NoError(t, s.Add(Job{
		Name:    "sweep",
		Spec:    "@every 1s",
		Timeout: time.Second,
		Run: func(ctx context.Context) error {
			calls.Add(1)
			return errors.New("store unavailable")
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	assert.False(t, s.Next("sweep").IsZero())

	require.Eventually(t, func() bool { return s.Runs("sweep") >= 2 }, 5*time.Second, 50*time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
	assert.Zero(t, s.Runs("unknown"))
}

func TestStopCancelsRunningJob(t *testing.T) {
	s := New(nil)
	started := make(chan struct{})
	var once atomic.Bool
	require.NoError(t, s.Add(Job{
		Name: "slow",
		Spec: "@every 1s",
		Run: func(ctx context.Context) error {
			if once.CompareAndSwap(false, true) {
				close(started)
			}
			<-ctx.Done()
			return ctx.Err()
		},
	}))
	s.Start(context.Background())

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
}
