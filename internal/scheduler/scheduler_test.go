package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
	block chan struct{}
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.err
}

func TestScheduler_TicksRefresh(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, 10*time.Millisecond, nil)
	go s.Start(context.Background())

	require.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()
	<-s.Done()
}

func TestScheduler_RefreshErrorIsNotFatal(t *testing.T) {
	r := &countingRefresher{err: errors.New("boom")}
	s := New(r, 10*time.Millisecond, nil)
	go s.Start(context.Background())

	require.Eventually(t, func() bool { return r.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	<-s.Done()
}

func TestScheduler_ContextCancelStops(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(0), r.calls.Load())
}

func TestScheduler_StopCancelsRunningRefresh(t *testing.T) {
	r := &countingRefresher{block: make(chan struct{})}
	s := New(r, 5*time.Millisecond, nil)
	go s.Start(context.Background())

	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, time.Millisecond)
	s.Stop()
	s.Stop()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(1), r.calls.Load())
}
