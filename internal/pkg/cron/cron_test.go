package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakePurger) PurgeRead(olderThanDays int, dryRun bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, olderThanDays)
	return 3, f.err
}

type fakeReplayer struct {
	limit int
	err   error
}

func (f *fakeReplayer) ReplayFailed(ctx context.Context, limit int) (int, error) {
	f.limit = limit
	return 1, f.err
}

type fakeSweeper struct {
	calls int
}

func (f *fakeSweeper) Cleanup(now time.Time) int {
	f.calls++
	return 2
}

func TestNewService_NilDependencies(t *testing.T) {
	svc := NewService(nil, nil, nil)
	require.NotNil(t, svc)

	// 无依赖时所有任务跳过
	assert.NoError(t, svc.RunNow(context.Background()))
}

func TestService_RunNow(t *testing.T) {
	purger := &fakePurger{}
	replayer := &fakeReplayer{}
	sweeper := &fakeSweeper{}
	svc := NewService(purger, replayer, sweeper)

	require.NoError(t, svc.RunNow(context.Background()))

	assert.Equal(t, []int{0}, purger.calls)
	assert.Equal(t, ReplayBatchSize, replayer.limit)
	assert.Equal(t, 1, sweeper.calls)
}

func TestService_RunNow_JoinsErrors(t *testing.T) {
	purgeErr := errors.New("db down")
	replayErr := context.Canceled
	svc := NewService(&fakePurger{err: purgeErr}, &fakeReplayer{err: replayErr}, &fakeSweeper{})

	err := svc.RunNow(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, purgeErr)
	assert.ErrorIs(t, err, replayErr)
}

func TestService_StartAndStop(t *testing.T) {
	svc := NewService(&fakePurger{}, &fakeReplayer{}, &fakeSweeper{})

	svc.Start()
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}

	// 重复 Stop 不会 panic
	svc.Stop()
}

func TestService_StopBeforeStart(t *testing.T) {
	svc := NewService(nil, nil, nil)
	svc.Stop()
}
