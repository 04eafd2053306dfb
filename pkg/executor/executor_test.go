package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicore/pkg/dierr"
)

func TestNew_RejectsNonPositivePoolSize(t *testing.T) {
	_, err := New(0, nil)
	require.Error(t, err)
	assert.True(t, dierr.Is(err, dierr.DomainFailure))

	_, err = New(-3, nil)
	require.Error(t, err)
}

func TestSubmitPooled_RunsTask(t *testing.T) {
	e, err := New(2, nil)
	require.NoError(t, err)
	defer e.Close(time.Second)

	var ran int32
	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}))

	e.AwaitCompletion()
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
	assert.Zero(t, e.PendingTasks())
	assert.Zero(t, e.ActiveTasks())
}

func TestSubmitLightweight_RunsTask(t *testing.T) {
	e, err := New(1, nil)
	require.NoError(t, err)
	defer e.Close(time.Second)

	var ran int32
	require.NoError(t, e.SubmitLightweight(func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}))

	e.AwaitCompletion()
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}

func TestPendingActiveTasks_TrackInFlightWork(t *testing.T) {
	e, err := New(1, nil)
	require.NoError(t, err)
	defer e.Close(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))

	<-started
	assert.EqualValues(t, 1, e.PendingTasks())
	assert.EqualValues(t, 1, e.ActiveTasks())

	close(release)
	e.AwaitCompletion()
	assert.Zero(t, e.PendingTasks())
	assert.Zero(t, e.ActiveTasks())
}

func TestAwaitCompletionTimeout_ReturnsFalseWhenTaskOutlivesTimeout(t *testing.T) {
	e, err := New(1, nil)
	require.NoError(t, err)
	defer e.Close(time.Second)

	release := make(chan struct{})
	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		<-release
		return nil
	}))

	assert.False(t, e.AwaitCompletionTimeout(20*time.Millisecond))
	close(release)
	assert.True(t, e.AwaitCompletionTimeout(time.Second))
}

func TestRunTask_RecoversPanicWithoutCorruptingCounters(t *testing.T) {
	e, err := New(1, nil)
	require.NoError(t, err)
	defer e.Close(time.Second)

	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		panic("boom")
	}))
	e.AwaitCompletion()

	var ran int32
	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}))
	e.AwaitCompletion()
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}

func TestRunTask_TaskErrorDoesNotHaltExecutor(t *testing.T) {
	e, err := New(1, nil)
	require.NoError(t, err)
	defer e.Close(time.Second)

	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		return errors.New("task failed")
	}))
	e.AwaitCompletion()

	var ran int32
	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}))
	e.AwaitCompletion()
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}

func TestRunTask_ReportsTaskErrorToOnErrorSink(t *testing.T) {
	var mu sync.Mutex
	var got []error
	e, err := New(1, func(taskErr error) {
		mu.Lock()
		got = append(got, taskErr)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer e.Close(time.Second)

	sentinel := errors.New("task failed")
	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		return sentinel
	}))
	e.AwaitCompletion()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, sentinel, got[0])
}

func TestRunTask_ReportsRecoveredPanicToOnErrorSink(t *testing.T) {
	var mu sync.Mutex
	var got []error
	e, err := New(1, func(taskErr error) {
		mu.Lock()
		got = append(got, taskErr)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer e.Close(time.Second)

	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		panic("boom")
	}))
	e.AwaitCompletion()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.True(t, dierr.Is(got[0], dierr.InternalInvariant))
}

func TestShutdown_RejectsFurtherSubmissions(t *testing.T) {
	e, err := New(1, nil)
	require.NoError(t, err)

	e.Shutdown()

	err = e.SubmitPooled(func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, dierr.Is(err, dierr.IllegalState))

	err = e.SubmitLightweight(func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, dierr.Is(err, dierr.IllegalState))
}

func TestClose_WaitsForInFlightTasksThenShutsDown(t *testing.T) {
	e, err := New(2, nil)
	require.NoError(t, err)

	var ran int32
	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&ran, 1)
		return nil
	}))

	ok := e.Close(time.Second)
	assert.True(t, ok)
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))

	err = e.SubmitPooled(func(ctx context.Context) error { return nil })
	require.Error(t, err)
}

func TestShutdownNow_CancelsInFlightTaskContext(t *testing.T) {
	e, err := New(1, nil)
	require.NoError(t, err)

	started := make(chan struct{})
	canceled := make(chan struct{})
	require.NoError(t, e.SubmitPooled(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	}))

	<-started
	e.ShutdownNow()

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("task context was not canceled by ShutdownNow")
	}
}
