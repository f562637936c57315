package services

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRunner_SucceedsFirstTry(t *testing.T) {
	runner := NewSynchronousTaskRunner(3)

	var runs int32
	runner.Submit("noop", func() error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, func(error) {
		t.Fatal("onExhausted must not fire on success")
	})

	assert.Equal(t, int32(1), runs)
}

func TestTaskRunner_RetriesUntilSuccess(t *testing.T) {
	runner := NewSynchronousTaskRunner(3)

	var runs int32
	runner.Submit("flaky", func() error {
		if atomic.AddInt32(&runs, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(error) {
		t.Fatal("onExhausted must not fire when a retry succeeds")
	})

	assert.Equal(t, int32(3), runs)
}

func TestTaskRunner_ExhaustionReportsLastError(t *testing.T) {
	runner := NewSynchronousTaskRunner(2)

	var exhausted error
	runner.Submit("doomed", func() error {
		return errors.New("permanent")
	}, func(err error) {
		exhausted = err
	})

	require.Error(t, exhausted)
	assert.Equal(t, "permanent", exhausted.Error())
}

func TestTaskRunner_NilOnExhausted(t *testing.T) {
	runner := NewSynchronousTaskRunner(1)
	// Must not panic without a hook.
	runner.Submit("doomed", func() error { return errors.New("permanent") }, nil)
}

func TestTaskRunner_AsyncWait(t *testing.T) {
	runner := NewTaskRunner(1, 0)

	var runs int32
	for i := 0; i < 5; i++ {
		runner.Submit("parallel", func() error {
			atomic.AddInt32(&runs, 1)
			return nil
		}, nil)
	}
	runner.Wait()

	assert.Equal(t, int32(5), atomic.LoadInt32(&runs))
}
