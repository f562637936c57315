package services

import (
	"log"
	"sync"
	"time"
)

// TaskRunner is the in-process hand-off point for work that must not block
// the completion path: certificate rendering, dossier assembly, outbound
// email. Each task is retried a bounded number of times with a growing
// delay; exhaustion is reported through the task's onExhausted hook so the
// owning record can be flagged with an explicit error status. A failed task
// never rolls back the state transition that enqueued it.
type TaskRunner struct {
	maxRetries  int
	retryDelay  time.Duration
	synchronous bool // tests run tasks inline
	wg          sync.WaitGroup
}

func NewTaskRunner(maxRetries int, retryDelay time.Duration) *TaskRunner {
	return &TaskRunner{maxRetries: maxRetries, retryDelay: retryDelay}
}

// NewSynchronousTaskRunner runs every task inline with no delay between
// retries. Intended for tests.
func NewSynchronousTaskRunner(maxRetries int) *TaskRunner {
	return &TaskRunner{maxRetries: maxRetries, synchronous: true}
}

// Submit dispatches a task. The call returns immediately; the caller must
// not depend on the task's outcome. onExhausted may be nil.
func (r *TaskRunner) Submit(name string, run func() error, onExhausted func(error)) {
	if r.synchronous {
		r.execute(name, run, onExhausted)
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(name, run, onExhausted)
	}()
}

// Wait blocks until all dispatched tasks have finished.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}

func (r *TaskRunner) execute(name string, run func() error, onExhausted func(error)) {
	var err error
	attempts := r.maxRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; i <= attempts; i++ {
		if err = run(); err == nil {
			return
		}
		log.Printf("[TASKS] %s failed (attempt %d/%d): %v", name, i, attempts, err)
		if i < attempts && !r.synchronous {
			time.Sleep(r.retryDelay * time.Duration(i))
		}
	}
	log.Printf("[TASKS] %s gave up after %d attempts: %v", name, attempts, err)
	if onExhausted != nil {
		onExhausted(err)
	}
}
