// Package task provides the cooperative cancellation primitives shared by the
// mode and cycle workers. A Token is a one-shot cancellation flag; a Task
// couples a Token with a join handle so a caller can cancel a worker and block
// until it has fully exited.
package task

import (
	"sync"
	"time"
)

// Token is a one-shot cooperative cancellation flag. Cancel may be called any
// number of times from any goroutine.
type Token struct {
	once sync.Once
	done chan struct{}
}

func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

func (t *Token) Cancel() {
	t.once.Do(func() { close(t.done) })
}

func (t *Token) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done exposes the cancellation channel for select-based waits.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Sleep waits for d or until tok is cancelled, whichever comes first.
// Returns false if the sleep was cut short by cancellation.
func Sleep(tok *Token, d time.Duration) bool {
	if d <= 0 {
		return !tok.Cancelled()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Task is a single background unit of work with its own cancellation token.
type Task struct {
	tok  *Token
	done chan struct{}
}

// Go runs fn in a new goroutine and returns its handle. fn must observe the
// token and return promptly once it is cancelled.
func Go(fn func(tok *Token)) *Task {
	t := &Task{
		tok:  NewToken(),
		done: make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		fn(t.tok)
	}()
	return t
}

func (t *Task) Cancel() {
	t.tok.Cancel()
}

// Wait blocks until the worker function has returned.
func (t *Task) Wait() {
	<-t.done
}

// Stop cancels the task and joins it.
func (t *Task) Stop() {
	t.Cancel()
	t.Wait()
}
