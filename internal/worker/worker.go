// Package worker provides the single-goroutine execution lane the telemetry
// core serializes all state mutation through. Units run strictly in
// submission order; a failing or panicking unit is reported and the lane
// keeps running.
package worker

import (
	"context"
	"sync"

	"codeberg.org/mutker/telemetry/errors"
	"codeberg.org/mutker/telemetry/internal/logger"
)

// UnitFunc is one unit of work. The context is the queue's lifetime context;
// it is cancelled when a drain deadline expires so blocked units return.
type UnitFunc func(ctx context.Context) error

// FailureFunc receives unit failures: returned errors and recovered panics.
type FailureFunc func(op string, err error)

type unit struct {
	op string
	fn UnitFunc
}

// Queue executes submitted units on one goroutine in submission order.
// Submission never blocks and the backlog is unbounded.
type Queue struct {
	name      string
	onFailure FailureFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	cond    *sync.Cond
	backlog []unit
	closed  bool

	done chan struct{}
}

// New creates a queue and starts its worker goroutine. onFailure may be nil;
// failures are always logged.
func New(name string, onFailure FailureFunc) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		name:      name,
		onFailure: onFailure,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()

	return q
}

// Submit enqueues fn behind every previously submitted unit. It fails only
// when the queue has been closed.
func (q *Queue) Submit(op string, fn UnitFunc) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()

		return errors.New().WithData(ErrQueueClosed, op)
	}
	q.backlog = append(q.backlog, unit{op: op, fn: fn})
	q.mu.Unlock()
	q.cond.Signal()

	return nil
}

// Closed reports whether the queue no longer accepts submissions.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.closed
}

// Flush blocks until every unit submitted before the call has executed.
func (q *Queue) Flush(ctx context.Context) error {
	drained := make(chan struct{})
	if err := q.Submit("flush", func(context.Context) error {
		close(drained)

		return nil
	}); err != nil {
		return err
	}

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return errors.New().Wrap(ErrDrainTimeout, ctx.Err())
	}
}

// Close stops intake and waits for the backlog to drain. When ctx expires
// first, the queue context is cancelled so blocked units return, and the
// drain is abandoned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Signal()
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		q.cancel()

		return errors.New().Wrap(ErrDrainTimeout, ctx.Err())
	}
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.backlog) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.backlog) == 0 {
			q.mu.Unlock()

			return
		}
		next := q.backlog[0]
		q.backlog = q.backlog[1:]
		q.mu.Unlock()

		q.execute(next)
	}
}

// execute isolates one unit: a returned error or recovered panic is reported
// and the lane keeps running.
func (q *Queue) execute(u unit) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = errors.New().WithData(ErrUnitPanicked, r)
			}
			q.report(u.op, err)
		}
	}()

	if err := u.fn(q.ctx); err != nil {
		q.report(u.op, err)
	}
}

func (q *Queue) report(op string, err error) {
	var domainErr errors.Error
	if errors.As(err, &domainErr) {
		logger.ErrorWithCode(domainErr).Str("queue", q.name).Str("op", op).Msg("Unit of work failed")
	} else {
		logger.Error().Str("queue", q.name).Str("op", op).Err(err).Msg("Unit of work failed")
	}
	if q.onFailure != nil {
		q.onFailure(op, err)
	}
}
