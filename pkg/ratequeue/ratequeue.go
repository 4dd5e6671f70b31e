// Package ratequeue admits requests to a rate-limited provider in arrival
// order. Admission is decided by a single dispatcher goroutine, so the
// check against the sliding windows and the counter increment that follows
// it can never race across concurrently queued callers.
package ratequeue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("ratequeue: queue closed")

// Limits are the provider's ceilings across three sliding windows. A zero
// value disables that window.
type Limits struct {
	PerSecond      int
	PerFiveMinutes int
	PerHour        int
}

type request struct {
	ctx   context.Context
	ready chan struct{}
}

// Queue is a process-wide FIFO admission queue. Callers block in Acquire
// until all windows have headroom or their context expires.
type Queue struct {
	limits   Limits
	requests chan *request
	done     chan struct{}
	once     sync.Once

	mu       sync.Mutex
	admitted []time.Time
}

func New(limits Limits) *Queue {
	q := &Queue{
		limits:   limits,
		requests: make(chan *request, 1024),
		done:     make(chan struct{}),
	}
	go q.dispatch()
	return q
}

// Acquire blocks until the caller is admitted. Requests are released
// strictly in arrival order.
func (q *Queue) Acquire(ctx context.Context) error {
	req := &request{ctx: ctx, ready: make(chan struct{})}

	select {
	case q.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrClosed
	}

	select {
	case <-req.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrClosed
	}
}

// Close stops the dispatcher. Blocked callers are released with ErrClosed.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

func (q *Queue) dispatch() {
	for {
		select {
		case <-q.done:
			return
		case req := <-q.requests:
			if !q.waitForHeadroom(req) {
				continue
			}
			// A caller that gave up while queued must not consume a slot.
			select {
			case <-req.ctx.Done():
			default:
				q.admit(time.Now())
				close(req.ready)
			}
		}
	}
}

// waitForHeadroom sleeps until every window can take one more admission.
// Returns false if the queue closed or the request was abandoned.
func (q *Queue) waitForHeadroom(req *request) bool {
	for {
		wait := q.nextAdmission(time.Now())
		if wait <= 0 {
			return true
		}
		timer := time.NewTimer(wait)
		select {
		case <-q.done:
			timer.Stop()
			return false
		case <-req.ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

// nextAdmission returns how long until all windows have headroom, or 0.
func (q *Queue) nextAdmission(now time.Time) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pruneLocked(now)

	var wait time.Duration
	windows := []struct {
		span  time.Duration
		limit int
	}{
		{time.Second, q.limits.PerSecond},
		{5 * time.Minute, q.limits.PerFiveMinutes},
		{time.Hour, q.limits.PerHour},
	}
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}
		inWindow := q.countLocked(now, w.span)
		if inWindow < w.limit {
			continue
		}
		oldest := q.oldestInWindowLocked(now, w.span)
		if until := oldest.Add(w.span).Sub(now); until > wait {
			wait = until
		}
	}
	return wait
}

func (q *Queue) admit(now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.admitted = append(q.admitted, now)
}

// pruneLocked drops stamps older than the widest window.
func (q *Queue) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(q.admitted) && q.admitted[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		q.admitted = append([]time.Time(nil), q.admitted[i:]...)
	}
}

func (q *Queue) countLocked(now time.Time, span time.Duration) int {
	cutoff := now.Add(-span)
	n := 0
	for i := len(q.admitted) - 1; i >= 0; i-- {
		if q.admitted[i].Before(cutoff) {
			break
		}
		n++
	}
	return n
}

func (q *Queue) oldestInWindowLocked(now time.Time, span time.Duration) time.Time {
	cutoff := now.Add(-span)
	for _, t := range q.admitted {
		if !t.Before(cutoff) {
			return t
		}
	}
	return now
}
