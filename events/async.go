package events

import (
	"context"
	"sync"
	"time"

	"github.com/effective-security/edxai/pkg/metricskey"
	"github.com/effective-security/xlog"
)

// DefaultQueueSize of the async emitter
const DefaultQueueSize = 256

// DefaultEmitTimeout bounds the delivery of a single event
const DefaultEmitTimeout = 10 * time.Second

type queued struct {
	ctx   context.Context
	event *Event
}

// AsyncEmitter delivers events in the background.
// Emit never blocks, events are dropped when the queue is full or the emitter is closed.
type AsyncEmitter struct {
	next    Emitter
	queue   chan queued
	timeout time.Duration

	lock   sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncEmitter starts workers delivering events to next
func NewAsyncEmitter(next Emitter, queueSize, workers int) *AsyncEmitter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if workers <= 0 {
		workers = 1
	}
	a := &AsyncEmitter{
		next:    next,
		queue:   make(chan queued, queueSize),
		timeout: DefaultEmitTimeout,
	}
	for range workers {
		a.wg.Add(1)
		go a.run()
	}
	return a
}

// Emit queues the event and returns immediately
func (a *AsyncEmitter) Emit(ctx context.Context, e *Event) error {
	a.lock.RLock()
	defer a.lock.RUnlock()

	if a.closed {
		a.dropped(ctx, e, "closed")
		return nil
	}
	// the request context is done before delivery, keep its values only
	select {
	case a.queue <- queued{ctx: context.WithoutCancel(ctx), event: e}:
	default:
		a.dropped(ctx, e, "queue_full")
	}
	return nil
}

// Close stops accepting events and waits for queued events to be delivered
func (a *AsyncEmitter) Close() error {
	a.lock.Lock()
	if a.closed {
		a.lock.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.lock.Unlock()

	a.wg.Wait()
	return nil
}

func (a *AsyncEmitter) run() {
	defer a.wg.Done()
	for q := range a.queue {
		a.deliver(q)
	}
}

func (a *AsyncEmitter) deliver(q queued) {
	ctx, cancel := context.WithTimeout(q.ctx, a.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "emit_panic", "event", q.event.Name, "panic", r)
		}
	}()

	if err := a.next.Emit(ctx, q.event); err != nil {
		metricskey.StatsEventsDropped.IncrCounter(1, q.event.Name)
		logger.ContextKV(ctx, xlog.WARNING, "reason", "emit", "event", q.event.Name, "err", err.Error())
	}
}

func (a *AsyncEmitter) dropped(ctx context.Context, e *Event, reason string) {
	metricskey.StatsEventsDropped.IncrCounter(1, e.Name)
	logger.ContextKV(ctx, xlog.WARNING, "reason", reason, "event", e.Name)
}
