// Package publisher emits audit events to a store and optional sinks,
// synchronously or through a buffered background worker.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "watchgate/pkg/platform/audit"
)

// Publisher writes events to its store and fans them out to sinks. In sync
// mode Emit persists inline; with an async buffer Emit enqueues and a
// background goroutine drains. Close flushes the queue.
type Publisher struct {
	store  audit.Store
	sinks  []audit.Sink
	logger *slog.Logger

	inbox     chan audit.Event
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu     sync.RWMutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given queue size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

// WithSink adds a fan-out sink. Sink failures are logged, never returned:
// the store is the system of record, sinks are best-effort.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithLogger sets the logger for sink-failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// NewPublisher constructs a publisher over the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records one event. The timestamp is stamped if unset. After Close the
// queue is gone, so late events deliver synchronously instead of crashing.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.inbox != nil {
		p.mu.RLock()
		if !p.closed {
			defer p.mu.RUnlock()
			select {
			case p.inbox <- event:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		p.mu.RUnlock()
	}
	return p.deliver(ctx, event)
}

// ListRecent exposes the store's recent events for admin inspection.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close stops the background worker after flushing queued events. The closed
// flag is set before the channel closes so no in-flight Emit can send on it.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			p.mu.Lock()
			p.closed = true
			p.mu.Unlock()
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		p.deliver(context.Background(), event)
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed", "action", event.Action, "error", err)
		return err
	}
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			p.logger.WarnContext(ctx, "audit sink publish failed", "action", event.Action, "error", err)
		}
	}
	return nil
}
