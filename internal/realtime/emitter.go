package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/schoolstream/internal/domain"
	"github.com/schoolstream/internal/infrastructure/sns"
	"github.com/schoolstream/internal/logging"
	"github.com/schoolstream/internal/metrics"
)

const durableWriteTimeout = 5 * time.Second

// Broadcaster fans an event out to live sessions.
type Broadcaster interface {
	Broadcast(ev *domain.Event)
}

// NotificationAppender persists an event as a durable notification row.
type NotificationAppender interface {
	Append(ctx context.Context, ev *domain.Event) error
}

// Emitter is the entry point business handlers call after a committed
// mutation. Emit is fire-and-forget: the live fan-out happens inline
// (buffered, never blocking on sockets) and the durable write happens on a
// background goroutine, so no failure in this subsystem can propagate back
// into the business operation.
type Emitter struct {
	hub     Broadcaster
	store   NotificationAppender
	relay   sns.Publisher // optional, nil when no topic is configured
	breaker *gobreaker.CircuitBreaker[struct{}]
	wg      sync.WaitGroup
}

// NewEmitter wires the emitter. relay may be nil. The circuit breaker keeps
// a down notification store from stacking up timed-out writes.
func NewEmitter(hub Broadcaster, store NotificationAppender, relay sns.Publisher) *Emitter {
	settings := gobreaker.Settings{
		Name:    "notification-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Emitter{
		hub:     hub,
		store:   store,
		relay:   relay,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Emit broadcasts the event to live sessions and schedules the durable
// write. It never returns an error and never blocks on I/O; callers must not
// depend on delivery succeeding.
func (e *Emitter) Emit(ctx context.Context, ev *domain.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Icon == "" {
		meta := domain.ResolveModuleMeta(ev.Module)
		ev.Icon, ev.Color = meta.Icon, meta.Color
	}
	metrics.EventsEmitted.WithLabelValues(ev.Module).Inc()

	e.hub.Broadcast(ev)

	// The durable write is detached from the request context: the business
	// response must not wait for it, and it must survive request teardown.
	e.wg.Add(1)
	go e.persist(ev)

	if ev.Urgent && e.relay != nil {
		e.wg.Add(1)
		go e.relayUrgent(ev)
	}
}

// Flush waits for in-flight background writes. Used at shutdown.
func (e *Emitter) Flush() {
	e.wg.Wait()
}

func (e *Emitter) persist(ev *domain.Event) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), durableWriteTimeout)
	defer cancel()

	_, err := e.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, e.store.Append(ctx, ev)
	})
	if err != nil {
		metrics.DurableWriteFailures.Inc()
		logging.Error().Err(err).
			Str("type", ev.Type).
			Str("tenant", ev.TenantID).
			Msg("durable notification write failed")
	}
}

func (e *Emitter) relayUrgent(ev *domain.Event) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), durableWriteTimeout)
	defer cancel()

	if err := e.relay.Publish(ctx, ev.Title, ev.Message); err != nil {
		logging.Error().Err(err).
			Str("type", ev.Type).
			Str("tenant", ev.TenantID).
			Msg("urgent notification relay failed")
	}
}
