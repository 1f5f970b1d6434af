// Package broadcast fans position events out to live subscribers.
//
// Every subscriber owns a queue drained by its own goroutine, so a slow or
// broken sink never blocks Publish or delivery to other subscribers.
// Events reach each sink in the order Publish was called.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/livraison/courier-tracking/internal/core/domain"
	"github.com/livraison/courier-tracking/internal/metrics"
)

const (
	defaultQueueSize       = 64
	defaultDeliveryTimeout = 5 * time.Second
	defaultMaxDrops        = 3
	defaultStallTimeout    = time.Second
	minStallCheck          = 10 * time.Millisecond
)

const (
	reasonDeliveryFailed = "delivery_failed"
	reasonOverflow       = "overflow"
	reasonStalled        = "stalled"
)

var (
	errHubClosed    = errors.New("hub closed")
	errUnsubscribed = errors.New("subscription ended")
	errStalled      = errors.New("subscriber stalled")
)

// Sink accepts one event at a time. A returned error means the subscriber is
// gone; the hub then removes it.
type Sink interface {
	Deliver(ctx context.Context, event domain.PositionEvent) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event domain.PositionEvent) error

func (f SinkFunc) Deliver(ctx context.Context, event domain.PositionEvent) error {
	return f(ctx, event)
}

// Options tunes per-subscriber buffering and eviction.
//
// A subscriber holding QueueSize or more undelivered events is behind. Bursts
// are absorbed: a behind subscriber keeps queueing as long as it catches up
// within StallTimeout. One that stays behind longer is lagging; events
// published to it are then dropped, and it is evicted after MaxDrops drops in
// a row or as soon as it has not finished a delivery for StallTimeout.
type Options struct {
	// QueueSize is the number of pending events before a subscriber is behind.
	QueueSize int
	// DeliveryTimeout bounds a single Deliver call.
	DeliveryTimeout time.Duration
	// MaxDrops is the number of consecutive events dropped for a lagging
	// subscriber before it is evicted.
	MaxDrops int
	// StallTimeout is how long a subscriber may stay behind.
	StallTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.DeliveryTimeout <= 0 {
		o.DeliveryTimeout = defaultDeliveryTimeout
	}
	if o.MaxDrops <= 0 {
		o.MaxDrops = defaultMaxDrops
	}
	if o.StallTimeout <= 0 {
		o.StallTimeout = defaultStallTimeout
	}
	return o
}

func (o Options) stallCheck() time.Duration {
	return max(o.StallTimeout/4, minStallCheck)
}

// Hub keeps the set of live subscriptions. The zero value is not usable; call NewHub.
type Hub struct {
	opts   Options
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	// publishMu serialises Publish so every subscriber sees the same order.
	publishMu sync.Mutex
	seq       uint64

	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool
	wg     sync.WaitGroup
}

type subscriber struct {
	id   string
	sink Sink
	wake chan struct{}
	done chan struct{}
	once sync.Once

	mu           sync.Mutex
	pending      []domain.PositionEvent
	behindSince  time.Time
	lastProgress time.Time
	drops        int
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// offer queues ev unless the subscriber is lagging. evict reports that the
// drop limit has been reached.
func (s *subscriber) offer(ev domain.PositionEvent, now time.Time, opts Options) (queued, evict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) >= opts.QueueSize {
		if s.behindSince.IsZero() {
			s.behindSince = now
		} else if now.Sub(s.behindSince) >= opts.StallTimeout {
			s.drops++
			return false, s.drops >= opts.MaxDrops
		}
	}
	s.pending = append(s.pending, ev)

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true, false
}

func (s *subscriber) next(opts Options) (domain.PositionEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return domain.PositionEvent{}, false
	}
	ev := s.pending[0]
	s.pending[0] = domain.PositionEvent{}
	s.pending = s.pending[1:]
	if len(s.pending) == 0 {
		s.pending = nil
	}
	if len(s.pending) < opts.QueueSize {
		s.behindSince = time.Time{}
		s.drops = 0
	}
	return ev, true
}

func (s *subscriber) progressed(now time.Time) {
	s.mu.Lock()
	s.lastProgress = now
	s.mu.Unlock()
}

// stalled reports a subscriber that is behind and has not finished a
// delivery within the stall timeout.
func (s *subscriber) stalled(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.behindSince.IsZero() &&
		now.Sub(s.behindSince) >= timeout &&
		now.Sub(s.lastProgress) >= timeout
}

var closedDone = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// NewHub creates a Hub. It lives until Close is called.
func NewHub(opts Options, log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		opts:   opts.withDefaults(),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string]*subscriber),
	}
}

// Subscribe registers sink and returns the handle used to unsubscribe.
// Subscribing to a closed hub returns a handle whose Done channel is already closed.
func (h *Hub) Subscribe(sink Sink) string {
	s := &subscriber{
		id:           uuid.NewString(),
		sink:         sink,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
		lastProgress: time.Now(),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.stop()
		return s.id
	}
	h.subs[s.id] = s
	n := len(h.subs)
	h.wg.Add(1)
	h.mu.Unlock()

	go h.run(s)

	metrics.HubSubscribers.Set(float64(n))
	h.log.Debug().Str("subscriber_id", s.id).Int("subscribers", n).Msg("subscribed")
	return s.id
}

// Unsubscribe removes a subscription. Unknown or already removed ids are a no-op.
// Events still queued for it are discarded.
func (h *Hub) Unsubscribe(id string) {
	if h.remove(id) {
		h.log.Debug().Str("subscriber_id", id).Msg("unsubscribed")
	}
}

// Done returns a channel closed when the subscription ends, whether by
// Unsubscribe, eviction or Close.
func (h *Hub) Done(id string) <-chan struct{} {
	h.mu.RLock()
	s, ok := h.subs[id]
	h.mu.RUnlock()
	if !ok {
		return closedDone
	}
	return s.done
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Closed reports whether Close has been called.
func (h *Hub) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// Publish enqueues event for every subscriber registered when the call starts.
// It never blocks on a subscriber and never fails.
func (h *Hub) Publish(event domain.PositionEvent) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	snapshot := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	h.seq++
	event.Seq = h.seq
	now := time.Now()

	var lagging []*subscriber
	for _, s := range snapshot {
		select {
		case <-s.done:
			continue
		default:
		}

		queued, evict := s.offer(event, now, h.opts)
		if queued {
			continue
		}
		metrics.HubDeliveriesTotal.WithLabelValues("dropped").Inc()
		if evict {
			lagging = append(lagging, s)
		}
	}

	for _, s := range lagging {
		h.evict(s.id, reasonOverflow, fmt.Errorf("%d consecutive events dropped", h.opts.MaxDrops))
	}
}

// Close ends every subscription and stops the delivery goroutines.
// Publish and Subscribe remain safe to call afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()

	h.cancel()
	for _, s := range subs {
		s.stop()
	}
	h.wg.Wait()

	metrics.HubSubscribers.Set(0)
	h.log.Info().Int("subscribers", len(subs)).Msg("hub closed")
}

func (h *Hub) remove(id string) bool {
	h.mu.Lock()
	s, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()

	if !ok {
		return false
	}
	s.stop()
	metrics.HubSubscribers.Set(float64(n))
	return true
}

func (h *Hub) evict(id, reason string, cause error) {
	if !h.remove(id) {
		return
	}
	metrics.HubEvictionsTotal.WithLabelValues(reason).Inc()
	err := &domain.DeliveryError{SubscriberID: id, Err: cause}
	h.log.Warn().Err(err).Str("subscriber_id", id).Str("reason", reason).Msg("subscriber evicted")
}

func (h *Hub) run(s *subscriber) {
	defer h.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			// removal wins over queued events
			select {
			case <-s.done:
				return
			default:
			}
			event, ok := s.next(h.opts)
			if !ok {
				break
			}

			err := h.deliver(s, event)
			switch {
			case err == nil:
				s.progressed(time.Now())
				metrics.HubDeliveriesTotal.WithLabelValues("delivered").Inc()
			case errors.Is(err, errHubClosed), errors.Is(err, errUnsubscribed):
				return
			case errors.Is(err, errStalled):
				metrics.HubDeliveriesTotal.WithLabelValues("failed").Inc()
				h.evict(s.id, reasonStalled, err)
				return
			default:
				metrics.HubDeliveriesTotal.WithLabelValues("failed").Inc()
				h.evict(s.id, reasonDeliveryFailed, err)
				return
			}
		}
	}
}

// deliver runs one Deliver call bounded by the delivery timeout. A sink that
// ignores its context is abandoned once the deadline passes, or earlier when
// it falls behind for longer than the stall timeout.
func (h *Hub) deliver(s *subscriber, event domain.PositionEvent) error {
	ctx, cancel := context.WithTimeout(h.ctx, h.opts.DeliveryTimeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- safeDeliver(ctx, s.sink, event) }()

	ticker := time.NewTicker(h.opts.stallCheck())
	defer ticker.Stop()

	for {
		select {
		case err := <-errc:
			return err
		case <-s.done:
			return errUnsubscribed
		case now := <-ticker.C:
			if s.stalled(now, h.opts.StallTimeout) {
				return fmt.Errorf("%w: no delivery for %s", errStalled, h.opts.StallTimeout)
			}
		case <-ctx.Done():
			if h.ctx.Err() != nil {
				return errHubClosed
			}
			return ctx.Err()
		}
	}
}

func safeDeliver(ctx context.Context, sink Sink, event domain.PositionEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return sink.Deliver(ctx, event)
}
