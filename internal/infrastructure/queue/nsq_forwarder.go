package queue

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/rs/zerolog"

	"github.com/livraison/courier-tracking/internal/core/broadcast"
	"github.com/livraison/courier-tracking/internal/core/domain"
	"github.com/livraison/courier-tracking/internal/metrics"
)

// Producer is the subset of *nsq.Producer the forwarder needs.
type Producer interface {
	Publish(topic string, body []byte) error
	Stop()
}

const defaultResubscribeDelay = time.Second

// Subscriptions is the part of the broadcast hub the forwarder attaches to.
type Subscriptions interface {
	Subscribe(sink broadcast.Sink) string
	Unsubscribe(id string)
	Done(id string) <-chan struct{}
	Closed() bool
}

// Forwarder republishes every position event to an NSQ topic so downstream
// consumers can follow the fleet without holding a live connection.
// It is registered with the hub as an ordinary subscriber.
type Forwarder struct {
	producer Producer
	topic    string
	log      zerolog.Logger

	resubscribeDelay time.Duration
}

// NewNSQProducer connects a producer to nsqd at addr. Client library warnings
// are written through log.
func NewNSQProducer(addr string, log zerolog.Logger) (*nsq.Producer, error) {
	p, err := nsq.NewProducer(addr, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("nsq producer: %w", err)
	}
	if err := p.Ping(); err != nil {
		p.Stop()
		return nil, fmt.Errorf("nsq ping: %w", err)
	}
	p.SetLogger(stdlog.New(log, "", 0), nsq.LogLevelWarning)
	return p, nil
}

func NewForwarder(producer Producer, topic string, log zerolog.Logger) *Forwarder {
	return &Forwarder{producer: producer, topic: topic, log: log, resubscribeDelay: defaultResubscribeDelay}
}

// Run keeps the forwarder subscribed to hub. When the hub evicts it, Run waits
// resubscribeDelay and subscribes again. It returns once the hub is closed or
// ctx is done.
func (f *Forwarder) Run(ctx context.Context, hub Subscriptions) {
	for {
		id := hub.Subscribe(f)
		select {
		case <-ctx.Done():
			hub.Unsubscribe(id)
			return
		case <-hub.Done(id):
		}
		if hub.Closed() {
			return
		}

		metrics.ForwarderResubscribesTotal.Inc()
		f.log.Warn().
			Str("subscriber_id", id).
			Dur("retry_in", f.resubscribeDelay).
			Msg("forwarder evicted from hub, resubscribing")

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.resubscribeDelay):
		}
	}
}

// Deliver publishes ev as JSON. Broker failures are logged and counted but not
// returned, so an nsqd outage never removes the forwarder from the hub.
func (f *Forwarder) Deliver(_ context.Context, ev domain.PositionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := f.producer.Publish(f.topic, body); err != nil {
		metrics.ForwardedTotal.WithLabelValues("error").Inc()
		f.log.Warn().Err(err).Str("topic", f.topic).Str("livreur_id", ev.CourierID).Msg("nsq publish failed")
		return nil
	}
	metrics.ForwardedTotal.WithLabelValues("ok").Inc()
	return nil
}

// Stop flushes and closes the producer.
func (f *Forwarder) Stop() {
	f.producer.Stop()
}
