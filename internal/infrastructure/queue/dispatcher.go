package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/livraison/courier-tracking/internal/core/ports"
)

const (
	defaultWorkers = 8
	shardBuffer    = 256
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher feeds batched position reports to the ingestion service from a
// fixed set of workers. Reports are sharded by courier id so one courier's
// reports are submitted in the order they were received.
type Dispatcher struct {
	shards  []chan ports.SubmitPositionInput
	service ports.PositionService
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers shards.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.PositionService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		shards:  make([]chan ports.SubmitPositionInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.shards {
		d.shards[i] = make(chan ports.SubmitPositionInput, shardBuffer)
	}
	return d
}

// Start launches one worker per shard. ctx is handed to every Submit call;
// workers themselves run until Close.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.shards {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// EnqueueBatch hands every report to its courier's shard, blocking while a
// shard is full. It fails once Close has been called.
func (d *Dispatcher) EnqueueBatch(batch []ports.SubmitPositionInput) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	for _, in := range batch {
		d.shards[d.shardIndex(in.CourierID)] <- in
	}
	return nil
}

// Close stops intake. Already queued reports are still submitted; use Wait
// to block until they are.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
}

// Wait blocks until every worker has drained its shard and returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) shardIndex(courierID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(courierID))
	return int(h.Sum32() % uint32(len(d.shards)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.SubmitPositionInput) {
	defer d.wg.Done()

	for in := range ch {
		if _, err := d.service.Submit(ctx, in); err != nil {
			d.log.Error().Err(err).
				Str("livreur_id", in.CourierID).
				Int("worker_id", id).
				Msg("batched position rejected")
		}
	}
}
