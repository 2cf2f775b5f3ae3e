package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/brightpath/accounts-api/internal/api/metrics"
	"github.com/brightpath/accounts-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// ProcessFunc consumes one account event off a worker.
type ProcessFunc func(ctx context.Context, event ports.AccountEvent)

// Dispatcher fans account events out to a fixed set of workers using
// consistent hashing on the user id, so events for one account are
// always observed in emission order. It implements ports.EventSink.
type Dispatcher struct {
	workers []chan ports.AccountEvent
	process ProcessFunc
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, process ProcessFunc, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.AccountEvent, numWorkers),
		process: process,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.AccountEvent, channelBuffer)
		metrics.QueueDepth.WithLabelValues(strconv.Itoa(i)).Set(0)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is
// cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Emit sends an event to the worker responsible for its user. Emission
// is fire-and-forget: when the worker's buffer is full the event is
// dropped rather than blocking the request path.
func (d *Dispatcher) Emit(event ports.AccountEvent) {
	shard := d.shardIndex(event.UserID)
	select {
	case d.workers[shard] <- event:
		metrics.QueueDepth.WithLabelValues(strconv.Itoa(shard)).Set(float64(len(d.workers[shard])))
	default:
		d.log.Warn().
			Str("user_id", event.UserID).
			Str("type", string(event.Type)).
			Msg("event dropped: worker buffer full")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.AccountEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.QueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
			d.process(ctx, event)
			d.log.Debug().
				Str("user_id", event.UserID).
				Str("type", string(event.Type)).
				Int("worker_id", id).
				Msg("account event processed")
		}
	}
}
