package relay

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/pkg/exception"
)

// Handler applies one event. A non-nil error is logged and the event is
// dropped; the relay never retries and never surfaces the error to the
// publisher.
type Handler func(ctx context.Context, e OrderExecuted) error

// Relay is a bounded, partitioned, in-process event channel. Publish is
// fire-and-forget: it returns once a partition accepts the event,
// independent of whether any consumer later succeeds. Events with the same
// key always land on the same partition, preserving per-holding order.
type Relay struct {
	partitions []chan OrderExecuted
	closed     uint32
	wg         sync.WaitGroup
	metrics    *obs.Metrics
}

// New allocates a relay with the given partition count and per-partition
// capacity.
func New(partitions, capacity int, metrics *obs.Metrics) *Relay {
	if partitions <= 0 {
		partitions = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	chs := make([]chan OrderExecuted, partitions)
	for i := range chs {
		chs[i] = make(chan OrderExecuted, capacity)
	}
	return &Relay{partitions: chs, metrics: metrics}
}

// Publish enqueues an event without blocking.
func (r *Relay) Publish(e OrderExecuted) error {
	if atomic.LoadUint32(&r.closed) != 0 {
		r.metrics.IncEventDropped()
		return exception.ErrRelayClosed
	}
	select {
	case r.partition(e.Key()) <- e:
		r.metrics.IncEventPublished()
		return nil
	default:
		r.metrics.IncEventDropped()
		return exception.ErrRelayFull
	}
}

// Run starts one consumer goroutine per partition. Consumption stops when
// the context is done or the relay is closed and drained.
func (r *Relay) Run(ctx context.Context, handler Handler) {
	for _, ch := range r.partitions {
		r.wg.Add(1)
		go func(ch chan OrderExecuted) {
			defer r.wg.Done()
			consume(ctx, ch, handler, r.metrics)
		}(ch)
	}
}

// Close stops the relay from accepting new events. Consumers drain what was
// already accepted.
func (r *Relay) Close() {
	if atomic.CompareAndSwapUint32(&r.closed, 0, 1) {
		for _, ch := range r.partitions {
			close(ch)
		}
	}
}

// Wait blocks until all consumer goroutines exit.
func (r *Relay) Wait() {
	r.wg.Wait()
}

func (r *Relay) partition(key string) chan OrderExecuted {
	h := fnv.New32a()
	h.Write([]byte(key))
	return r.partitions[h.Sum32()%uint32(len(r.partitions))]
}

func consume(ctx context.Context, ch chan OrderExecuted, handler Handler, metrics *obs.Metrics) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			start := time.Now()
			if err := handler(ctx, e); err != nil {
				metrics.IncConsumerFailure()
				logs.Errorf("handle event for order %d, err: %+v", e.OrderID, err)
				continue
			}
			metrics.IncEventConsumed()
			metrics.ObserveConsume(time.Since(start))
		}
	}
}
