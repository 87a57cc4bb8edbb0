package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and latency stats for the
// settlement pipeline. All methods are safe on a nil receiver so callers
// can run without observability wired.
type Metrics struct {
	ordersCreated   uint64
	ordersExecuted  uint64
	ordersFailed    uint64
	ordersCancelled uint64

	eventsPublished  uint64
	eventsDropped    uint64
	eventsConsumed   uint64
	consumerFailures uint64

	settlementLatency LatencyStats
	consumeLatency    LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	OrdersCreated   uint64
	OrdersExecuted  uint64
	OrdersFailed    uint64
	OrdersCancelled uint64

	EventsPublished  uint64
	EventsDropped    uint64
	EventsConsumed   uint64
	ConsumerFailures uint64

	SettlementLatency LatencySnapshot
	ConsumeLatency    LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncOrderCreated records a persisted order.
func (m *Metrics) IncOrderCreated() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersCreated, 1)
}

// IncOrderExecuted records a successful settlement.
func (m *Metrics) IncOrderExecuted() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersExecuted, 1)
}

// IncOrderFailed records a terminated settlement.
func (m *Metrics) IncOrderFailed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersFailed, 1)
}

// IncOrderCancelled records a user cancellation.
func (m *Metrics) IncOrderCancelled() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ordersCancelled, 1)
}

// IncEventPublished records an event accepted by the relay.
func (m *Metrics) IncEventPublished() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.eventsPublished, 1)
}

// IncEventDropped records a publish rejected by a full or closed queue.
func (m *Metrics) IncEventDropped() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.eventsDropped, 1)
}

// IncEventConsumed records a handled event.
func (m *Metrics) IncEventConsumed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.eventsConsumed, 1)
}

// IncConsumerFailure records a handler error.
func (m *Metrics) IncConsumerFailure() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.consumerFailures, 1)
}

// ObserveSettlement measures one settlement call chain.
func (m *Metrics) ObserveSettlement(d time.Duration) {
	if m == nil {
		return
	}
	m.settlementLatency.Observe(d)
}

// ObserveConsume measures one consumer handling pass.
func (m *Metrics) ObserveConsume(d time.Duration) {
	if m == nil {
		return
	}
	m.consumeLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		OrdersCreated:     atomic.LoadUint64(&m.ordersCreated),
		OrdersExecuted:    atomic.LoadUint64(&m.ordersExecuted),
		OrdersFailed:      atomic.LoadUint64(&m.ordersFailed),
		OrdersCancelled:   atomic.LoadUint64(&m.ordersCancelled),
		EventsPublished:   atomic.LoadUint64(&m.eventsPublished),
		EventsDropped:     atomic.LoadUint64(&m.eventsDropped),
		EventsConsumed:    atomic.LoadUint64(&m.eventsConsumed),
		ConsumerFailures:  atomic.LoadUint64(&m.consumerFailures),
		SettlementLatency: m.settlementLatency.Snapshot(),
		ConsumeLatency:    m.consumeLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
