package event

import (
	"sync"

	"market_guard/internal/domain"
)

// tickPool provides sync.Pool for high-frequency tick allocation.
// Use this to reduce GC pressure in the hotpath.
//
// Usage:
//
//	ev := AcquireTickEvent()
//	ev.Market = domain.Price(100)
//	// ... send to the sequencer, which releases it after processing ...
var tickPool = sync.Pool{
	New: func() interface{} {
		return &TickEvent{}
	},
}

// AcquireTickEvent gets a TickEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireTickEvent() *TickEvent {
	return tickPool.Get().(*TickEvent)
}

// ReleaseTickEvent returns a TickEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseTickEvent(ev *TickEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Ts = 0
	ev.Market = domain.MarketEvent{}

	tickPool.Put(ev)
}

// Release returns pooled event types to their pool. Others are left to the GC.
func Release(ev Event) {
	if t, ok := ev.(*TickEvent); ok {
		ReleaseTickEvent(t)
	}
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
// It acquires and releases a batch of events.
func Warmup() {
	const batchSize = 1000

	evs := make([]*TickEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireTickEvent())
	}
	for _, ev := range evs {
		ReleaseTickEvent(ev)
	}
}
