package event

import (
	"testing"

	"market_guard/internal/domain"
)

func TestTickPool_ReleaseResets(t *testing.T) {
	Warmup()

	ev := AcquireTickEvent()
	ev.Seq = 9
	ev.Ts = 1000
	ev.Market = domain.Price(100)
	ReleaseTickEvent(ev)

	if ev.Seq != 0 || ev.Ts != 0 || ev.Market != (domain.MarketEvent{}) {
		t.Errorf("Expected released event to be zeroed, got %+v", ev)
	}

	// Nil and non-pooled events are ignored.
	ReleaseTickEvent(nil)
	Release(&PresetEvent{Preset: 2})
}

func TestEventTypes(t *testing.T) {
	var ev Event = &TickEvent{BaseEvent: BaseEvent{Seq: 3, Ts: 7}}
	if ev.GetSeq() != 3 || ev.GetTs() != 7 || ev.GetType() != TypeTick {
		t.Errorf("Unexpected tick accessors: %d %d %s", ev.GetSeq(), ev.GetTs(), ev.GetType())
	}
	ev = &PresetEvent{BaseEvent: BaseEvent{Seq: 4}}
	if ev.GetType() != TypePreset || ev.GetType().String() != "preset" {
		t.Errorf("Expected preset type, got %s", ev.GetType())
	}
}

func BenchmarkTickPool(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ev := AcquireTickEvent()
		ev.Seq = uint64(i)
		ReleaseTickEvent(ev)
	}
}
