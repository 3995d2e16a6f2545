package pipeline

import (
	"math/rand"
	"testing"

	"market_guard/internal/breaker"
	"market_guard/internal/domain"
	"market_guard/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(ev domain.MarketEvent, n int) []domain.MarketEvent {
	out := make([]domain.MarketEvent, n)
	for i := range out {
		out[i] = ev
	}
	return out
}

func TestPipeline_BaselineThenCrash(t *testing.T) {
	p := New(DefaultOptions())
	for _, r := range p.Run(repeat(domain.Price(100), 50)) {
		require.False(t, r.Alert.Active, "step %d should be quiet", r.Step)
	}

	r := p.Step(domain.Price(40))
	assert.True(t, r.Rule.Has(domain.RulePriceSpike))
	assert.Equal(t, domain.RuleFlashCrash, r.Rule.Type)
	assert.Equal(t, uint8(7), r.Rule.Priority)
	assert.True(t, r.Alert.Active)
	assert.True(t, r.Alert.Rising)
	assert.Equal(t, uint8(7), r.Alert.Priority)
	assert.False(t, r.Alert.Cascade, "isolated crash must not cascade")
}

func TestPipeline_ClassifierLatencyAndCommandLatch(t *testing.T) {
	p := New(DefaultOptions())
	p.Run(repeat(domain.Price(100), features.WindowSteps-1))

	tick := p.Step(domain.Price(40))
	require.True(t, tick.Emitted)
	require.Equal(t, uint64(features.WindowSteps), tick.Step)
	assert.False(t, tick.ML.Valid, "verdict must not be valid on the tick itself")

	next := p.Step(domain.Price(100))
	require.True(t, next.ML.Valid)
	assert.Equal(t, domain.ClassFlashCrash, next.ML.Class)
	// ((240-180) + (104-100)) << 1
	assert.Equal(t, uint8(128), next.ML.Confidence)
	assert.False(t, next.Loaded, "command latches the step after the verdict")

	loaded := p.Step(domain.Price(100))
	require.True(t, loaded.Loaded)
	assert.Equal(t, domain.Command{Mode: domain.ModePause, Param: 128}, loaded.Command)
	assert.Equal(t, domain.ModePause, loaded.Breaker.Mode)
	assert.Equal(t, uint16(256), loaded.Breaker.Countdown)

	blocked := p.Step(domain.Buy(100))
	assert.False(t, blocked.Gate.MatchAllowed)
	assert.False(t, blocked.Gate.InsertAllowed)
	assert.True(t, blocked.Match.Rejected)
	assert.True(t, p.Step(domain.Sell(100)).Match.Rejected)

	// The fused alert keeps the latched classifier verdict between ticks.
	assert.True(t, blocked.Alert.Active)
	assert.Equal(t, uint8(domain.ClassFlashCrash), blocked.Alert.Type)

	// The next tick classifies Normal and its command releases the breaker.
	var last StepResult
	for last.Step < 2*features.WindowSteps+2 {
		last = p.Step(domain.Price(100))
	}
	assert.True(t, last.Loaded)
	assert.Equal(t, domain.ModeNormal, last.Command.Mode)
	assert.Equal(t, domain.ModeNormal, last.Breaker.Mode)
	assert.False(t, last.Alert.Active)
}

func TestPipeline_CascadeOverridePreemptsClassifier(t *testing.T) {
	p := New(DefaultOptions())
	p.Run(repeat(domain.Price(100), 249))

	r := p.Step(domain.Price(125)) // step 250, volatility
	require.Equal(t, domain.RuleVolatility, r.Rule.Type)
	r = p.Step(domain.Price(100)) // step 251, spike back down
	require.Equal(t, domain.RulePriceSpike, r.Rule.Type)
	p.Run(repeat(domain.Price(100), 5))

	// Step 257: classifier Normal verdict and a rule FlashCrash in the same step.
	r = p.Step(domain.Price(40))
	require.Equal(t, uint64(257), r.Step)
	require.True(t, r.ML.Valid)
	require.Equal(t, domain.ClassNormal, r.ML.Class)
	require.True(t, r.Cascade.Fired)
	assert.Equal(t, domain.CascadeSpikeCrash, r.Cascade.Kind)
	assert.Equal(t, uint8(255), r.Cascade.OverrideParam)
	assert.True(t, r.Alert.Cascade)
	assert.Equal(t, uint8(domain.FusedTypeCascade), r.Alert.Type)

	r = p.Step(domain.Price(40))
	require.True(t, r.Loaded)
	assert.Equal(t, breaker.Override(255), r.Command)
	assert.Equal(t, domain.ModePause, r.Breaker.Mode)
	assert.Equal(t, uint16(breaker.MaxCountdown), r.Breaker.Countdown)
}

func TestPipeline_VolCrashFromRules(t *testing.T) {
	p := New(DefaultOptions())
	p.Run(repeat(domain.Volume(100), 10))

	r := p.Step(domain.Volume(300))
	require.Equal(t, domain.RuleVolumeSurge, r.Rule.Type)
	p.Run(repeat(domain.Price(100), 3))

	r = p.Step(domain.Price(40))
	require.True(t, r.Cascade.Fired)
	assert.Equal(t, domain.CascadeVolCrash, r.Cascade.Kind)

	held := 0
	for i := 0; i < 40; i++ {
		if p.Step(domain.Price(40)).Cascade.Held {
			held++
		}
	}
	assert.Equal(t, 32, held)
}

func TestPipeline_FlatVolumeStaysNormal(t *testing.T) {
	for v := 64; v <= 127; v++ {
		p := New(DefaultOptions())
		for i := 0; i < 2*features.WindowSteps+2; i++ {
			ev := domain.Price(100)
			if i%2 == 0 {
				ev = domain.Volume(v)
			}
			r := p.Step(ev)
			if r.ML.Valid {
				require.Equal(t, domain.ClassNormal, r.ML.Class, "volume %d step %d", v, r.Step)
			}
			require.Equal(t, domain.ModeNormal, r.Breaker.Mode, "volume %d step %d", v, r.Step)
		}
	}
}

func TestPipeline_SelfHealAndRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	p := New(DefaultOptions())
	kinds := []domain.EventKind{domain.EventPrice, domain.EventVolume, domain.EventBuy, domain.EventSell}

	lastLoad := uint64(0)
	for i := 0; i < 200000; i++ {
		v := 90 + rng.Intn(20)
		if rng.Intn(50) == 0 {
			v = rng.Intn(4096)
		}
		r := p.Step(domain.NewMarketEvent(kinds[rng.Intn(len(kinds))], v))

		if r.Loaded {
			lastLoad = r.Step
		}
		if r.Step-lastLoad > breaker.MaxCountdown {
			require.Equal(t, domain.ModeNormal, r.Breaker.Mode, "step %d: breaker did not self-heal", r.Step)
		}
		require.LessOrEqual(t, r.Breaker.Countdown, uint16(breaker.MaxCountdown))
		require.LessOrEqual(t, r.Alert.Priority, uint8(7))
		require.LessOrEqual(t, r.Alert.Type, uint8(7))
		if r.Rule.Active {
			require.NotZero(t, r.Rule.Bitmap)
		}
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	events := make([]domain.MarketEvent, 3000)
	for i := range events {
		events[i] = domain.NewMarketEvent(domain.EventKind(rng.Intn(4)), 80+rng.Intn(60))
	}

	a := New(DefaultOptions()).Run(events)
	b := New(DefaultOptions()).Run(events)
	require.Equal(t, a, b)

	p := New(DefaultOptions())
	p.Run(events[:1000])
	p.Reset()
	assert.Equal(t, a, p.Run(events))
}

func TestPipeline_Snapshot(t *testing.T) {
	p := New(Options{Preset: 2})
	p.Run(repeat(domain.Sell(100), 3))
	s := p.Snapshot()
	assert.Equal(t, uint64(3), s.Step)
	assert.Equal(t, uint8(2), s.Preset)
	assert.Equal(t, "cascade", s.Classifier)
	assert.Equal(t, uint8(3), s.AskDepth)
	assert.Equal(t, []string{"spread_widening", "none", "none"}, s.CascadeHistory)
	assert.Len(t, s.LastVector, features.NumFields)
	assert.Zero(t, s.LastVector["sell_count"], "no window has closed yet")

	// The open window is visible without closing it.
	assert.Equal(t, uint8(3), s.PendingVector["sell_count"])
	assert.Equal(t, uint8(3), s.PendingVector["arrival_rate"])
	assert.Equal(t, s.PendingVector, p.Snapshot().PendingVector, "peeking must not advance the window")
}

func BenchmarkPipeline_Step(b *testing.B) {
	p := New(DefaultOptions())
	events := []domain.MarketEvent{domain.Price(100), domain.Volume(100), domain.Buy(99), domain.Sell(101)}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.Step(events[i&3])
	}
}
