package rules

import (
	"testing"

	"market_guard/internal/domain"
)

func price(v int) Input  { return Input{Event: domain.Price(v)} }
func volume(v int) Input { return Input{Event: domain.Volume(v)} }

func warm(d *Detector, in Input, n int) {
	for i := 0; i < n; i++ {
		d.Step(in)
	}
}

func TestDetector_FlashCrashWinsOverSpike(t *testing.T) {
	d := NewDetector(domain.DefaultPreset)
	warm(d, price(100), 16)

	v := d.Step(price(40))
	if !v.Active {
		t.Fatal("Expected an active verdict")
	}
	if !v.Has(domain.RulePriceSpike) {
		t.Error("Expected PriceSpike predicate true (delta 60 > 20)")
	}
	if !v.Has(domain.RuleVolatility) {
		t.Error("Expected Volatility predicate true")
	}
	if v.Type != domain.RuleFlashCrash || v.Priority != 7 {
		t.Errorf("Expected FlashCrash with priority 7, got %s/%d", v.Type, v.Priority)
	}
}

func TestDetector_SteadyPriceIsQuiet(t *testing.T) {
	d := NewDetector(domain.DefaultPreset)
	for i := 0; i < 1000; i++ {
		if v := d.Step(price(100)); v.Active {
			t.Fatalf("step %d: unexpected verdict %+v", i, v)
		}
	}
}

func TestDetector_VolatilityAlone(t *testing.T) {
	d := NewDetector(domain.DefaultPreset)
	warm(d, price(100), 16)

	// deviation 10 > 4*floor(2) but delta 10 is under the spike threshold
	v := d.Step(price(110))
	if v.Type != domain.RuleVolatility || v.Priority != 6 {
		t.Errorf("Expected Volatility/6, got %s/%d", v.Type, v.Priority)
	}
	if v.Has(domain.RulePriceSpike) {
		t.Error("PriceSpike should not fire for delta 10")
	}
}

func TestDetector_FlashCrashNeedsAverage(t *testing.T) {
	d := NewDetector(domain.DefaultPreset)
	warm(d, price(10), 8)
	d.Step(price(60)) // mean (7*10+60)/8 = 16

	v := d.Step(price(0))
	if v.Has(domain.RuleFlashCrash) {
		t.Error("FlashCrash must not fire while avg <= 20")
	}
	if !v.Has(domain.RulePriceSpike) {
		t.Error("Expected PriceSpike for delta 60")
	}
}

func TestDetector_Presets(t *testing.T) {
	tests := []struct {
		preset    domain.Preset
		drop      int
		wantFlash bool
		wantSpike bool
	}{
		{0, 30, true, true},
		{1, 30, false, true},
		{2, 60, false, true},
		{3, 60, false, false},
		{3, 170, true, true},
	}
	for _, tt := range tests {
		d := NewDetector(tt.preset)
		warm(d, price(200), 16)
		v := d.Step(price(200 - tt.drop))
		if v.Has(domain.RuleFlashCrash) != tt.wantFlash {
			t.Errorf("preset %d drop %d: Expected flash=%v", tt.preset, tt.drop, tt.wantFlash)
		}
		if v.Has(domain.RulePriceSpike) != tt.wantSpike {
			t.Errorf("preset %d drop %d: Expected spike=%v", tt.preset, tt.drop, tt.wantSpike)
		}
	}
}

func TestDetector_VolumePredicates(t *testing.T) {
	t.Run("surge above twice the average", func(t *testing.T) {
		d := NewDetector(domain.DefaultPreset)
		warm(d, volume(100), 8)
		if v := d.Step(volume(200)); v.Has(domain.RuleVolumeSurge) {
			t.Error("200 is not strictly above 2x100")
		}
		d = NewDetector(domain.DefaultPreset)
		warm(d, volume(100), 8)
		if v := d.Step(volume(201)); v.Type != domain.RuleVolumeSurge {
			t.Errorf("Expected VolumeSurge, got %s", v.Type)
		}
	})

	t.Run("dry below a quarter of the average", func(t *testing.T) {
		d := NewDetector(domain.DefaultPreset)
		warm(d, volume(100), 8)
		if v := d.Step(volume(24)); v.Type != domain.RuleVolumeDry || v.Priority != 1 {
			t.Errorf("Expected VolumeDry/1, got %s/%d", v.Type, v.Priority)
		}
	})

	t.Run("dry needs an average of at least 10", func(t *testing.T) {
		d := NewDetector(domain.DefaultPreset)
		warm(d, volume(8), 8)
		if v := d.Step(volume(0)); v.Has(domain.RuleVolumeDry) {
			t.Error("VolumeDry must not fire while avg < 10")
		}
	})
}

func TestDetector_TradeVelocity(t *testing.T) {
	d := NewDetector(domain.DefaultPreset)
	in := Input{Event: domain.Price(100), Matched: true}
	for i := 1; i <= 30; i++ {
		if v := d.Step(in); v.Has(domain.RuleTradeVelocity) {
			t.Fatalf("match %d: velocity fired early", i)
		}
	}
	if v := d.Step(in); v.Type != domain.RuleTradeVelocity {
		t.Errorf("Expected TradeVelocity on match 31, got %+v", v)
	}

	// Decay at the window boundary halves the count.
	warm(d, price(100), WindowSteps-31)
	if v := d.Step(price(100)); v.Has(domain.RuleTradeVelocity) {
		t.Error("Expected velocity to clear after decay")
	}
}

func TestDetector_SpreadWidening(t *testing.T) {
	d := NewDetector(domain.DefaultPreset)
	tests := []struct {
		bid, ask uint8
		want     bool
	}{
		{0, 3, true},
		{3, 0, true},
		{0, 2, false},
		{0, 0, false},
		{1, 4, false},
	}
	for _, tt := range tests {
		v := d.Step(Input{Event: domain.Price(100), BidDepth: tt.bid, AskDepth: tt.ask})
		if v.Has(domain.RuleSpreadWidening) != tt.want {
			t.Errorf("bid %d ask %d: Expected %v", tt.bid, tt.ask, tt.want)
		}
	}
}

func TestDetector_OrderImbalance(t *testing.T) {
	t.Run("one side only is not an imbalance", func(t *testing.T) {
		d := NewDetector(domain.DefaultPreset)
		var v domain.AnomalyVerdict
		for i := 0; i < 20; i++ {
			v = d.Step(Input{Event: domain.Buy(100)})
		}
		if v.Has(domain.RuleOrderImbalance) {
			t.Error("Expected no imbalance with zero sells")
		}
	})

	t.Run("more than four to one", func(t *testing.T) {
		d := NewDetector(domain.DefaultPreset)
		d.Step(Input{Event: domain.Sell(100)})
		d.Step(Input{Event: domain.Sell(100)})
		var v domain.AnomalyVerdict
		for i := 0; i < 8; i++ {
			v = d.Step(Input{Event: domain.Buy(100)})
		}
		if v.Has(domain.RuleOrderImbalance) {
			t.Error("8:2 is not more than 4x")
		}
		v = d.Step(Input{Event: domain.Buy(100)})
		if v.Type != domain.RuleOrderImbalance || v.Priority != 4 {
			t.Errorf("Expected OrderImbalance/4, got %s/%d", v.Type, v.Priority)
		}
	})
}

func TestRank_IsTotal(t *testing.T) {
	for b := 0; b < 256; b++ {
		v := Rank(uint8(b))
		if b == 0 {
			if v.Active {
				t.Fatal("empty bitmap must be inactive")
			}
			continue
		}
		if !v.Active {
			t.Fatalf("bitmap %08b: Expected active", b)
		}
		if uint8(b)>>v.Priority != 1 {
			t.Fatalf("bitmap %08b: priority %d is not the highest set bit", b, v.Priority)
		}
		if uint8(v.Type) != v.Priority || v.Bitmap != uint8(b) {
			t.Fatalf("bitmap %08b: inconsistent verdict %+v", b, v)
		}
	}
}

func BenchmarkDetector_Step(b *testing.B) {
	d := NewDetector(domain.DefaultPreset)
	in := price(100)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		d.Step(in)
	}
}
