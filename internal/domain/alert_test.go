package domain

import "testing"

func TestRuleType_PriorityOrder(t *testing.T) {
	order := []RuleType{
		RuleFlashCrash, RuleVolatility, RuleSpreadWidening, RuleOrderImbalance,
		RuleTradeVelocity, RuleVolumeSurge, RuleVolumeDry, RulePriceSpike,
	}
	for i, r := range order {
		want := uint8(7 - i)
		if r.Priority() != want {
			t.Errorf("%s: Expected priority %d, got %d", r, want, r.Priority())
		}
	}
}

func TestRuleType_SharedCodes(t *testing.T) {
	t.Run("shared with classifier classes", func(t *testing.T) {
		pairs := map[RuleType]MLClass{
			RulePriceSpike:     ClassPriceSpike,
			RuleVolumeSurge:    ClassVolumeSurge,
			RuleFlashCrash:     ClassFlashCrash,
			RuleOrderImbalance: ClassOrderImbalance,
		}
		for r, c := range pairs {
			if r.Code() != c.Code() {
				t.Errorf("%s: Expected code %d, got %d", r, c.Code(), r.Code())
			}
		}
	})

	t.Run("rule-only kinds never collide with classes", func(t *testing.T) {
		for _, r := range []RuleType{RuleVolumeDry, RuleTradeVelocity, RuleSpreadWidening, RuleVolatility} {
			if r.Code() < NumClasses {
				t.Errorf("%s: code %d overlaps classifier classes", r, r.Code())
			}
		}
	})

	t.Run("sentinel is distinct from normal", func(t *testing.T) {
		if CodeNone == CodeNormal {
			t.Error("empty history sentinel must differ from Normal")
		}
	})
}

func TestAnomalyVerdict_Has(t *testing.T) {
	v := AnomalyVerdict{Bitmap: 1<<RuleFlashCrash | 1<<RulePriceSpike}
	if !v.Has(RuleFlashCrash) || !v.Has(RulePriceSpike) {
		t.Error("Expected FlashCrash and PriceSpike bits to be set")
	}
	if v.Has(RuleVolatility) {
		t.Error("Volatility bit should not be set")
	}
}

func TestMLClass_Priority(t *testing.T) {
	tests := []struct {
		class MLClass
		want  uint8
	}{
		{ClassNormal, 0},
		{ClassPriceSpike, 1},
		{ClassVolumeSurge, 2},
		{ClassOrderImbalance, 4},
		{ClassQuoteStuffing, 5},
		{ClassFlashCrash, 7},
	}
	for _, tt := range tests {
		if got := tt.class.Priority(); got != tt.want {
			t.Errorf("%s: Expected priority %d, got %d", tt.class, tt.want, got)
		}
	}

	// Same-kind classes tie the rule priority.
	if ClassVolumeSurge.Priority() != RuleVolumeSurge.Priority() {
		t.Error("Expected VolumeSurge to tie the rule priority")
	}
	if ClassOrderImbalance.Priority() != RuleOrderImbalance.Priority() {
		t.Error("Expected OrderImbalance to tie the rule priority")
	}
}
