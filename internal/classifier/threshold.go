package classifier

import (
	"market_guard/internal/domain"
	"market_guard/internal/features"
	"market_guard/pkg/safe"
)

// Thresholds of the cascade. Comparisons are strict.
const (
	FlashPriceChange    = 180
	FlashLongChange     = 100
	StuffingArrival     = 200
	StuffingVolumeRatio = 80
	SurgeVolumeRatio    = 180
	SpikePriceChange    = 120
	ImbalanceLow        = 40
	ImbalanceHigh       = 215
)

// ThresholdCascade is the default classifier: ordered rules, first match wins.
type ThresholdCascade struct{}

func (ThresholdCascade) Name() string { return "cascade" }

// Classify returns the class and its confidence, the doubled distance past
// the triggering threshold saturated to a byte.
func (ThresholdCascade) Classify(fv features.FeatureVector) (domain.MLClass, uint8) {
	pc1 := int(fv.PriceChange1s())
	pc10 := int(fv.PriceChange10s())
	vr := int(fv.VolumeRatio())
	imb := int(fv.Imbalance())
	arr := int(fv.ArrivalRate())

	switch {
	case pc1 > FlashPriceChange && pc10 > FlashLongChange:
		return domain.ClassFlashCrash, margin((pc1 - FlashPriceChange) + (pc10 - FlashLongChange))
	case arr > StuffingArrival && vr < StuffingVolumeRatio:
		return domain.ClassQuoteStuffing, margin((arr - StuffingArrival) + (StuffingVolumeRatio - vr))
	case vr > SurgeVolumeRatio:
		return domain.ClassVolumeSurge, margin(vr - SurgeVolumeRatio)
	case pc1 > SpikePriceChange:
		return domain.ClassPriceSpike, margin(pc1 - SpikePriceChange)
	case imb < ImbalanceLow:
		return domain.ClassOrderImbalance, margin(ImbalanceLow - imb)
	case imb > ImbalanceHigh:
		return domain.ClassOrderImbalance, margin(imb - ImbalanceHigh)
	}
	return domain.ClassNormal, 0
}

func margin(d int) uint8 {
	return safe.Sat8(d << 1)
}
