package features

// Field indexes into a FeatureVector. The first six drive classification.
const (
	PriceChange1s = iota
	PriceChange10s
	VolumeRatio
	Imbalance
	Volatility
	ArrivalRate
	LastPrice
	MeanPrice
	LastVolume
	MeanVolume
	BuyCount
	SellCount
	PriceRange
	PriceEvents
	VolumeEvents
	Trend

	NumFields
)

// Imbalance buckets.
const (
	ImbalanceSellHeavy uint8 = 0
	ImbalanceSellLean  uint8 = 64
	ImbalanceNeutral   uint8 = 128
	ImbalanceBuyLean   uint8 = 192
	ImbalanceBuyHeavy  uint8 = 255
)

var fieldNames = [NumFields]string{
	"price_change_1s", "price_change_10s", "volume_ratio", "imbalance",
	"volatility", "arrival_rate", "last_price", "mean_price",
	"last_volume", "mean_volume", "buy_count", "sell_count",
	"price_range", "price_events", "volume_events", "trend",
}

// FieldName returns the snake_case name of field i.
func FieldName(i int) string {
	if i < 0 || i >= NumFields {
		return ""
	}
	return fieldNames[i]
}

// FeatureVector is a value type, so an emitted vector cannot be mutated by the extractor.
type FeatureVector [NumFields]uint8

func (v FeatureVector) PriceChange1s() uint8  { return v[PriceChange1s] }
func (v FeatureVector) PriceChange10s() uint8 { return v[PriceChange10s] }
func (v FeatureVector) VolumeRatio() uint8    { return v[VolumeRatio] }
func (v FeatureVector) Imbalance() uint8      { return v[Imbalance] }
func (v FeatureVector) Volatility() uint8     { return v[Volatility] }
func (v FeatureVector) ArrivalRate() uint8    { return v[ArrivalRate] }

// Map returns the vector keyed by field name.
func (v FeatureVector) Map() map[string]uint8 {
	m := make(map[string]uint8, NumFields)
	for i, name := range fieldNames {
		m[name] = v[i]
	}
	return m
}
