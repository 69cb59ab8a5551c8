package domain

import "time"

// Level price level with its distance from the current price in percent.
type Level struct {
	Price   float64 `json:"price"`
	Percent float64 `json:"percent"`
}

// PivotPoints classic floor pivots.
type PivotPoints struct {
	Pivot float64 `json:"pivot"`
	R1    float64 `json:"r1"`
	R2    float64 `json:"r2"`
	S1    float64 `json:"s1"`
	S2    float64 `json:"s2"`
}

// IndicatorSnapshot indicator values derived from the candle at Timestamp.
// Pointer fields are nil when the history was too short to compute them;
// nil means "cannot decide yet", never zero.
type IndicatorSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`

	EMA20   *float64 `json:"ema20,omitempty"`
	EMA50   *float64 `json:"ema50,omitempty"`
	EMA200  *float64 `json:"ema200,omitempty"`
	High14D *float64 `json:"high_14d,omitempty"`
	Low14D  *float64 `json:"low_14d,omitempty"`

	// RangePosition14D price within the 14 day range, 0 at the low and 1 at the high.
	RangePosition14D *float64 `json:"range_position_14d,omitempty"`

	RSI14         *float64         `json:"rsi14,omitempty"`
	MACDLine      *float64         `json:"macd_line,omitempty"`
	MACDSignal    *float64         `json:"macd_signal,omitempty"`
	MACDHistogram *float64         `json:"macd_histogram,omitempty"`
	StochRSIK     *float64         `json:"stoch_rsi_k,omitempty"`
	StochRSID     *float64         `json:"stoch_rsi_d,omitempty"`
	Divergence    DivergenceResult `json:"divergence"`

	BBUpper         *float64 `json:"bb_upper,omitempty"`
	BBMiddle        *float64 `json:"bb_middle,omitempty"`
	BBLower         *float64 `json:"bb_lower,omitempty"`
	BBSqueezeRatio  *float64 `json:"bb_squeeze_ratio,omitempty"`
	BBSqueezeActive *bool    `json:"bb_squeeze_active,omitempty"`
	ATR             *float64 `json:"atr,omitempty"`
	ATRPercent      *float64 `json:"atr_percent,omitempty"`

	VolumeMA20           *float64             `json:"volume_ma20,omitempty"`
	VolumeCurrent        *float64             `json:"volume_current,omitempty"`
	VolumeRatio          float64              `json:"volume_ratio"`
	VolumeClassification VolumeClassification `json:"volume_classification"`
	WeightedBuyPressure  float64              `json:"weighted_buy_pressure"`
	DaysSinceSpike       int                  `json:"days_since_spike"`

	Support1    *Level   `json:"support1,omitempty"`
	Support2    *Level   `json:"support2,omitempty"`
	Resistance1 *Level   `json:"resistance1,omitempty"`
	Resistance2 *Level   `json:"resistance2,omitempty"`
	Fib382      *float64 `json:"fib_382,omitempty"`
	Fib618      *float64 `json:"fib_618,omitempty"`
	PivotWeekly *float64 `json:"pivot_weekly,omitempty"`

	// FibLevels retracements of the swing range, from the high (ratio 0) down to the low (ratio 1).
	FibLevels []float64    `json:"fib_levels,omitempty"`
	// Pivots floor pivots of the previous candle.
	Pivots    *PivotPoints `json:"pivots,omitempty"`

	ReferenceTrend     *TrendDirection `json:"btc_trend,omitempty"`
	Correlation        *float64        `json:"sol_btc_correlation,omitempty"`
	ReferenceChange30D *float64        `json:"btc_price_change_30d,omitempty"`
}

// NearestSupport returns the closest support level below price.
func (s IndicatorSnapshot) NearestSupport() (Level, bool) {
	if s.Support1 == nil {
		return Level{}, false
	}
	return *s.Support1, true
}

// ATRValue returns the ATR when it was computed.
func (s IndicatorSnapshot) ATRValue() (float64, bool) {
	if s.ATR == nil {
		return 0, false
	}
	return *s.ATR, true
}
