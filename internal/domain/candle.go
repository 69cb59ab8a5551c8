package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Candle single OHLCV candlestick.
type Candle struct {
	OpenTime      time.Time       `json:"open_time"`
	CloseTime     time.Time       `json:"close_time"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	Volume        decimal.Decimal `json:"volume"`
	QuoteVolume   decimal.Decimal `json:"quote_volume"`
	NumTrades     int64           `json:"num_trades"`
	TakerBuyBase  decimal.Decimal `json:"taker_buy_base"`
	TakerBuyQuote decimal.Decimal `json:"taker_buy_quote"`
}

// Validate checks price and volume invariants of the candle.
func (c Candle) Validate() error {
	prices := []struct {
		name  string
		value decimal.Decimal
	}{
		{"open", c.Open},
		{"high", c.High},
		{"low", c.Low},
		{"close", c.Close},
	}
	for _, p := range prices {
		if !p.value.IsPositive() {
			return errors.Wrapf(ErrInvalidCandle, "%s must be positive, got %s", p.name, p.value)
		}
	}

	volumes := []struct {
		name  string
		value decimal.Decimal
	}{
		{"volume", c.Volume},
		{"quote_volume", c.QuoteVolume},
		{"taker_buy_base", c.TakerBuyBase},
		{"taker_buy_quote", c.TakerBuyQuote},
	}
	for _, v := range volumes {
		if v.value.IsNegative() {
			return errors.Wrapf(ErrInvalidCandle, "%s must be non-negative, got %s", v.name, v.value)
		}
	}
	if c.NumTrades < 0 {
		return errors.Wrapf(ErrInvalidCandle, "num_trades must be non-negative, got %d", c.NumTrades)
	}

	if c.High.LessThan(decimal.Max(c.Open, c.Close)) {
		return errors.Wrapf(ErrInvalidCandle, "high %s is below open/close", c.High)
	}
	if c.Low.GreaterThan(decimal.Min(c.Open, c.Close)) {
		return errors.Wrapf(ErrInvalidCandle, "low %s is above open/close", c.Low)
	}
	if !c.CloseTime.After(c.OpenTime) {
		return errors.Wrapf(ErrInvalidCandle, "close_time %s must be after open_time %s",
			c.CloseTime.Format(time.RFC3339), c.OpenTime.Format(time.RFC3339))
	}

	return nil
}

// BuyPressure returns the taker-buy share of volume in percent.
// A candle with no volume is neutral (50).
func (c Candle) BuyPressure() float64 {
	if !c.Volume.IsPositive() {
		return 50
	}
	return c.TakerBuyBase.Div(c.Volume).InexactFloat64() * 100
}

// CandleSeries validated, time-ordered sequence of candles.
// The zero value is an empty series.
type CandleSeries struct {
	candles []Candle
}

// NewCandleSeries validates every candle and the ordering of open times.
// The input slice is copied, later changes to it do not affect the series.
func NewCandleSeries(candles []Candle) (CandleSeries, error) {
	if len(candles) == 0 {
		return CandleSeries{}, ErrEmptySeries
	}

	owned := make([]Candle, len(candles))
	copy(owned, candles)

	for i, c := range owned {
		if err := c.Validate(); err != nil {
			return CandleSeries{}, errors.Wrapf(err, "candle %d", i)
		}
		if i > 0 && !c.OpenTime.After(owned[i-1].OpenTime) {
			return CandleSeries{}, errors.Wrapf(ErrNonMonotonicSeries, "candle %d opens at %s, previous at %s",
				i, c.OpenTime.Format(time.RFC3339), owned[i-1].OpenTime.Format(time.RFC3339))
		}
	}

	return CandleSeries{candles: owned}, nil
}

// Len returns the number of candles.
func (s CandleSeries) Len() int {
	return len(s.candles)
}

// At returns the candle at index i.
func (s CandleSeries) At(i int) Candle {
	return s.candles[i]
}

// Candles returns a copy of the underlying candles.
func (s CandleSeries) Candles() []Candle {
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Last returns the most recent candle.
func (s CandleSeries) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Tail returns a view over the last n candles (or all of them when n exceeds the length).
func (s CandleSeries) Tail(n int) CandleSeries {
	if n <= 0 {
		return CandleSeries{}
	}
	if n >= len(s.candles) {
		return s
	}
	return CandleSeries{candles: s.candles[len(s.candles)-n:]}
}

// IsComplete reports whether the last candle's calendar date is strictly before now's date.
// Exchange candles are stamped in UTC, so both dates are taken in UTC whatever now's location is.
func (s CandleSeries) IsComplete(now time.Time) bool {
	last, ok := s.Last()
	if !ok {
		return true
	}
	return dateOf(last.OpenTime, time.UTC).Before(dateOf(now, time.UTC))
}

// ExcludeIncomplete returns a view without the trailing candle when it belongs to now's date.
// The receiver is left untouched.
func (s CandleSeries) ExcludeIncomplete(now time.Time) CandleSeries {
	if s.IsComplete(now) {
		return s
	}
	return CandleSeries{candles: s.candles[:len(s.candles)-1]}
}

// Opens returns open prices as float64.
func (s CandleSeries) Opens() []float64 {
	return s.floats(func(c Candle) decimal.Decimal { return c.Open })
}

// Highs returns high prices as float64.
func (s CandleSeries) Highs() []float64 {
	return s.floats(func(c Candle) decimal.Decimal { return c.High })
}

// Lows returns low prices as float64.
func (s CandleSeries) Lows() []float64 {
	return s.floats(func(c Candle) decimal.Decimal { return c.Low })
}

// Closes returns close prices as float64.
func (s CandleSeries) Closes() []float64 {
	return s.floats(func(c Candle) decimal.Decimal { return c.Close })
}

// Volumes returns base volumes as float64.
func (s CandleSeries) Volumes() []float64 {
	return s.floats(func(c Candle) decimal.Decimal { return c.Volume })
}

func (s CandleSeries) floats(field func(Candle) decimal.Decimal) []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = field(c).InexactFloat64()
	}
	return out
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
