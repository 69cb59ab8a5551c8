package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCandle(openTime time.Time, open, high, low, close, volume float64) Candle {
	return Candle{
		OpenTime:     openTime,
		CloseTime:    openTime.Add(24*time.Hour - time.Millisecond),
		Open:         decimal.NewFromFloat(open),
		High:         decimal.NewFromFloat(high),
		Low:          decimal.NewFromFloat(low),
		Close:        decimal.NewFromFloat(close),
		Volume:       decimal.NewFromFloat(volume),
		QuoteVolume:  decimal.NewFromFloat(volume * close),
		NumTrades:    100,
		TakerBuyBase: decimal.NewFromFloat(volume / 2),
	}
}

func TestCandle_Validate(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(c *Candle)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Candle) {}},
		{name: "high below low", mutate: func(c *Candle) { c.High = decimal.NewFromInt(90) }, wantErr: true},
		{name: "low above close", mutate: func(c *Candle) { c.Low = decimal.NewFromInt(104) }, wantErr: true},
		{name: "negative volume", mutate: func(c *Candle) { c.Volume = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "zero open", mutate: func(c *Candle) { c.Open = decimal.Zero }, wantErr: true},
		{name: "close time before open time", mutate: func(c *Candle) { c.CloseTime = c.OpenTime }, wantErr: true},
		{name: "negative trades", mutate: func(c *Candle) { c.NumTrades = -5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCandle(start, 100, 110, 95, 105, 1000)
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCandle)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewCandleSeries(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		_, err := NewCandleSeries(nil)
		assert.ErrorIs(t, err, ErrEmptySeries)
	})

	t.Run("duplicate timestamps rejected", func(t *testing.T) {
		_, err := NewCandleSeries([]Candle{
			testCandle(start, 100, 110, 95, 105, 1000),
			testCandle(start, 100, 110, 95, 105, 1000),
		})
		assert.ErrorIs(t, err, ErrNonMonotonicSeries)
	})

	t.Run("invalid candle reports index", func(t *testing.T) {
		bad := testCandle(start.Add(24*time.Hour), 100, 90, 95, 105, 1000)
		_, err := NewCandleSeries([]Candle{testCandle(start, 100, 110, 95, 105, 1000), bad})
		require.ErrorIs(t, err, ErrInvalidCandle)
		assert.Contains(t, err.Error(), "candle 1")
	})

	t.Run("input slice is copied", func(t *testing.T) {
		candles := []Candle{testCandle(start, 100, 110, 95, 105, 1000)}
		series, err := NewCandleSeries(candles)
		require.NoError(t, err)
		candles[0].Close = decimal.NewFromInt(1)
		assert.Equal(t, 105.0, series.Closes()[0])
	})
}

func TestCandleSeries_ExcludeIncomplete(t *testing.T) {
	start := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	candles := make([]Candle, 4)
	for i := range candles {
		candles[i] = testCandle(start.Add(time.Duration(i)*24*time.Hour), 100, 110, 95, 105, float64(1000+i))
	}
	series, err := NewCandleSeries(candles)
	require.NoError(t, err)

	t.Run("last candle is today", func(t *testing.T) {
		now := time.Date(2026, 10, 16, 15, 30, 0, 0, time.UTC)
		assert.False(t, series.IsComplete(now))

		complete := series.ExcludeIncomplete(now)
		assert.Equal(t, 3, complete.Len())
		assert.Equal(t, 4, series.Len(), "original series must not change")
	})

	t.Run("last candle is yesterday", func(t *testing.T) {
		now := time.Date(2026, 10, 17, 0, 5, 0, 0, time.UTC)
		assert.True(t, series.IsComplete(now))
		assert.Equal(t, 4, series.ExcludeIncomplete(now).Len())
	})

	t.Run("clock in a zone behind UTC", func(t *testing.T) {
		newYork := time.FixedZone("EDT", -4*60*60)
		// 11:00 local on the 16th, the last candle opened 20:00 local on the 15th
		now := time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC).In(newYork)
		assert.False(t, series.IsComplete(now))
		assert.Equal(t, 3, series.ExcludeIncomplete(now).Len())
	})

	t.Run("clock in a zone ahead of UTC", func(t *testing.T) {
		tokyo := time.FixedZone("JST", 9*60*60)
		// 02:00 local on the 17th is still the 16th in UTC
		now := time.Date(2026, 10, 16, 17, 0, 0, 0, time.UTC).In(tokyo)
		assert.False(t, series.IsComplete(now))

		now = time.Date(2026, 10, 17, 0, 30, 0, 0, time.UTC).In(tokyo)
		assert.True(t, series.IsComplete(now))
	})
}

func TestCandleSeries_Tail(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]Candle, 5)
	for i := range candles {
		close := float64(100 + i)
		candles[i] = testCandle(start.Add(time.Duration(i)*24*time.Hour), close, close+1, close-1, close, 10)
	}
	series, err := NewCandleSeries(candles)
	require.NoError(t, err)

	assert.Equal(t, []float64{103, 104}, series.Tail(2).Closes())
	assert.Equal(t, 5, series.Tail(10).Len())
	assert.Equal(t, 0, series.Tail(0).Len())
}

func TestCandle_BuyPressure(t *testing.T) {
	c := testCandle(time.Now(), 100, 110, 95, 105, 1000)
	c.TakerBuyBase = decimal.NewFromInt(600)
	assert.InDelta(t, 60.0, c.BuyPressure(), 1e-9)

	c.Volume = decimal.Zero
	assert.Equal(t, 50.0, c.BuyPressure())
}
