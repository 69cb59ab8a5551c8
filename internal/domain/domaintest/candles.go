// Package domaintest builds candle fixtures for tests.
package domaintest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/riskgate/internal/domain"
)

// Day daily candle interval.
const Day = 24 * time.Hour

// Bar compact description of one daily candle.
type Bar struct {
	Open, High, Low, Close float64
	Volume                 float64
	// BuyShare taker-buy fraction of volume, 0.5 when zero.
	BuyShare float64
}

// Candle converts a bar opening at openTime into a domain candle.
func Candle(openTime time.Time, b Bar) domain.Candle {
	share := b.BuyShare
	if share == 0 {
		share = 0.5
	}
	return domain.Candle{
		OpenTime:      openTime,
		CloseTime:     openTime.Add(Day - time.Millisecond),
		Open:          decimal.NewFromFloat(b.Open),
		High:          decimal.NewFromFloat(b.High),
		Low:           decimal.NewFromFloat(b.Low),
		Close:         decimal.NewFromFloat(b.Close),
		Volume:        decimal.NewFromFloat(b.Volume),
		QuoteVolume:   decimal.NewFromFloat(b.Volume * b.Close),
		NumTrades:     1000,
		TakerBuyBase:  decimal.NewFromFloat(b.Volume * share),
		TakerBuyQuote: decimal.NewFromFloat(b.Volume * share * b.Close),
	}
}

// Series builds a daily series starting at start from bars.
func Series(t testing.TB, start time.Time, bars []Bar) domain.CandleSeries {
	t.Helper()
	candles := make([]domain.Candle, len(bars))
	for i, b := range bars {
		candles[i] = Candle(start.Add(time.Duration(i)*Day), b)
	}
	series, err := domain.NewCandleSeries(candles)
	require.NoError(t, err)
	return series
}

// FromCloses builds bars around closes with a ±1% range and the given volume.
func FromCloses(closes []float64, volume float64) []Bar {
	bars := make([]Bar, len(closes))
	prev := closes[0]
	for i, c := range closes {
		open := prev
		hi := max(open, c) * 1.01
		lo := min(open, c) * 0.99
		bars[i] = Bar{Open: open, High: hi, Low: lo, Close: c, Volume: volume}
		prev = c
	}
	return bars
}

// EndingOn returns the start date so that n daily candles end on last's date.
func EndingOn(last time.Time, n int) time.Time {
	y, m, d := last.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, last.Location())
	return day.Add(-time.Duration(n-1) * Day)
}
