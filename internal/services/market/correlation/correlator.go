// Package correlation relates the target asset to a reference asset (BTC by default).
package correlation

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/pkg/indicators"
)

const (
	// DefaultWindow trailing candles compared.
	DefaultWindow = 30
	// DefaultCorrelation reported when correlation is undefined.
	DefaultCorrelation = 0.8
)

// Result correlation metrics against the reference asset.
type Result struct {
	Correlation float64
	Trend       domain.TrendDirection
	// ChangePct percent change of the reference from the window's first open to the latest close.
	ChangePct float64
}

// Correlator compares a target series with a reference series.
type Correlator struct {
	Window int
}

// NewCorrelator returns a correlator over DefaultWindow candles.
func NewCorrelator() *Correlator {
	return &Correlator{Window: DefaultWindow}
}

// Compare correlates the trailing closes of target and reference and classifies the reference trend.
// Closes are paired by candle open time, candles missing from either side are skipped.
func (c *Correlator) Compare(target, reference domain.CandleSeries) (Result, bool) {
	if reference.Len() == 0 {
		return Result{}, false
	}

	refWindow := reference.Tail(c.Window)
	first := refWindow.At(0)
	last, _ := refWindow.Last()

	x, y := Align(target, reference, c.Window)
	result := Result{
		Correlation: Pearson(x, y),
		Trend:       Trend(reference.Closes()),
	}
	if open := first.Open.InexactFloat64(); open > 0 {
		result.ChangePct = (last.Close.InexactFloat64() - open) / open * 100
	}

	return result, true
}

// Trend classifies closes by the EMA20 vs EMA50 crossover.
func Trend(closes []float64) domain.TrendDirection {
	if len(closes) == 0 {
		return domain.TrendDirectionNeutral
	}
	ema20 := indicators.EMA(closes, 20)
	ema50 := indicators.EMA(closes, 50)
	return domain.TrendFromEMA(ema20[len(ema20)-1], ema50[len(ema50)-1])
}

// Align joins target and reference closes on candle open time and keeps the last window pairs.
func Align(target, reference domain.CandleSeries, window int) (x, y []float64) {
	refCloses := make(map[int64]float64, reference.Len())
	for _, c := range reference.Candles() {
		refCloses[c.OpenTime.UnixMilli()] = c.Close.InexactFloat64()
	}

	for _, c := range target.Candles() {
		ref, ok := refCloses[c.OpenTime.UnixMilli()]
		if !ok {
			continue
		}
		x = append(x, c.Close.InexactFloat64())
		y = append(y, ref)
	}

	if window > 0 && len(x) > window {
		x, y = x[len(x)-window:], y[len(y)-window:]
	}
	return x, y
}

// Pearson returns the correlation coefficient of equal-length samples over the whole sample.
// It returns DefaultCorrelation with fewer than 2 points, mismatched lengths or zero variance.
func Pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) || flat(x) || flat(y) {
		return DefaultCorrelation
	}

	r := talib.Correl(x, y, len(x))[len(x)-1]
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return DefaultCorrelation
	}
	return math.Max(-1, math.Min(1, r))
}

func flat(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
