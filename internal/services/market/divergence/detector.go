// Package divergence scans for RSI/price divergences over several lookback windows.
package divergence

import (
	"math"

	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/pkg/indicators"
)

const (
	defaultLookback       = 14
	defaultPriceMovePct   = 1.0
	defaultRSIMovePoints  = 2.0
	strengthNormalization = 20.0
)

// defaultWindows scanned smallest first; the first match wins.
var defaultWindows = []int{3, 5, 7, 10, 14}

// Detector finds bullish and bearish RSI divergences.
type Detector struct {
	Lookback int
	Windows  []int
	// PriceMovePct is the minimal price move in percent between the two compared candles.
	PriceMovePct float64
	// RSIMovePoints is the minimal opposite RSI move in points.
	RSIMovePoints float64
}

// NewDetector returns a detector with default windows and thresholds.
func NewDetector() *Detector {
	return &Detector{
		Lookback:      defaultLookback,
		Windows:       defaultWindows,
		PriceMovePct:  defaultPriceMovePct,
		RSIMovePoints: defaultRSIMovePoints,
	}
}

// Detect compares the latest candle with the candle p positions back for every window p.
// highs, lows and rsi must be aligned to the same input indices.
// With fewer than Lookback candles the result is NONE without scanning.
func (d *Detector) Detect(highs, lows []float64, rsi indicators.Series) domain.DivergenceResult {
	n := len(highs)
	if len(lows) < n {
		n = len(lows)
	}
	if n < d.Lookback {
		return domain.NoDivergence()
	}

	last := n - 1
	rsiNow, ok := rsi.At(last)
	if !ok {
		return domain.NoDivergence()
	}

	for _, p := range d.Windows {
		prev := last - p
		if prev < 0 {
			break
		}
		rsiPrev, ok := rsi.At(prev)
		if !ok {
			continue
		}
		rsiDelta := rsiNow - rsiPrev

		if movedUp(highs[prev], highs[last], d.PriceMovePct) && rsiDelta < -d.RSIMovePoints {
			return domain.DivergenceResult{Type: domain.DivergenceBearish, Strength: strength(rsiDelta)}
		}
		if movedDown(lows[prev], lows[last], d.PriceMovePct) && rsiDelta > d.RSIMovePoints {
			return domain.DivergenceResult{Type: domain.DivergenceBullish, Strength: strength(rsiDelta)}
		}
	}

	return domain.NoDivergence()
}

func movedUp(prev, cur, pct float64) bool {
	if prev <= 0 {
		return false
	}
	return (cur-prev)/prev*100 > pct
}

func movedDown(prev, cur, pct float64) bool {
	if prev <= 0 {
		return false
	}
	return (prev-cur)/prev*100 > pct
}

func strength(rsiDelta float64) float64 {
	return math.Min(math.Abs(rsiDelta)/strengthNormalization, 1.0)
}
