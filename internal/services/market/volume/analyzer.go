// Package volume analyzes traded volume: moving average, relative ratio,
// quality classification, taker-buy pressure and spike recency.
package volume

import (
	"time"

	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/pkg/indicators"
	"go.uber.org/zap"
)

const (
	defaultPeriod             = 20
	defaultSpikeThreshold     = 1.5
	defaultBuyPressurePeriods = 7

	// NoSpike sentinel for DaysSinceSpike when no spike was found.
	NoSpike            = 999
	// NeutralBuyPressure taker-buy share reported when history is too short.
	NeutralBuyPressure = 50.0
	// DefaultRatio volume ratio reported when the moving average is unavailable.
	DefaultRatio       = 1.0
)

// defaultBuyPressureWeights most recent candle first.
var defaultBuyPressureWeights = []float64{0.40, 0.30, 0.15, 0.10, 0.05}

// Analysis volume metrics computed on complete candles only.
type Analysis struct {
	// MA20 is the moving average of volume, nil with fewer than Period complete candles.
	MA20 *float64
	// Current is the volume of the latest complete candle.
	Current *float64
	// Ratio is Current / MA20, DefaultRatio when MA20 is unavailable or zero.
	Ratio          float64
	Classification domain.VolumeClassification
	// WeightedBuyPressure is the recency-weighted taker-buy share in percent.
	WeightedBuyPressure float64
	// DaysSinceSpike counts candles since volume last exceeded SpikeThreshold × MA20.
	DaysSinceSpike int
	// ExcludedIncomplete is set when today's partial candle was dropped.
	ExcludedIncomplete bool
}

// Analyzer computes volume metrics.
type Analyzer struct {
	logger             *zap.Logger
	classifier         domain.VolumeClassifier
	period             int
	spikeThreshold     float64
	buyPressurePeriods int
	weights            []float64
}

// Option configures the Analyzer.
type Option func(*Analyzer)

// WithClassifier overrides the volume quality thresholds.
func WithClassifier(c domain.VolumeClassifier) Option {
	return func(a *Analyzer) {
		a.classifier = c
	}
}

// WithPeriod sets the moving average window.
func WithPeriod(period int) Option {
	return func(a *Analyzer) {
		a.period = period
	}
}

// WithSpikeThreshold sets the multiple of the average that counts as a spike.
func WithSpikeThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.spikeThreshold = threshold
	}
}

// NewAnalyzer creates a volume analyzer with default settings.
func NewAnalyzer(logger *zap.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		logger:             logger,
		classifier:         domain.DefaultVolumeClassifier(),
		period:             defaultPeriod,
		spikeThreshold:     defaultSpikeThreshold,
		buyPressurePeriods: defaultBuyPressurePeriods,
		weights:            defaultBuyPressureWeights,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze computes volume metrics. A trailing candle dated on now's calendar day
// is partial and is dropped before any volume math, so it cannot drag the ratio down.
func (a *Analyzer) Analyze(series domain.CandleSeries, now time.Time) Analysis {
	complete := series.ExcludeIncomplete(now)
	excluded := complete.Len() != series.Len()
	if excluded {
		a.logger.Debug("excluding incomplete candle from volume analysis",
			zap.Time("now", now),
			zap.Int("complete_candles", complete.Len()))
	}

	result := Analysis{
		Ratio:               DefaultRatio,
		WeightedBuyPressure: a.WeightedBuyPressure(complete),
		DaysSinceSpike:      NoSpike,
		ExcludedIncomplete:  excluded,
	}

	volumes := complete.Volumes()
	if len(volumes) > 0 {
		current := volumes[len(volumes)-1]
		result.Current = &current
	}

	ma, ok := indicators.SMA(volumes, a.period).Last()
	if !ok {
		a.logger.Debug("insufficient complete candles for volume average",
			zap.Int("have", len(volumes)),
			zap.Int("need", a.period))
		result.Classification = a.classifier.Classify(result.Ratio)
		return result
	}

	result.MA20 = &ma
	if ma > 0 {
		result.Ratio = *result.Current / ma
	}
	result.Classification = a.classifier.Classify(result.Ratio)
	result.DaysSinceSpike = a.daysSinceSpike(volumes, ma)

	return result
}

// WeightedBuyPressure returns the recency-weighted taker-buy share of the most recent candles.
// With fewer than the configured periods it returns NeutralBuyPressure.
func (a *Analyzer) WeightedBuyPressure(complete domain.CandleSeries) float64 {
	if complete.Len() < a.buyPressurePeriods || complete.Len() == 0 {
		return NeutralBuyPressure
	}

	n := len(a.weights)
	if complete.Len() < n {
		n = complete.Len()
	}

	var weighted, total float64
	last := complete.Len() - 1
	for i := 0; i < n; i++ {
		w := a.weights[i]
		weighted += w * complete.At(last-i).BuyPressure()
		total += w
	}
	if total == 0 {
		return NeutralBuyPressure
	}

	return weighted / total
}

func (a *Analyzer) daysSinceSpike(volumes []float64, ma float64) int {
	threshold := a.spikeThreshold * ma
	for i := len(volumes) - 1; i >= 0; i-- {
		if volumes[i] > threshold {
			return len(volumes) - 1 - i
		}
	}
	return NoSpike
}
