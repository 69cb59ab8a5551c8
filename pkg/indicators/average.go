package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// EMA calculates the exponential moving average with smoothing 2/(period+1).
// The first value seeds the average, so the output has the input's length.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	if period < 1 {
		period = 1
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}

	return out
}

// SMA calculates the simple moving average. Indices before the first full window are absent.
func SMA(values []float64, period int) Series {
	if period < 1 || len(values) < period {
		return absent(len(values))
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	input := helper.SliceToChan(values)
	out := helper.ChanToSlice(sma.Compute(input))

	return Series{Values: out, Offset: len(values) - len(out)}
}

// RollingStdDev calculates the sample (n-1) standard deviation over a rolling window.
func RollingStdDev(values []float64, period int) Series {
	if period < 2 || len(values) < period {
		return absent(len(values))
	}

	out := make([]float64, 0, len(values)-period+1)
	for end := period; end <= len(values); end++ {
		window := values[end-period : end]
		out = append(out, stddev(window))
	}

	return Series{Values: out, Offset: period - 1}
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(window []float64) float64 {
	m := Mean(window)
	ss := 0.0
	for _, v := range window {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(window)-1))
}
