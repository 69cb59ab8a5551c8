// Package indicators provides technical analysis primitives (moving averages,
// oscillators and volatility bands) over float64 price slices.
// All functions are pure: they never modify their input and never log.
package indicators

// Series indicator output aligned to its input.
// Values[i] belongs to input index Offset+i; input indices below Offset
// had too little history and are absent.
type Series struct {
	Values []float64
	Offset int
}

// Len returns the length of the input the series was computed from.
func (s Series) Len() int {
	return s.Offset + len(s.Values)
}

// At returns the value for input index i.
func (s Series) At(i int) (float64, bool) {
	j := i - s.Offset
	if j < 0 || j >= len(s.Values) {
		return 0, false
	}
	return s.Values[j], true
}

// Last returns the value for the most recent input.
func (s Series) Last() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// Full wraps a slice that has a value for every input index.
func Full(values []float64) Series {
	return Series{Values: values}
}

func absent(n int) Series {
	return Series{Offset: n}
}
