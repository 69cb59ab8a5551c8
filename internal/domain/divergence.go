package domain

// DivergenceType direction of an RSI/price divergence.
type DivergenceType string

const (
	DivergenceNone    DivergenceType = "NONE"
	DivergenceBullish DivergenceType = "BULLISH"
	DivergenceBearish DivergenceType = "BEARISH"
)

// DivergenceResult outcome of a divergence scan. Strength is within [0, 1].
type DivergenceResult struct {
	Type     DivergenceType `json:"type"`
	Strength float64        `json:"strength"`
}

// NoDivergence returns the neutral result.
func NoDivergence() DivergenceResult {
	return DivergenceResult{Type: DivergenceNone}
}
