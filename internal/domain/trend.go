package domain

// TrendDirection qualitative direction of price action.
type TrendDirection string

const (
	TrendDirectionBullish TrendDirection = "BULLISH"
	TrendDirectionBearish TrendDirection = "BEARISH"
	TrendDirectionNeutral TrendDirection = "NEUTRAL"
)

// Title returns a human-readable representation.
func (t TrendDirection) Title() string {
	switch t {
	case TrendDirectionBullish:
		return "Bullish"
	case TrendDirectionBearish:
		return "Bearish"
	default:
		return "Neutral"
	}
}

// TrendFromEMA classifies an EMA20/EMA50 crossover.
func TrendFromEMA(ema20, ema50 float64) TrendDirection {
	switch {
	case ema20 > ema50:
		return TrendDirectionBullish
	case ema20 < ema50:
		return TrendDirectionBearish
	default:
		return TrendDirectionNeutral
	}
}
