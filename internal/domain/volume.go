package domain

// VolumeClass bucket of relative volume strength.
type VolumeClass string

const (
	VolumeStrong     VolumeClass = "STRONG"
	VolumeAcceptable VolumeClass = "ACCEPTABLE"
	VolumeWeak       VolumeClass = "WEAK"
	VolumeDead       VolumeClass = "DEAD"
)

// VolumeClassification volume quality verdict for a given volume ratio.
type VolumeClassification struct {
	Class                VolumeClass `json:"classification"`
	Description          string      `json:"description"`
	TradingAllowed       bool        `json:"trading_allowed"`
	ConfidenceMultiplier float64     `json:"confidence_multiplier"`
}

// VolumeClassifier maps a volume ratio onto a VolumeClassification.
// Lower bounds are inclusive: a ratio equal to StrongRatio is STRONG.
type VolumeClassifier struct {
	StrongRatio     float64
	AcceptableRatio float64
	WeakRatio       float64

	StrongMultiplier     float64
	AcceptableMultiplier float64
	WeakMultiplier       float64
}

// DefaultVolumeClassifier returns the classifier with the standard swing-trading thresholds.
func DefaultVolumeClassifier() VolumeClassifier {
	return VolumeClassifier{
		StrongRatio:          1.4,
		AcceptableRatio:      1.0,
		WeakRatio:            0.7,
		StrongMultiplier:     1.0,
		AcceptableMultiplier: 0.85,
		WeakMultiplier:       0.6,
	}
}

// Classify returns exactly one bucket for any ratio. NaN and negative ratios are DEAD.
func (c VolumeClassifier) Classify(ratio float64) VolumeClassification {
	switch {
	case ratio >= c.StrongRatio:
		return VolumeClassification{
			Class:                VolumeStrong,
			Description:          "well above average, high conviction move",
			TradingAllowed:       true,
			ConfidenceMultiplier: c.StrongMultiplier,
		}
	case ratio >= c.AcceptableRatio:
		return VolumeClassification{
			Class:                VolumeAcceptable,
			Description:          "average to slightly above, proceed with caution",
			TradingAllowed:       true,
			ConfidenceMultiplier: c.AcceptableMultiplier,
		}
	case ratio >= c.WeakRatio:
		return VolumeClassification{
			Class:                VolumeWeak,
			Description:          "below average, high risk of false signal",
			TradingAllowed:       true,
			ConfidenceMultiplier: c.WeakMultiplier,
		}
	default:
		return VolumeClassification{
			Class:                VolumeDead,
			Description:          "critically low, false breakout likely",
			TradingAllowed:       false,
			ConfidenceMultiplier: 0,
		}
	}
}

// ClassifyVolume classifies ratio with the default thresholds.
func ClassifyVolume(ratio float64) VolumeClassification {
	return DefaultVolumeClassifier().Classify(ratio)
}
