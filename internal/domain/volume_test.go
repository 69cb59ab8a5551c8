package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyVolume(t *testing.T) {
	tests := []struct {
		ratio          float64
		class          VolumeClass
		tradingAllowed bool
		multiplier     float64
	}{
		{ratio: 0, class: VolumeDead, tradingAllowed: false, multiplier: 0},
		{ratio: 0.65, class: VolumeDead, tradingAllowed: false, multiplier: 0},
		{ratio: 0.7, class: VolumeWeak, tradingAllowed: true, multiplier: 0.6},
		{ratio: 0.99, class: VolumeWeak, tradingAllowed: true, multiplier: 0.6},
		{ratio: 1.0, class: VolumeAcceptable, tradingAllowed: true, multiplier: 0.85},
		{ratio: 1.39, class: VolumeAcceptable, tradingAllowed: true, multiplier: 0.85},
		{ratio: 1.4, class: VolumeStrong, tradingAllowed: true, multiplier: 1.0},
		{ratio: 12, class: VolumeStrong, tradingAllowed: true, multiplier: 1.0},
	}

	for _, tt := range tests {
		got := ClassifyVolume(tt.ratio)
		assert.Equal(t, tt.class, got.Class, "ratio %v", tt.ratio)
		assert.Equal(t, tt.tradingAllowed, got.TradingAllowed, "ratio %v", tt.ratio)
		assert.Equal(t, tt.multiplier, got.ConfidenceMultiplier, "ratio %v", tt.ratio)
	}
}

func TestClassifyVolume_Totality(t *testing.T) {
	for ratio := 0.0; ratio <= 3.0; ratio += 0.01 {
		got := ClassifyVolume(ratio)
		assert.Contains(t, []VolumeClass{VolumeStrong, VolumeAcceptable, VolumeWeak, VolumeDead}, got.Class)
		assert.GreaterOrEqual(t, got.ConfidenceMultiplier, 0.0)
		assert.LessOrEqual(t, got.ConfidenceMultiplier, 1.0)
	}
	assert.Equal(t, VolumeDead, ClassifyVolume(math.NaN()).Class)
}

func TestVolumeClassifier_CustomThresholds(t *testing.T) {
	c := DefaultVolumeClassifier()
	c.WeakRatio = 0.5
	assert.Equal(t, VolumeWeak, c.Classify(0.6).Class)
	assert.Equal(t, VolumeDead, ClassifyVolume(0.6).Class)
}
