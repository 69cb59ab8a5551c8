package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	side, err := ParseSide("buy")
	require.NoError(t, err)
	assert.Equal(t, SideBuy, side)

	side, err = ParseSide("")
	require.NoError(t, err)
	assert.Equal(t, SideHold, side)

	_, err = ParseSide("short")
	assert.Error(t, err)
}

func TestPortfolioContext_Heat(t *testing.T) {
	p := PortfolioContext{
		TotalBalance: 100000,
		OpenPositions: []OpenPosition{
			{EntryPrice: 100, StopLoss: 95, PositionSizeUSD: 20000}, // 1000 at risk
			{EntryPrice: 50, StopLoss: 0, PositionSizeUSD: 5000},    // no stop, ignored
		},
	}
	assert.InDelta(t, 0.01, p.Heat(), 1e-12)
	assert.Equal(t, 0.0, PortfolioContext{}.Heat())
}

func TestPortfolioContext_Drawdown(t *testing.T) {
	tests := []struct {
		name          string
		balance, peak float64
		want          float64
	}{
		{"unknown peak", 9000, 0, 0},
		{"at peak", 10000, 10000, 0},
		{"above stale peak", 11000, 10000, 0},
		{"below peak", 8500, 10000, 0.15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PortfolioContext{TotalBalance: tt.balance, PeakBalance: tt.peak}
			assert.InDelta(t, tt.want, p.Drawdown(), 1e-12)
		})
	}
}

func TestPortfolioContext_ConsecutiveLosses(t *testing.T) {
	p := PortfolioContext{RecentOutcomes: []TradeOutcome{
		{RealizedPnL: -10}, {RealizedPnL: -5}, {RealizedPnL: 20}, {RealizedPnL: -1},
	}}
	assert.Equal(t, 2, p.ConsecutiveLosses())
	assert.Equal(t, 0, PortfolioContext{}.ConsecutiveLosses())
}

func TestTradeProposal_Distances(t *testing.T) {
	p := TradeProposal{Side: SideBuy, Entry: 100, StopLoss: 95, TakeProfit: 110}
	assert.True(t, p.HasLevels())
	assert.Equal(t, 5.0, p.RiskDistance())
	assert.Equal(t, 10.0, p.RewardDistance())
}
