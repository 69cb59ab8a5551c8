package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Side proposed trade direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideHold Side = "HOLD"
)

// ParseSide parses a side case-insensitively.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	case SideHold, "":
		return SideHold, nil
	}
	return "", fmt.Errorf("invalid side %q, expected BUY, SELL or HOLD", s)
}

// TradeProposal trade idea submitted for risk evaluation.
type TradeProposal struct {
	Side       Side    `json:"side" yaml:"side"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Entry      float64 `json:"entry" yaml:"entry"`
	StopLoss   float64 `json:"stop_loss" yaml:"stop_loss"`
	TakeProfit float64 `json:"take_profit" yaml:"take_profit"`
}

// HasLevels reports whether entry, stop and target are all set.
func (p TradeProposal) HasLevels() bool {
	return p.Entry != 0 && p.StopLoss != 0 && p.TakeProfit != 0
}

// RiskDistance returns |entry - stop|.
func (p TradeProposal) RiskDistance() float64 {
	return math.Abs(p.Entry - p.StopLoss)
}

// RewardDistance returns |target - entry|.
func (p TradeProposal) RewardDistance() float64 {
	return math.Abs(p.TakeProfit - p.Entry)
}

// OpenPosition position already held by the portfolio.
type OpenPosition struct {
	EntryPrice      float64 `json:"entry_price" yaml:"entry_price"`
	StopLoss        float64 `json:"stop_loss" yaml:"stop_loss"`
	PositionSizeUSD float64 `json:"position_size_usd" yaml:"position_size_usd"`
}

// RiskUSD returns the loss if the stop is hit.
// Positions without an entry or stop contribute no risk.
func (p OpenPosition) RiskUSD() float64 {
	if p.EntryPrice == 0 || p.StopLoss == 0 {
		return 0
	}
	return math.Abs(p.EntryPrice-p.StopLoss) / p.EntryPrice * p.PositionSizeUSD
}

// TradeOutcome realized result of a closed trade.
type TradeOutcome struct {
	ClosedAt    time.Time `json:"closed_at" yaml:"closed_at"`
	RealizedPnL float64   `json:"realized_pnl" yaml:"realized_pnl"`
}

// PortfolioContext caller-owned portfolio state consulted by the risk gates.
// RecentOutcomes is ordered most recent first. PeakBalance is optional, zero means unknown.
type PortfolioContext struct {
	TotalBalance   float64        `json:"total_balance" yaml:"total_balance"`
	PeakBalance    float64        `json:"peak_balance,omitempty" yaml:"peak_balance,omitempty"`
	OpenPositions  []OpenPosition `json:"open_positions" yaml:"open_positions"`
	RecentOutcomes []TradeOutcome `json:"recent_outcomes" yaml:"recent_outcomes"`
}

// Heat returns the total open risk as a fraction of the balance.
func (p PortfolioContext) Heat() float64 {
	if p.TotalBalance <= 0 {
		return 0
	}
	total := 0.0
	for _, pos := range p.OpenPositions {
		total += pos.RiskUSD()
	}
	return total / p.TotalBalance
}

// Drawdown returns the decline of the balance from its peak as a fraction of the peak.
// It is zero when the peak is unknown or not above the balance.
func (p PortfolioContext) Drawdown() float64 {
	if p.PeakBalance <= 0 || p.TotalBalance >= p.PeakBalance {
		return 0
	}
	return (p.PeakBalance - p.TotalBalance) / p.PeakBalance
}

// ConsecutiveLosses counts losing trades from the most recent backwards.
func (p PortfolioContext) ConsecutiveLosses() int {
	n := 0
	for _, o := range p.RecentOutcomes {
		if o.RealizedPnL >= 0 {
			break
		}
		n++
	}
	return n
}

// GateResult outcome of a single risk gate. Signal is set only when the gate failed.
type GateResult struct {
	Gate   string `json:"gate_name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
	Signal string `json:"signal,omitempty"`
}

// RiskDecision terminal result of a risk evaluation.
// PositionSizePercent is a fraction of the total balance.
type RiskDecision struct {
	Approved            bool          `json:"approved"`
	PositionSizePercent float64       `json:"position_size_percent"`
	PositionSizeUSD     float64       `json:"position_size_usd"`
	MaxLossUSD          float64       `json:"max_loss_usd"`
	BlockingGate        string        `json:"blocking_gate,omitempty"`
	RiskRewardRatio     float64       `json:"risk_reward_ratio,omitempty"`
	Proposal            TradeProposal `json:"proposal"`
	Gates               []GateResult  `json:"gates"`
}

// Blocked reports whether a gate rejected the proposal.
func (d RiskDecision) Blocked() bool {
	return d.BlockingGate != ""
}
