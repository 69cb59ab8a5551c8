// Package risk evaluates trade proposals against sequential safety gates and sizes approved positions.
package risk

import (
	"fmt"
	"math"

	"github.com/vadiminshakov/riskgate/internal/domain"
	"go.uber.org/zap"
)

// Gate names in evaluation order.
const (
	GateVolume         = "volume"
	GateConfidence     = "confidence"
	GateRiskReward     = "risk_reward"
	GateSupport        = "support"
	GateCircuitBreaker = "circuit_breaker"
	GatePortfolioHeat  = "portfolio_heat"
	GateDrawdown       = "drawdown"
	GateVolatility     = "volatility"
)

// Failure signals carried by RiskDecision.BlockingGate.
const (
	SignalVolumeDead         = "volume_dead"
	SignalConfidenceLow      = "confidence_low"
	SignalInvalidStopLoss    = "invalid_stop_loss"
	SignalPoorRiskReward     = "poor_rr_ratio"
	SignalNoSupport          = "no_support"
	SignalSupportTooFar      = "support_too_far"
	SignalCircuitBreaker     = "circuit_breaker"
	SignalPortfolioHeatLimit = "portfolio_heat_limit"
	SignalMaxDrawdown        = "max_drawdown"
	SignalExtremeVolatility  = "extreme_volatility"
	SignalInvalidSide        = "invalid_side"
)

// Thresholds tunable limits of the evaluator.
type Thresholds struct {
	MinVolumeRatio       float64 `yaml:"min_volume_ratio"`
	MinConfidence        float64 `yaml:"min_confidence"`
	MinRiskReward        float64 `yaml:"min_rr_ratio"`
	MaxSupportDistance   float64 `yaml:"max_support_distance"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
	MaxPortfolioHeat     float64 `yaml:"max_portfolio_heat"`
	BaseRisk             float64 `yaml:"base_risk"`
	MaxPositionSize      float64 `yaml:"max_position_size"`
	StopATRMultiple      float64 `yaml:"stop_atr_multiple"`
	TargetATRMultiple    float64 `yaml:"target_atr_multiple"`

	// Optional limits, zero disables each of them.
	MaxDrawdown         float64 `yaml:"max_drawdown"`
	MaxATRPercent       float64 `yaml:"max_atr_percent"`
	HighATRPercent      float64 `yaml:"high_atr_percent"`
	CorrelationPenalty  float64 `yaml:"correlation_penalty"`
	CorrelatedPositions int     `yaml:"correlated_positions"`
}

// DefaultThresholds returns the standard swing-trading limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinVolumeRatio:       0.7,
		MinConfidence:        0.60,
		MinRiskReward:        1.5,
		MaxSupportDistance:   0.05,
		MaxConsecutiveLosses: 3,
		MaxPortfolioHeat:     0.06,
		BaseRisk:             0.02,
		MaxPositionSize:      0.05,
		StopATRMultiple:      1.5,
		TargetATRMultiple:    3.0,
	}
}

// evaluation per-call state shared by the gates.
type evaluation struct {
	proposal  domain.TradeProposal
	snapshot  domain.IndicatorSnapshot
	portfolio domain.PortfolioContext

	riskDistance float64
	rrRatio      float64
}

type gate struct {
	name  string
	check func(e *evaluation) domain.GateResult
}

// Evaluator runs the safety gates in order and stops at the first failure.
type Evaluator struct {
	logger     *zap.Logger
	thresholds Thresholds
	gates      []gate
}

// NewEvaluator creates an evaluator with the given thresholds.
func NewEvaluator(logger *zap.Logger, thresholds Thresholds) *Evaluator {
	e := &Evaluator{
		logger:     logger,
		thresholds: thresholds,
	}
	e.gates = []gate{
		{GateVolume, e.checkVolume},
		{GateConfidence, e.checkConfidence},
		{GateRiskReward, e.checkRiskReward},
		{GateSupport, e.checkSupport},
		{GateCircuitBreaker, e.checkCircuitBreaker},
		{GatePortfolioHeat, e.checkPortfolioHeat},
	}
	if thresholds.MaxDrawdown > 0 {
		e.gates = append(e.gates, gate{GateDrawdown, e.checkDrawdown})
	}
	if thresholds.MaxATRPercent > 0 {
		e.gates = append(e.gates, gate{GateVolatility, e.checkVolatility})
	}
	return e
}

// Thresholds returns the active limits.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate decides whether the proposal may be traded and how large.
// The side is matched case-insensitively. HOLD is approved with zero size without running any gate,
// an unknown side is rejected before the gates.
func (e *Evaluator) Evaluate(proposal domain.TradeProposal, snapshot domain.IndicatorSnapshot, portfolio domain.PortfolioContext) domain.RiskDecision {
	side, err := domain.ParseSide(string(proposal.Side))
	if err != nil {
		e.logger.Info("trade rejected", zap.String("signal", SignalInvalidSide), zap.Error(err))
		return domain.RiskDecision{Proposal: proposal, BlockingGate: SignalInvalidSide}
	}
	proposal.Side = side

	if proposal.Side == domain.SideHold {
		e.logger.Info("hold proposal, no risk assessment needed")
		return domain.RiskDecision{Approved: true, Proposal: proposal}
	}

	proposal = e.fillLevels(proposal, snapshot)
	ev := &evaluation{
		proposal:     proposal,
		snapshot:     snapshot,
		portfolio:    portfolio,
		riskDistance: proposal.RiskDistance(),
	}

	decision := domain.RiskDecision{Proposal: proposal}
	for _, g := range e.gates {
		result := g.check(ev)
		result.Gate = g.name
		decision.Gates = append(decision.Gates, result)

		e.logger.Debug("risk gate evaluated",
			zap.String("gate", g.name),
			zap.Bool("passed", result.Passed),
			zap.String("detail", result.Detail))

		if !result.Passed {
			decision.BlockingGate = result.Signal
			decision.RiskRewardRatio = ev.rrRatio
			e.logger.Info("trade rejected",
				zap.String("side", string(proposal.Side)),
				zap.String("gate", g.name),
				zap.String("signal", result.Signal),
				zap.String("detail", result.Detail))
			return decision
		}
	}

	decision.Approved = true
	decision.RiskRewardRatio = ev.rrRatio
	e.size(&decision, ev)

	e.logger.Info("trade approved",
		zap.String("side", string(proposal.Side)),
		zap.Float64("confidence", proposal.Confidence),
		zap.Float64("rr_ratio", ev.rrRatio),
		zap.Float64("position_size_usd", decision.PositionSizeUSD),
		zap.Float64("position_size_percent", decision.PositionSizePercent),
		zap.Float64("max_loss_usd", decision.MaxLossUSD))

	return decision
}

// fillLevels derives missing entry, stop and target from the last price and ATR.
func (e *Evaluator) fillLevels(p domain.TradeProposal, snapshot domain.IndicatorSnapshot) domain.TradeProposal {
	if p.HasLevels() {
		return p
	}
	atr, ok := snapshot.ATRValue()
	if !ok || snapshot.Price <= 0 {
		e.logger.Warn("cannot derive trade levels without price and ATR")
		return p
	}

	p.Entry = snapshot.Price
	stop := atr * e.thresholds.StopATRMultiple
	target := atr * e.thresholds.TargetATRMultiple
	if p.Side == domain.SideBuy {
		p.StopLoss = p.Entry - stop
		p.TakeProfit = p.Entry + target
	} else {
		p.StopLoss = p.Entry + stop
		p.TakeProfit = p.Entry - target
	}

	e.logger.Debug("derived trade levels from ATR",
		zap.Float64("entry", p.Entry),
		zap.Float64("stop_loss", p.StopLoss),
		zap.Float64("take_profit", p.TakeProfit))

	return p
}

func (e *Evaluator) checkVolume(ev *evaluation) domain.GateResult {
	vc := ev.snapshot.VolumeClassification
	if !vc.TradingAllowed || ev.snapshot.VolumeRatio < e.thresholds.MinVolumeRatio {
		return fail(SignalVolumeDead, "volume ratio %.2fx (%s), minimum %.2fx",
			ev.snapshot.VolumeRatio, vc.Class, e.thresholds.MinVolumeRatio)
	}
	return pass("volume ratio %.2fx (%s)", ev.snapshot.VolumeRatio, vc.Class)
}

func (e *Evaluator) checkConfidence(ev *evaluation) domain.GateResult {
	c := ev.proposal.Confidence
	if c < e.thresholds.MinConfidence {
		return fail(SignalConfidenceLow, "confidence %.0f%%, minimum %.0f%%", c*100, e.thresholds.MinConfidence*100)
	}
	return pass("confidence %.0f%%", c*100)
}

func (e *Evaluator) checkRiskReward(ev *evaluation) domain.GateResult {
	p := ev.proposal
	if p.Entry <= 0 || ev.riskDistance == 0 {
		return fail(SignalInvalidStopLoss, "zero risk distance (entry %.4f, stop %.4f)", p.Entry, p.StopLoss)
	}

	ev.rrRatio = p.RewardDistance() / ev.riskDistance
	if ev.rrRatio < e.thresholds.MinRiskReward {
		return fail(SignalPoorRiskReward, "risk/reward %.2f:1, minimum %.1f:1 (risk %.4f, reward %.4f)",
			ev.rrRatio, e.thresholds.MinRiskReward, ev.riskDistance, p.RewardDistance())
	}
	return pass("risk/reward %.2f:1", ev.rrRatio)
}

func (e *Evaluator) checkSupport(ev *evaluation) domain.GateResult {
	if ev.proposal.Side != domain.SideBuy {
		return pass("not applicable to %s", ev.proposal.Side)
	}

	support, ok := ev.snapshot.NearestSupport()
	if !ok {
		return fail(SignalNoSupport, "no support level identified")
	}

	entry := ev.proposal.Entry
	distance := (entry - support.Price) / entry
	if distance > e.thresholds.MaxSupportDistance {
		return fail(SignalSupportTooFar, "support %.4f is %.1f%% below entry, maximum %.0f%%",
			support.Price, distance*100, e.thresholds.MaxSupportDistance*100)
	}
	return pass("support %.4f is %.1f%% below entry", support.Price, distance*100)
}

func (e *Evaluator) checkCircuitBreaker(ev *evaluation) domain.GateResult {
	losses := ev.portfolio.ConsecutiveLosses()
	if losses >= e.thresholds.MaxConsecutiveLosses {
		return fail(SignalCircuitBreaker, "%d consecutive losses, limit %d", losses, e.thresholds.MaxConsecutiveLosses)
	}
	return pass("%d consecutive losses", losses)
}

func (e *Evaluator) checkPortfolioHeat(ev *evaluation) domain.GateResult {
	if ev.portfolio.TotalBalance <= 0 {
		return fail(SignalPortfolioHeatLimit, "no balance to risk")
	}

	current := ev.portfolio.Heat()
	added := e.thresholds.BaseRisk * ev.riskDistance / ev.proposal.Entry
	total := current + added
	if total > e.thresholds.MaxPortfolioHeat {
		return fail(SignalPortfolioHeatLimit, "heat %.2f%% (current %.2f%%, new trade %.2f%%), maximum %.0f%%",
			total*100, current*100, added*100, e.thresholds.MaxPortfolioHeat*100)
	}
	return pass("heat %.2f%% after trade", total*100)
}

func (e *Evaluator) checkDrawdown(ev *evaluation) domain.GateResult {
	drawdown := ev.portfolio.Drawdown()
	if drawdown > e.thresholds.MaxDrawdown {
		return fail(SignalMaxDrawdown, "drawdown %.1f%% from peak %.2f, maximum %.0f%%",
			drawdown*100, ev.portfolio.PeakBalance, e.thresholds.MaxDrawdown*100)
	}
	return pass("drawdown %.1f%%", drawdown*100)
}

func (e *Evaluator) checkVolatility(ev *evaluation) domain.GateResult {
	atrPct, ok := atrPercent(ev.snapshot)
	if !ok {
		return pass("ATR unavailable")
	}
	if atrPct > e.thresholds.MaxATRPercent {
		return fail(SignalExtremeVolatility, "ATR %.1f%% of price, maximum %.0f%%",
			atrPct*100, e.thresholds.MaxATRPercent*100)
	}
	return pass("ATR %.1f%% of price", atrPct*100)
}

func atrPercent(snapshot domain.IndicatorSnapshot) (float64, bool) {
	atr, ok := snapshot.ATRValue()
	if !ok || snapshot.Price <= 0 {
		return 0, false
	}
	return atr / snapshot.Price, true
}

// size applies the position sizing formula to an approved decision.
func (e *Evaluator) size(d *domain.RiskDecision, ev *evaluation) {
	balance := ev.portfolio.TotalBalance

	finalRisk := e.thresholds.BaseRisk *
		ev.snapshot.VolumeClassification.ConfidenceMultiplier *
		e.confidenceFactor(ev.proposal.Confidence) *
		e.volatilityFactor(ev.snapshot) *
		e.correlationFactor(ev.portfolio)

	riskUSD := finalRisk * balance
	quantity := riskUSD / ev.riskDistance
	positionUSD := quantity * ev.proposal.Entry

	if maxPosition := e.thresholds.MaxPositionSize * balance; positionUSD > maxPosition {
		e.logger.Debug("position capped",
			zap.Float64("uncapped_usd", positionUSD),
			zap.Float64("cap_usd", maxPosition))
		positionUSD = maxPosition
	}

	d.PositionSizeUSD = positionUSD
	d.PositionSizePercent = positionUSD / balance
	d.MaxLossUSD = riskUSD
}

// confidenceFactor scales confidence above the minimum into [0, 1].
func (e *Evaluator) confidenceFactor(confidence float64) float64 {
	span := 1 - e.thresholds.MinConfidence
	if span <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, (confidence-e.thresholds.MinConfidence)/span))
}

// volatilityFactor shrinks risk by 5x the ATR excess over HighATRPercent, by at most 30%.
func (e *Evaluator) volatilityFactor(snapshot domain.IndicatorSnapshot) float64 {
	if e.thresholds.HighATRPercent <= 0 {
		return 1
	}
	atrPct, ok := atrPercent(snapshot)
	if !ok || atrPct <= e.thresholds.HighATRPercent {
		return 1
	}
	return 1 - math.Min(0.3, (atrPct-e.thresholds.HighATRPercent)*5)
}

// correlationFactor applies CorrelationPenalty once CorrelatedPositions positions are already open.
func (e *Evaluator) correlationFactor(portfolio domain.PortfolioContext) float64 {
	if e.thresholds.CorrelationPenalty <= 0 || e.thresholds.CorrelatedPositions <= 0 {
		return 1
	}
	if len(portfolio.OpenPositions) < e.thresholds.CorrelatedPositions {
		return 1
	}
	return 1 - e.thresholds.CorrelationPenalty
}

func pass(format string, args ...any) domain.GateResult {
	return domain.GateResult{Passed: true, Detail: fmt.Sprintf(format, args...)}
}

func fail(signal, format string, args ...any) domain.GateResult {
	return domain.GateResult{Detail: fmt.Sprintf(format, args...), Signal: signal}
}
