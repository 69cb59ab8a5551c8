package internal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/riskgate/config"
	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/internal/metrics"
	"github.com/vadiminshakov/riskgate/internal/services/market/analysis"
	"github.com/vadiminshakov/riskgate/internal/services/market/collector"
	"github.com/vadiminshakov/riskgate/internal/services/risk"
)

type candleSource interface {
	FetchMarket(ctx context.Context, target, reference domain.Pair, interval string, limit int) (collector.Market, error)
}

type journal interface {
	SaveDecision(event domain.RiskDecisionEvent) (uint64, error)
	RecordOutcome(event domain.TradeOutcomeEvent) (uint64, error)
	EventsAfter(index uint64) ([]domain.EventRecord, error)
	RecentOutcomes(pair domain.Pair, n int) ([]domain.TradeOutcome, error)
	FindDecision(id string) (domain.RiskDecisionEvent, bool, error)
}

type snapshotCache interface {
	Get(ctx context.Context, pair domain.Pair, interval string) (domain.IndicatorSnapshot, bool, error)
	Set(ctx context.Context, pair domain.Pair, interval string, snap domain.IndicatorSnapshot) error
}

// Service runs the pipeline: candles, indicator snapshot, risk gates, journal.
type Service struct {
	logger    *zap.Logger
	pair      domain.Pair
	reference domain.Pair
	interval  string
	lookback  int

	candles   candleSource
	analyzer  *analysis.MarketAnalyzer
	evaluator *risk.Evaluator
	journal   journal
	cache     snapshotCache
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithCache serves snapshots from c while they are fresh.
func WithCache(c snapshotCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithMetrics records snapshot and decision metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the wall clock used for partial-candle detection and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires the pipeline for the configured pair.
func NewService(logger *zap.Logger, conf config.Config, candles candleSource, j journal, opts ...Option) *Service {
	s := &Service{
		logger:    logger.With(zap.String("pair", conf.Pair.String())),
		pair:      conf.Pair,
		reference: conf.ReferencePair,
		interval:  conf.Interval,
		lookback:  conf.Lookback,
		candles:   candles,
		analyzer:  analysis.NewMarketAnalyzer(logger, nil),
		evaluator: risk.NewEvaluator(logger, conf.Risk),
		journal:   j,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pair returns the analyzed pair.
func (s *Service) Pair() domain.Pair {
	return s.pair
}

// Snapshot returns the current indicator snapshot, from cache when available.
func (s *Service) Snapshot(ctx context.Context) (domain.IndicatorSnapshot, error) {
	if s.cache != nil {
		snap, ok, err := s.cache.Get(ctx, s.pair, s.interval)
		switch {
		case err != nil:
			s.logger.Warn("snapshot cache read failed, computing", zap.Error(err))
		case ok:
			s.observeSnapshot(snap, true, 0)
			return snap, nil
		}
	}

	started := time.Now()
	market, err := s.candles.FetchMarket(ctx, s.pair, s.reference, s.interval, s.lookback)
	if err != nil {
		if s.metrics != nil {
			s.metrics.FetchErrors.Inc()
		}
		return domain.IndicatorSnapshot{}, errors.Wrap(err, "failed to fetch candles")
	}

	snap := s.analyzer.ComputeIndicators(market.Target, market.Reference, s.now())
	if snap == nil {
		return domain.IndicatorSnapshot{}, errors.Wrapf(domain.ErrInsufficientHistory,
			"%s: have %d candles, need %d", s.pair, market.Target.Len(), analysis.MinCandles)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.pair, s.interval, *snap); err != nil {
			s.logger.Warn("snapshot cache write failed", zap.Error(err))
		}
	}
	s.observeSnapshot(*snap, false, time.Since(started))

	return *snap, nil
}

// Evaluate runs the risk gates for proposal against the current snapshot and journals the decision.
// When portfolio carries no recent outcomes, the journaled outcomes for the pair are used.
func (s *Service) Evaluate(ctx context.Context, proposal domain.TradeProposal, portfolio domain.PortfolioContext) (domain.RiskDecisionEvent, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.RiskDecisionEvent{}, err
	}

	if len(portfolio.RecentOutcomes) == 0 {
		outcomes, err := s.journal.RecentOutcomes(s.pair, s.evaluator.Thresholds().MaxConsecutiveLosses)
		if err != nil {
			return domain.RiskDecisionEvent{}, errors.Wrap(err, "failed to load recent outcomes")
		}
		portfolio.RecentOutcomes = outcomes
	}

	decision := s.evaluator.Evaluate(proposal, snap, portfolio)
	event := domain.NewRiskDecisionEvent(s.now(), s.pair, snap, decision)

	if _, err := s.journal.SaveDecision(event); err != nil {
		return event, errors.Wrap(err, "failed to journal risk decision")
	}
	if s.metrics != nil {
		s.metrics.ObserveDecision(decision)
	}

	return event, nil
}

// RecordOutcome journals the realized result of the trade opened by a journaled decision.
// It fails with domain.ErrDecisionIDRequired or domain.ErrDecisionNotFound before writing anything.
func (s *Service) RecordOutcome(decisionID string, outcome domain.TradeOutcome) (domain.TradeOutcomeEvent, error) {
	if decisionID == "" {
		return domain.TradeOutcomeEvent{}, domain.ErrDecisionIDRequired
	}
	decision, ok, err := s.journal.FindDecision(decisionID)
	if err != nil {
		return domain.TradeOutcomeEvent{}, errors.Wrap(err, "failed to look up decision")
	}
	if !ok || decision.Pair != s.pair.String() {
		return domain.TradeOutcomeEvent{}, errors.Wrapf(domain.ErrDecisionNotFound, "decision %q for %s", decisionID, s.pair)
	}

	if outcome.ClosedAt.IsZero() {
		outcome.ClosedAt = s.now()
	}
	event := domain.NewTradeOutcomeEvent(s.pair, decisionID, outcome)
	if _, err := s.journal.RecordOutcome(event); err != nil {
		return event, errors.Wrap(err, "failed to journal trade outcome")
	}

	s.logger.Info("trade outcome recorded",
		zap.String("decision_id", decisionID),
		zap.Float64("realized_pnl", outcome.RealizedPnL))

	return event, nil
}

// EventsAfter returns journal entries written after index.
func (s *Service) EventsAfter(index uint64) ([]domain.EventRecord, error) {
	return s.journal.EventsAfter(index)
}

func (s *Service) observeSnapshot(snap domain.IndicatorSnapshot, cached bool, took time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveSnapshot(s.pair, snap, cached, took)
	}
}
