// Package collector fetches candle series from exchanges or files
// and validates them before analysis.
package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/pkg/retrier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultFetchTimeout = 30 * time.Second

// KlineProvider defines the interface for fetching kline (candlestick) data
type KlineProvider interface {
	// GetKlines fetches up to limit most recent candles for a trading pair, oldest first.
	// interval uses the short form: "1h", "4h", "1d".
	GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error)
}

// Market target and reference candle series fetched together.
type Market struct {
	Target    domain.CandleSeries
	Reference domain.CandleSeries
}

// CandleCollector fetches and validates candle series with retries.
type CandleCollector struct {
	logger   *zap.Logger
	provider KlineProvider
	retrier  *retrier.Retrier
	timeout  time.Duration
}

// NewCandleCollector creates a collector. A nil retrier gets a default one
// that does not retry invalid data or cancellation.
func NewCandleCollector(logger *zap.Logger, provider KlineProvider, r *retrier.Retrier) *CandleCollector {
	if r == nil {
		r = retrier.New(
			retrier.WithMaxRetries(3),
			retrier.WithRetryIf(Retryable),
			retrier.WithOnRetry(func(attempt int, err error) {
				logger.Warn("kline request failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			}),
		)
	}
	return &CandleCollector{
		logger:   logger,
		provider: provider,
		retrier:  r,
		timeout:  defaultFetchTimeout,
	}
}

// Retryable reports whether a fetch error is worth another attempt.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, domain.ErrInvalidCandle),
		errors.Is(err, domain.ErrNonMonotonicSeries),
		errors.Is(err, domain.ErrEmptySeries):
		return false
	}
	return true
}

// Fetch loads candles for pair and builds a validated series.
func (c *CandleCollector) Fetch(ctx context.Context, pair domain.Pair, interval string, limit int) (domain.CandleSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	candles, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]domain.Candle, error) {
		return c.provider.GetKlines(ctx, pair, interval, limit)
	})
	if err != nil {
		return domain.CandleSeries{}, errors.Wrapf(err, "failed to fetch klines for %s %s", pair, interval)
	}

	series, err := domain.NewCandleSeries(candles)
	if err != nil {
		return domain.CandleSeries{}, errors.Wrapf(err, "invalid klines for %s %s", pair, interval)
	}

	c.logger.Debug("candles fetched",
		zap.String("pair", pair.String()),
		zap.String("interval", interval),
		zap.Int("count", series.Len()))

	return series, nil
}

// FetchMarket loads the target and reference series concurrently.
// A zero reference pair skips the reference fetch.
func (c *CandleCollector) FetchMarket(ctx context.Context, target, reference domain.Pair, interval string, limit int) (Market, error) {
	var m Market
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := c.Fetch(gctx, target, interval, limit)
		if err != nil {
			return err
		}
		m.Target = s
		return nil
	})

	if !reference.IsZero() {
		g.Go(func() error {
			s, err := c.Fetch(gctx, reference, interval, limit)
			if err != nil {
				return errors.Wrap(err, "reference")
			}
			m.Reference = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Market{}, err
	}
	return m, nil
}
