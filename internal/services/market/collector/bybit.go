package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/riskgate/internal/domain"
)

const bybitMaxPerRequest = 200

// BybitKlineProvider implements KlineProvider for Bybit spot.
// Bybit klines carry no taker-buy split, so buy volume is reported as half of the volume.
type BybitKlineProvider struct {
	client *bybit.Client
}

// NewBybitKlineProvider creates a new Bybit kline provider.
func NewBybitKlineProvider(client *bybit.Client) *BybitKlineProvider {
	return &BybitKlineProvider{client: client}
}

// GetKlines fetches kline data, paging backwards in time until limit candles are collected.
func (p *BybitKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid interval: %s", interval)
	}
	step, err := ParseInterval(interval)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid interval: %s", interval)
	}

	var (
		items []bybit.V5GetKlineItem
		end   *int64
	)
	for remaining := limit; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch := min(remaining, bybitMaxPerRequest)
		param := bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   bybit.SymbolV5(pair.Symbol()),
			Interval: bybit.Interval(bybitInterval),
			Limit:    &batch,
			End:      end,
		}

		result, err := p.client.V5().Market().GetKline(param)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", pair.String())
		}
		if result == nil || len(result.Result.List) == 0 {
			break
		}

		list := result.Result.List
		items = append(items, list...)
		if len(list) < batch {
			break
		}
		remaining -= len(list)

		// list is newest first, continue before the oldest candle received
		oldest, err := parseTimestamp(list[len(list)-1].StartTime)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse page boundary")
		}
		next := oldest.UnixMilli() - 1
		end = &next
	}

	if len(items) == 0 {
		return nil, errors.Errorf("no kline data returned from Bybit for %s", pair.String())
	}

	candles := make([]domain.Candle, 0, len(items))
	for i, k := range items {
		c, err := bybitCandle(k, step)
		if err != nil {
			return nil, errors.Wrapf(err, "kline %d", i)
		}
		candles = append(candles, c)
	}

	return sortCandles(candles), nil
}

func bybitCandle(k bybit.V5GetKlineItem, step time.Duration) (domain.Candle, error) {
	openTime, err := parseTimestamp(k.StartTime)
	if err != nil {
		return domain.Candle{}, errors.Wrap(err, "failed to parse start time")
	}

	var p decimalParser
	volume := p.parse("volume", k.Volume)
	quote := p.parse("turnover", k.Turnover)
	half := decimal.NewFromFloat(0.5)

	c := domain.Candle{
		OpenTime:      openTime,
		CloseTime:     openTime.Add(step - time.Millisecond),
		Open:          p.parse("open", k.Open),
		High:          p.parse("high", k.High),
		Low:           p.parse("low", k.Low),
		Close:         p.parse("close", k.Close),
		Volume:        volume,
		QuoteVolume:   quote,
		TakerBuyBase:  volume.Mul(half),
		TakerBuyQuote: quote.Mul(half),
	}
	return c, p.err
}

// sortCandles orders candles by open time and drops duplicates from overlapping pages.
func sortCandles(candles []domain.Candle) []domain.Candle {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
	out := candles[:0]
	for i, c := range candles {
		if i > 0 && c.OpenTime.Equal(candles[i-1].OpenTime) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// convertIntervalToBybit converts standard interval format to Bybit format.
// Standard format: "1m", "5m", "15m", "1h", "4h", "1d", etc.
// Bybit format: "1", "5", "15", "60", "240", "D", etc.
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", fmt.Errorf("invalid interval format: %s", interval)
	}

	unit := interval[len(interval)-1]
	n, err := parseCount(interval[:len(interval)-1])
	if err != nil {
		return "", fmt.Errorf("invalid interval number: %s", interval)
	}

	switch unit {
	case 'm':
		return fmt.Sprintf("%d", n), nil
	case 'h':
		// hours to minutes: 1h -> 60, 4h -> 240
		return fmt.Sprintf("%d", n*60), nil
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// parseTimestamp converts Bybit timestamp string (milliseconds) to time.Time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	var msec int64
	_, err := fmt.Sscanf(ts, "%d", &msec)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}

	return time.UnixMilli(msec).UTC(), nil
}
