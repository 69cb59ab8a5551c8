package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/riskgate/internal/domain"
)

// BinanceKlineProvider implements KlineProvider for Binance spot.
type BinanceKlineProvider struct {
	client *binance.Client
}

// NewBinanceKlineProvider creates a new Binance kline provider.
func NewBinanceKlineProvider(client *binance.Client) *BinanceKlineProvider {
	return &BinanceKlineProvider{client: client}
}

// GetKlines fetches kline data from Binance including taker-buy volumes.
func (p *BinanceKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.Candle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	klines, err := p.client.NewKlinesService().
		Symbol(pair.Symbol()).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", pair.String())
	}

	result := make([]domain.Candle, len(klines))
	for i, k := range klines {
		c, err := binanceCandle(k)
		if err != nil {
			return nil, errors.Wrapf(err, "kline %d", i)
		}
		result[i] = c
	}

	return result, nil
}

func binanceCandle(k *binance.Kline) (domain.Candle, error) {
	var p decimalParser
	c := domain.Candle{
		OpenTime:      time.UnixMilli(k.OpenTime).UTC(),
		CloseTime:     time.UnixMilli(k.CloseTime).UTC(),
		Open:          p.parse("open", k.Open),
		High:          p.parse("high", k.High),
		Low:           p.parse("low", k.Low),
		Close:         p.parse("close", k.Close),
		Volume:        p.parse("volume", k.Volume),
		QuoteVolume:   p.parse("quote_volume", k.QuoteAssetVolume),
		NumTrades:     k.TradeNum,
		TakerBuyBase:  p.parse("taker_buy_base", k.TakerBuyBaseAssetVolume),
		TakerBuyQuote: p.parse("taker_buy_quote", k.TakerBuyQuoteAssetVolume),
	}
	return c, p.err
}

// decimalParser parses several fields and keeps the first error.
type decimalParser struct {
	err error
}

func (p *decimalParser) parse(field, value string) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		p.err = errors.Wrapf(err, "failed to parse %s %q", field, value)
		return decimal.Zero
	}
	return d
}
