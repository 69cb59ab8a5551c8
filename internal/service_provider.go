package internal

import (
	"fmt"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"

	"github.com/vadiminshakov/riskgate/config"
	"github.com/vadiminshakov/riskgate/internal/services/market/collector"
)

// NewKlineProvider creates the candle source for the configured platform.
// Exchange klines are public, API keys are attached only when present.
func NewKlineProvider(conf config.Config) (collector.KlineProvider, error) {
	switch conf.Platform {
	case config.PlatformBinance:
		return collector.NewBinanceKlineProvider(newBinanceClient(conf.Credentials)), nil
	case config.PlatformBybit:
		return collector.NewBybitKlineProvider(newBybitClient(conf.Credentials)), nil
	case config.PlatformFile:
		return collector.NewFileKlineProvider(conf.CandlesDir), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %q", conf.Platform)
	}
}

func newBinanceClient(creds config.Credentials) *binance.Client {
	return binance.NewClient(creds.APIKey, creds.APISecret)
}

func newBybitClient(creds config.Credentials) *bybit.Client {
	client := bybit.NewClient()
	if creds.APIKey != "" && creds.APISecret != "" {
		client = client.WithAuth(creds.APIKey, creds.APISecret)
	}
	return client
}
