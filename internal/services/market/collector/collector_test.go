package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/internal/domain/domaintest"
	"github.com/vadiminshakov/riskgate/pkg/retrier"
	"go.uber.org/zap"
)

type fakeProvider struct {
	mu       sync.Mutex
	calls    map[string]int
	failures int
	err      error
	candles  map[string][]domain.Candle
}

func (f *fakeProvider) GetKlines(_ context.Context, pair domain.Pair, _ string, _ int) ([]domain.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[pair.String()]++
	if f.calls[pair.String()] <= f.failures {
		return nil, f.err
	}
	return f.candles[pair.String()], nil
}

func fastRetrier() *retrier.Retrier {
	return retrier.New(
		retrier.WithMaxRetries(3),
		retrier.WithInitialInterval(time.Millisecond),
		retrier.WithRetryIf(Retryable),
	)
}

func candles(t *testing.T, n int, price float64) []domain.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price + float64(i)
	}
	return domaintest.Series(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), domaintest.FromCloses(closes, 100)).Candles()
}

var (
	sol = domain.Pair{From: "SOL", To: "USDT"}
	btc = domain.Pair{From: "BTC", To: "USDT"}
)

func TestCandleCollector_RetriesTransientErrors(t *testing.T) {
	p := &fakeProvider{
		failures: 2,
		err:      errors.New("connection reset"),
		candles:  map[string][]domain.Candle{sol.String(): candles(t, 10, 100)},
	}

	series, err := NewCandleCollector(zap.NewNop(), p, fastRetrier()).Fetch(context.Background(), sol, "1d", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, series.Len())
	assert.Equal(t, 3, p.calls[sol.String()])
}

func TestCandleCollector_DoesNotRetryInvalidData(t *testing.T) {
	p := &fakeProvider{
		failures: 5,
		err:      errors.Wrap(domain.ErrInvalidCandle, "bad payload"),
	}

	_, err := NewCandleCollector(zap.NewNop(), p, fastRetrier()).Fetch(context.Background(), sol, "1d", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCandle)
	assert.Equal(t, 1, p.calls[sol.String()])
}

func TestCandleCollector_RejectsUnorderedCandles(t *testing.T) {
	cs := candles(t, 5, 100)
	cs[3], cs[4] = cs[4], cs[3]
	p := &fakeProvider{candles: map[string][]domain.Candle{sol.String(): cs}}

	_, err := NewCandleCollector(zap.NewNop(), p, fastRetrier()).Fetch(context.Background(), sol, "1d", 5)
	assert.ErrorIs(t, err, domain.ErrNonMonotonicSeries)
}

func TestCandleCollector_FetchMarket(t *testing.T) {
	p := &fakeProvider{candles: map[string][]domain.Candle{
		sol.String(): candles(t, 30, 100),
		btc.String(): candles(t, 30, 60000),
	}}
	c := NewCandleCollector(zap.NewNop(), p, fastRetrier())

	m, err := c.FetchMarket(context.Background(), sol, btc, "1d", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, m.Target.Len())
	assert.Equal(t, 30, m.Reference.Len())
	last, _ := m.Reference.Last()
	assert.True(t, last.Close.GreaterThan(last.Open))

	m, err = c.FetchMarket(context.Background(), sol, domain.Pair{}, "1d", 30)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Reference.Len())

	p.candles[btc.String()] = nil
	_, err = c.FetchMarket(context.Background(), sol, btc, "1d", 30)
	assert.ErrorIs(t, err, domain.ErrEmptySeries)
}

func TestFileKlineProvider(t *testing.T) {
	p := NewFileKlineProvider(t.TempDir())
	cs := candles(t, 12, 100)
	require.NoError(t, p.WriteCandles(sol, cs))

	got, err := p.GetKlines(context.Background(), sol, "1d", 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.True(t, cs[7].OpenTime.Equal(got[0].OpenTime))
	assert.True(t, cs[11].Close.Equal(got[4].Close))
	assert.True(t, cs[11].TakerBuyBase.Equal(got[4].TakerBuyBase))

	_, err = p.GetKlines(context.Background(), btc, "1d", 5)
	assert.Error(t, err)
}

func TestBinanceKlineProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			[1767225600000, "100.0", "110.0", "95.0", "105.0", "1000.0", 1767311999999, "104000.0", 523, "600.0", "62400.0", "0"],
			[1767312000000, "105.0", "108.0", "101.0", "102.0", "800.0", 1767398399999, "82400.0", 410, "200.0", "20500.0", "0"]
		]`)
	}))
	defer srv.Close()

	client := binance.NewClient("", "")
	client.BaseURL = srv.URL

	got, err := NewBinanceKlineProvider(client).GetKlines(context.Background(), sol, "1d", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.True(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Equal(first.OpenTime))
	assert.Equal(t, "105", first.Close.String())
	assert.Equal(t, "104000", first.QuoteVolume.String())
	assert.Equal(t, int64(523), first.NumTrades)
	assert.InDelta(t, 60.0, first.BuyPressure(), 1e-9)
	assert.InDelta(t, 25.0, got[1].BuyPressure(), 1e-9)

	series, err := domain.NewCandleSeries(got)
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
}
