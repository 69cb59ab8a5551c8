// Command riskgate computes an indicator snapshot for a trading pair and runs
// a trade proposal through the risk gates.
//
// Usage:
//
//	riskgate --config config.yaml          one-shot evaluation of the configured proposal
//	riskgate --config config.yaml --serve  HTTP API on listen_addr
//	riskgate --setup                       interactive wizard, then evaluation
//
// Optional environment variables (or a .env file):
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/riskgate/config"
	"github.com/vadiminshakov/riskgate/internal"
	"github.com/vadiminshakov/riskgate/internal/metrics"
	"github.com/vadiminshakov/riskgate/internal/report"
	"github.com/vadiminshakov/riskgate/internal/services/market/collector"
	"github.com/vadiminshakov/riskgate/internal/setup"
	"github.com/vadiminshakov/riskgate/internal/storage/decisions"
	"github.com/vadiminshakov/riskgate/internal/storage/snapshotcache"
	"github.com/vadiminshakov/riskgate/internal/web"
)

func main() {
	conf, err := config.Get(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if conf.Setup {
		if err := setup.RunTUI(conf.Path); err != nil {
			log.Fatal(err)
		}
		loaded, err := config.Load(conf.Path)
		if err != nil {
			log.Fatal(err)
		}
		loaded.Serve, loaded.Debug = conf.Serve, conf.Debug
		conf = loaded
	}

	logger, err := newLogger(conf.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, conf); err != nil {
		logger.Fatal("riskgate failed", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, conf config.Config) error {
	provider, err := internal.NewKlineProvider(conf)
	if err != nil {
		return err
	}

	journal, err := decisions.NewWALStore(conf.WALDir)
	if err != nil {
		return err
	}
	defer journal.Close()

	m := metrics.New()
	opts := []internal.Option{internal.WithMetrics(m)}

	if conf.Redis.Addr != "" {
		ttl := conf.Redis.TTL
		if ttl == 0 {
			ttl = snapshotcache.DefaultTTL
		}
		cache, err := snapshotcache.New(ctx, logger, snapshotcache.Config{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
			TTL:      ttl,
		})
		if err != nil {
			logger.Warn("snapshot cache disabled", zap.Error(err))
		} else {
			defer cache.Close()
			opts = append(opts, internal.WithCache(cache))
		}
	}

	candles := collector.NewCandleCollector(logger, provider, nil)
	svc := internal.NewService(logger, conf, candles, journal, opts...)

	if conf.Serve {
		return web.NewServer(logger, conf.ListenAddr, svc, m.Handler()).Start(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Println(report.Snapshot(svc.Pair(), snap))

	event, err := svc.Evaluate(ctx, conf.Proposal, conf.Portfolio)
	if err != nil {
		return err
	}
	fmt.Println(report.Decision(event))

	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
