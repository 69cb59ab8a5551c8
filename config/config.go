package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/internal/services/market/analysis"
	"github.com/vadiminshakov/riskgate/internal/services/market/collector"
	"github.com/vadiminshakov/riskgate/internal/services/risk"
	"github.com/vadiminshakov/riskgate/internal/storage/decisions"
	"gopkg.in/yaml.v3"
)

const (
	PlatformBinance = "binance"
	PlatformBybit   = "bybit"
	PlatformFile    = "file"

	DefaultInterval   = "1d"
	DefaultLookback   = 90
	DefaultListenAddr = ":8080"
	DefaultReference  = "BTC_USDT"
	DefaultGenPath    = "riskgate.gen.yaml"
	DefaultEnvPath    = ".env"
)

// Config resolved runtime configuration.
type Config struct {
	Platform      string
	Pair          domain.Pair
	ReferencePair domain.Pair
	Interval      string
	Lookback      int
	CandlesDir    string
	WALDir        string
	Redis         RedisConfig
	ListenAddr    string
	Risk          risk.Thresholds
	Proposal      domain.TradeProposal
	Portfolio     domain.PortfolioContext
	Credentials   Credentials

	// Path of the yaml file the config was read from, empty for CLI flags.
	Path  string
	Serve bool
	Setup bool
	Debug bool
}

// RedisConfig snapshot cache connection. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr,omitempty"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
}

// Credentials exchange API keys, loaded from the environment.
type Credentials struct {
	APIKey    string
	APISecret string
}

// ConfigTmp yaml representation of Config.
type ConfigTmp struct {
	Platform      string               `yaml:"platform"`
	Pair          string               `yaml:"pair"`
	ReferencePair string               `yaml:"reference_pair,omitempty"`
	Interval      string               `yaml:"interval,omitempty"`
	Lookback      int                  `yaml:"lookback,omitempty"`
	CandlesDir    string               `yaml:"candles_dir,omitempty"`
	WALDir        string               `yaml:"wal_dir,omitempty"`
	Redis         RedisConfig          `yaml:"redis,omitempty"`
	ListenAddr    string               `yaml:"listen_addr,omitempty"`
	Risk          risk.Thresholds      `yaml:"risk"`
	Proposal      domain.TradeProposal `yaml:"proposal"`
	Portfolio     PortfolioTmp         `yaml:"portfolio"`
}

// PortfolioTmp yaml representation of the portfolio block.
type PortfolioTmp struct {
	TotalBalance   string                `yaml:"total_balance"`
	PeakBalance    string                `yaml:"peak_balance,omitempty"`
	OpenPositions  []domain.OpenPosition `yaml:"open_positions,omitempty"`
	RecentOutcomes []domain.TradeOutcome `yaml:"recent_outcomes,omitempty"`
}

// Get parses command line arguments, loads .env and reads the yaml config when --config is set.
// With --setup the yaml file is not read, the caller runs the wizard and then calls Load.
func Get(args []string) (Config, error) {
	fs := flag.NewFlagSet("riskgate", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to yaml config")
	envPath := fs.String("env", DefaultEnvPath, "path to .env file with exchange API keys")
	serve := fs.Bool("serve", false, "run the HTTP API instead of a one-shot evaluation")
	setup := fs.Bool("setup", false, "run the interactive config wizard")
	debug := fs.Bool("debug", false, "enable debug logging")

	platform := fs.String("platform", PlatformBinance, "candle source: binance, bybit or file")
	pairFlag := fs.String("pair", "SOL_USDT", "analyzed pair, example: SOL_USDT")
	referenceFlag := fs.String("reference", DefaultReference, "reference pair for correlation, empty to disable")
	interval := fs.String("interval", DefaultInterval, "kline interval, example: 1d")
	lookback := fs.Int("lookback", DefaultLookback, "number of candles to fetch")
	candlesDir := fs.String("candles-dir", "", "directory with <PAIR>.json candle files (platform=file)")
	walDir := fs.String("wal-dir", decisions.DefaultDir, "decision journal directory")
	redisAddr := fs.String("redis", "", "redis address for the snapshot cache, empty to disable")
	listen := fs.String("listen", DefaultListenAddr, "HTTP listen address")
	balance := fs.String("balance", "0", "total portfolio balance in quote currency")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnv(*envPath); err != nil {
		return Config{}, err
	}

	var (
		conf Config
		err  error
	)
	switch {
	case *setup:
		conf.Path = *configPath
		if conf.Path == "" {
			conf.Path = DefaultGenPath
		}
	case *configPath != "":
		conf, err = Load(*configPath)
		if err != nil {
			return Config{}, err
		}
	default:
		conf, err = fromTmp(ConfigTmp{
			Platform:      *platform,
			Pair:          *pairFlag,
			ReferencePair: *referenceFlag,
			Interval:      *interval,
			Lookback:      *lookback,
			CandlesDir:    *candlesDir,
			WALDir:        *walDir,
			Redis:         RedisConfig{Addr: *redisAddr},
			ListenAddr:    *listen,
			Risk:          risk.DefaultThresholds(),
			Proposal:      domain.TradeProposal{Side: domain.SideHold},
			Portfolio:     PortfolioTmp{TotalBalance: *balance},
		})
		if err != nil {
			return Config{}, err
		}
	}

	conf.Serve = *serve
	conf.Setup = *setup
	conf.Debug = *debug
	return conf, nil
}

// Load reads and validates a yaml config file. Keys missing from the
// risk block keep their default thresholds.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	tmp := ConfigTmp{
		ReferencePair: DefaultReference,
		Risk:          risk.DefaultThresholds(),
	}
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}

	conf, err := fromTmp(tmp)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	conf.Path = path
	return conf, nil
}

// Write stores tmp as yaml at path.
func Write(path string, tmp ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to save config file %s", path)
	}
	return nil
}

func fromTmp(c ConfigTmp) (Config, error) {
	conf := Config{
		Platform:   strings.ToLower(strings.TrimSpace(c.Platform)),
		Interval:   c.Interval,
		Lookback:   c.Lookback,
		CandlesDir: c.CandlesDir,
		WALDir:     c.WALDir,
		Redis:      c.Redis,
		ListenAddr: c.ListenAddr,
		Risk:       c.Risk,
		Proposal:   c.Proposal,
	}

	switch conf.Platform {
	case PlatformBinance, PlatformBybit:
	case PlatformFile:
		if conf.CandlesDir == "" {
			return Config{}, errors.New("incorrect 'candles_dir' param: required for platform 'file'")
		}
	default:
		return Config{}, errors.Errorf("incorrect 'platform' param: %q, expected binance, bybit or file", c.Platform)
	}

	pair, err := domain.ParsePair(c.Pair)
	if err != nil {
		return Config{}, errors.Wrapf(err, "incorrect 'pair' param")
	}
	conf.Pair = pair

	if c.ReferencePair != "" {
		ref, err := domain.ParsePair(c.ReferencePair)
		if err != nil {
			return Config{}, errors.Wrapf(err, "incorrect 'reference_pair' param")
		}
		conf.ReferencePair = ref
	}

	if conf.Interval == "" {
		conf.Interval = DefaultInterval
	}
	if _, err := collector.ParseInterval(conf.Interval); err != nil {
		return Config{}, errors.Wrapf(err, "incorrect 'interval' param")
	}

	if conf.Lookback == 0 {
		conf.Lookback = DefaultLookback
	}
	if conf.Lookback < analysis.MinCandles {
		return Config{}, errors.Errorf("incorrect 'lookback' param: %d, must be at least %d", conf.Lookback, analysis.MinCandles)
	}

	if conf.WALDir == "" {
		conf.WALDir = decisions.DefaultDir
	}
	if conf.ListenAddr == "" {
		conf.ListenAddr = DefaultListenAddr
	}

	if err := validateRisk(conf.Risk); err != nil {
		return Config{}, err
	}

	side, err := domain.ParseSide(string(conf.Proposal.Side))
	if err != nil {
		return Config{}, errors.Wrapf(err, "incorrect 'proposal.side' param")
	}
	conf.Proposal.Side = side
	if conf.Proposal.Confidence < 0 || conf.Proposal.Confidence > 1 {
		return Config{}, errors.Errorf("incorrect 'proposal.confidence' param: %v, must be within [0, 1]", conf.Proposal.Confidence)
	}

	portfolio, err := portfolioFromTmp(c.Portfolio)
	if err != nil {
		return Config{}, err
	}
	conf.Portfolio = portfolio
	conf.Credentials = credentialsFor(conf.Platform)

	return conf, nil
}

func portfolioFromTmp(p PortfolioTmp) (domain.PortfolioContext, error) {
	balance := decimal.Zero
	if p.TotalBalance != "" {
		var err error
		balance, err = decimal.NewFromString(p.TotalBalance)
		if err != nil {
			return domain.PortfolioContext{}, errors.Wrapf(err, "incorrect 'portfolio.total_balance' param (correct format is 10000.50)")
		}
	}
	if balance.IsNegative() {
		return domain.PortfolioContext{}, errors.Errorf("incorrect 'portfolio.total_balance' param: %s, must be non-negative", balance)
	}

	peak := decimal.Zero
	if p.PeakBalance != "" {
		var err error
		peak, err = decimal.NewFromString(p.PeakBalance)
		if err != nil {
			return domain.PortfolioContext{}, errors.Wrapf(err, "incorrect 'portfolio.peak_balance' param (correct format is 12000.00)")
		}
	}
	if peak.IsNegative() {
		return domain.PortfolioContext{}, errors.Errorf("incorrect 'portfolio.peak_balance' param: %s, must be non-negative", peak)
	}

	for i, pos := range p.OpenPositions {
		if pos.EntryPrice < 0 || pos.StopLoss < 0 || pos.PositionSizeUSD < 0 {
			return domain.PortfolioContext{}, errors.Errorf("incorrect 'portfolio.open_positions[%d]' param: values must be non-negative", i)
		}
	}

	return domain.PortfolioContext{
		TotalBalance:   balance.InexactFloat64(),
		PeakBalance:    peak.InexactFloat64(),
		OpenPositions:  p.OpenPositions,
		RecentOutcomes: p.RecentOutcomes,
	}, nil
}

func validateRisk(t risk.Thresholds) error {
	checks := []struct {
		key   string
		value float64
		ok    bool
	}{
		{"min_volume_ratio", t.MinVolumeRatio, t.MinVolumeRatio >= 0},
		{"min_confidence", t.MinConfidence, t.MinConfidence >= 0 && t.MinConfidence < 1},
		{"min_rr_ratio", t.MinRiskReward, t.MinRiskReward > 0},
		{"max_support_distance", t.MaxSupportDistance, t.MaxSupportDistance > 0},
		{"max_consecutive_losses", float64(t.MaxConsecutiveLosses), t.MaxConsecutiveLosses >= 1},
		{"max_portfolio_heat", t.MaxPortfolioHeat, t.MaxPortfolioHeat > 0 && t.MaxPortfolioHeat <= 1},
		{"base_risk", t.BaseRisk, t.BaseRisk > 0 && t.BaseRisk <= 1},
		{"max_position_size", t.MaxPositionSize, t.MaxPositionSize > 0 && t.MaxPositionSize <= 1},
		{"stop_atr_multiple", t.StopATRMultiple, t.StopATRMultiple > 0},
		{"target_atr_multiple", t.TargetATRMultiple, t.TargetATRMultiple > 0},
		{"max_drawdown", t.MaxDrawdown, t.MaxDrawdown >= 0 && t.MaxDrawdown < 1},
		{"max_atr_percent", t.MaxATRPercent, t.MaxATRPercent >= 0},
		{"high_atr_percent", t.HighATRPercent, t.HighATRPercent >= 0},
		{"correlation_penalty", t.CorrelationPenalty, t.CorrelationPenalty >= 0 && t.CorrelationPenalty < 1},
		{"correlated_positions", float64(t.CorrelatedPositions), t.CorrelatedPositions >= 0},
	}
	for _, c := range checks {
		if !c.ok {
			return errors.Errorf("incorrect 'risk.%s' param: %v is out of range", c.key, c.value)
		}
	}
	return nil
}

// loadEnv loads exchange keys from a .env file. A missing default file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && path == DefaultEnvPath {
			return nil
		}
		return errors.Wrapf(err, "env file %s", path)
	}
	return errors.Wrapf(godotenv.Load(path), "load env file %s", path)
}

func credentialsFor(platform string) Credentials {
	switch platform {
	case PlatformBinance:
		return Credentials{APIKey: os.Getenv("BINANCE_API_KEY"), APISecret: os.Getenv("BINANCE_API_SECRET")}
	case PlatformBybit:
		return Credentials{APIKey: os.Getenv("BYBIT_API_KEY"), APISecret: os.Getenv("BYBIT_API_SECRET")}
	}
	return Credentials{}
}
