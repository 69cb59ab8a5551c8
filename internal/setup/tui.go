package setup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/riskgate/config"
	"github.com/vadiminshakov/riskgate/internal/domain"
	"github.com/vadiminshakov/riskgate/internal/services/market/analysis"
	"github.com/vadiminshakov/riskgate/internal/services/market/collector"
	"github.com/vadiminshakov/riskgate/internal/services/risk"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers raw wizard input.
type answers struct {
	platform   string
	candlesDir string
	pair       string
	reference  string
	interval   string
	lookback   string
	side       string
	confidence string
	entry      string
	stopLoss   string
	takeProfit string
	balance    string
}

func defaultAnswers() answers {
	return answers{
		pair:       "SOL_USDT",
		reference:  config.DefaultReference,
		interval:   config.DefaultInterval,
		lookback:   strconv.Itoa(config.DefaultLookback),
		side:       string(domain.SideBuy),
		confidence: "0.7",
		balance:    "10000",
	}
}

// RunTUI launches the terminal wizard and writes the resulting config to path.
func RunTUI(path string) error {
	a := defaultAnswers()

	// step 1: source
	step("STEP 1: CANDLE SOURCE")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Where should candles come from?\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select candle source").
				Options(
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Bybit", config.PlatformBybit),
					huh.NewOption("JSON files", config.PlatformFile),
				).
				Value(&a.platform),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.platform == config.PlatformFile {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Candles directory").
					Description("Directory with <PAIR>.json files").
					Value(&a.candlesDir).
					Validate(validateNotEmpty),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// step 2: market
	step("STEP 2: MARKET")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trading Pair").
				Description("Must contain underscore (e.g. SOL_USDT)").
				Value(&a.pair).
				Validate(validatePair),
			huh.NewInput().
				Title("Reference Pair").
				Description("Correlation benchmark, empty to disable (e.g. BTC_USDT)").
				Value(&a.reference).
				Validate(validateOptionalPair),
			huh.NewInput().
				Title("Interval").
				Description("Kline interval (e.g. 4h, 1d)").
				Value(&a.interval).
				Validate(validateInterval),
			huh.NewInput().
				Title("Lookback candles").
				Description(fmt.Sprintf("At least %d", analysis.MinCandles)).
				Value(&a.lookback).
				Validate(validateLookback),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 3: proposal
	step("STEP 3: TRADE PROPOSAL")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Side").
				Options(
					huh.NewOption("Buy", string(domain.SideBuy)),
					huh.NewOption("Sell", string(domain.SideSell)),
					huh.NewOption("Hold", string(domain.SideHold)),
				).
				Value(&a.side),
			huh.NewInput().
				Title("Confidence").
				Description("Fraction between 0 and 1 (e.g. 0.7)").
				Value(&a.confidence).
				Validate(validateFraction),
			huh.NewInput().
				Title("Entry").
				Description("Leave empty to derive entry, stop and target from ATR").
				Value(&a.entry).
				Validate(validateOptionalPrice),
			huh.NewInput().
				Title("Stop loss").
				Value(&a.stopLoss).
				Validate(validateOptionalPrice),
			huh.NewInput().
				Title("Take profit").
				Value(&a.takeProfit).
				Validate(validateOptionalPrice),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 4: portfolio
	step("STEP 4: PORTFOLIO")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Total balance").
				Description("Quote currency balance (e.g. 10000)").
				Value(&a.balance).
				Validate(validateBalance),
		),
	).Run()
	if err != nil {
		return err
	}

	tmp, err := a.configTmp()
	if err != nil {
		return err
	}

	// confirmation
	step("FINAL CONFIRMATION")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(a.summary()))

	var confirm bool
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and evaluate").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := config.Write(path, tmp); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

func step(title string) {
	fmt.Print("\033[H\033[2J") // clear screen
	fmt.Println(headerStyle.Render("RISKGATE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(title))
}

func (a answers) summary() string {
	return fmt.Sprintf(
		"Source: %s\nPair: %s (reference %s)\nInterval: %s x %s\nProposal: %s @ confidence %s\nBalance: %s\n",
		a.platform, a.pair, a.reference, a.interval, a.lookback, a.side, a.confidence, a.balance,
	)
}

// configTmp converts validated answers into the yaml config.
func (a answers) configTmp() (config.ConfigTmp, error) {
	lookback, err := strconv.Atoi(a.lookback)
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("lookback: %w", err)
	}

	proposal := domain.TradeProposal{Side: domain.Side(a.side)}
	fields := []struct {
		raw string
		dst *float64
	}{
		{a.confidence, &proposal.Confidence},
		{a.entry, &proposal.Entry},
		{a.stopLoss, &proposal.StopLoss},
		{a.takeProfit, &proposal.TakeProfit},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
		if err != nil {
			return config.ConfigTmp{}, fmt.Errorf("invalid number %q", f.raw)
		}
		*f.dst = v
	}

	return config.ConfigTmp{
		Platform:      a.platform,
		Pair:          strings.ToUpper(a.pair),
		ReferencePair: strings.ToUpper(a.reference),
		Interval:      a.interval,
		Lookback:      lookback,
		CandlesDir:    a.candlesDir,
		Risk:          risk.DefaultThresholds(),
		Proposal:      proposal,
		Portfolio:     config.PortfolioTmp{TotalBalance: a.balance},
	}, nil
}

func validateNotEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

func validatePair(s string) error {
	if s == "" {
		return fmt.Errorf("pair cannot be empty")
	}
	if _, err := domain.ParsePair(s); err != nil {
		return fmt.Errorf("invalid format: must be BASE_QUOTE (e.g. SOL_USDT)")
	}
	return nil
}

func validateOptionalPair(s string) error {
	if s == "" {
		return nil
	}
	return validatePair(s)
}

func validateInterval(s string) error {
	_, err := collector.ParseInterval(s)
	return err
}

func validateLookback(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n < analysis.MinCandles {
		return fmt.Errorf("must be at least %d", analysis.MinCandles)
	}
	return nil
}

func validateFraction(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func validateOptionalPrice(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateBalance(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must be non-negative")
	}
	return nil
}
