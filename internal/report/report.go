// Package report renders snapshots and risk decisions for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/riskgate/internal/domain"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	danger    = lipgloss.AdaptiveColor{Light: "#E0475B", Dark: "#FF5F87"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().Foreground(subtle).Width(24)
	passStyle  = lipgloss.NewStyle().Foreground(special).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(danger).Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(highlight).Padding(0, 1)
)

// Snapshot renders the indicator snapshot of pair.
func Snapshot(pair domain.Pair, s domain.IndicatorSnapshot) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s @ %s", pair, s.Timestamp.Format("2006-01-02"))))
	b.WriteString("\n")
	row(&b, "Price", num(s.Price))

	section(&b, "TREND")
	row(&b, "EMA20 / EMA50", opt(s.EMA20)+" / "+opt(s.EMA50))
	row(&b, "EMA200", opt(s.EMA200))
	row(&b, "14D range", opt(s.Low14D)+" - "+opt(s.High14D))
	row(&b, "14D range position", pct(s.RangePosition14D))

	section(&b, "MOMENTUM")
	row(&b, "RSI14", opt(s.RSI14))
	row(&b, "MACD line / signal", opt(s.MACDLine)+" / "+opt(s.MACDSignal))
	row(&b, "MACD histogram", opt(s.MACDHistogram))
	row(&b, "StochRSI %K / %D", opt(s.StochRSIK)+" / "+opt(s.StochRSID))
	row(&b, "Divergence", fmt.Sprintf("%s (%.2f)", s.Divergence.Type, s.Divergence.Strength))

	section(&b, "VOLATILITY")
	row(&b, "Bollinger", opt(s.BBLower)+" / "+opt(s.BBMiddle)+" / "+opt(s.BBUpper))
	squeeze := "n/a"
	if s.BBSqueezeActive != nil {
		squeeze = fmt.Sprintf("%s (active: %t)", opt(s.BBSqueezeRatio), *s.BBSqueezeActive)
	}
	row(&b, "Squeeze ratio", squeeze)
	row(&b, "ATR / ATR%", opt(s.ATR)+" / "+opt(s.ATRPercent))

	section(&b, "VOLUME")
	row(&b, "Ratio", fmt.Sprintf("%.2fx %s", s.VolumeRatio, s.VolumeClassification.Class))
	row(&b, "Current / MA20", opt(s.VolumeCurrent)+" / "+opt(s.VolumeMA20))
	row(&b, "Buy pressure", fmt.Sprintf("%.1f%%", s.WeightedBuyPressure))
	row(&b, "Days since spike", fmt.Sprintf("%d", s.DaysSinceSpike))

	section(&b, "LEVELS")
	row(&b, "Support", level(s.Support1)+", "+level(s.Support2))
	row(&b, "Resistance", level(s.Resistance1)+", "+level(s.Resistance2))
	row(&b, "Fib 38.2 / 61.8", opt(s.Fib382)+" / "+opt(s.Fib618))
	row(&b, "Weekly pivot", opt(s.PivotWeekly))
	if len(s.FibLevels) > 0 {
		fibs := make([]string, len(s.FibLevels))
		for i, v := range s.FibLevels {
			fibs[i] = num(v)
		}
		row(&b, "Fib high to low", strings.Join(fibs, " "))
	}
	if p := s.Pivots; p != nil {
		row(&b, "Pivot", num(p.Pivot))
		row(&b, "R1 / R2", num(p.R1)+" / "+num(p.R2))
		row(&b, "S1 / S2", num(p.S1)+" / "+num(p.S2))
	}

	if s.Correlation != nil {
		section(&b, "REFERENCE")
		trend := "n/a"
		if s.ReferenceTrend != nil {
			trend = string(*s.ReferenceTrend)
		}
		row(&b, "Trend", trend)
		row(&b, "Correlation", opt(s.Correlation))
		row(&b, "30D change %", opt(s.ReferenceChange30D))
	}

	return boxStyle.Render(b.String())
}

// Decision renders the gate results and sizing of a risk decision.
func Decision(e domain.RiskDecisionEvent) string {
	d := e.Decision
	var b strings.Builder

	p := d.Proposal
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s %s", p.Side, e.Pair)))
	b.WriteString("\n")
	if p.Side != domain.SideHold {
		row(&b, "Entry / stop / target", fmt.Sprintf("%s / %s / %s", num(p.Entry), num(p.StopLoss), num(p.TakeProfit)))
		row(&b, "Confidence", fmt.Sprintf("%.0f%%", p.Confidence*100))
	}

	if len(d.Gates) > 0 {
		section(&b, "GATES")
		for _, g := range d.Gates {
			mark := passStyle.Render("PASS")
			if !g.Passed {
				mark = failStyle.Render("FAIL")
			}
			b.WriteString(fmt.Sprintf("%s %s %s\n", mark, labelStyle.Render(g.Gate), g.Detail))
		}
	}

	section(&b, "DECISION")
	switch {
	case d.Blocked():
		row(&b, "Result", failStyle.Render("REJECTED"))
		row(&b, "Blocking gate", d.BlockingGate)
	default:
		row(&b, "Result", passStyle.Render("APPROVED"))
		row(&b, "Position", fmt.Sprintf("$%.2f (%.2f%% of balance)", d.PositionSizeUSD, d.PositionSizePercent*100))
		row(&b, "Max loss", fmt.Sprintf("$%.2f", d.MaxLossUSD))
	}
	if d.RiskRewardRatio > 0 {
		row(&b, "Risk/reward", fmt.Sprintf("%.2f:1", d.RiskRewardRatio))
	}
	row(&b, "Decision ID", e.ID)

	return boxStyle.Render(b.String())
}

func section(b *strings.Builder, title string) {
	b.WriteString(sectionStyle.Render(title))
	b.WriteString("\n")
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func num(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func opt(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return num(*v)
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f%%", *v*100)
}

func level(l *domain.Level) string {
	if l == nil {
		return "n/a"
	}
	return fmt.Sprintf("%s (%+.2f%%)", num(l.Price), l.Percent)
}
