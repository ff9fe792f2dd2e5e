package macro

import (
	"fmt"
	"strings"

	"finchat/internal/types"
)

const dateLayout = "2006-01-02"

// RenderHuman is the narrative shown in chat. The anomaly callout and the
// seasonality line appear only when there is something to say.
func RenderHuman(c types.MacroContext) string {
	var sb strings.Builder

	if c.AsOf.IsZero() {
		fmt.Fprintf(&sb, "Macro analysis for %s:\n\n", c.Ticker)
	} else {
		fmt.Fprintf(&sb, "Macro analysis for %s (%s):\n\n", c.Ticker, c.AsOf.Format(dateLayout))
	}

	fmt.Fprintf(&sb, "- Annualized volatility (%dd): %s\n", c.VolatilityWindow, c.Volatility.Percent())
	if c.Momentum.Valid {
		fmt.Fprintf(&sb, "- Momentum (%dd): %s, %s\n", c.MomentumWindow, c.Momentum.Percent(), c.MomentumLabel)
	} else {
		fmt.Fprintf(&sb, "- Momentum (%dd): N/A\n", c.MomentumWindow)
	}

	if c.Intraday.Valid {
		fmt.Fprintf(&sb, "- Last day range: High %.2f, Low %.2f, Close %.2f\n",
			c.Intraday.High, c.Intraday.Low, c.Intraday.Close)
	} else {
		sb.WriteString("- Last day range: N/A\n")
	}

	if c.Anomaly.IsAnomalous {
		fmt.Fprintf(&sb, "- Anomaly detected: unusually strong move (%.2f sigma, last return %s)\n",
			c.Anomaly.ZScore, c.Anomaly.LastReturn.Percent())
	}

	if c.SeasonalAvgReturn.Valid {
		fmt.Fprintf(&sb, "- Month seasonality: average return %s over %d sessions\n",
			c.SeasonalAvgReturn.Percent(), c.SeasonalSamples)
	}

	fmt.Fprintf(&sb, "- Overall score (0-1): %.3f\n", c.OverallScore)
	return sb.String()
}

// RenderForPrompt is the labelled block handed to the LLM. Absent optional
// fields are dropped rather than placeholdered.
func RenderForPrompt(c types.MacroContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Ticker: %s\n", c.Ticker)
	if !c.AsOf.IsZero() {
		fmt.Fprintf(&sb, "As of: %s\n", c.AsOf.Format(dateLayout))
	}
	fmt.Fprintf(&sb, "Volatility %dd (annualized): %s\n", c.VolatilityWindow, c.Volatility.Percent())
	fmt.Fprintf(&sb, "Momentum %dd: %s\n", c.MomentumWindow, c.Momentum.Percent())
	fmt.Fprintf(&sb, "Momentum label: %s\n", c.MomentumText())

	if c.Intraday.Valid {
		fmt.Fprintf(&sb, "Last range: High %.2f, Low %.2f, Close %.2f\n",
			c.Intraday.High, c.Intraday.Low, c.Intraday.Close)
	}
	if c.Anomaly.IsAnomalous {
		fmt.Fprintf(&sb, "Return anomaly: z-score %.2f, last return %s\n",
			c.Anomaly.ZScore, c.Anomaly.LastReturn.Percent())
	}
	if c.SeasonalAvgReturn.Valid {
		fmt.Fprintf(&sb, "Month seasonality: %s (n=%d)\n", c.SeasonalAvgReturn.Percent(), c.SeasonalSamples)
	}

	fmt.Fprintf(&sb, "Overall score (0-1): %.3f\n", c.OverallScore)
	return sb.String()
}
