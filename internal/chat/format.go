package chat

import (
	"fmt"
	"strings"

	"finchat/internal/ta"
	"finchat/internal/types"
)

// FormatNewsForPrompt renders articles as the numbered list handed to the LLM.
func FormatNewsForPrompt(ticker string, articles []types.NewsArticle) string {
	if len(articles) == 0 {
		return fmt.Sprintf("No recent news for %s.", ticker)
	}

	lines := []string{fmt.Sprintf("Recent news for %s:\n", ticker)}
	for i, art := range articles {
		date := orDefault(art.Published, "Unknown date")
		publisher := orDefault(art.Publisher, "Unknown source")
		title := orDefault(art.Title, fmt.Sprintf("News %d", i+1))
		lines = append(lines, fmt.Sprintf("%d. [%s] %s: %s\n   Link: %s", i+1, date, publisher, title, art.Link))
	}
	return strings.Join(lines, "\n")
}

// FormatNewsList is the human-facing version shown in the conversation.
func FormatNewsList(ticker string, articles []types.NewsArticle) string {
	if len(articles) == 0 {
		return fmt.Sprintf("No recent news found for %s, or the news source returned no results.", ticker)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent news for %s:\n\n", ticker)
	for i, art := range articles {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, orDefault(art.Title, fmt.Sprintf("News %d", i+1)))
		fmt.Fprintf(&sb, "- %s, %s\n", orDefault(art.Publisher, "Unknown source"), orDefault(art.Published, "Unknown date"))
		if art.Link != "" {
			fmt.Fprintf(&sb, "- %s\n", art.Link)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

type snapshot struct {
	ticker           string
	intraday         types.Intraday
	volatility       types.NullFloat
	volatilityWindow int
	momentum         types.NullFloat
	momentumWindow   int
	indicators       ta.Indicators
	seasonality      types.SeasonalityTable
}

func formatSnapshot(s snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Quick snapshot of %s:\n", s.ticker)
	if s.intraday.Valid {
		fmt.Fprintf(&sb, "- Last day: %s\n", s.intraday.Date.Format("2006-01-02"))
		fmt.Fprintf(&sb, "- Open: %.2f | High: %.2f | Low: %.2f | Close: %.2f\n",
			s.intraday.Open, s.intraday.High, s.intraday.Low, s.intraday.Close)
	} else {
		sb.WriteString("- Last day: N/A\n")
	}
	fmt.Fprintf(&sb, "- Annualized volatility %dd: %s\n", s.volatilityWindow, s.volatility.Percent())
	fmt.Fprintf(&sb, "- Momentum %dd: %s\n", s.momentumWindow, s.momentum.Percent())
	fmt.Fprintf(&sb, "- SMA20: %s | SMA50: %s | RSI14: %s | ATR14: %s\n",
		s.indicators.SMA20.Fixed(2), s.indicators.SMA50.Fixed(2),
		s.indicators.RSI14.Fixed(2), s.indicators.ATR14.Fixed(2))

	sb.WriteString("\nAverage seasonality by month (return):\n```\n")
	sb.WriteString("month  avg_return  count\n")
	for _, row := range s.seasonality {
		fmt.Fprintf(&sb, "%5d  %10.4f  %5d\n", row.Key, row.AverageReturn, row.Count)
	}
	sb.WriteString("```")
	return sb.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
