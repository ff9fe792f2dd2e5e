package types

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Bar is one trading day for one ticker.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Return is the simple daily return ending on Date. Value is NaN when missing.
type Return struct {
	Date  time.Time
	Value float64
}

// ReturnSeries is derived from a bar series and is one element shorter.
type ReturnSeries []Return

// Valid returns the non-missing return values in order.
func (rs ReturnSeries) Valid() []float64 {
	out := make([]float64, 0, len(rs))
	for _, r := range rs {
		if !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) {
			out = append(out, r.Value)
		}
	}
	return out
}

// NullFloat is a float that may be missing. Insufficient history is
// reported as the invalid variant instead of NaN.
type NullFloat struct {
	Value float64
	Valid bool
}

// Some wraps a present value.
func Some(v float64) NullFloat { return NullFloat{Value: v, Valid: true} }

// None is the missing value.
func None() NullFloat { return NullFloat{} }

// FromFloat maps NaN and ±Inf to the missing variant.
func FromFloat(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return None()
	}
	return Some(v)
}

// Float returns the value, or NaN when missing.
func (n NullFloat) Float() float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Value
}

// Percent formats as a percentage with two decimals, or "N/A".
func (n NullFloat) Percent() string {
	if !n.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", n.Value*100)
}

// Fixed formats with the given number of decimals, or "N/A".
func (n NullFloat) Fixed(decimals int) string {
	if !n.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%.*f", decimals, n.Value)
}

func (n NullFloat) String() string { return n.Fixed(4) }

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = None()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = FromFloat(v)
	return nil
}

// Intraday is the most recent bar's range. Valid is false for an empty series.
type Intraday struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
	Valid bool      `json:"valid"`
}

// SeasonalityRow aggregates the returns that share one calendar key.
type SeasonalityRow struct {
	Key           int     `json:"key"`
	AverageReturn float64 `json:"average_return"`
	Count         int     `json:"count"`
}

// SeasonalityTable is sorted ascending by Key.
type SeasonalityTable []SeasonalityRow

// Lookup finds the row for key.
func (t SeasonalityTable) Lookup(key int) (SeasonalityRow, bool) {
	for _, row := range t {
		if row.Key == key {
			return row, true
		}
	}
	return SeasonalityRow{}, false
}

// TotalCount sums the sample counts of all rows.
func (t SeasonalityTable) TotalCount() int {
	n := 0
	for _, row := range t {
		n += row.Count
	}
	return n
}

type AnomalyResult struct {
	IsAnomalous bool      `json:"is_anomalous"`
	ZScore      float64   `json:"z_score"`
	LastReturn  NullFloat `json:"last_return"`
	Samples     int       `json:"samples"`
}

type MomentumLabel string

const (
	StronglyBullish   MomentumLabel = "strongly bullish"
	ModeratelyBullish MomentumLabel = "moderately bullish"
	Neutral           MomentumLabel = "neutral"
	ModeratelyBearish MomentumLabel = "moderately bearish"
	StronglyBearish   MomentumLabel = "strongly bearish"
)

// MacroContext is the composite analytics record for one ticker at one point in time.
type MacroContext struct {
	Ticker            string        `json:"ticker"`
	AsOf              time.Time     `json:"as_of"`
	Volatility        NullFloat     `json:"volatility"`
	VolatilityWindow  int           `json:"volatility_window"`
	Momentum          NullFloat     `json:"momentum"`
	MomentumWindow    int           `json:"momentum_window"`
	MomentumLabel     MomentumLabel `json:"momentum_label"`
	Intraday          Intraday      `json:"intraday"`
	Anomaly           AnomalyResult `json:"anomaly"`
	SeasonalAvgReturn NullFloat     `json:"seasonal_avg_return"`
	SeasonalSamples   int           `json:"seasonal_samples"`
	OverallScore      float64       `json:"overall_score"`
}

// MomentumText is the label for display, or "N/A" when momentum is missing.
func (c MacroContext) MomentumText() string {
	if !c.Momentum.Valid {
		return "N/A"
	}
	return string(c.MomentumLabel)
}

// NewsArticle is one headline returned by a news source.
type NewsArticle struct {
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Snippet   string `json:"snippet,omitempty"`
	Ticker    string `json:"ticker"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TranscriptEntry is one assistant action recorded to the daily transcript.
type TranscriptEntry struct {
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	Action    string    `json:"action"`
	Ticker    string    `json:"ticker,omitempty"`
	Content   string    `json:"content"`
}
