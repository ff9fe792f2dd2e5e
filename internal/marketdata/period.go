package marketdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParsePeriod converts a lookback such as "1y", "6mo", "30d", "ytd" or "max"
// into the start of the requested range relative to now.
func ParsePeriod(period string, now time.Time) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	switch p {
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	case "max":
		return time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}

	for _, unit := range []string{"mo", "wk", "d", "y"} {
		if !strings.HasSuffix(p, unit) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(p, unit))
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("invalid period '%s'", period)
		}
		switch unit {
		case "mo":
			return now.AddDate(0, -n, 0), nil
		case "wk":
			return now.AddDate(0, 0, -7*n), nil
		case "d":
			return now.AddDate(0, 0, -n), nil
		default:
			return now.AddDate(-n, 0, 0), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid period '%s'", period)
}

// kiteInterval maps Yahoo-style intervals onto Kite's names.
func kiteInterval(interval string) (string, error) {
	switch strings.ToLower(interval) {
	case "", "1d", "day":
		return "day", nil
	case "1h", "60m", "60minute":
		return "60minute", nil
	case "30m", "30minute":
		return "30minute", nil
	case "15m", "15minute":
		return "15minute", nil
	case "5m", "5minute":
		return "5minute", nil
	default:
		return "", fmt.Errorf("unsupported interval '%s'", interval)
	}
}
