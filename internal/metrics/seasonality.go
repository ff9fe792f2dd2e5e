package metrics

import (
	"math"
	"sort"
	"time"

	"finchat/internal/types"
)

// SeasonKey maps a return's date to its calendar group.
type SeasonKey func(time.Time) int

var (
	ByMonth SeasonKey = func(t time.Time) int { return int(t.Month()) }
	// ByWeekday numbers Monday as 0 and Sunday as 6.
	ByWeekday    SeasonKey = func(t time.Time) int { return (int(t.Weekday()) + 6) % 7 }
	ByDayOfMonth SeasonKey = func(t time.Time) int { return t.Day() }
)

// SeasonalityBy averages valid returns grouped by key(date), where date is the
// later bar of each return. Groups without a valid return are left out.
func SeasonalityBy(bars []types.Bar, key SeasonKey) types.SeasonalityTable {
	type acc struct {
		sum float64
		n   int
	}
	groups := make(map[int]*acc)
	for _, r := range ComputeReturns(bars) {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			continue
		}
		k := key(r.Date)
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
		}
		g.sum += r.Value
		g.n++
	}

	table := make(types.SeasonalityTable, 0, len(groups))
	for k, g := range groups {
		table = append(table, types.SeasonalityRow{
			Key:           k,
			AverageReturn: g.sum / float64(g.n),
			Count:         g.n,
		})
	}
	sort.Slice(table, func(i, j int) bool { return table[i].Key < table[j].Key })
	return table
}
