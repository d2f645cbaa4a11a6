package cashflow

import (
	"fmt"
	"time"

	"github.com/meridian-fin/meridian/ledger"
)

// PeriodKey formats the bucket key for a date: "YYYY-MM" for monthly,
// ISO "YYYY-Www" for weekly, empty when bucketing is off.
func PeriodKey(g Granularity, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	switch g {
	case GranularityMonthly:
		return t.Format("2006-01")
	case GranularityWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return ""
	}
}

// periodGroupKey is the gateway group-by key for a granularity.
func periodGroupKey(g Granularity) string {
	switch g {
	case GranularityMonthly:
		return "date:month"
	case GranularityWeekly:
		return "date:week"
	default:
		return ""
	}
}

// periodKeyFromGroup formats the period key out of a group row.
func periodKeyFromGroup(g Granularity, row ledger.GroupRow) string {
	key := periodGroupKey(g)
	if key == "" {
		return ""
	}
	return PeriodKey(g, ledger.AsDate(row.Keys[key]))
}

func addPeriod(byPeriod map[string]float64, key string, amount float64) map[string]float64 {
	if key == "" {
		return byPeriod
	}
	if byPeriod == nil {
		byPeriod = make(map[string]float64)
	}
	byPeriod[key] += amount
	return byPeriod
}
