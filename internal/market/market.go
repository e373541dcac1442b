package market

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"fx-analyzer/internal/types"
)

// MajorPairs are the instruments offered by the pairs endpoint.
var MajorPairs = []string{
	"EURUSD=X", "GBPUSD=X", "USDJPY=X", "AUDUSD=X",
	"USDCAD=X", "USDCHF=X", "EURGBP=X", "EURJPY=X",
}

var intervalDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"2m":  2 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"60m": time.Hour,
	"90m": 90 * time.Minute,
	"1h":  time.Hour,
	"1d":  24 * time.Hour,
	"5d":  5 * 24 * time.Hour,
	"1wk": 7 * 24 * time.Hour,
	"1mo": 30 * 24 * time.Hour,
}

var periodPattern = regexp.MustCompile(`^(\d+)(d|wk|mo|y)$`)

// IntervalDuration returns the bar width for a Yahoo-style interval.
func IntervalDuration(interval string) (time.Duration, error) {
	d, ok := intervalDurations[interval]
	if !ok {
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}
	return d, nil
}

// PeriodDuration converts a lookback such as "7d", "3mo", "1y", "ytd" or
// "max" into a duration ending at now.
func PeriodDuration(period string, now time.Time) (time.Duration, error) {
	switch period {
	case "ytd":
		return now.Sub(time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())), nil
	case "max":
		return 10 * 365 * 24 * time.Hour, nil
	}
	m := periodPattern.FindStringSubmatch(period)
	if m == nil {
		return 0, fmt.Errorf("unsupported period %q", period)
	}
	n, _ := strconv.Atoi(m[1])
	if n <= 0 {
		return 0, fmt.Errorf("unsupported period %q", period)
	}
	day := 24 * time.Hour
	switch m[2] {
	case "d":
		return time.Duration(n) * day, nil
	case "wk":
		return time.Duration(n) * 7 * day, nil
	case "mo":
		return time.Duration(n) * 30 * day, nil
	default:
		return time.Duration(n) * 365 * day, nil
	}
}

// ValidateRequest checks the instrument, interval and period of a request.
func ValidateRequest(req types.AnalysisRequest) error {
	if strings.TrimSpace(req.Instrument) == "" {
		return fmt.Errorf("pair is required")
	}
	if _, err := IntervalDuration(req.Interval); err != nil {
		return err
	}
	if _, err := PeriodDuration(req.Period, time.Now()); err != nil {
		return err
	}
	return nil
}

// normalizeBars sorts by time, drops all-zero bars and keeps the last bar
// for any repeated timestamp.
func normalizeBars(bars []types.PriceBar) []types.PriceBar {
	out := make([]types.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Open == 0 && b.High == 0 && b.Low == 0 && b.Close == 0 {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(b.Time) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}
