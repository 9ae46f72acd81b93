// Package metrics detects significant changes between stock metric snapshots
// and drives the per-symbol alerting cycle.
package metrics

import (
	"fmt"
	"strconv"
	"strings"
)

// trackedMetric pairs a metric name with its relative-change alert threshold.
// Order is fixed so change lists and messages stay deterministic.
type trackedMetric struct {
	name      string
	threshold float64
}

var trackedMetrics = []trackedMetric{
	{"price", 0.05},
	{"pe", 0.10},
	{"pb", 0.10},
	{"market_cap", 0.05},
	{"volume", 0.20},
}

// Change describes one threshold-crossing metric movement.
type Change struct {
	Metric    string  // Metric name, e.g. "price"
	Increased bool    // Direction of the move
	ChangePct float64 // Relative change, e.g. 0.06 for 6%
	OldValue  string  // Stored value before the move, as crawled
	NewValue  string  // Value after the move, as crawled
}

// Describe renders the change the way it appears in alerts.
func (c Change) Describe() string {
	direction := "giảm"
	if c.Increased {
		direction = "tăng"
	}
	return fmt.Sprintf("%s: %s %.1f%% (%s → %s)", strings.ToUpper(c.Metric), direction, c.ChangePct*100, c.OldValue, c.NewValue)
}

// Detect compares two snapshots metric by metric and returns every tracked
// metric whose relative change meets or exceeds its threshold. Metrics that
// are missing on either side, fail to parse, or would divide by zero are
// silently skipped.
func Detect(old, new map[string]string) []Change {
	var changes []Change

	for _, tracked := range trackedMetrics {
		oldVal, okOld := old[tracked.name]
		newVal, okNew := new[tracked.name]
		if !okOld || !okNew || oldVal == "" || newVal == "" {
			continue
		}

		oldNum, err := parseNumber(oldVal)
		if err != nil {
			continue
		}
		newNum, err := parseNumber(newVal)
		if err != nil {
			continue
		}
		if oldNum == 0 {
			continue
		}

		changePct := abs(newNum-oldNum) / abs(oldNum)
		if changePct >= tracked.threshold {
			changes = append(changes, Change{
				Metric:    tracked.name,
				Increased: newNum > oldNum,
				ChangePct: changePct,
				OldValue:  oldVal,
				NewValue:  newVal,
			})
		}
	}

	return changes
}

// parseNumber converts a crawled numeric-as-text value, stripping the
// thousands separators sources print.
func parseNumber(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(cleaned, 64)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
