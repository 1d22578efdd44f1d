package stats

import (
	"fmt"
	"math"
)

// FormatMinutes renders fractional minutes as "M min S sec", truncating to
// whole seconds. Negative input renders as zero.
func FormatMinutes(minutes float64) string {
	if math.IsNaN(minutes) || minutes < 0 {
		minutes = 0
	}
	// The epsilon keeps values like 1.15 (68.99999... seconds in binary) on
	// the intended second.
	total := int64(math.Floor(minutes*60 + 1e-9))
	return fmt.Sprintf("%d min %d sec", total/60, total%60)
}
