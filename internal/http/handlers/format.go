package handlers

import (
	"strconv"
	"time"
)

const snapshotLayout = "2006-01-02 15:04:05"

// formatSnapshotTime renders when the event snapshot was read, relative to now.
func formatSnapshotTime(loaded, now time.Time) string {
	if loaded.IsZero() {
		return "not loaded yet"
	}
	age := now.Sub(loaded)
	switch {
	case age < time.Minute:
		return loaded.Format(snapshotLayout) + " (just now)"
	case age < time.Hour:
		return loaded.Format(snapshotLayout) + " (" + strconv.Itoa(int(age/time.Minute)) + " min ago)"
	}
	return loaded.Format(snapshotLayout)
}

// formatPercent renders a 0-100 ratio with two decimals.
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// formatCount groups thousands with commas.
func formatCount(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + formatCount(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
