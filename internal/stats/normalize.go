package stats

import (
	"errors"
	"strings"
	"time"
)

// NormalizedEvent is a RawEvent tagged with its shift.
type NormalizedEvent struct {
	RawEvent
	Bucket Bucket
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006.01.02 15:04:05",
	"01/02/2006 15:04:05",
	"1/2/06 15:04",
	"2006-01-02",
}

var errBadTimestamp = errors.New("unparseable timestamp")

// ParseTimestamp parses the layouts seen in spreadsheet and JSON exports.
// Offsets, when present, are kept; no zone conversion happens.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errBadTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errBadTimestamp
}

// NormalizeDateTag reduces a date label to YYYY-MM-DD when it parses as a
// date or timestamp, and returns it trimmed but untouched otherwise.
func NormalizeDateTag(s string) string {
	s = strings.TrimSpace(s)
	if t, err := ParseTimestamp(s); err == nil {
		return t.Format("2006-01-02")
	}
	return s
}

// ParseRow builds a RawEvent from string columns. ok is false for rows whose
// timestamp cannot be parsed or that lack an order id; callers skip them.
// An empty date tag falls back to the timestamp's own date.
func ParseRow(timestamp, orderID, kind, dateTag string) (RawEvent, bool) {
	ts, err := ParseTimestamp(timestamp)
	if err != nil {
		return RawEvent{}, false
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return RawEvent{}, false
	}
	tag := NormalizeDateTag(dateTag)
	if tag == "" {
		tag = ts.Format("2006-01-02")
	}
	return RawEvent{
		Timestamp: ts,
		OrderID:   orderID,
		Kind:      strings.TrimSpace(kind),
		DateTag:   tag,
	}, true
}

// Normalize tags every event with its shift and drops events outside lunch
// and dinner, plus rows with a zero timestamp. Other event kinds are kept.
func Normalize(events []RawEvent) []NormalizedEvent {
	out := make([]NormalizedEvent, 0, len(events))
	for _, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		b := BucketForHour(e.Timestamp.Hour())
		if b == BucketExcluded {
			continue
		}
		out = append(out, NormalizedEvent{RawEvent: e, Bucket: b})
	}
	return out
}

// PairableEvents keeps only accepted and completed events.
func PairableEvents(events []NormalizedEvent) []NormalizedEvent {
	out := make([]NormalizedEvent, 0, len(events))
	for _, e := range events {
		if isPairable(e.Kind) {
			out = append(out, e)
		}
	}
	return out
}
