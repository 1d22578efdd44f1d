package stats

import (
	"strings"
	"time"
)

// Bucket is the time-of-day shift an event falls into.
type Bucket string

const (
	BucketLunch    Bucket = "lunch"
	BucketDinner   Bucket = "dinner"
	BucketExcluded Bucket = "other"
)

// Event kinds in the source's own vocabulary. Only these two take part in pairing.
const (
	KindAccepted  = "주문 접수"
	KindCompleted = "배달 완료"
)

// Delivery thresholds, in seconds.
const (
	FastThresholdSeconds = 600
	SlowThresholdSeconds = 1800
)

// Shift boundaries as [start, end) hours.
const (
	lunchStartHour  = 10
	lunchEndHour    = 15
	dinnerStartHour = 17
	dinnerEndHour   = 22
)

// RawEvent is one row of the order event log as handed over by a source.
// Region, Menu, Rider and Shift are optional dimensions used by the forecast
// and shift reports; the delivery-time pipeline ignores them. Shift is the
// source's own shift label, if it exports one.
type RawEvent struct {
	Timestamp time.Time `json:"timestamp"`
	OrderID   string    `json:"order_id"`
	Kind      string    `json:"event_type"`
	DateTag   string    `json:"date_tag"`

	Region string `json:"region,omitempty"`
	Menu   string `json:"menu,omitempty"`
	Rider  string `json:"rider,omitempty"`
	Shift  string `json:"shift,omitempty"`
}

// BucketForHour maps a wall-clock hour to its shift.
func BucketForHour(hour int) Bucket {
	switch {
	case hour >= lunchStartHour && hour < lunchEndHour:
		return BucketLunch
	case hour >= dinnerStartHour && hour < dinnerEndHour:
		return BucketDinner
	default:
		return BucketExcluded
	}
}

// ParseBucket accepts "lunch"/"dinner"/"other" in any case, and the Korean
// shift labels used in dispatch exports.
func ParseBucket(s string) (Bucket, bool) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case string(BucketLunch), "점심":
		return BucketLunch, true
	case string(BucketDinner), "저녁":
		return BucketDinner, true
	case string(BucketExcluded), "기타":
		return BucketExcluded, true
	}
	return "", false
}

// WallClock drops t's zone and offset, keeping the clock reading as a UTC
// value. Storage round trips then return the same hour the source reported.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func bucketRank(b Bucket) int {
	switch b {
	case BucketLunch:
		return 0
	case BucketDinner:
		return 1
	default:
		return 2
	}
}

// IsAccepted reports whether kind marks an order as accepted.
// The English alias is accepted for sources that export translated labels.
func IsAccepted(kind string) bool {
	k := strings.TrimSpace(kind)
	return k == KindAccepted || strings.EqualFold(k, "accepted")
}

// IsCompleted reports whether kind marks a delivery as completed.
func IsCompleted(kind string) bool {
	k := strings.TrimSpace(kind)
	return k == KindCompleted || strings.EqualFold(k, "completed")
}

func isPairable(kind string) bool {
	return IsAccepted(kind) || IsCompleted(kind)
}
