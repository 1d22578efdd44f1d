package stats

import (
	"math"
	"sort"
	"time"
)

// Summary holds the dashboard headline figures for a set of rows.
type Summary struct {
	TotalOrders        int     `json:"total_orders"`
	MeanUnderFastRatio float64 `json:"mean_under_fast_ratio"`
	MeanOverSlowRatio  float64 `json:"mean_over_slow_ratio"`
	MeanAvgMinutes     float64 `json:"mean_avg_minutes"`
	MeanAvgDisplay     string  `json:"mean_avg_display"`
	Days               int     `json:"days"`
}

// FilterBuckets keeps rows whose bucket is listed. An empty list keeps all.
func FilterBuckets(rows []AggregateRow, buckets []Bucket) []AggregateRow {
	out := make([]AggregateRow, 0, len(rows))
	if len(buckets) == 0 {
		return append(out, rows...)
	}
	want := make(map[Bucket]bool, len(buckets))
	for _, b := range buckets {
		want[b] = true
	}
	for _, r := range rows {
		if want[r.Bucket] {
			out = append(out, r)
		}
	}
	return out
}

// Summarize sums order counts and averages the per-row ratios. Rows without
// elapsed data do not drag the mean delivery time toward zero.
func Summarize(rows []AggregateRow) Summary {
	var s Summary
	if len(rows) == 0 {
		s.MeanAvgDisplay = FormatMinutes(0)
		return s
	}
	days := make(map[string]bool)
	var fastSum, slowSum, avgSum float64
	var withElapsed int
	for _, r := range rows {
		days[r.DateTag] = true
		s.TotalOrders += r.TotalOrders
		fastSum += r.UnderFastRatio
		slowSum += r.OverSlowRatio
		if r.HasElapsed {
			avgSum += r.AvgMinutes
			withElapsed++
		}
	}
	n := float64(len(rows))
	s.MeanUnderFastRatio = Round2(fastSum / n)
	s.MeanOverSlowRatio = Round2(slowSum / n)
	if withElapsed > 0 {
		s.MeanAvgMinutes = Round2(avgSum / float64(withElapsed))
	}
	s.MeanAvgDisplay = FormatMinutes(s.MeanAvgMinutes)
	s.Days = len(days)
	return s
}

// DayFastest is the quickest delivery of a day.
type DayFastest struct {
	DateTag string  `json:"date_tag"`
	Seconds float64 `json:"seconds"`
	Minutes float64 `json:"minutes"`
	Display string  `json:"display"`
}

// FastestPerDay returns the minimum elapsed time per date across both
// shifts. Days with no completed pair are left out.
func FastestPerDay(records []OrderRecord) []DayFastest {
	best := make(map[string]float64)
	for _, r := range records {
		if r.ElapsedSeconds == nil {
			continue
		}
		secs := *r.ElapsedSeconds
		if cur, ok := best[r.DateTag]; !ok || secs < cur {
			best[r.DateTag] = secs
		}
	}
	out := make([]DayFastest, 0, len(best))
	for d, secs := range best {
		m := Round2(secs / 60)
		out = append(out, DayFastest{DateTag: d, Seconds: secs, Minutes: m, Display: FormatMinutes(m)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTag < out[j].DateTag })
	return out
}

// OrderDetail is one order of a day with its delivery time, if known.
type OrderDetail struct {
	OrderID string   `json:"order_id"`
	Bucket  Bucket   `json:"time_bucket"`
	Minutes *float64 `json:"delivery_minutes"`
}

// OrderDetails lists the orders of dateTag, quickest first. Orders without
// a delivery time come last.
func OrderDetails(records []OrderRecord, dateTag string) []OrderDetail {
	out := make([]OrderDetail, 0)
	for _, r := range records {
		if r.DateTag != dateTag {
			continue
		}
		d := OrderDetail{OrderID: r.OrderID, Bucket: r.Bucket}
		if r.ElapsedSeconds != nil {
			m := Round2(*r.ElapsedSeconds / 60)
			d.Minutes = &m
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Minutes, out[j].Minutes
		switch {
		case a == nil && b == nil:
			return out[i].OrderID < out[j].OrderID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out
}

// ShiftDuration is how long a rider worked in one shift: from the first
// order accepted to the last delivery completed.
type ShiftDuration struct {
	Rider         string    `json:"rider"`
	DateTag       string    `json:"date"`
	Bucket        Bucket    `json:"time_zone"`
	FirstAccepted time.Time `json:"first_order_time"`
	LastCompleted time.Time `json:"last_delivery_time"`
	Minutes       int       `json:"duration_min"`
}

// ShiftDurations reduces events to one row per (rider, date, shift). Events
// without a rider are ignored, as are groups missing either side.
// Minutes are truncated toward negative infinity.
//
// Unlike the delivery pipeline nothing is dropped for falling outside the
// shift windows: a delivery completed at 15:05 still closes the lunch shift
// its order was accepted in. See shiftOf.
func ShiftDurations(events []RawEvent) []ShiftDuration {
	type key struct {
		rider, date string
		bucket      Bucket
	}
	type span struct {
		first, last *time.Time
	}

	acceptedIn := acceptedShifts(events)
	spans := make(map[key]*span)
	for _, e := range events {
		if e.Rider == "" || e.Timestamp.IsZero() {
			continue
		}
		accepted := IsAccepted(e.Kind)
		if !accepted && !IsCompleted(e.Kind) {
			continue
		}
		date := NormalizeDateTag(e.DateTag)
		k := key{rider: e.Rider, date: date, bucket: shiftOf(e, date, acceptedIn)}
		s, ok := spans[k]
		if !ok {
			s = &span{}
			spans[k] = s
		}
		ts := e.Timestamp
		if accepted {
			if s.first == nil || ts.Before(*s.first) {
				s.first = &ts
			}
		} else if s.last == nil || ts.After(*s.last) {
			s.last = &ts
		}
	}

	out := make([]ShiftDuration, 0, len(spans))
	for k, s := range spans {
		if s.first == nil || s.last == nil {
			continue
		}
		mins := math.Floor(s.last.Sub(*s.first).Seconds() / 60)
		out = append(out, ShiftDuration{
			Rider:         k.rider,
			DateTag:       k.date,
			Bucket:        k.bucket,
			FirstAccepted: *s.first,
			LastCompleted: *s.last,
			Minutes:       int(mins),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DateTag != out[j].DateTag {
			return out[i].DateTag < out[j].DateTag
		}
		if out[i].Rider != out[j].Rider {
			return out[i].Rider < out[j].Rider
		}
		return bucketRank(out[i].Bucket) < bucketRank(out[j].Bucket)
	})
	return out
}

type orderDay struct{ order, date string }

// acceptedShifts maps each order to the shift of its earliest acceptance.
func acceptedShifts(events []RawEvent) map[orderDay]Bucket {
	first := make(map[orderDay]time.Time)
	out := make(map[orderDay]Bucket)
	for _, e := range events {
		if !IsAccepted(e.Kind) || e.Timestamp.IsZero() {
			continue
		}
		k := orderDay{order: e.OrderID, date: NormalizeDateTag(e.DateTag)}
		if t, ok := first[k]; ok && !e.Timestamp.Before(t) {
			continue
		}
		first[k] = e.Timestamp
		out[k] = sourceShift(e)
	}
	return out
}

// shiftOf places an event in a shift. A label exported by the source wins;
// a completion otherwise follows its order's acceptance; anything else goes
// by the clock hour.
func shiftOf(e RawEvent, date string, acceptedIn map[orderDay]Bucket) Bucket {
	if _, labelled := ParseBucket(e.Shift); !labelled && IsCompleted(e.Kind) {
		if b, ok := acceptedIn[orderDay{order: e.OrderID, date: date}]; ok {
			return b
		}
	}
	return sourceShift(e)
}

func sourceShift(e RawEvent) Bucket {
	if b, ok := ParseBucket(e.Shift); ok {
		return b
	}
	return BucketForHour(e.Timestamp.Hour())
}
