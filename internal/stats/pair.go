package stats

import (
	"sort"
	"time"
)

// OrderKey identifies one order within one shift of one day.
type OrderKey struct {
	OrderID string `json:"order_id"`
	DateTag string `json:"date_tag"`
	Bucket  Bucket `json:"time_bucket"`
}

// OrderRecord is the paired view of an order. ElapsedSeconds is set only
// when both sides are present; negative values are passed through.
type OrderRecord struct {
	OrderKey
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ElapsedSeconds *float64   `json:"elapsed_seconds,omitempty"`
}

// HasElapsed reports whether the record contributes to delivery-time stats.
func (r OrderRecord) HasElapsed() bool {
	return r.ElapsedSeconds != nil
}

// PairOrders reduces accepted/completed events to one record per OrderKey,
// taking the earliest timestamp of each kind. Events of any other kind are
// ignored. The result is sorted by date, bucket and order id.
func PairOrders(events []NormalizedEvent) []OrderRecord {
	byKey := make(map[OrderKey]*OrderRecord)
	for _, e := range events {
		accepted := IsAccepted(e.Kind)
		if !accepted && !IsCompleted(e.Kind) {
			continue
		}
		k := OrderKey{OrderID: e.OrderID, DateTag: e.DateTag, Bucket: e.Bucket}
		rec, ok := byKey[k]
		if !ok {
			rec = &OrderRecord{OrderKey: k}
			byKey[k] = rec
		}
		ts := e.Timestamp
		if accepted {
			if rec.AcceptedAt == nil || ts.Before(*rec.AcceptedAt) {
				rec.AcceptedAt = &ts
			}
		} else if rec.CompletedAt == nil || ts.Before(*rec.CompletedAt) {
			rec.CompletedAt = &ts
		}
	}

	out := make([]OrderRecord, 0, len(byKey))
	for _, rec := range byKey {
		if rec.AcceptedAt != nil && rec.CompletedAt != nil {
			secs := rec.CompletedAt.Sub(*rec.AcceptedAt).Seconds()
			rec.ElapsedSeconds = &secs
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return orderKeyLess(out[i].OrderKey, out[j].OrderKey)
	})
	return out
}

func orderKeyLess(a, b OrderKey) bool {
	if a.DateTag != b.DateTag {
		return a.DateTag < b.DateTag
	}
	if a.Bucket != b.Bucket {
		return bucketRank(a.Bucket) < bucketRank(b.Bucket)
	}
	return a.OrderID < b.OrderID
}
