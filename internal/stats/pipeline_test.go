package stats

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day1 = "2024-05-01"

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	require.NoError(t, err)
	return ts
}

func ev(t *testing.T, order, kind, ts string) RawEvent {
	t.Helper()
	stamp := at(t, ts)
	return RawEvent{Timestamp: stamp, OrderID: order, Kind: kind, DateTag: stamp.Format("2006-01-02")}
}

func findRow(rows []AggregateRow, date string, b Bucket) *AggregateRow {
	for i := range rows {
		if rows[i].DateTag == date && rows[i].Bucket == b {
			return &rows[i]
		}
	}
	return nil
}

func TestCompute_FastLunchDelivery(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "O1", KindAccepted, day1+" 10:00:00"),
		ev(t, "O1", KindCompleted, day1+" 10:05:00"),
	})

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, day1, r.DateTag)
	assert.Equal(t, BucketLunch, r.Bucket)
	assert.Equal(t, 1, r.TotalOrders)
	assert.Equal(t, 1, r.UnderFastOrders)
	assert.Equal(t, 0, r.OverSlowOrders)
	assert.Equal(t, 5.0, r.AvgMinutes)
	assert.Equal(t, 5.0, r.MinMinutes)
	assert.Equal(t, 5.0, r.MaxMinutes)
	assert.Equal(t, 100.0, r.UnderFastRatio)
	assert.Equal(t, 0.0, r.OverSlowRatio)
	assert.True(t, r.HasElapsed)
}

func TestCompute_SlowLunchDelivery(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "O1", KindAccepted, day1+" 10:00:00"),
		ev(t, "O1", KindCompleted, day1+" 10:35:00"),
	})

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, 0, r.UnderFastOrders)
	assert.Equal(t, 1, r.OverSlowOrders)
	assert.Equal(t, 35.0, r.AvgMinutes)
	assert.Equal(t, 0.0, r.UnderFastRatio)
	assert.Equal(t, 100.0, r.OverSlowRatio)
}

func TestCompute_AcceptedOnlyCountsTowardTotal(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "O2", KindAccepted, day1+" 18:00:00"),
	})

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, BucketDinner, r.Bucket)
	assert.Equal(t, 1, r.TotalOrders)
	assert.Equal(t, 0, r.UnderFastOrders)
	assert.Equal(t, 0, r.OverSlowOrders)
	assert.False(t, r.HasElapsed)
	assert.Equal(t, 0.0, r.AvgMinutes)
	assert.Equal(t, 0.0, r.UnderFastRatio)
	assert.Equal(t, 0.0, r.OverSlowRatio)
}

func TestCompute_BetweenShiftsExcluded(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "O3", KindAccepted, day1+" 16:00:00"),
		ev(t, "O3", KindCompleted, day1+" 16:10:00"),
	})
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
}

func TestCompute_CompletedOnlyCreatesNoRow(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "O4", KindCompleted, day1+" 12:00:00"),
	})
	assert.Empty(t, rows)
}

func TestCompute_ZeroFillWhenNothingFast(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "A", KindAccepted, day1+" 11:00:00"),
		ev(t, "A", KindCompleted, day1+" 11:11:40"), // 700s
		ev(t, "B", KindAccepted, day1+" 12:00:00"),
		ev(t, "B", KindCompleted, day1+" 12:15:00"), // 900s
	})

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, 2, r.TotalOrders)
	assert.Equal(t, 0, r.UnderFastOrders)
	assert.Equal(t, 0.0, r.UnderFastRatio)
	assert.Equal(t, 0, r.OverSlowOrders)
	assert.Equal(t, 13.33, r.AvgMinutes)
	assert.Equal(t, 11.67, r.MinMinutes)
	assert.Equal(t, 15.0, r.MaxMinutes)
}

func TestCompute_MixedBucket(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "A", KindAccepted, day1+" 11:00:00"),
		ev(t, "A", KindCompleted, day1+" 11:05:00"), // 300s, fast
		ev(t, "B", KindAccepted, day1+" 11:00:00"),
		ev(t, "B", KindCompleted, day1+" 11:20:00"), // 1200s
		ev(t, "C", KindAccepted, day1+" 11:00:00"),
		ev(t, "C", KindCompleted, day1+" 11:30:00"), // 1800s, slow (inclusive)
		ev(t, "D", KindAccepted, day1+" 11:00:00"),  // never completed
	})

	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, 4, r.TotalOrders)
	assert.Equal(t, 1, r.UnderFastOrders)
	assert.Equal(t, 1, r.OverSlowOrders)
	assert.Equal(t, 25.0, r.UnderFastRatio)
	assert.Equal(t, 25.0, r.OverSlowRatio)
	assert.Equal(t, 18.33, r.AvgMinutes)
	assert.Equal(t, 5.0, r.MinMinutes)
	assert.Equal(t, 30.0, r.MaxMinutes)
}

func TestCompute_FastThresholdInclusive(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "A", KindAccepted, day1+" 19:00:00"),
		ev(t, "A", KindCompleted, day1+" 19:10:00"), // exactly 600s
		ev(t, "B", KindAccepted, day1+" 19:00:00"),
		ev(t, "B", KindCompleted, day1+" 19:10:01"),
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].UnderFastOrders)
	assert.Equal(t, 50.0, rows[0].UnderFastRatio)
}

func TestCompute_DuplicateEventsUseEarliest(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "A", KindCompleted, day1+" 11:40:00"),
		ev(t, "A", KindAccepted, day1+" 11:10:00"),
		ev(t, "A", KindCompleted, day1+" 11:15:00"),
		ev(t, "A", KindAccepted, day1+" 11:00:00"),
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].TotalOrders)
	assert.Equal(t, 15.0, rows[0].AvgMinutes)
}

func TestCompute_NegativeElapsedPassesThrough(t *testing.T) {
	records := Records([]RawEvent{
		ev(t, "A", KindAccepted, day1+" 11:10:00"),
		ev(t, "A", KindCompleted, day1+" 11:00:00"),
	})
	require.Len(t, records, 1)
	require.NotNil(t, records[0].ElapsedSeconds)
	assert.Equal(t, -600.0, *records[0].ElapsedSeconds)

	rows := Finalize(Aggregate(records))
	require.Len(t, rows, 1)
	assert.Equal(t, -10.0, rows[0].AvgMinutes)
}

func TestCompute_OtherKindsIgnored(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "A", KindAccepted, day1+" 11:00:00"),
		ev(t, "A", "배차 완료", day1+" 11:01:00"),
		ev(t, "A", "픽업 완료", day1+" 11:03:00"),
		ev(t, "A", KindCompleted, day1+" 11:08:00"),
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 8.0, rows[0].AvgMinutes)
}

func TestCompute_EnglishKindAliases(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "A", "Accepted", day1+" 11:00:00"),
		ev(t, "A", "completed", day1+" 11:08:00"),
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 8.0, rows[0].AvgMinutes)
}

func TestCompute_DateTagDrivesGrouping(t *testing.T) {
	a := ev(t, "A", KindAccepted, day1+" 21:50:00")
	b := ev(t, "A", KindCompleted, day1+" 21:58:00")
	a.DateTag, b.DateTag = "shift-7", "shift-7"
	rows := Compute([]RawEvent{a, b})
	require.Len(t, rows, 1)
	assert.Equal(t, "shift-7", rows[0].DateTag)
}

func TestCompute_SortedByDateThenBucket(t *testing.T) {
	rows := Compute([]RawEvent{
		ev(t, "A", KindAccepted, "2024-05-02 18:00:00"),
		ev(t, "B", KindAccepted, "2024-05-02 11:00:00"),
		ev(t, "C", KindAccepted, "2024-05-01 19:00:00"),
		ev(t, "D", KindAccepted, "2024-05-01 13:00:00"),
	})
	require.Len(t, rows, 4)
	got := make([]string, 0, len(rows))
	for _, r := range rows {
		got = append(got, r.DateTag+"/"+string(r.Bucket))
	}
	assert.Equal(t, []string{
		"2024-05-01/lunch", "2024-05-01/dinner",
		"2024-05-02/lunch", "2024-05-02/dinner",
	}, got)
}

func TestCompute_EmptyInput(t *testing.T) {
	rows := Compute(nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func sampleLog(t *testing.T) []RawEvent {
	t.Helper()
	var events []RawEvent
	hours := []int{9, 10, 11, 14, 15, 16, 17, 18, 21, 22}
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		h := hours[r.Intn(len(hours))]
		day := 1 + r.Intn(3)
		start := time.Date(2024, 5, day, h, r.Intn(60), r.Intn(60), 0, time.UTC)
		id := fmt.Sprintf("O%03d", i)
		tag := start.Format("2006-01-02")
		events = append(events, RawEvent{Timestamp: start, OrderID: id, Kind: KindAccepted, DateTag: tag})
		if r.Intn(5) > 0 {
			done := start.Add(time.Duration(r.Intn(3000)) * time.Second)
			events = append(events, RawEvent{Timestamp: done, OrderID: id, Kind: KindCompleted, DateTag: tag})
		}
		if r.Intn(10) == 0 {
			events = append(events, RawEvent{Timestamp: start.Add(time.Minute), OrderID: id, Kind: "pickup", DateTag: tag})
		}
	}
	return events
}

func TestCompute_Idempotent(t *testing.T) {
	events := sampleLog(t)
	assert.Equal(t, Compute(events), Compute(events))
}

func TestCompute_OrderIndependent(t *testing.T) {
	events := sampleLog(t)
	want := Compute(events)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		shuffled := append([]RawEvent(nil), events...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Compute(shuffled))
	}
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	events := sampleLog(t)
	snapshot := append([]RawEvent(nil), events...)
	_ = Compute(events)
	assert.Equal(t, snapshot, events)
}

func TestCompute_RatioBoundsAndExcludedBuckets(t *testing.T) {
	for _, r := range Compute(sampleLog(t)) {
		assert.NotEqual(t, BucketExcluded, r.Bucket)
		require.Greater(t, r.TotalOrders, 0)
		assert.GreaterOrEqual(t, r.UnderFastRatio, 0.0)
		assert.LessOrEqual(t, r.UnderFastRatio, 100.0)
		assert.GreaterOrEqual(t, r.OverSlowRatio, 0.0)
		assert.LessOrEqual(t, r.OverSlowRatio, 100.0)
		assert.LessOrEqual(t, r.UnderFastOrders+r.OverSlowOrders, r.TotalOrders)
	}
}

func TestBucketForHour_Exclusive(t *testing.T) {
	for h := 0; h < 24; h++ {
		b := BucketForHour(h)
		switch {
		case h >= 10 && h < 15:
			assert.Equal(t, BucketLunch, b, "hour %d", h)
		case h >= 17 && h < 22:
			assert.Equal(t, BucketDinner, b, "hour %d", h)
		default:
			assert.Equal(t, BucketExcluded, b, "hour %d", h)
		}
	}
}

func TestFinalize_ZeroTotalRatioIsZero(t *testing.T) {
	k := GroupKey{DateTag: day1, Bucket: BucketLunch}
	rows := Finalize(Partials{
		Counts: map[GroupKey]int{k: 0},
		Fast:   map[GroupKey]int{},
		Slow:   map[GroupKey]int{},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].UnderFastRatio)
	assert.Equal(t, 0.0, rows[0].OverSlowRatio)
}

func TestFinalize_DropsPartialKeysWithoutAnchor(t *testing.T) {
	k := GroupKey{DateTag: day1, Bucket: BucketDinner}
	rows := Finalize(Partials{
		Counts:  map[GroupKey]int{},
		Fast:    map[GroupKey]int{k: 1},
		Elapsed: map[GroupKey]ElapsedStats{k: {N: 1, AvgMinutes: 3}},
	})
	assert.Empty(t, rows)
}
