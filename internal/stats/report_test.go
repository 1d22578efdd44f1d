package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{5, "5 min 0 sec"},
		{1.5, "1 min 30 sec"},
		{0, "0 min 0 sec"},
		{1.15, "1 min 9 sec"},
		{61.25, "61 min 15 sec"},
		{18.33, "18 min 19 sec"},
		{-3, "0 min 0 sec"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMinutes(tt.in), "FormatMinutes(%v)", tt.in)
	}
}

func TestParseRow(t *testing.T) {
	e, ok := ParseRow("2024-05-01 11:02:03", " O1 ", KindAccepted, "2024-05-01 00:00:00")
	require.True(t, ok)
	assert.Equal(t, "O1", e.OrderID)
	assert.Equal(t, "2024-05-01", e.DateTag)
	assert.Equal(t, 11, e.Timestamp.Hour())

	e, ok = ParseRow("2024-05-01T18:30:00Z", "O2", KindCompleted, "")
	require.True(t, ok)
	assert.Equal(t, "2024-05-01", e.DateTag)

	_, ok = ParseRow("yesterday", "O3", KindAccepted, "2024-05-01")
	assert.False(t, ok)

	_, ok = ParseRow("2024-05-01 11:00:00", "", KindAccepted, "2024-05-01")
	assert.False(t, ok)
}

func TestNormalize_KeepsOtherKindsAndDropsExcluded(t *testing.T) {
	events := []RawEvent{
		ev(t, "A", KindAccepted, day1+" 09:59:59"),
		ev(t, "A", "pickup", day1+" 10:00:00"),
		ev(t, "A", KindCompleted, day1+" 22:00:00"),
		{OrderID: "Z", Kind: KindAccepted, DateTag: day1},
	}
	norm := Normalize(events)
	require.Len(t, norm, 1)
	assert.Equal(t, "pickup", norm[0].Kind)
	assert.Equal(t, BucketLunch, norm[0].Bucket)
	assert.Empty(t, PairableEvents(norm))
}

func TestParseBucket(t *testing.T) {
	b, ok := ParseBucket(" Lunch ")
	assert.True(t, ok)
	assert.Equal(t, BucketLunch, b)
	_, ok = ParseBucket("brunch")
	assert.False(t, ok)
}

func summaryRows(t *testing.T) []AggregateRow {
	t.Helper()
	return Compute([]RawEvent{
		ev(t, "A", KindAccepted, day1+" 11:00:00"),
		ev(t, "A", KindCompleted, day1+" 11:05:00"),
		ev(t, "B", KindAccepted, day1+" 11:00:00"),
		ev(t, "B", KindCompleted, day1+" 11:20:00"),
		ev(t, "C", KindAccepted, day1+" 11:00:00"),
		ev(t, "C", KindCompleted, day1+" 11:30:00"),
		ev(t, "D", KindAccepted, day1+" 11:00:00"),
		ev(t, "E", KindAccepted, day1+" 18:00:00"),
	})
}

func TestFilterBuckets(t *testing.T) {
	rows := summaryRows(t)
	require.Len(t, rows, 2)

	lunch := FilterBuckets(rows, []Bucket{BucketLunch})
	require.Len(t, lunch, 1)
	assert.Equal(t, BucketLunch, lunch[0].Bucket)

	assert.Len(t, FilterBuckets(rows, nil), 2)
	assert.NotNil(t, findRow(rows, day1, BucketDinner))
}

func TestSummarize(t *testing.T) {
	s := Summarize(summaryRows(t))
	assert.Equal(t, 5, s.TotalOrders)
	assert.Equal(t, 12.5, s.MeanUnderFastRatio)
	assert.Equal(t, 12.5, s.MeanOverSlowRatio)
	assert.Equal(t, 18.33, s.MeanAvgMinutes)
	assert.Equal(t, "18 min 19 sec", s.MeanAvgDisplay)
	assert.Equal(t, 1, s.Days)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.TotalOrders)
	assert.Equal(t, "0 min 0 sec", empty.MeanAvgDisplay)
}

func TestFastestPerDay(t *testing.T) {
	records := Records([]RawEvent{
		ev(t, "A", KindAccepted, "2024-05-01 11:00:00"),
		ev(t, "A", KindCompleted, "2024-05-01 11:12:00"),
		ev(t, "B", KindAccepted, "2024-05-01 19:00:00"),
		ev(t, "B", KindCompleted, "2024-05-01 19:07:30"),
		ev(t, "C", KindAccepted, "2024-05-02 12:00:00"),
		ev(t, "D", KindAccepted, "2024-05-03 12:00:00"),
		ev(t, "D", KindCompleted, "2024-05-03 12:40:00"),
	})
	got := FastestPerDay(records)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-05-01", got[0].DateTag)
	assert.Equal(t, 450.0, got[0].Seconds)
	assert.Equal(t, 7.5, got[0].Minutes)
	assert.Equal(t, "7 min 30 sec", got[0].Display)
	assert.Equal(t, "2024-05-03", got[1].DateTag)
	assert.Equal(t, 40.0, got[1].Minutes)
}

func TestOrderDetails(t *testing.T) {
	records := Records([]RawEvent{
		ev(t, "slow", KindAccepted, day1+" 11:00:00"),
		ev(t, "slow", KindCompleted, day1+" 11:45:00"),
		ev(t, "open", KindAccepted, day1+" 11:00:00"),
		ev(t, "fast", KindAccepted, day1+" 18:00:00"),
		ev(t, "fast", KindCompleted, day1+" 18:04:00"),
		ev(t, "other-day", KindAccepted, "2024-05-02 11:00:00"),
	})
	got := OrderDetails(records, day1)
	require.Len(t, got, 3)
	assert.Equal(t, "fast", got[0].OrderID)
	require.NotNil(t, got[0].Minutes)
	assert.Equal(t, 4.0, *got[0].Minutes)
	assert.Equal(t, "slow", got[1].OrderID)
	assert.Equal(t, "open", got[2].OrderID)
	assert.Nil(t, got[2].Minutes)

	assert.Empty(t, OrderDetails(records, "1999-01-01"))
}

func TestShiftDurations(t *testing.T) {
	withRider := func(e RawEvent, rider string) RawEvent {
		e.Rider = rider
		return e
	}
	events := []RawEvent{
		withRider(ev(t, "A", KindAccepted, day1+" 11:00:00"), "01012345678"),
		withRider(ev(t, "A", KindCompleted, day1+" 11:20:00"), "01012345678"),
		withRider(ev(t, "B", KindAccepted, day1+" 10:00:00"), "01012345678"),
		withRider(ev(t, "B", KindCompleted, day1+" 12:45:30"), "01012345678"),
		withRider(ev(t, "C", KindAccepted, day1+" 18:00:00"), "01099998888"),
		ev(t, "D", KindAccepted, day1+" 18:00:00"),
		ev(t, "D", KindCompleted, day1+" 18:30:00"),
	}
	got := ShiftDurations(events)
	require.Len(t, got, 1)
	assert.Equal(t, "01012345678", got[0].Rider)
	assert.Equal(t, BucketLunch, got[0].Bucket)
	assert.Equal(t, 165, got[0].Minutes)
	assert.Equal(t, 10, got[0].FirstAccepted.Hour())
}

func TestShiftDurations_CompletionAfterShiftEnd(t *testing.T) {
	const rider = "01012345678"
	riderEv := func(id, kind, clock string) RawEvent {
		e := ev(t, id, kind, day1+" "+clock)
		e.Rider = rider
		return e
	}

	got := ShiftDurations([]RawEvent{
		riderEv("A", KindAccepted, "14:40:00"),
		riderEv("A", KindCompleted, "15:05:00"),
	})
	require.Len(t, got, 1)
	assert.Equal(t, BucketLunch, got[0].Bucket)
	assert.Equal(t, 25, got[0].Minutes)
	assert.Equal(t, 15, got[0].LastCompleted.Hour())

	// The late completion extends the shift instead of being dropped.
	got = ShiftDurations([]RawEvent{
		riderEv("A", KindAccepted, "12:00:00"),
		riderEv("A", KindCompleted, "12:20:00"),
		riderEv("B", KindAccepted, "14:50:00"),
		riderEv("B", KindCompleted, "15:10:00"),
	})
	require.Len(t, got, 1)
	assert.Equal(t, 190, got[0].Minutes)
}

func TestShiftDurations_SourceShiftLabel(t *testing.T) {
	e1 := ev(t, "A", KindAccepted, day1+" 16:30:00")
	e2 := ev(t, "A", KindCompleted, day1+" 17:05:00")
	for _, e := range []*RawEvent{&e1, &e2} {
		e.Rider = "01099998888"
		e.Shift = "저녁"
	}
	got := ShiftDurations([]RawEvent{e1, e2})
	require.Len(t, got, 1)
	assert.Equal(t, BucketDinner, got[0].Bucket)
	assert.Equal(t, 35, got[0].Minutes)
}

func TestWallClock(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	in := time.Date(2024, 5, 1, 11, 30, 0, 0, kst)
	got := WallClock(in)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 11, got.Hour())
	assert.Equal(t, got, WallClock(got))
	// A zone-aware store hands the instant back in its own zone; UTC()
	// recovers the reading.
	assert.Equal(t, got, got.In(kst).UTC())
}
