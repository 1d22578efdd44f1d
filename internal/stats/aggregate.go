package stats

import "math"

// GroupKey is one (date, shift) cell of the summary table.
type GroupKey struct {
	DateTag string
	Bucket  Bucket
}

// ElapsedStats holds delivery-time statistics in minutes, rounded to two
// decimals. N is the number of records with a defined elapsed time.
type ElapsedStats struct {
	N          int
	AvgMinutes float64
	MinMinutes float64
	MaxMinutes float64
}

// Partials are the per-metric tables the finalizer joins. Counts is the
// anchor: it has a key for every group with at least one accepted order.
// The other tables only hold keys that have something to report.
type Partials struct {
	Counts  map[GroupKey]int
	Fast    map[GroupKey]int
	Slow    map[GroupKey]int
	Elapsed map[GroupKey]ElapsedStats
}

// Aggregate groups order records by (date, shift).
//
// total_orders counts records with an accepted event, whether or not the
// order completed. Fast, slow and elapsed statistics only use records whose
// elapsed time is defined.
func Aggregate(records []OrderRecord) Partials {
	p := Partials{
		Counts:  make(map[GroupKey]int),
		Fast:    make(map[GroupKey]int),
		Slow:    make(map[GroupKey]int),
		Elapsed: make(map[GroupKey]ElapsedStats),
	}

	type acc struct {
		n             int
		sum, min, max float64
	}
	elapsed := make(map[GroupKey]*acc)

	for _, r := range records {
		k := GroupKey{DateTag: r.DateTag, Bucket: r.Bucket}
		if r.AcceptedAt != nil {
			p.Counts[k]++
		}
		if r.ElapsedSeconds == nil {
			continue
		}
		secs := *r.ElapsedSeconds
		if secs <= FastThresholdSeconds {
			p.Fast[k]++
		}
		if secs >= SlowThresholdSeconds {
			p.Slow[k]++
		}
		a, ok := elapsed[k]
		if !ok {
			a = &acc{min: secs, max: secs}
			elapsed[k] = a
		}
		a.n++
		a.sum += secs
		a.min = math.Min(a.min, secs)
		a.max = math.Max(a.max, secs)
	}

	for k, a := range elapsed {
		p.Elapsed[k] = ElapsedStats{
			N:          a.n,
			AvgMinutes: Round2(a.sum / float64(a.n) / 60),
			MinMinutes: Round2(a.min / 60),
			MaxMinutes: Round2(a.max / 60),
		}
	}
	return p
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
