package stats

import "sort"

// AggregateRow is one line of the delivery summary table.
// HasElapsed is false when no order in the cell both started and finished
// inside it; the minute columns are then 0.
type AggregateRow struct {
	DateTag         string  `json:"date_tag"`
	Bucket          Bucket  `json:"time_bucket"`
	TotalOrders     int     `json:"total_orders"`
	UnderFastOrders int     `json:"under_fast_orders"`
	OverSlowOrders  int     `json:"over_slow_orders"`
	AvgMinutes      float64 `json:"avg_minutes"`
	MinMinutes      float64 `json:"min_minutes"`
	MaxMinutes      float64 `json:"max_minutes"`
	UnderFastRatio  float64 `json:"under_fast_ratio"`
	OverSlowRatio   float64 `json:"over_slow_ratio"`
	HasElapsed      bool    `json:"has_elapsed"`
}

// Finalize left-joins the partial tables on the counts table, zero-fills
// missing metrics and derives the percentage ratios. Rows are sorted by
// date, then lunch before dinner.
func Finalize(p Partials) []AggregateRow {
	rows := make([]AggregateRow, 0, len(p.Counts))
	for k, total := range p.Counts {
		row := AggregateRow{
			DateTag:         k.DateTag,
			Bucket:          k.Bucket,
			TotalOrders:     total,
			UnderFastOrders: p.Fast[k],
			OverSlowOrders:  p.Slow[k],
		}
		if es, ok := p.Elapsed[k]; ok && es.N > 0 {
			row.HasElapsed = true
			row.AvgMinutes = es.AvgMinutes
			row.MinMinutes = es.MinMinutes
			row.MaxMinutes = es.MaxMinutes
		}
		row.UnderFastRatio = ratio(row.UnderFastOrders, total)
		row.OverSlowRatio = ratio(row.OverSlowOrders, total)
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DateTag != rows[j].DateTag {
			return rows[i].DateTag < rows[j].DateTag
		}
		return bucketRank(rows[i].Bucket) < bucketRank(rows[j].Bucket)
	})
	return rows
}

// ratio is count/total as a percentage; 0 when total is 0.
func ratio(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(count) / float64(total) * 100)
}
