// Package stats reduces an order event log to per-order delivery records and
// rolls them up into per-day, per-shift delivery statistics.
//
// Every function here is pure: inputs are never mutated and each call
// returns freshly allocated results.
package stats

// Records runs normalization and pairing.
func Records(events []RawEvent) []OrderRecord {
	return PairOrders(PairableEvents(Normalize(events)))
}

// Compute runs the whole pipeline and returns the summary table.
func Compute(events []RawEvent) []AggregateRow {
	return Finalize(Aggregate(Records(events)))
}
