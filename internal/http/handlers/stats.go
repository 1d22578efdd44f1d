package handlers

import (
	"time"

	"github.com/valyala/fasthttp"

	"deliverystats/internal/source"
	"deliverystats/internal/stats"
)

// deliveryReport is the payload of the delivery table and the dashboard.
type deliveryReport struct {
	Rows     []stats.AggregateRow `json:"rows"`
	Summary  stats.Summary        `json:"summary"`
	LoadedAt *time.Time           `json:"loaded_at,omitempty"`
}

func buildDeliveryReport(events []stats.RawEvent, buckets []stats.Bucket) deliveryReport {
	start := time.Now()
	defer observePipeline("delivery", start)

	rows := stats.FilterBuckets(stats.Compute(events), buckets)
	return deliveryReport{Rows: rows, Summary: stats.Summarize(rows)}
}

// loadEvents reads the snapshot, answering the request itself on failure.
func loadEvents(ctx *fasthttp.RequestCtx, src source.Source) ([]stats.RawEvent, bool) {
	events, err := src.Load(ctx)
	if err != nil {
		sourceError(ctx, err)
		return nil, false
	}
	return events, true
}

func bucketsOrFail(ctx *fasthttp.RequestCtx) ([]stats.Bucket, bool) {
	buckets, err := bucketsFromQuery(ctx.QueryArgs())
	if err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
		return nil, false
	}
	return buckets, true
}

// DeliveryStats serves the per (date, shift) table. ?bucket= may repeat.
func DeliveryStats(src source.Source) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		buckets, ok := bucketsOrFail(ctx)
		if !ok {
			return
		}
		events, ok := loadEvents(ctx, src)
		if !ok {
			return
		}
		report := buildDeliveryReport(events, buckets)
		if c, ok := src.(*source.Cached); ok {
			if t := c.LoadedAt(); !t.IsZero() {
				report.LoadedAt = &t
			}
		}
		jsonResponse(ctx, report)
	}
}

func SummaryStats(src source.Source) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		buckets, ok := bucketsOrFail(ctx)
		if !ok {
			return
		}
		events, ok := loadEvents(ctx, src)
		if !ok {
			return
		}
		jsonResponse(ctx, buildDeliveryReport(events, buckets).Summary)
	}
}

func FastestStats(src source.Source) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		events, ok := loadEvents(ctx, src)
		if !ok {
			return
		}
		start := time.Now()
		days := stats.FastestPerDay(stats.Records(events))
		observePipeline("fastest", start)
		jsonResponse(ctx, map[string]any{"days": days})
	}
}

// OrderStats lists one day's orders, quickest first. ?date= is required.
func OrderStats(src source.Source) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		date := stats.NormalizeDateTag(string(ctx.QueryArgs().Peek("date")))
		if date == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "date is required")
			return
		}
		events, ok := loadEvents(ctx, src)
		if !ok {
			return
		}
		start := time.Now()
		orders := stats.OrderDetails(stats.Records(events), date)
		observePipeline("orders", start)
		jsonResponse(ctx, map[string]any{"date": date, "orders": orders})
	}
}

func ShiftStats(src source.Source) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		events, ok := loadEvents(ctx, src)
		if !ok {
			return
		}
		start := time.Now()
		shifts := stats.ShiftDurations(events)
		observePipeline("shifts", start)
		jsonResponse(ctx, map[string]any{"shifts": shifts})
	}
}
