package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"

	"deliverystats/internal/config"
	dbpkg "deliverystats/internal/db"
	httpctx "deliverystats/internal/http/ctx"
	"deliverystats/internal/source"
	"deliverystats/internal/stats"
)

// IngestEvent is one row pushed by a feeder. Timestamp accepts the same
// layouts as spreadsheet exports, e.g. "2024-05-01 11:03:00" or RFC 3339.
// The clock reading is what counts: an offset is accepted but not applied.
type IngestEvent struct {
	Timestamp  string         `json:"timestamp"`
	OrderID    string         `json:"order_id"`
	EventType  string         `json:"event_type"`
	DateTag    string         `json:"date_tag,omitempty"`
	Region     string         `json:"region,omitempty"`
	Menu       string         `json:"menu,omitempty"`
	Rider      string         `json:"rider,omitempty"`
	Shift      string         `json:"shift,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type ingestRequest struct {
	Events []IngestEvent `json:"events"`
}

// EventStore persists one ingest batch.
type EventStore func(ctx context.Context, events []dbpkg.OrderEvent) error

var (
	errInvalidBody = errors.New("invalid JSON body")
	errNoEvents    = errors.New("no events provided")
	errNoValid     = errors.New("no valid events after validation")
)

// parseIngest validates a request body and builds the rows to store. Rows
// without an order id or event type, or with an unparseable timestamp, are
// counted in skipped.
func parseIngest(body []byte, batchID string, now time.Time, retentionDays int) (rows []dbpkg.OrderEvent, skipped int, err error) {
	var payload ingestRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, 0, errInvalidBody
	}
	if len(payload.Events) == 0 {
		return nil, 0, errNoEvents
	}

	var expiresAt *time.Time
	if retentionDays > 0 {
		t := now.Add(time.Duration(retentionDays) * 24 * time.Hour)
		expiresAt = &t
	}

	rows = make([]dbpkg.OrderEvent, 0, len(payload.Events))
	for _, ev := range payload.Events {
		e, ok := stats.ParseRow(ev.Timestamp, ev.OrderID, ev.EventType, ev.DateTag)
		if !ok || e.Kind == "" {
			skipped++
			continue
		}
		attrs := datatypes.JSONMap{}
		for k, v := range ev.Attributes {
			attrs[k] = v
		}
		e.Region, e.Menu, e.Rider, e.Shift = ev.Region, ev.Menu, ev.Rider, ev.Shift
		row := source.ToOrderEvent(e)
		row.ExpiresAt = expiresAt
		row.BatchID = batchID
		row.Attributes = attrs
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, skipped, errNoValid
	}
	return rows, skipped, nil
}

// effectiveRetention prefers the key's own setting, capped at the global one.
func effectiveRetention(keyDays, globalDays int) int {
	if keyDays <= 0 || (globalDays > 0 && keyDays > globalDays) {
		return globalDays
	}
	return keyDays
}

// Ingest stores a batch of order events and drops the cached snapshot so the
// next report sees them.
func Ingest(store EventStore, cfg *config.Config, invalidate func()) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		retention := cfg.RetentionDays
		feeder := ""
		if ak, ok := httpctx.APIKeyFromCtx(ctx); ok && ak != nil {
			retention = effectiveRetention(ak.RetentionDays, cfg.RetentionDays)
			feeder = ak.Name
		}

		batchID := uuid.NewString()
		rows, skipped, err := parseIngest(ctx.PostBody(), batchID, time.Now(), retention)
		if skipped > 0 {
			skippedRows.WithLabelValues(feeder).Add(float64(skipped))
		}
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		if err := store(ctx, rows); err != nil {
			rid, _ := httpctx.RequestIDFromCtx(ctx)
			log.Printf("ingest batch %s failed rid=%s: %v", batchID, rid, err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist events")
			return
		}
		for _, r := range rows {
			ingestedEvents.WithLabelValues(feeder, r.EventType).Inc()
		}
		if invalidate != nil {
			invalidate()
		}

		ctx.SetStatusCode(fasthttp.StatusAccepted)
		jsonResponse(ctx, map[string]any{
			"status":   "accepted",
			"count":    len(rows),
			"skipped":  skipped,
			"batch_id": batchID,
		})
	}
}
