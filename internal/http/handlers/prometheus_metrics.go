package handlers

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
)

const metricsNamespace = "deliverystats"

var (
	ingestedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ingested_events_total",
			Help:      "Order events stored through the ingest endpoint.",
		},
		[]string{"feeder", "event_type"},
	)
	skippedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ingest_skipped_rows_total",
			Help:      "Ingest rows dropped for a missing field or bad timestamp.",
		},
		[]string{"feeder"},
	)
	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_runs_total",
			Help:      "Statistics computations by report.",
		},
		[]string{"report"},
	)
	pipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent computing a report from an event snapshot.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"report"},
	)
	sourceEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "source_events",
		Help:      "Events in the most recently loaded snapshot.",
	})
	sourceRefreshFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "source_refresh_failures_total",
		Help:      "Failed event source reloads.",
	})
	retentionDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "retention_deleted_events_total",
		Help:      "Expired events removed by the retention worker.",
	})

	registerOnce sync.Once
)

// InitPrometheusMetrics registers the collectors with the default registry.
// Safe to call more than once.
func InitPrometheusMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ingestedEvents,
			skippedRows,
			pipelineRuns,
			pipelineDuration,
			sourceEvents,
			sourceRefreshFailures,
			retentionDeleted,
		)
	})
}

// ObserveRefresh is meant for source.Cached.OnRefresh.
func ObserveRefresh(events int, err error) {
	if err != nil {
		sourceRefreshFailures.Inc()
		return
	}
	sourceEvents.Set(float64(events))
}

// ObserveRetention is meant for db.StartRetentionWorker.
func ObserveRetention(deleted int64) {
	retentionDeleted.Add(float64(deleted))
}

// observePipeline times one report computation.
func observePipeline(report string, start time.Time) {
	pipelineRuns.WithLabelValues(report).Inc()
	pipelineDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

// filterFamilies keeps the families whose name starts with prefix.
func filterFamilies(families []*dto.MetricFamily, prefix string) []*dto.MetricFamily {
	out := make([]*dto.MetricFamily, 0, len(families))
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), prefix) {
			out = append(out, mf)
		}
	}
	return out
}

// MetricsHandler writes the registry in the text exposition format. Only
// this service's families are shown unless ?all=1 is given.
func MetricsHandler(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		families, err := gatherer.Gather()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}
		if string(ctx.QueryArgs().Peek("all")) != "1" {
			families = filterFamilies(families, metricsNamespace+"_")
		}

		var buf bytes.Buffer
		encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
		for _, mf := range families {
			if err := encoder.Encode(mf); err != nil {
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}
