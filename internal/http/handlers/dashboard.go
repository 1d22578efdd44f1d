package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"sort"
	"time"

	"github.com/valyala/fasthttp"

	"deliverystats/internal/config"
	"deliverystats/internal/forecast"
	httpctx "deliverystats/internal/http/ctx"
	"deliverystats/internal/source"
	"deliverystats/internal/stats"
	ui "deliverystats/web"
)

type LayoutData struct {
	Title        string
	ActivePage   string
	PageTemplate string
	Username     string
	IsAdmin      bool
	LoadedAt     string
	Error        string

	Dashboard *DashboardView
	Forecast  *ForecastView
}

type MetricCard struct {
	Label string
	Value string
}

type BucketOption struct {
	Value    stats.Bucket
	Label    string
	Selected bool
}

type DashboardView struct {
	Cards   []MetricCard
	Rows    []stats.AggregateRow
	Buckets []BucketOption
	// ChartData feeds the average-time line and the ratio bars.
	ChartData template.JS
}

type ForecastView struct {
	Series    []forecast.Series
	Regions   []string
	Menus     []string
	Buckets   []BucketOption
	Region    string
	Menu      string
	From      string
	To        string
	MinDays   int
	ChartData template.JS
}

func getLayoutData(ctx *fasthttp.RequestCtx, cfg *config.Config, activePage, title string) LayoutData {
	data := LayoutData{Title: title, ActivePage: activePage, PageTemplate: activePage}
	if user, ok := httpctx.UserFromCtx(ctx); ok {
		data.Username = user.Username
		data.IsAdmin = user.IsAdmin || user.Username == cfg.AdminUser
	}
	return data
}

func renderLayout(ctx *fasthttp.RequestCtx, status int, data LayoutData) {
	var buf bytes.Buffer
	if err := ui.Templates().ExecuteTemplate(&buf, "layout", data); err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "render error")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}

// renderSourceError shows the page shell with the failure instead of an
// empty table.
func renderSourceError(ctx *fasthttp.RequestCtx, data LayoutData, err error) {
	sourceError(ctx, err)
	status := ctx.Response.StatusCode()
	data.Error = "The order event log could not be read. Check the data source and try again."
	if !errors.Is(err, source.ErrSourceUnavailable) {
		data.Error = "Failed to load order events."
	}
	renderLayout(ctx, status, data)
}

func bucketOptions(selected []stats.Bucket) []BucketOption {
	want := make(map[stats.Bucket]bool, len(selected))
	for _, b := range selected {
		want[b] = true
	}
	return []BucketOption{
		{Value: stats.BucketLunch, Label: "Lunch (10-14)", Selected: len(want) == 0 || want[stats.BucketLunch]},
		{Value: stats.BucketDinner, Label: "Dinner (16-20)", Selected: len(want) == 0 || want[stats.BucketDinner]},
	}
}

func summaryCards(s stats.Summary) []MetricCard {
	return []MetricCard{
		{Label: "Total orders", Value: formatCount(s.TotalOrders)},
		{Label: "Delivered within 10 min", Value: formatPercent(s.MeanUnderFastRatio)},
		{Label: "Took over 30 min", Value: formatPercent(s.MeanOverSlowRatio)},
		{Label: "Average delivery time", Value: s.MeanAvgDisplay},
	}
}

type dashboardChart struct {
	Labels     []string  `json:"labels"`
	AvgMinutes []float64 `json:"avg_minutes"`
	FastRatio  []float64 `json:"fast_ratio"`
	SlowRatio  []float64 `json:"slow_ratio"`
}

func chartData(rows []stats.AggregateRow) template.JS {
	c := dashboardChart{
		Labels:     make([]string, 0, len(rows)),
		AvgMinutes: make([]float64, 0, len(rows)),
		FastRatio:  make([]float64, 0, len(rows)),
		SlowRatio:  make([]float64, 0, len(rows)),
	}
	for _, r := range rows {
		c.Labels = append(c.Labels, r.DateTag+" "+string(r.Bucket))
		c.AvgMinutes = append(c.AvgMinutes, r.AvgMinutes)
		c.FastRatio = append(c.FastRatio, r.UnderFastRatio)
		c.SlowRatio = append(c.SlowRatio, r.OverSlowRatio)
	}
	return marshalJS(c)
}

// marshalJS embeds v as a script literal. encoding/json escapes <, > and &.
func marshalJS(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return template.JS(b)
}

func snapshotTime(src source.Source) string {
	if c, ok := src.(*source.Cached); ok {
		return formatSnapshotTime(c.LoadedAt(), time.Now())
	}
	return ""
}

// Dashboard renders the delivery summary: headline cards, charts and the
// per (date, shift) table. ?bucket= narrows the shifts shown.
func Dashboard(src source.Source, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		data := getLayoutData(ctx, cfg, "dashboard", "Delivery summary")
		buckets, ok := bucketsOrFail(ctx)
		if !ok {
			return
		}
		events, err := src.Load(ctx)
		if err != nil {
			renderSourceError(ctx, data, err)
			return
		}
		report := buildDeliveryReport(events, buckets)
		data.LoadedAt = snapshotTime(src)
		data.Dashboard = &DashboardView{
			Cards:     summaryCards(report.Summary),
			Rows:      report.Rows,
			Buckets:   bucketOptions(buckets),
			ChartData: chartData(report.Rows),
		}
		renderLayout(ctx, fasthttp.StatusOK, data)
	}
}

// ForecastPage renders fitted order-count series for the selected filters.
func ForecastPage(src source.Source, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		data := getLayoutData(ctx, cfg, "forecast", "Order forecast")
		args := ctx.QueryArgs()
		opts, err := forecastOptions(args, cfg.ForecastMinDays)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid filter: "+err.Error())
			return
		}
		events, err := src.Load(ctx)
		if err != nil {
			renderSourceError(ctx, data, err)
			return
		}

		series := buildForecast(events, opts)
		regions, menus := dimensions(events)
		data.LoadedAt = snapshotTime(src)
		data.Forecast = &ForecastView{
			Series:    series,
			Regions:   regions,
			Menus:     menus,
			Buckets:   bucketOptions(opts.Buckets),
			Region:    string(args.Peek("region")),
			Menu:      string(args.Peek("menu")),
			From:      string(args.Peek("from")),
			To:        string(args.Peek("to")),
			MinDays:   opts.MinDays,
			ChartData: marshalJS(series),
		}
		renderLayout(ctx, fasthttp.StatusOK, data)
	}
}

// dimensions lists the distinct non-empty regions and menus, sorted.
func dimensions(events []stats.RawEvent) (regions, menus []string) {
	rs, ms := map[string]bool{}, map[string]bool{}
	for _, e := range events {
		if e.Region != "" {
			rs[e.Region] = true
		}
		if e.Menu != "" {
			ms[e.Menu] = true
		}
	}
	for r := range rs {
		regions = append(regions, r)
	}
	for m := range ms {
		menus = append(menus, m)
	}
	sort.Strings(regions)
	sort.Strings(menus)
	return regions, menus
}
