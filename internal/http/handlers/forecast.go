package handlers

import (
	"time"

	"github.com/valyala/fasthttp"

	"deliverystats/internal/forecast"
	"deliverystats/internal/source"
	"deliverystats/internal/stats"
)

// forecastOptions reads region, menu, bucket, from and to filters. Dates are
// inclusive calendar days.
func forecastOptions(args *fasthttp.Args, minDays int) (forecast.Options, error) {
	buckets, err := bucketsFromQuery(args)
	if err != nil {
		return forecast.Options{}, err
	}
	opts := forecast.Options{
		MinDays: minDays,
		Regions: stringsFromQuery(args, "region"),
		Menus:   stringsFromQuery(args, "menu"),
		Buckets: buckets,
	}
	if v := string(args.Peek("from")); v != "" {
		if opts.From, err = time.Parse("2006-01-02", v); err != nil {
			return forecast.Options{}, err
		}
	}
	if v := string(args.Peek("to")); v != "" {
		if opts.To, err = time.Parse("2006-01-02", v); err != nil {
			return forecast.Options{}, err
		}
	}
	return opts, nil
}

func buildForecast(events []stats.RawEvent, opts forecast.Options) []forecast.Series {
	start := time.Now()
	defer observePipeline("forecast", start)
	return forecast.Build(events, opts)
}

// Forecast serves fitted series with next-day predictions.
func Forecast(src source.Source, minDays int) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		opts, err := forecastOptions(ctx.QueryArgs(), minDays)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid filter: "+err.Error())
			return
		}
		events, ok := loadEvents(ctx, src)
		if !ok {
			return
		}
		jsonResponse(ctx, map[string]any{"series": buildForecast(events, opts)})
	}
}
