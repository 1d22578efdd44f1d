package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	httpctx "deliverystats/internal/http/ctx"
	"deliverystats/internal/source"
	"deliverystats/internal/stats"
)

// RequestLogger tags each request with an id and logs method, path, status, duration.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		id := string(ctx.Request.Header.Peek("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		httpctx.SetRequestID(ctx, id)
		ctx.Response.Header.Set("X-Request-ID", id)
		next(ctx)
		log.Printf("%s %s -> %d (%s) ip=%s rid=%s", ctx.Method(), ctx.Path(), ctx.Response.StatusCode(), time.Since(start), ctx.RemoteAddr(), id)
	}
}

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode response")
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}

// sourceError reports a failed snapshot load. An unreachable source is a 503
// so the dashboard never shows an empty table in its place.
func sourceError(ctx *fasthttp.RequestCtx, err error) {
	rid, _ := httpctx.RequestIDFromCtx(ctx)
	log.Printf("event source error rid=%s: %v", rid, err)
	if errors.Is(err, source.ErrSourceUnavailable) {
		errResponse(ctx, fasthttp.StatusServiceUnavailable, "event source unavailable")
		return
	}
	errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load events")
}

// bucketsFromQuery collects repeated ?bucket= values. Unknown names are an error.
func bucketsFromQuery(args *fasthttp.Args) ([]stats.Bucket, error) {
	var out []stats.Bucket
	for _, raw := range args.PeekMulti("bucket") {
		for _, part := range strings.Split(string(raw), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			b, ok := stats.ParseBucket(part)
			if !ok {
				return nil, errors.New("unknown bucket " + part)
			}
			out = append(out, b)
		}
	}
	return out, nil
}

// stringsFromQuery collects repeated or comma-separated values of key.
func stringsFromQuery(args *fasthttp.Args, key string) []string {
	var out []string
	for _, raw := range args.PeekMulti(key) {
		for _, part := range strings.Split(string(raw), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
