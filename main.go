package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"os/signal"
	"syscall"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"deliverystats/internal/config"
	"deliverystats/internal/db"
	"deliverystats/internal/http/handlers"
	appmw "deliverystats/internal/http/middleware"
	"deliverystats/internal/source"
	ui "deliverystats/web"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap admin: %v", err)
	}
	if cfg.IngestAPIKey != "" {
		if err := db.EnsureBootstrapAPIKey(sqlDB, cfg); err != nil {
			log.Printf("warning: failed to ensure bootstrap API key: %v", err)
		} else {
			log.Printf("ingest API key configured for admin user")
		}
	}

	if cfg.SessionSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			log.Fatalf("failed to generate session secret: %v", err)
		}
		cfg.SessionSecret = hex.EncodeToString(buf)
		log.Printf("APP_SESSION_SECRET not set; sessions will not survive a restart")
	}

	handlers.InitPrometheusMetrics()
	db.StartRetentionWorker(sqlDB, handlers.ObserveRetention)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var base source.Source = source.NewDBSource(sqlDB)
	if cfg.EventSource == config.SourceFile {
		if cfg.EventFile == "" {
			log.Fatalf("APP_EVENT_FILE is required when APP_EVENT_SOURCE=file")
		}
		base = source.NewFileSource(cfg.EventFile)
		log.Printf("reading order events from %s", cfg.EventFile)
	}
	events := source.NewCached(base, cfg.RefreshInterval)
	events.OnRefresh = handlers.ObserveRefresh
	events.StartRefresher(ctx)

	r := router.New()
	admin := appmw.AdminAuth(sqlDB, cfg)

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.GET("/login", handlers.LoginForm())
	r.POST("/login", handlers.LoginSubmit(sqlDB, cfg.SessionSecret))
	r.POST("/logout", handlers.Logout())

	r.GET("/", admin(handlers.Dashboard(events, cfg)))
	r.GET("/forecast", admin(handlers.ForecastPage(events, cfg)))
	r.GET("/metrics", admin(handlers.MetricsHandler(prometheus.DefaultGatherer)))

	r.GET("/v1/stats/delivery", admin(handlers.DeliveryStats(events)))
	r.GET("/v1/stats/summary", admin(handlers.SummaryStats(events)))
	r.GET("/v1/stats/fastest", admin(handlers.FastestStats(events)))
	r.GET("/v1/stats/orders", admin(handlers.OrderStats(events)))
	r.GET("/v1/stats/shifts", admin(handlers.ShiftStats(events)))
	r.GET("/v1/forecast", admin(handlers.Forecast(events, cfg.ForecastMinDays)))

	store := func(ctx context.Context, rows []db.OrderEvent) error {
		return db.InsertEvents(ctx, sqlDB, rows)
	}
	r.POST("/v1/events", appmw.BearerAuth(sqlDB)(handlers.Ingest(store, cfg, events.Invalidate)))

	server := &fasthttp.Server{
		Handler: handlers.RequestLogger(r.Handler),
		Name:    "deliverystats",
	}
	go func() {
		<-ctx.Done()
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("deliverystats listening on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
