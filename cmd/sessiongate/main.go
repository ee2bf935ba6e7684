// Command sessiongate runs the blog API and page server.
//
// Configuration comes from an optional YAML file (-config) and the environment:
//
//	SESSION_SECRET   HMAC key, at least 32 bytes (required)
//	DATABASE_URL     Postgres connection string (required)
//	REDIS_ADDR       enables session records and login throttling
//	LISTEN_ADDR      default :8080
//	LOG_LEVEL        default info
//	METRICS_LOG_INTERVAL  OpenTelemetry log export period, default 1m (0 disables)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/sessiongate"
	"github.com/MrEthical07/sessiongate/internal/config"
	"github.com/MrEthical07/sessiongate/internal/httpapi"
	"github.com/MrEthical07/sessiongate/internal/logging"
	"github.com/MrEthical07/sessiongate/internal/store"
	otelexport "github.com/MrEthical07/sessiongate/metrics/export/otel"
	promexport "github.com/MrEthical07/sessiongate/metrics/export/prometheus"
	"github.com/MrEthical07/sessiongate/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/MrEthical07/sessiongate"

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "sessiongate: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	_, log, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.AppName,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------- storage ----------
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(ctx, db); err != nil {
		return err
	}
	users := store.NewUserStore(db)
	posts := store.NewPostStore(db)

	checks := []httpapi.Check{{Name: "postgres", Ping: db.PingContext}}

	// ---------- engine ----------
	engineCfg := cfg.Engine()
	for _, w := range engineCfg.Lint() {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	builder := sessiongate.New().
		WithConfig(engineCfg).
		WithUserProvider(users).
		WithAuditSink(sessiongate.NewLogrusSink(log.WithField("component", "audit"))).
		WithLogger(log.WithField("component", "session"))

	if cfg.HasRedis() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		builder = builder.WithRedis(rdb)
		checks = append(checks, httpapi.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	} else {
		log.Warn("REDIS_ADDR not set: session records and login throttling disabled")
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if provider := newMeterProvider(cfg, log.WithField("component", "metrics")); provider != nil {
		otel.SetMeterProvider(provider)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := provider.Shutdown(sctx); err != nil {
				log.WithError(err).Warn("meter provider shutdown failed")
			}
		}()

		otelMetrics, err := otelexport.New(provider.Meter(meterName), engine)
		if err != nil {
			return err
		}
		defer func() { _ = otelMetrics.Close() }()
	}

	// ---------- http ----------
	srv := httpapi.New(httpapi.Deps{
		Engine:     engine,
		Users:      users,
		Posts:      posts,
		Guard:      middleware.NewGuard(engine, middleware.DefaultPolicy(), middleware.WithLogger(log.WithField("component", "guard"))),
		Metrics:    promexport.New(engine).Handler(),
		Checks:     checks,
		Logger:     log.WithField("component", "http"),
		TrustProxy: cfg.TrustProxy,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
		return err
	}

	log.WithFields(logrus.Fields{"audit_dropped": engine.AuditDropped()}).Info("stopped")
	return nil
}

// newMeterProvider returns an SDK provider that logs metrics every MetricsLogInterval, or
// nil when metrics or the interval are disabled.
func newMeterProvider(cfg *config.Config, log logrus.FieldLogger) *sdkmetric.MeterProvider {
	if !cfg.MetricsEnabled || cfg.MetricsLogInterval <= 0 {
		return nil
	}
	reader := sdkmetric.NewPeriodicReader(
		logging.NewMetricExporter(log),
		sdkmetric.WithInterval(cfg.MetricsLogInterval),
	)
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}
