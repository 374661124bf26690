package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Zhima-Mochi/miniapp-storefront/configs"
	appadmin "github.com/Zhima-Mochi/miniapp-storefront/internal/application/admin"
	appauth "github.com/Zhima-Mochi/miniapp-storefront/internal/application/auth"
	appcatalog "github.com/Zhima-Mochi/miniapp-storefront/internal/application/catalog"
	appcheckout "github.com/Zhima-Mochi/miniapp-storefront/internal/application/checkout"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/session"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/commerce"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/redisstore"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/token"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/pkg/cachepolicy"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/miniapp-storefront/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/miniapp-storefront/internal/presentation/worker"
)

// catalogCache is read through by the catalog and invalidated by admin writes.
type catalogCache interface {
	cachepolicy.Cache
	Delete(ctx context.Context, key string) error
}

func main() {
	env := getenvDefault("APP_ENV", "dev")
	cfg, err := configs.Load(getenvDefault("CONFIG_DIR", "configs"), env)
	if err != nil {
		panic(err)
	}

	baseLogger := logging.MustNewLogger(cfg.App.Name, cfg.App.Env, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	// amounts go over the wire as JSON numbers, as the Mini-App expects
	decimal.MarshalJSONWithoutQuotes = true

	oteltrace.InstallPropagator()
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tel := infraobs.FromRegistry(
		oteltrace.New(cfg.App.Name),
		zaplogger.New(baseLogger),
		prometrics.New(reg, "", ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := commerce.New(commerce.Config{
		BaseURL:         cfg.Commerce.BaseURL,
		Timeout:         cfg.Commerce.Timeout,
		TestMode:        cfg.Commerce.TestMode,
		BreakerFailures: cfg.Commerce.BreakerFailures,
		BreakerTimeout:  cfg.Commerce.BreakerTimeout,
	}, tel)
	if err != nil {
		systemLogger.Fatal("commerce_client_init_failed", zap.Error(err))
	}
	tokens, err := token.NewManager(token.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TTL,
	})
	if err != nil {
		systemLogger.Fatal("token_manager_init_failed", zap.Error(err))
	}

	// Sessions, in-flight locks and the catalog cache live in Redis when it
	// is configured and in process memory otherwise.
	var (
		sessions session.Storage
		locker   appcheckout.Locker
		cache    catalogCache
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.NewClient(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			systemLogger.Fatal("redis_connect_failed", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		sessions = redisstore.NewSessionStorage(rdb, cfg.Redis.SessionTTL)
		locker = redisstore.NewLocker(rdb, cfg.Auth.InFlightTTL)
		cache = redisstore.NewCache(rdb, "", cfg.Cache.MaxJitter)
		systemLogger.Info("storage_selected", zap.String("backend", "redis"), zap.String("addr", cfg.Redis.Addr))
	} else {
		sessions = memory.NewSessionStorage()
		locker = memory.NewLocker(cfg.Auth.InFlightTTL)
		if cfg.Cache.StaleTime > 0 {
			systemLogger.Warn("catalog_cache_disabled", zap.String("reason", "redis.addr is empty"))
		}
		systemLogger.Info("storage_selected", zap.String("backend", "memory"))
	}

	// In-memory event bus; checkout events feed the audit worker.
	bus := outbox.NewBus(tel.Logger(), outbox.Options{})
	checkoutWorker := appcheckout.NewWorker(tel)
	checkoutWorker.Start(workerpresentation.NewSubscriber(bus, tel.Logger()))
	bus.Start(ctx)

	checkoutService := appcheckout.NewService(client, memory.NewCheckoutStore(), locker, bus, tel)
	authService := appauth.NewService(client, sessions, tokens, checkoutService, tel)
	catalogService := appcatalog.NewService(client, cache, cachepolicy.Policy{StaleTime: cfg.Cache.StaleTime}, tel)
	adminService := appadmin.NewService(client, cache, tel)

	handler := httppresentation.NewHandler(httppresentation.Services{
		Auth:     authService,
		Checkout: checkoutService,
		Catalog:  catalogService,
		Admin:    adminService,
	}, tokens, httppresentation.Options{
		RateLimit:         httppresentation.RateLimit{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst},
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		CountdownInterval: cfg.HTTP.CountdownInterval,
		Metrics:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}, tel.Logger(), tel)

	server := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("commerce_base_url", cfg.Commerce.BaseURL),
			zap.Bool("commerce_test_mode", cfg.Commerce.TestMode),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	bus.Stop(shutdownCtx)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
