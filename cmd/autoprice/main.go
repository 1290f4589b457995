package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/alert"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/client/ads"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/client/p2p"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/config"
	cronrunner "github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/cron"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/db"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/engine"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/handler"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/lock"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/logger"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/marketdata"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/pricing"
	gormrepository "github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/repository/gorm"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/service"

	_ "github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/docs"
)

func main() {
	cfgPath := os.Getenv("AP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("AP_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(context.Background(), cfg.DB, logger)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	zone, err := pricing.ReferenceZone(cfg.Engine.ISTOffset)
	if err != nil {
		logger.Fatal("invalid engine.ist_offset", zap.String("value", cfg.Engine.ISTOffset), zap.Error(err))
	}

	p2pClient := p2p.NewClient(cfg.P2P.BaseURL, cfg.P2P.Timeout)
	fetcher := marketdata.New(cfg.MarketData, cfg.Engine, p2pClient, logger)

	locker := initLocker(cfg.Redis, logger)
	if closer, ok := locker.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	deps := engine.Deps{
		Repo:     store,
		Market:   fetcher,
		Locker:   locker,
		Notifier: initNotifier(cfg.Alert, logger),
		Pacer:    engine.NewPacer(cfg.Engine.UpdateInterval),
		Switches: settingsSvc,
		Logger:   logger,
		Options: engine.Options{
			StableAsset: cfg.Engine.StableAsset,
			Zone:        zone,
			LockTTL:     cfg.Engine.LockTTL,
			DryRun:      cfg.Engine.DryRun,
		},
	}
	if strings.TrimSpace(cfg.Ads.BaseURL) != "" {
		deps.Ads = ads.NewClient(cfg.Ads.BaseURL, cfg.Ads.APIKey, cfg.Ads.APISecret, cfg.Ads.Timeout)
	} else {
		logger.Warn("ads api not configured, listing updates will fail")
	}
	priceEngine := engine.New(deps)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	checks := map[string]handler.HealthCheck{
		"db": func(ctx context.Context) error { return db.Ping(ctx, dbConn) },
	}
	if pinger, ok := locker.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = pinger.Ping
	}
	healthHandler := &handler.HealthHandler{Checks: checks}
	healthHandler.Register(router)
	autoPrice := &handler.AutoPriceHandler{Engine: priceEngine, Logger: logger}
	autoPrice.Register(router)
	rules := &handler.PricingRuleHandler{Repo: store}
	rules.Register(router)
	logs := &handler.PricingLogHandler{Repo: store}
	logs.Register(router)
	excluded := &handler.ExcludedAdHandler{Repo: store}
	excluded.Register(router)
	settings := &handler.SystemSettingsHandler{Settings: settingsSvc}
	settings.Register(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add("auto_price", cfg.Cron.AutoPrice, func(ctx context.Context) {
			if !settingsSvc.IsEnabled(ctx, service.FeatureAutoPriceEngine, true) {
				return
			}
			if _, err := priceEngine.Run(ctx, engine.Request{}); err != nil {
				logger.Warn("cron auto price pass failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register auto price failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	})
}

// initLocker prefers a shared Redis lease so several replicas never price the
// same rule at once. Without Redis the lock is process-local.
func initLocker(cfg config.RedisConfig, logger *zap.Logger) lock.Locker {
	if strings.TrimSpace(cfg.Addr) == "" {
		return lock.NewMemoryLocker()
	}
	locker := lock.NewRedisLocker(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	logger.Info("rule locks backed by redis", zap.String("addr", cfg.Addr))
	return locker
}

func initNotifier(cfg config.AlertConfig, logger *zap.Logger) alert.Notifier {
	multi := &alert.Multi{Logger: logger}
	if strings.TrimSpace(cfg.TelegramBotToken) != "" && cfg.TelegramChatID != 0 {
		tg, err := alert.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			logger.Warn("telegram notifier disabled", zap.Error(err))
		} else {
			multi.Notifiers = append(multi.Notifiers, tg)
		}
	}
	if strings.TrimSpace(cfg.PaaSBaseURL) != "" && strings.TrimSpace(cfg.PaaSAPIKey) != "" {
		multi.Notifiers = append(multi.Notifiers, &alert.PaaSNotifier{
			BaseURL: cfg.PaaSBaseURL,
			APIKey:  cfg.PaaSAPIKey,
			Agent:   cfg.PaaSAgent,
		})
	}
	if len(multi.Notifiers) == 0 {
		logger.Info("no alert notifiers configured")
	}
	return multi
}
