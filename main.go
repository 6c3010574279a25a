package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apirest "github.com/fitquest/server/api/rest"
	"github.com/fitquest/server/app"
	"github.com/fitquest/server/config"
	"github.com/fitquest/server/jobs"
	mw "github.com/fitquest/server/middleware"
	"github.com/fitquest/server/scheduler"
	"github.com/fitquest/server/tracing"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}
	if cfg.Security.JWTSecret == "" {
		log.Fatalf("config: security.jwt_secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Tracing ----
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// ---- Engine ----
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	defer a.Close(context.Background())

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	sched.AddTicker(jobs.AdaptationTaskName, cfg.Scheduler.AdaptationInterval, a.Adaptation.Task())
	sched.AddTicker(jobs.StreakRefreshTaskName, cfg.Scheduler.StreakRefreshInterval, a.StreakRefresh.Task())

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))

	apirest.Register(r, apirest.Handlers{
		Quests:  apirest.NewQuestHandler(a.Quests, a.Selector),
		Targets: apirest.NewTargetHandler(a.Calibrator),
		Streaks: apirest.NewStreakHandler(a.Streaks),
		Admin:   apirest.NewAdminHandler(sched, a.Adaptation, logger),
	}, cfg.Security.JWTSecret, cfg.Server.AdminKey,
		mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
