package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/jengzang/uav-ground-control/internal/api"
	"github.com/jengzang/uav-ground-control/internal/config"
	"github.com/jengzang/uav-ground-control/internal/database"
	"github.com/jengzang/uav-ground-control/internal/logging"
	"github.com/jengzang/uav-ground-control/internal/middleware"
)

func main() {
	issue := flag.Bool("issue-token", false, "print a bearer token signed with JWT_SECRET and exit")
	subject := flag.String("subject", "operator", "token subject for -issue-token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime for -issue-token")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	if *issue {
		token, err := middleware.IssueToken(cfg.JWTSecret, *subject, *ttl)
		if err != nil {
			log.Fatal("Failed to issue token: ", err)
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(ctx, database.Config{Path: cfg.DBPath}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
		defer limiter.Close()
	}

	// 初始化路由
	router := api.SetupRouter(api.Dependencies{
		Config:  cfg,
		DB:      db,
		Logger:  logger,
		Metrics: metrics,
		Limiter: limiter,
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(ctx, "server starting",
			logging.String("addr", cfg.Port),
			logging.String("db", db.Path()),
			logging.Any("auth_required", cfg.AuthRequired),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(shutdownCtx, "server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
