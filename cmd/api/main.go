package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gin-oracle-auth/internal/core/apperr"
	"gin-oracle-auth/internal/core/auth"
	"gin-oracle-auth/internal/core/config"
	"gin-oracle-auth/internal/core/database"
	"gin-oracle-auth/internal/core/logger"
	"gin-oracle-auth/internal/core/server"
	"gin-oracle-auth/internal/repo"
	"gin-oracle-auth/internal/service"
	"gin-oracle-auth/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.New(logger.FromConfig(cfg.Log))
	defer cleanup()
	undoStdLog := logger.RedirectStdLog(log, zapcore.InfoLevel)
	defer undoStdLog()

	// JWT
	jwter, usedFallback := auth.NewJWTer(cfg.JWT.Secret)
	if usedFallback {
		log.Warn("JWT_SECRET is not set, using the built-in fallback secret; tokens can be forged by anyone who knows it")
	}

	// 数据库：启动时建池，配置缺失直接退出
	gw := database.New(database.OptsFromConfig(cfg.DB), log)
	if err := gw.Initialize(context.Background()); err != nil {
		log.Fatal("database initialize failed", zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
	}

	users := repo.NewUserRepo(gw)
	authSvc := service.NewAuthService(users, jwter, log)

	// 路由
	r, err := router.NewAPIEngine(router.Deps{
		Log:            log,
		Tokens:         jwter,
		Auth:           authSvc,
		Gate:           cfg.Gate,
		Limits:         cfg.Limits,
		CORSOrigins:    cfg.CORS.AllowOrigins,
		TrustedProxies: cfg.App.HTTP.TrustedProxies,
		SecureCookie:   cfg.App.IsProduction(),
	})
	if err != nil {
		log.Fatal("build router failed", zap.Error(err))
	}

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
		logger.ToStdLogger(log, zapcore.ErrorLevel),
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("auth api starting",
		zap.String("addr", addr),
		zap.String("env", cfg.App.Env),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.Strings("protected", cfg.Gate.ProtectedPrefixes),
	)

	// 异步启动
	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("auth api start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭：先停 HTTP，再关连接池
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	if err := gw.Close(); err != nil {
		log.Error("close database failed", zap.Error(err))
	}
	log.Info("auth api stopped gracefully")
}
