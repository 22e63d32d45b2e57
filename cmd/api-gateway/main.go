// Package main Base 搭建服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"base-builder-api/internal/application/builder"
	"base-builder-api/internal/application/provision"
	"base-builder-api/internal/config"
	"base-builder-api/internal/domain/schema"
	"base-builder-api/internal/infrastructure/bitable"
	"base-builder-api/internal/infrastructure/llm"
	redisclient "base-builder-api/internal/infrastructure/persistence/redis"
	"base-builder-api/internal/interfaces/http/handler"
	"base-builder-api/internal/interfaces/http/router"
	"base-builder-api/pkg/logger"
	"base-builder-api/pkg/tracer"

	"github.com/joho/godotenv"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting base-builder-api",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 初始化 Redis（可选，缺失时令牌缓存与限流自动降级）
	var redisClient *redisclient.Client
	if cfg.Cache.Redis.Enabled {
		redisClient, err = redisclient.NewClient(&cfg.Cache.Redis)
		if err != nil {
			log.Warn("redis unavailable, running without cache", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// 组装应用依赖
	limits := schema.Limits{
		MaxTables:     cfg.Security.Limits.MaxTables,
		MaxFields:     cfg.Security.Limits.MaxFields,
		MaxSampleRows: cfg.Security.Limits.MaxSampleRows,
	}
	geminiClient := llm.NewGeminiClient(&cfg.LLM.Gemini)
	generator := builder.NewGenerator(&cfg.LLM.Gemini, limits, geminiClient)

	tokenSlack := time.Duration(cfg.Security.Limits.TokenCacheSlack) * time.Second
	tokens := bitable.NewTokenSource(&cfg.Bitable, redisClient, tokenSlack)
	workspace := bitable.NewClient(&cfg.Bitable)
	orchestrator := provision.NewOrchestrator(&cfg.Bitable, workspace, tokens)

	baseHandler := handler.NewBaseBuilderHandler(cfg, generator, orchestrator)

	// 创建路由
	r := router.New(cfg, redisClient, baseHandler)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
