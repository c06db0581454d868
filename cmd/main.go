package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/api/widget"
	"github.com/Conversly/widget-engine/internal/config"
	"github.com/Conversly/widget-engine/internal/controllers"
	"github.com/Conversly/widget-engine/internal/credentials"
	"github.com/Conversly/widget-engine/internal/embedder"
	"github.com/Conversly/widget-engine/internal/llm"
	"github.com/Conversly/widget-engine/internal/loaders"
	"github.com/Conversly/widget-engine/internal/middleware"
	"github.com/Conversly/widget-engine/internal/rag"
	"github.com/Conversly/widget-engine/internal/routes"
	"github.com/Conversly/widget-engine/internal/session"
	"github.com/Conversly/widget-engine/internal/utils"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Warning: Error loading .env file", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	cleanup := utils.InitLogger(cfg)
	defer cleanup()

	utils.Zlog.Info("Starting application",
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port))

	ctx := context.Background()

	if cfg.DBAutoMigrate {
		if err := loaders.Migrate(ctx, cfg.DatabaseURL); err != nil {
			utils.Zlog.Error("Failed to migrate database", zap.Error(err))
			os.Exit(1)
		}
	}

	db, err := loaders.NewPostgresClient(ctx, cfg.DatabaseURL, cfg.DBMaxConnections)
	if err != nil {
		utils.Zlog.Error("Failed to create database client", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			utils.Zlog.Error("Error closing database connection", zap.Error(err))
		}
	}()

	var (
		rdb        *redis.Client
		limiter    *middleware.Limiter
		redisProbe controllers.Pinger
	)
	if cfg.RedisURL != "" {
		rdb, err = loaders.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			utils.Zlog.Error("Failed to connect to redis", zap.Error(err))
			os.Exit(1)
		}
		defer rdb.Close()
		limiter = middleware.NewLimiter(middleware.NewRedisCounter(rdb))
		redisProbe = controllers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		utils.Zlog.Warn("REDIS_URL not set, per-credential request limiter disabled")
	}

	emb, err := embedder.New(ctx, cfg, embedder.TaskRetrievalQuery)
	if err != nil {
		utils.Zlog.Error("Failed to create embedder", zap.Error(err))
		os.Exit(1)
	}

	resolver := credentials.NewResolver(db, cfg.DefaultOpenAIKey)
	sessions := session.NewManager(session.NewPostgresStore(db.GetPool()))

	widgetSvc := widget.NewService(widget.Deps{
		Tenants:   db,
		Usage:     db,
		Sessions:  sessions,
		Providers: resolver,
		Retriever: rag.NewRetriever(db, emb),
		Gateway: llm.NewGateway(
			llm.VendorFactory(cfg.OpenRouterReferer, cfg.OpenRouterTitle, cfg.ProviderTimeout),
			cfg.ProviderTimeout,
		),
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	routes.SetupRoutes(router, routes.Dependencies{
		Config:   cfg,
		DB:       db,
		Redis:    redisProbe,
		Auth:     resolver,
		Limiter:  limiter,
		Widget:   widgetSvc,
		Sessions: sessions,
	})

	// Replies can take up to the provider timeout, so writes get extra room.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.Zlog.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Zlog.Error("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Zlog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Zlog.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	utils.Zlog.Info("Server exited")
}
