// Package main runs the storefront HTTP server with WebSocket updates and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/velixa/storefront/config"
	"github.com/velixa/storefront/internal/addresses"
	"github.com/velixa/storefront/internal/auth"
	"github.com/velixa/storefront/internal/carts"
	"github.com/velixa/storefront/internal/discounts"
	"github.com/velixa/storefront/internal/middleware"
	"github.com/velixa/storefront/internal/models"
	"github.com/velixa/storefront/internal/products"
	"github.com/velixa/storefront/internal/realtime"
	"github.com/velixa/storefront/internal/worker"
	"github.com/velixa/storefront/pkg/database"
	"github.com/velixa/storefront/pkg/queue"
	"github.com/velixa/storefront/pkg/redis"
	"github.com/velixa/storefront/pkg/response"
	"github.com/velixa/storefront/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ProductsBucket:  cfg.AWS.ProductsBucket,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, cfg.Auth.AdminEmails, logger)

	// Products
	productRepo := products.NewRepository(pool)
	var images products.ImageStore
	if s3Client != nil {
		images = s3Client
	}
	productService := products.NewService(productRepo, images, jobQueue, logger)
	productHandler := products.NewHandler(productService, logger)

	// Carts
	cartRepo := carts.NewRepository(pool)
	cartService := carts.NewService(cartRepo, productRepo, hub, logger)
	cartHandler := carts.NewHandler(cartService, logger)

	// Discounts
	discountRepo := discounts.NewRepository(pool, cartRepo)
	engine := discounts.NewEngine(discountRepo, cartService, cfg.Currency.Base)
	discountHandler := discounts.NewHandler(engine, hub, logger)

	// Addresses
	addressHandler := addresses.NewHandler(addresses.NewRepository(pool), logger)

	rates := middleware.NewRedisRates(rdb.Client, cfg.Currency.Rates)
	currency := middleware.Currency(cfg.Currency.Base, rates, logger)
	requireAuth := middleware.JWT(jwtService, authRepo, logger)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	wsValidate := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", requireAuth, authHandler.Me)
	}

	// Products: admin catalog management, public listing with currency conversion
	productGroup := router.Group("/products")
	{
		admin := productGroup.Group("/admin", requireAuth, adminOnly, currency)
		admin.POST("/create", productHandler.Create)
		admin.PUT("/edit/:productID", productHandler.Edit)
		admin.GET("/all", productHandler.AdminList)
		admin.GET("/:productID", productHandler.Get)
		admin.DELETE("/delete/:productID", productHandler.Delete)

		productGroup.GET("", currency, productHandler.List)
		productGroup.GET("/:productID", currency, productHandler.Get)
	}

	cartGroup := router.Group("/cart", requireAuth)
	{
		cartGroup.GET("", cartHandler.Get)
		cartGroup.POST("/add", cartHandler.Add)
		cartGroup.POST("/remove", cartHandler.Remove)
		cartGroup.DELETE("/clear", cartHandler.Clear)
	}

	addressGroup := router.Group("/addresses", requireAuth)
	{
		addressGroup.POST("", addressHandler.Create)
		addressGroup.GET("", addressHandler.List)
		addressGroup.PUT("/:id", addressHandler.Update)
		addressGroup.DELETE("/:id", addressHandler.Delete)
	}

	discountGroup := router.Group("/discounts", requireAuth)
	{
		discountGroup.POST("/add", adminOnly, discountHandler.Add)
		discountGroup.POST("/apply", discountHandler.Apply)
		discountGroup.DELETE("/remove", discountHandler.Remove)
		discountGroup.GET("/check", currency, discountHandler.Check)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, wsValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background jobs: discount expiry always, image cleanup when S3 is configured
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	sweeper := worker.NewExpirySweeper(discountRepo, time.Duration(cfg.Worker.ExpirySweepInterval)*time.Second, logger)
	go sweeper.Run(workerCtx)
	if s3Client != nil {
		go worker.NewImageProcessor(jobQueue, s3Client, logger).Run(workerCtx)
		logger.Info("image worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
