package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "atkform/api/swagger" // swagger docs
	"atkform/internal/config"
	"atkform/internal/handler"
	"atkform/internal/logger"
	"atkform/internal/middleware"
	"atkform/internal/model"
	"atkform/internal/relay"
	"atkform/internal/repository"
	"atkform/internal/service"
	"atkform/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// @title           ATK Request API
// @version         1.0
// @description     Stationery request workflow: submit, verify, approve.
// @host            localhost:8080
// @BasePath        /
func main() {
	envErr := config.LoadEnvFile("configs/.env")

	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer zapLogger.Sync()

	if envErr != nil {
		zapLogger.Info("No configs/.env file found or error loading it", zap.Error(envErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local store: settings always, records when the driver is local
	localDB, err := repository.OpenBadger(cfg.Local.Path)
	if err != nil {
		zapLogger.Fatal("Failed to open local store", zap.String("path", cfg.Local.Path), zap.Error(err))
	}
	defer localDB.Close()

	settingsRepo := repository.NewSettingsRepository(localDB)
	settings, err := service.LoadSettings(ctx, settingsRepo, time.Now())
	if err != nil {
		zapLogger.Fatal("Failed to load settings", zap.Error(err))
	}
	app := service.NewAppContext(settings)

	// Record store, selected by config
	inner, closeStore, err := repository.NewRequestAdapter(ctx, cfg, localDB, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to set up record store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			zapLogger.Warn("Closing record store", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	store := repository.NewInstrumentedAdapter(inner, repository.NewStoreMetrics(registry))

	// Change feed subscribers, in dispatch order
	wsHub := websocket.NewHub(zapLogger.Named("ws"))
	go wsHub.Run(ctx)

	store.Subscribe(app.OnRecordsChanged)
	store.Subscribe(wsHub.OnRecordsChanged)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		redisRelay := relay.NewRedisRelay(rdb, cfg.Redis.Channel, zapLogger.Named("relay"))
		store.Subscribe(redisRelay.OnRecordsChanged)
		go redisRelay.Listen(ctx, rdb, func(records []model.Request) {
			app.OnRecordsChanged(records)
			wsHub.OnRecordsChanged(records)
		})
		zapLogger.Info("Redis relay enabled", zap.String("addr", cfg.Redis.Addr), zap.String("channel", cfg.Redis.Channel))
	}

	records, err := store.Initialize(ctx)
	if err != nil {
		zapLogger.Fatal("Failed to initialize record store", zap.String("driver", store.Name()), zap.Error(err))
	}
	zapLogger.Info("Record store ready", zap.String("driver", store.Name()), zap.Int("records", len(records)))

	// Set up dependencies (Repository -> Service -> Handler)
	requestService := service.NewRequestService(store, app, zapLogger.Named("requests"))
	settingsService := service.NewSettingsService(settingsRepo, app, zapLogger.Named("settings"))
	exportService := service.NewExportService(app, zapLogger.Named("export"))

	requestHandler := handler.NewRequestHandler(requestService, exportService)
	settingsHandler := handler.NewSettingsHandler(settingsService)

	// Set up Gin Router
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(zapLogger.Named("http")))
	router.Use(middleware.Recovery(zapLogger))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "store": store.Name()})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, app.Records)
	})

	requestHandler.RegisterRoutes(router.Group(""))
	settingsHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}
