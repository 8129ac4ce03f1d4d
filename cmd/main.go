package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sensorgrid/internal/config"
	"sensorgrid/internal/handlers"
	"sensorgrid/internal/logger"
	"sensorgrid/internal/metrics"
	"sensorgrid/internal/middleware"
	"sensorgrid/internal/publish"
	"sensorgrid/internal/repository"
	"sensorgrid/internal/service"
	"sensorgrid/internal/worker"
	"sensorgrid/pkg/database"
	"sensorgrid/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if envErr != nil {
		zlog.Info("no .env file found, using environment variables")
	}
	zlog.Info("sensorgrid starting")

	m := metrics.New()

	// The pool is built on first use and re-reads the environment then.
	pool := database.NewManager(
		func() database.Config { return database.Config(config.LoadDB()) },
		zlog,
		logger.Gorm(zlog, cfg.DB.LogLevel),
	)
	defer func() {
		if err := pool.Close(); err != nil {
			zlog.Warn("failed to close connection pool", zap.Error(err))
		}
	}()

	readingRepo := repository.NewReadingRepository(pool)

	var (
		redisClient *goredis.Client
		cacheRepo   repository.CacheRepository
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.Connect(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			zlog.Warn("redis unavailable, latest batch cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, "sensorgrid:")
		}
	}

	sinks := buildPublishers(cfg, zlog)
	var publisher publish.Publisher
	if len(sinks) > 0 {
		publisher = sinks
		defer func() {
			if err := sinks.Close(); err != nil {
				zlog.Warn("failed to close publishers", zap.Error(err))
			}
		}()
	}

	sensorService := service.NewSensorService(
		service.NewGenerator(zlog),
		readingRepo,
		cacheRepo,
		publisher,
		m,
		service.SensorConfig{
			LatestTTL: cfg.Redis.LatestTTL,
			ExportDir: cfg.Export.OutputDir,
		},
		zlog,
	)

	scheduler := worker.NewScheduler(zlog)
	if cfg.Generator.Enabled {
		scheduler.AddWorker(worker.NewGenerationWorker(sensorService, cfg.Generator.Interval, zlog))
		zlog.Info("generation worker enabled", zap.Duration("interval", cfg.Generator.Interval))
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(zlog))
	r.Use(m.GinMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.App.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Batch-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if !cfg.App.Debug {
		limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		r.Use(middleware.IPRateLimitMiddleware(limiter, zlog, m))
		zlog.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}

	health := handlers.NewHealthHandler(pool, redisClient, map[string]bool{
		"scheduler": cfg.Generator.Enabled,
		"cache":     cacheRepo != nil,
		"kafka":     len(cfg.Kafka.Brokers) > 0,
		"mqtt":      cfg.MQTT.Broker != "",
	})
	handlers.RegisterRoutes(r, handlers.NewSensorHandler(sensorService, zlog), health)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zlog.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server failed", zap.Error(err))
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	zlog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server exited properly")
}

// buildPublishers connects the configured fan-out sinks. A sink that cannot
// be reached is skipped.
func buildPublishers(cfg *config.Config, zlog *zap.Logger) publish.Multi {
	var sinks publish.Multi

	if len(cfg.Kafka.Brokers) > 0 {
		k, err := publish.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, zlog)
		if err != nil {
			zlog.Warn("kafka publisher disabled", zap.Error(err))
		} else {
			sinks = append(sinks, k)
			zlog.Info("kafka publisher enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
		}
	}

	if cfg.MQTT.Broker != "" {
		mq, err := publish.NewMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic, zlog)
		if err != nil {
			zlog.Warn("mqtt publisher disabled", zap.Error(err))
		} else {
			sinks = append(sinks, mq)
			zlog.Info("mqtt publisher enabled", zap.String("broker", cfg.MQTT.Broker), zap.String("topic", cfg.MQTT.Topic))
		}
	}

	return sinks
}
