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

	"github.com/devconnector/devconnector/backend/go-services/handlers"
	"github.com/devconnector/devconnector/backend/go-services/internal/config"
	"github.com/devconnector/devconnector/backend/go-services/internal/database"
	"github.com/devconnector/devconnector/backend/go-services/internal/events"
	profilecache "github.com/devconnector/devconnector/backend/go-services/internal/profile/cache"
	profilehandler "github.com/devconnector/devconnector/backend/go-services/internal/profile/handler"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile/repository"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile/service"
	"github.com/devconnector/devconnector/backend/go-services/internal/sessions"
	"github.com/devconnector/devconnector/backend/go-services/internal/storage"
	"github.com/devconnector/devconnector/backend/go-services/internal/tokens"
	"github.com/devconnector/devconnector/backend/go-services/internal/users"
	"github.com/devconnector/devconnector/backend/go-services/pkg/logger"
	"github.com/devconnector/devconnector/backend/go-services/pkg/metrics"
	"github.com/devconnector/devconnector/backend/go-services/pkg/middleware"
	"github.com/devconnector/devconnector/backend/go-services/pkg/tracing"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v kafka=%v minio=%v tracing=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Addr() != "", len(cfg.Kafka.Brokers) > 0, cfg.MinIO.Endpoint != "", cfg.Tracing.Endpoint != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Server.Environment)
	if err != nil {
		logger.Warnf("tracing disabled: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.AccessLog(), cors.New(corsConfig(cfg.Server.CORSOrigins)))

	// Redis backs the token blacklist, sessions, the profile cache and the
	// shared rate limiter. Everything degrades to in-process state without it.
	var rdb *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = rdb.Close()
			rdb = nil
		} else {
			sessions.SetBlacklistClient(rdb)
			logger.Infof("connected to Redis: %s", addr)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	var (
		mongoClient *mongo.Client
		userRepo    users.UserRepository
		profileRepo repository.Repository
		sessRepo    sessions.Repository
	)
	if cfg.MongoDB.URI != "" {
		mongoClient, err = database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			logger.Fatalf("could not connect to MongoDB: %v", err)
		}
		db := mongoClient.Database(cfg.MongoDB.Database)
		if userRepo, err = users.NewMongoUserRepository(ctx, db.Collection("users")); err != nil {
			logger.Fatalf("users collection: %v", err)
		}
		if profileRepo, err = repository.NewMongoRepo(ctx, db.Collection("profiles")); err != nil {
			logger.Fatalf("profiles collection: %v", err)
		}
		if rdb == nil {
			if sessRepo, err = sessions.NewMongoRepository(ctx, db.Collection("sessions")); err != nil {
				logger.Fatalf("sessions collection: %v", err)
			}
		}
	} else {
		logger.Warnf("MONGODB_URI not set; using in-memory stores, data is lost on restart")
		userRepo = users.NewMemoryUserRepository()
		profileRepo = repository.NewMemoryRepo()
	}
	if rdb != nil {
		sessRepo = sessions.NewRedisRepository(rdb, "session:")
	} else if sessRepo == nil {
		sessRepo = sessions.NewMemoryRepository()
	}

	userSvc := users.NewService(userRepo)
	sessionsSvc := sessions.NewService(sessRepo)

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Infof("publishing profile events to %s on %v", cfg.Kafka.Topic, cfg.Kafka.Brokers)
	}
	defer func() { _ = publisher.Close() }()

	opts := []service.Option{service.WithPublisher(publisher), service.WithSessions(sessionsSvc)}
	if rdb != nil && cfg.Cache.ProfileTTL > 0 {
		opts = append(opts, service.WithCache(profilecache.NewRedisCache(rdb, cfg.Cache.ProfileTTL)))
	}
	if mongoClient != nil && cfg.MongoDB.Transactions {
		opts = append(opts, service.WithTransactor(database.NewMongoTransactor(mongoClient)))
	}
	profileSvc := service.New(profileRepo, userSvc, opts...)

	auth := middleware.AuthMiddleware(tokens.NewVerifier(cfg.JWT.Secret))
	handlers.NewAuthHandler(cfg, userSvc, sessionsSvc).Register(r, auth)
	profilehandler.RegisterProfileRoutes(r, profileSvc, auth)
	handlers.RegisterSwagger(r)

	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("avatar uploads disabled: %v", err)
		} else {
			handlers.RegisterAvatarRoutes(r, store, userSvc, profileSvc, auth)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when configured backends answer
	r.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ready := true
		deps := map[string]bool{"mongo": true, "redis": true}
		if mongoClient != nil {
			deps["mongo"] = mongoClient.Ping(pingCtx, nil) == nil
		}
		if rdb != nil {
			deps["redis"] = rdb.Ping(pingCtx).Err() == nil
		}
		for _, ok := range deps {
			ready = ready && ok
		}
		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(r, "http.server"),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("devconnector API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warnf("tracing shutdown: %v", err)
	}
	if mongoClient != nil {
		_ = mongoClient.Disconnect(shutdownCtx)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "x-auth-token", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	}
	return c
}
