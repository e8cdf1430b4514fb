package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/docgate/docgate/handlers"
	"github.com/docgate/docgate/internal/access"
	"github.com/docgate/docgate/internal/archive"
	"github.com/docgate/docgate/internal/auth"
	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/database"
	"github.com/docgate/docgate/internal/docstore"
	"github.com/docgate/docgate/internal/storage"
	"github.com/docgate/docgate/internal/trash"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/docgate/docgate/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

func main() {
	// logging level is controlled with LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v oidc=%v archive=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Auth.OIDCIssuer != "", cfg.Archive.Endpoint != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())

	// Connect to Redis early so the rate-limiter can use it when configured
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		} else {
			logger.Infof("Connected to Redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	// Optional global rate limiter (per-user when authenticated, otherwise per-IP)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	ctx := context.Background()

	// Token verifier: OIDC when an issuer is configured, HMAC when a shared
	// secret is set, otherwise the insecure claims parser (integration only).
	var verifier middleware.Verifier
	switch {
	case cfg.Auth.OIDCIssuer != "" && cfg.Auth.OIDCClientID != "":
		ver, err := auth.NewVerifier(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
		if err != nil {
			logger.Fatalf("failed to initialize OIDC verifier: %v", err)
		}
		verifier = ver
	case cfg.Auth.JWTSecret != "":
		verifier = auth.NewHMACVerifier(cfg.Auth.JWTSecret)
	case cfg.Auth.InsecureTokens:
		logger.Warn("enabling insecure token verifier (integration mode)")
		verifier = auth.NewInsecureVerifier()
	default:
		logger.Fatalf("no token verifier configured (set OIDC_ISSUER, JWT_SECRET or ALLOW_INSECURE_TOKEN)")
	}

	// MongoDB is the system of record, the service cannot run without it
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is required")
	}
	client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()
	db := client.Database(cfg.MongoDB.Database)

	// Optional object-storage sink keeps a copy of purged trash records
	var sink trash.Sink
	if cfg.Archive.Endpoint != "" {
		s, err := archive.NewMinIOSink(archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
			Bucket:    cfg.Archive.Bucket,
		})
		if err != nil {
			logger.Warnf("archive sink disabled: %v", err)
		} else {
			sink = s
			logger.Infof("archiving purged trash to %s/%s", cfg.Archive.Endpoint, cfg.Archive.Bucket)
		}
	}

	backend := storage.NewMongoBackend(db)
	gate := access.NewGate(access.NewMongoOracle(db.Collection(cfg.Store.GrantsCollection)))
	vault := trash.New(backend, cfg.Store.TrashCollection, sink)
	store := docstore.New(docstore.Config{
		SafeDelete:        cfg.Store.SafeDelete,
		GlobalCollections: cfg.Store.GlobalCollections,
	}, backend, gate, vault)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies answer
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps["mongo"] = client.Ping(pingCtx, nil) == nil
		if !deps["mongo"] {
			ready = false
		}

		if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
			deps["redis"] = rdb != nil && rdb.Ping(pingCtx).Err() == nil
			if !deps["redis"] {
				ready = false
			}
		} else {
			deps["redis"] = true
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	authed := r.Group("/", middleware.AuthMiddleware(verifier))
	handlers.NewDocsHandler(store).Register(authed)
	handlers.NewTrashHandler(vault, gate).Register(authed)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting docgate on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
