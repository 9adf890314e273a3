package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostelhub/internal/attendance"
	"hostelhub/internal/cloudinary"
	"hostelhub/internal/config"
	"hostelhub/internal/enrollment"
	"hostelhub/internal/faceclient"
	"hostelhub/internal/hostel"
	"hostelhub/internal/httpapi"
	"hostelhub/internal/httpmiddleware"
	"hostelhub/internal/identity"
	"hostelhub/internal/logger"
	"hostelhub/internal/maintenance"
	"hostelhub/internal/mealplan"
	"hostelhub/internal/ocrclient"
	"hostelhub/internal/queue"
	"hostelhub/internal/store"
	"hostelhub/internal/visitor"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database not reachable")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	locker := store.NewLocker(redisClient.Client, 10*time.Second)

	var jobs queue.Queue
	switch cfg.QueueBackend {
	case "memory":
		jobs = queue.NewInMemory(64)
	case "rabbit":
		rq, err := queue.NewRabbitQueue(cfg.AMQPURL, "hostelhub.jobs")
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq not reachable")
		}
		defer rq.Close()
		jobs = rq
	default:
		jobs = queue.NewRedisQueue(redisClient.Client, "hostelhub:jobs")
	}
	log.Info().Str("backend", cfg.QueueBackend).Msg("job queue ready")

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceMock)
	ocr := ocrclient.New(cfg.OCRServiceURL)

	var cdn *cloudinary.Client
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cdn = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Info().Str("cloud", cfg.CloudinaryCloudName).Msg("cloudinary configured")
	} else {
		log.Warn().Msg("cloudinary not configured, image endpoints degraded")
	}

	userRepo := identity.NewRepository(db.Client)
	attendanceRepo := attendance.NewRepository(db.Client)
	roomRepo := hostel.NewRepository(db.Client)
	encodingRepo := enrollment.NewRepository(db.Client)
	visitorRepo := visitor.NewRepository(db.Client)
	maintenanceRepo := maintenance.NewRepository(db.Client)
	mealRepo := mealplan.NewRepository(db.Client)

	users := identity.NewService(userRepo)

	// Without an admin account the management surface is unreachable, so the
	// first one comes from the environment.
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := users.EnsureAdmin(context.Background(), identity.BootstrapParams{
			Name:     cfg.AdminName,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("admin bootstrap failed")
		}
		if created {
			log.Info().Str("email", cfg.AdminEmail).Msg("admin account created")
		}
	} else {
		log.Warn().Msg("ADMIN_EMAIL/ADMIN_PASSWORD not set, no admin account will be bootstrapped")
	}

	att := attendance.NewService(attendanceRepo, userRepo, locker)
	rooms := hostel.NewService(roomRepo, userRepo, locker)
	visitors := visitor.NewService(visitorRepo, userRepo, log)
	tickets := maintenance.NewService(maintenanceRepo, userRepo, log)

	var faceImages enrollment.ImageStore
	var mealFiles mealplan.ImageStore
	if cdn != nil {
		faceImages = cdn
		mealFiles = cdn
	}
	faces := enrollment.NewService(encodingRepo, userRepo, face, faceImages, log)
	meals := mealplan.NewService(mealRepo, jobs, ocr, mealFiles, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())
	r.Use(httpapi.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "db": dbHealthy, "redis": redisHealthy})
	})

	handler := httpapi.New(cfg, log, users, att, rooms, faces, face, visitors, tickets, meals)
	handler.Routes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
