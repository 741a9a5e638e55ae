package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classattend/internal/auth"
	"classattend/internal/config"
	"classattend/internal/handler"
	"classattend/internal/queue"
	"classattend/internal/roster"
	"classattend/internal/session"
	"classattend/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var marks queue.Queue
	if cfg.QueueBackend == "memory" {
		marks = queue.NewInMemory(64)
	} else {
		marks = queue.NewRedisQueue(redisClient.Client, "classattend:marks")
	}

	repo := roster.NewRepository(db.Client)
	sessions := session.NewCoordinator(repo)
	guard := auth.NewGuard(repo, repo, cfg.JWTSigningKey, cfg.JWTIssuer)
	h := handler.New(repo, sessions, marks, redisClient, cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	authRoutes := r.Group("/auth")
	authRoutes.POST("/signup", h.Signup)
	authRoutes.POST("/login", h.Login)
	authRoutes.GET("/me", guard.RequireAuth(), h.Me)

	classRoutes := r.Group("/class")
	classRoutes.POST("", guard.RequireTeacher(), h.CreateClass)
	classRoutes.GET("/students", guard.RequireTeacher(), h.ListStudents)
	classRoutes.POST("/:id/add-student", guard.RequireTeacher(), h.AddStudent)
	classRoutes.GET("/:id", guard.RequireClassMember("id"), h.GetClass)
	classRoutes.GET("/:id/my-attendance", guard.RequireStudent(), h.MyAttendance)

	attendanceRoutes := r.Group("/attendance")
	attendanceRoutes.POST("/start", guard.RequireTeacher(), h.StartSession)
	attendanceRoutes.POST("/end", guard.RequireTeacher(), h.EndSession)
	attendanceRoutes.GET("/check-active-session/:classId", guard.RequireClassMember("classId"), h.CheckActiveSession)
	attendanceRoutes.POST("/mark-present", guard.RequireStudent(), h.MarkPresent)
	attendanceRoutes.GET("/summary/:classId", guard.RequireTeacher(), h.SessionSummary)

	r.StaticFile("/", "web/index.html")
	r.Static("/static", "web/static")

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
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

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
