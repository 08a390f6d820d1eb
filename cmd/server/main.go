package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/threesixtyvue/outreach/internal/aigen"
	"github.com/threesixtyvue/outreach/internal/api"
	"github.com/threesixtyvue/outreach/internal/config"
	"github.com/threesixtyvue/outreach/internal/mailer"
	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/pkg/distlock"
	"github.com/threesixtyvue/outreach/internal/queue"
	"github.com/threesixtyvue/outreach/internal/scheduler"
	"github.com/threesixtyvue/outreach/internal/scraper"
	"github.com/threesixtyvue/outreach/internal/tracking"
	"github.com/threesixtyvue/outreach/internal/verify"
	"github.com/threesixtyvue/outreach/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  Three Sixty Vue Outreach Server (cmd/server/main.go)      ║")
	log.Println("║  Campaign scheduling, lead pipeline, and tracking API      ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Failed to ping database: %v", err)
	}
	pingCancel()
	log.Println("Connected to database")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, pingCancel = context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatalf("Failed to ping redis: %v", err)
	}
	pingCancel()
	log.Println("Connected to redis")

	store := outreach.NewStore(db)
	sendQueue := queue.New(redisClient, "outreach")

	sender, err := mailer.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}

	tickLock := distlock.New(redisClient, "outreach:tick", cfg.Scheduler.LockTTL())
	sched := scheduler.New(store, sendQueue, tickLock, cfg.Tracking.BaseURL, cfg.Tracking.SchedulerURL)

	var verifier *verify.Client
	if cfg.ZeroBounce.Enabled {
		verifier = verify.NewClient(cfg.ZeroBounce.APIKey, cfg.ZeroBounce.BaseURL, cfg.ZeroBounce.Timeout())
		log.Println("Email verification enabled")
	}
	var generator *aigen.Generator
	if cfg.OpenAI.Enabled {
		generator = aigen.NewGenerator(cfg.OpenAI)
		log.Printf("AI campaign generation enabled (model=%s)", cfg.OpenAI.Model)
	}
	var runner *scraper.Runner
	if cfg.Scraper.ScriptPath != "" {
		runner = scraper.NewRunner(cfg.Scraper)
		log.Printf("Scraper enabled (script=%s)", cfg.Scraper.ScriptPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background services
	pool := worker.NewSendWorkerPool(store, sendQueue, sender, cfg.Worker.Concurrency, cfg.Worker.MaxAttempts)
	pool.Start()

	maintainer := queue.NewMaintainer(sendQueue)
	go maintainer.Start(ctx)

	go sched.Run(ctx, cfg.Scheduler.TickInterval())

	// HTTP surface
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	handlers := api.NewHandlers(store, sched, sendQueue, verifier, generator, runner)
	r.Route("/api", func(r chi.Router) {
		handlers.RegisterRoutes(r)
		r.Mount("/track", tracking.NewHandler(store).Routes())
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized — server is ready")

	<-done
	log.Println("Shutting down...")

	cancel()
	pool.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
