package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/threesixtyvue/outreach/internal/config"
	"github.com/threesixtyvue/outreach/internal/mailer"
	"github.com/threesixtyvue/outreach/internal/outreach"
	"github.com/threesixtyvue/outreach/internal/queue"
	"github.com/threesixtyvue/outreach/internal/worker"

	_ "github.com/lib/pq"
)

// Standalone send worker. Drains the delivery queue without serving HTTP,
// so send capacity can scale independently of the API.
func main() {
	log.Println("Starting Outreach Send Worker...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	sender, err := mailer.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}

	store := outreach.NewStore(db)
	sendQueue := queue.New(redisClient, "outreach")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := worker.NewSendWorkerPool(store, sendQueue, sender, cfg.Worker.Concurrency, cfg.Worker.MaxAttempts)
	pool.Start()

	maintainer := queue.NewMaintainer(sendQueue)
	go maintainer.Start(ctx)

	log.Println("Worker running...")
	<-ctx.Done()

	log.Println("Shutting down...")
	pool.Stop()
	log.Println("Worker stopped")
}
