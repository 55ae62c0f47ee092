package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"reception/internal/audit"
	"reception/internal/config"
	"reception/internal/queue"
	"reception/internal/store"
)

// The relay drains the Redis audit queue and delivers batches to the sink.
// Run it alongside the API when QUEUE_BACKEND=redis; with the memory backend
// the API delivers in-process and no relay is needed.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis not reachable at %s, will keep polling", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, "reception:audit")
	client := audit.NewClient(cfg.AuditURL, cfg.AuditAPIKey)
	dispatcher := audit.NewDispatcher(q, client, cfg.AuditMaxAttempts, func(n int) {
		log.Printf("relay: dropped %d events", n)
	})

	log.Printf("audit relay started, delivering to %s", cfg.AuditURL)
	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("relay stopped: %v", err)
	}
	log.Println("audit relay exited")
}
