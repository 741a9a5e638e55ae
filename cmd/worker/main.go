package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"classattend/internal/config"
	"classattend/internal/queue"
	"classattend/internal/store"
)

// Worker consumes mark-present events and maintains the per-class present
// tallies the summary endpoint reads.
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
		log.Println("WARNING: redis not reachable, tallies will lag until it is")
	}

	var marks queue.Queue
	if cfg.QueueBackend == "memory" {
		// A memory queue never receives anything from a separate API
		// process; it exists for single-process dev runs.
		marks = queue.NewInMemory(64)
	} else {
		marks = queue.NewRedisQueue(redisClient.Client, "classattend:marks")
	}

	events, err := marks.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for mark events...")
	for m := range events {
		if err := redisClient.AddPresent(ctx, m.ClassID, m.StudentID); err != nil {
			log.Printf("tally update failed for class %s: %v", m.ClassID, err)
			continue
		}
		log.Printf("tallied student %s present for class %s", m.StudentID, m.ClassID)
	}

	log.Println("worker stopped")
}
