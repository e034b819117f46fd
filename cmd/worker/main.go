package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"streaming-catalog/internal/config"
	"streaming-catalog/internal/lease"
	"streaming-catalog/internal/pipeline"
	"streaming-catalog/internal/ratelimit"
	"streaming-catalog/internal/store"
	"streaming-catalog/internal/telemetry"
	"streaming-catalog/internal/tmdb"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	st, err := store.New(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoCollection)
	if err != nil {
		log.Fatalf("connect store: %v", err)
	}
	defer st.Close(context.Background())

	if err := st.EnsureIndexes(ctx); err != nil {
		log.Fatalf("catalog indexes: %v", err)
	}

	leaseStore := lease.NewMongoStore(st.Collection(cfg.LeaseCollection))
	if err := leaseStore.EnsureIndexes(ctx); err != nil {
		log.Fatalf("lease indexes: %v", err)
	}

	manager := lease.NewManager(leaseStore, lease.Options{
		TotalWorkers:      cfg.TotalWorkers,
		InstanceID:        cfg.InstanceID,
		StaleAfter:        cfg.LeaseStaleAfter,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})
	workerID, err := manager.Acquire(ctx)
	if err != nil {
		log.Fatalf("acquire worker lease: %v", err)
	}
	log.Printf("instance %s running as worker %d (fallback=%v)", cfg.InstanceID, workerID, manager.IsFallback())

	// All replicas call the upstream API with one shared key; without Redis
	// each replica paces itself locally instead.
	var limiter tmdb.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiter = ratelimit.NewTokenBucket(client, cfg.TotalWorkers*10, float64(cfg.TotalWorkers), time.Hour)
	}
	client := tmdb.NewClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey, limiter, cfg.RateLimitDelay)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	log.Printf("worker %d starting phase %s for content %s", workerID, cfg.ProcessType, cfg.ContentType)
	runner := pipeline.New(cfg, st, client, workerID)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("worker stopped: %v", err)
	}

	releaseCtx, cancelRelease := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelRelease()
	if err := manager.Close(releaseCtx); err != nil {
		log.Printf("release worker lease: %v", err)
	}
}
