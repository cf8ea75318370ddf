package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"examseat/internal/cache"
	"examseat/internal/config"
	"examseat/internal/crm"
	"examseat/internal/database"
	"examseat/internal/modules/session"
	syncmod "examseat/internal/modules/sync"
	"examseat/internal/repository"
)

// One-shot reconciliation pass, for cron or manual repair.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx := context.Background()

	var store cache.Store
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connect failed: %v", err)
		}
		store = redisStore
	} else {
		store = cache.NewMemoryStore()
	}

	queue := crm.NewQueue(cfg.CRMMaxPerSecond)
	defer queue.Close()
	crmClient := crm.NewClient(cfg.CRMBaseURL, cfg.CRMToken, queue)

	bookingRepo := repository.NewBookingRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	creditRepo := repository.NewCreditRepository(db)

	sessionSvc := session.NewService(sessionRepo, store)
	pusher := syncmod.NewPusher(crmClient, bookingRepo, creditRepo, cfg.SyncMaxAttempts, cfg.SyncBaseDelay)

	reconciler := syncmod.NewReconciler(sessionRepo, bookingRepo, sessionSvc, pusher)
	if err := reconciler.Run(ctx); err != nil {
		log.Fatalf("reconcile failed: %v", err)
	}

	pusher.Wait()
}
