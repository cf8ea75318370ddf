package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"examseat/internal/cache"
	"examseat/internal/config"
	"examseat/internal/crm"
	"examseat/internal/database"
	"examseat/internal/lock"
	"examseat/internal/middleware"
	"examseat/internal/modules/booking"
	"examseat/internal/modules/credits"
	"examseat/internal/modules/session"
	syncmod "examseat/internal/modules/sync"
	jwtsvc "examseat/internal/pkg/jwt"
	"examseat/internal/pkg/response"
	"examseat/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is empty")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	var store cache.Store
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal(err)
		}
		store = redisStore
	} else {
		// Single-process fallback for local development; locks and counters
		// are not shared across instances without Redis.
		log.Println("REDIS_URL is empty, using in-process cache")
		store = cache.NewMemoryStore()
	}

	queue := crm.NewQueue(cfg.CRMMaxPerSecond)
	defer queue.Close()
	crmClient := crm.NewClient(cfg.CRMBaseURL, cfg.CRMToken, queue)

	bookingRepo := repository.NewBookingRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	creditRepo := repository.NewCreditRepository(db)

	locks := lock.NewManager(store)

	sessionSvc := session.NewService(sessionRepo, store)
	sessionHandler := session.NewHandler(sessionSvc)

	creditSvc := credits.NewService(creditRepo, crmClient)
	creditHandler := credits.NewHandler(creditSvc)

	pusher := syncmod.NewPusher(crmClient, bookingRepo, creditRepo, cfg.SyncMaxAttempts, cfg.SyncBaseDelay)

	detector := booking.NewDuplicateDetector(store, bookingRepo, cfg.DuplicateMarkerTTL)
	bookingSvc := booking.NewService(bookingRepo, sessionSvc, creditSvc, detector, locks, pusher, booking.LockConfig{
		TTL:        cfg.LockTTL,
		Retries:    cfg.LockRetries,
		RetryDelay: cfg.LockRetryDelay,
	})
	bookingHandler := booking.NewHandler(bookingSvc)

	reconciler := syncmod.NewReconciler(sessionRepo, bookingRepo, sessionSvc, pusher)
	stopReconcile := reconciler.Schedule(ctx, cfg.ReconcileInterval)
	defer close(stopReconcile)

	j := jwtsvc.New(cfg.JWTSecret, 24*time.Hour)

	if cfg.AppEnv == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// public
		v1.GET("/healthz", func(c *gin.Context) {
			response.Success(c, http.StatusOK, gin.H{
				"status":         "ok",
				"queue_depth":    queue.Depth(),
				"queue_interval": queue.Interval().String(),
			})
		})
		sessionHandler.RegisterRoutes(v1)

		// protected
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			bookingHandler.RegisterRoutes(protected)
			creditHandler.RegisterRoutes(protected)
		}
	}

	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
