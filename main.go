package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mission-rewards-system/cache"
	"mission-rewards-system/config"
	"mission-rewards-system/handlers"
	"mission-rewards-system/middleware"
	"mission-rewards-system/models"
	"mission-rewards-system/services"
	"mission-rewards-system/utils"
	"mission-rewards-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// R2 is optional: without it badge icons are not uploaded and file proofs have no preview URL
	var store *utils.R2Store
	if cfg.R2.Enabled() {
		store, err = utils.NewR2Store(ctx, cfg.R2.AccountID, cfg.R2.AccessKeyID, cfg.R2.AccessKeySecret, cfg.R2.Bucket, cfg.R2.CDNBaseURL)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	} else {
		log.Println("⚠️  R2 not configured, uploads and proof previews disabled")
	}

	registry := cache.NewRegistry(cfg.CacheTTL)

	localFinalizer := services.NewFinalizeService(db)
	var finalizer services.Finalizer = localFinalizer
	if cfg.FinalizerMode == config.FinalizerModeRPC {
		finalizer = services.NewRPCFinalizer(cfg.BackendRPCURL, cfg.BackendRPCKey, utils.HTTPClient)
		log.Printf("🔗 Finalizer delegated to %s", cfg.BackendRPCURL)
	}

	profileService := services.NewProfileService(db)
	var (
		icons  services.IconUploader
		proofs services.ProofSigner
	)
	if store != nil {
		icons, proofs = store, store
	}
	badgeService := services.NewBadgeService(db, icons)
	missionService := services.NewMissionService(db, registry, proofs, profileService)
	rewardService := services.NewRewardService(db)
	raffleService := services.NewRaffleService(db)
	recorder := services.NewDecisionRecorder(finalizer)
	invalidator := services.NewSubmissionCacheInvalidator(registry)
	authClient := services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.ServiceToken)

	if err := badgeService.SeedCatalog(ctx); err != nil {
		log.Fatal("failed to seed badge catalog:", err)
	}

	sched, err := services.BackgroundJobs{
		Cache:         registry,
		Raffles:       raffleService,
		Finalizer:     finalizer,
		RetroInterval: cfg.RetroBadgeInterval,
	}.Start(ctx)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Printf("scheduler shutdown: %v", err)
		}
	}()

	if cfg.ProfileSyncURL != "" {
		workers.NewProfileSyncWorker(db, cfg.ProfileSyncURL, "/api/v1/public/profiles", cfg.ServiceToken, nil).Start(ctx)
	} else {
		log.Println("⚠️  PROFILE_SYNC_URL not set, moderation queues will not show usernames")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // badge icons
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// 🔐❗ Only Gateway requests, except the SSE stream which authenticates by query token
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, "/user/rewards/stream"))
	app.Use(middleware.UserContextMiddleware())

	handlers.SetupMissionRoutes(app, missionService)
	handlers.SetupModerationRoutes(app, missionService, recorder, invalidator)
	handlers.SetupRewardRoutes(app, rewardService, badgeService, authClient)
	handlers.SetupBadgeRoutes(app, badgeService, finalizer)
	handlers.SetupRaffleRoutes(app, raffleService)
	if cfg.FinalizerMode == config.FinalizerModeLocal {
		handlers.SetupRPCRoutes(app, localFinalizer)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Finalizer mode: %s", cfg.FinalizerMode)
	log.Printf("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
