package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sessionclock-backend/internal/config"
	"sessionclock-backend/internal/database"
	"sessionclock-backend/internal/handlers"
	"sessionclock-backend/internal/lifecycle"
	"sessionclock-backend/internal/middleware"
	"sessionclock-backend/internal/repository"
	"sessionclock-backend/internal/router"
	"sessionclock-backend/internal/services"
	"sessionclock-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting SessionClock Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL, database.PoolSize(cfg.DBMaxConns, cfg.WriteWorkers))
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Client ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	accountRepo := repository.NewAccountRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)
	timerRepo := repository.NewTimerRepo(pool)

	// ──── Step 5: Start Write-Behind Pool ────
	writePool := worker.NewPool(cfg.WriteWorkers, cfg.WriteQueueSize, cfg.WriteTimeout)
	writePool.Start()
	log.Printf("✓ Write-behind pool started (%d goroutines)", cfg.WriteWorkers)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.AccessTokenTTL)
	sessionStore := services.NewRedisSessionStore(redisClient)
	authService := services.NewAuthService(accountRepo, profileRepo, sessionStore, jwtAuth, cfg.RefreshTokenTTL)
	workflow := services.NewTimerWorkflow(timerRepo, profileRepo)
	queueService := services.NewQueueService(timerRepo, profileRepo)

	// ──── Step 6: Start Lifecycle Views ────
	views := lifecycle.NewManager(timerRepo, worker.NewTimerWriter(writePool, timerRepo), lifecycle.Options{
		TickInterval:   cfg.TickInterval,
		FocusInterval:  cfg.FocusInterval,
		ReloadInterval: cfg.ReloadInterval,
		Location:       cfg.Location(),
	}, cfg.ViewIdleTimeout)
	views.Start()

	authService.OnSessionChange(func(ev services.SessionEvent) {
		switch ev.Kind {
		case services.SessionSignedOut:
			views.Unmount(ev.SessionID)
		case services.SessionProfileChanged:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := views.UpdateActor(ctx, *ev.Profile); err != nil {
				log.Printf("lifecycle: failed to update views for %s: %v", ev.UserID, err)
			}
		}
	})
	log.Println("✓ Lifecycle view manager started")

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	timerHandler := handlers.NewTimerHandler(workflow, views)
	adminHandler := handlers.NewAdminHandler(workflow, queueService, authService, views)

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authService,
		authLimiter,
		authHandler,
		timerHandler,
		adminHandler,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown; pending timer writes drain before exit.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)

		views.Close()
		writePool.Stop()
		authLimiter.Stop()
	}()

	log.Printf("✓ SessionClock Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API:     http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  Metrics: http://localhost:%s/metrics", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-shutdownDone
}
