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

	"attachke/internal/app"
	"attachke/internal/config"
	"attachke/internal/database"
	"attachke/internal/events"
	apphttp "attachke/internal/http"
	"attachke/internal/http/handlers"
	httpmw "attachke/internal/http/middleware"
	"attachke/internal/integration/adzuna"
	"attachke/internal/integration/jooble"
	"attachke/internal/mpesa"
	"attachke/internal/observability"
	"attachke/internal/repository/postgres"
	"attachke/internal/security"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger()
	db := database.NewPostgres(database.PostgresConfig{
		DSN:             cfg.PostgresDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdle:     cfg.DBConnMaxIdle,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	opportunityRepo := postgres.NewOpportunityRepository(db)
	applicationRepo := postgres.NewApplicationRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)

	jwtProvider := security.NewJWTProvider(cfg.JWTSecret, cfg.AccessTokenTTL)

	tokenCache := mpesa.NewTokenCache(cfg.MpesaBaseURL, cfg.MpesaConsumerKey, cfg.MpesaConsumerSecret, nil)
	mpesaClient := mpesa.NewClient(mpesa.ClientConfig{
		BaseURL:     cfg.MpesaBaseURL,
		ShortCode:   cfg.MpesaShortCode,
		Passkey:     cfg.MpesaPasskey,
		CallbackURL: cfg.MpesaCallbackURL,
	}, tokenCache, nil)

	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, logger)
	defer publisher.Close()

	adzunaClient := adzuna.NewClient(cfg.AdzunaAppID, cfg.AdzunaAppKey, &http.Client{Timeout: 15 * time.Second})
	joobleClient := jooble.NewClient(cfg.JoobleAPIKey, &http.Client{Timeout: 15 * time.Second})

	authService := app.NewAuthService(userRepo, jwtProvider, logger)
	opportunityService := app.NewOpportunityService(opportunityRepo, publisher, logger)
	applicationService := app.NewApplicationService(applicationRepo, opportunityRepo, logger)
	paymentService := app.NewPaymentService(applicationRepo, mpesaClient, publisher, analyticsRepo, logger, cfg.ApplicationFee)
	ingestService := app.NewIngestService(opportunityRepo, adzunaClient, joobleClient, logger)
	adminService := app.NewAdminService(userRepo, opportunityRepo, applicationRepo, analyticsRepo, logger)

	var limiter httpmw.Limiter
	if cfg.RedisAddr != "" {
		limiter = httpmw.NewRedisLimiter(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	} else {
		limiter = httpmw.NewRateLimiter()
	}

	router := apphttp.NewRouter(apphttp.RouterDependencies{
		AuthHandler:        handlers.NewAuthHandler(authService, limiter),
		OpportunityHandler: handlers.NewOpportunityHandler(opportunityService),
		ApplicationHandler: handlers.NewApplicationHandler(applicationService, cfg.ApplicationFee),
		PaymentHandler:     handlers.NewPaymentHandler(paymentService, limiter, logger),
		AdminHandler:       handlers.NewAdminHandler(adminService, ingestService),
		AuthMiddleware:     httpmw.NewAuthMiddleware(jwtProvider),
		Logger:             logger,
		RequestTimeout:     cfg.RequestTimeout,
	})
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	reconcileCtx, stopReconcile := context.WithCancel(context.Background())
	go runReconcileLoop(reconcileCtx, paymentService, cfg.ReconcileInterval, cfg.ReconcileAfter)

	go func() {
		logger.Info("API started on :" + cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	stopReconcile()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}

// runReconcileLoop periodically settles payments whose provider callback never
// arrived, so a dropped webhook cannot strand an application in pending.
func runReconcileLoop(ctx context.Context, payments *app.PaymentService, interval, olderThan time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payments.ReconcilePending(ctx, olderThan, 50)
		}
	}
}
