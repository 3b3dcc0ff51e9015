package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seatvault/reservation-engine/src/delivery/rest"
	"github.com/seatvault/reservation-engine/src/internal/config"
	"github.com/seatvault/reservation-engine/src/internal/engine"
	"github.com/seatvault/reservation-engine/src/internal/identity"
	"github.com/seatvault/reservation-engine/src/internal/lock"
	"github.com/seatvault/reservation-engine/src/internal/payment"
	bookingrepo "github.com/seatvault/reservation-engine/src/internal/repository/booking"
	reservationrepo "github.com/seatvault/reservation-engine/src/internal/repository/reservation"
	seatrepo "github.com/seatvault/reservation-engine/src/internal/repository/seat"
	tenantrepo "github.com/seatvault/reservation-engine/src/internal/repository/tenant"
	userrepo "github.com/seatvault/reservation-engine/src/internal/repository/user"
	"github.com/seatvault/reservation-engine/src/internal/store"
	"github.com/seatvault/reservation-engine/src/utils"
	"github.com/seatvault/reservation-engine/src/utils/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := utils.NewLogger(cfg.LogLevel, cfg.IsProduction())
	logger.Info("Starting reservation engine", "environment", cfg.Environment)

	postgresClient, err := database.NewPostgresClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer postgresClient.Close()

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Repositories
	tenants := tenantrepo.NewPostgresTenantRepository(postgresClient.DB)
	users := userrepo.NewPostgresUserRepository(postgresClient.DB)
	seats := seatrepo.NewPostgresSeatRepository(postgresClient.DB)
	reservations := reservationrepo.NewPostgresReservationRepository(postgresClient.DB)
	bookings := bookingrepo.NewPostgresBookingRepository(postgresClient.DB)

	st := store.New(postgresClient.DB)
	locks := lock.New(redisClient.Client)

	// Identity Gate
	tenantCache := identity.NewTenantCache(1 * time.Minute)
	defer tenantCache.Shutdown()
	gate := identity.New(tenants, users, tenantCache, cfg.UserTokenSecret)

	// Payment Verifier. Reference mode needs a real gateway client; none
	// of the example pack ships one, so production deployments are
	// expected to run simulated or signed-callback mode until one is
	// wired in.
	verifier := payment.New(payment.Mode(cfg.PaymentMode), nil, cfg.PaymentSharedSecret)

	// Reservation Engine
	reservationEngine := engine.New(
		seats, reservations, bookings,
		st, locks, verifier,
		cfg.LockTTL, cfg.PaymentGatewayKey,
		logger,
	)

	// Janitor sweeps expired ACTIVE reservations in the background.
	janitor := engine.NewJanitor(reservations, postgresClient.DB, logger, cfg.JanitorInterval, cfg.JanitorBatchSize)
	janitor.Start()
	defer janitor.Shutdown()

	restContainer := rest.NewRestContainer(reservationEngine, gate, logger)
	router := restContainer.Router.SetupRoutes()
	logger.Info("REST delivery initialized")

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Listening", "address", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-metricsCtx.Done():
				return
			case <-ticker.C:
				logger.Info("Janitor stats", "stats", janitor.GetStats())
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopMetrics()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited gracefully")
}
