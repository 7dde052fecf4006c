package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuelane/pool-league-system/config"
	"github.com/cuelane/pool-league-system/db"
	"github.com/cuelane/pool-league-system/handlers"
	"github.com/cuelane/pool-league-system/live"
	"github.com/cuelane/pool-league-system/pairing"
	"github.com/cuelane/pool-league-system/repositories"
	"github.com/cuelane/pool-league-system/routes"
	"github.com/cuelane/pool-league-system/services"
	"github.com/cuelane/pool-league-system/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("object storage not configured, avatar and logo uploads disabled")
	}

	wsHub := live.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	txManager := repositories.NewSQLTxManager(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	winnerRepo := repositories.NewPostgresWinnerRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	logger.Info("repositories initialized")

	var emailSender services.EmailSender
	if cfg.SMTPConfigured() {
		emailSender = services.NewEmailService(cfg)
	} else {
		logger.Warn("SMTP not configured, email notifications disabled")
	}

	notificationService := services.NewNotificationService(notificationRepo, userRepo, wsHub, emailSender, logger)
	userService := services.NewUserService(userRepo, matchRepo, uploader, logger)
	authService := services.NewAuthService(userRepo)
	matchService := services.NewMatchService(
		txManager,
		matchRepo,
		winnerRepo,
		userService,
		notificationService,
		logger,
		cfg.ForfeitWinnerPoints,
	)
	generator := pairing.NewKnockoutGenerator(matchRepo, winnerRepo, registrationRepo, userRepo)
	progressionService := services.NewProgressionService(
		txManager,
		tournamentRepo,
		matchRepo,
		winnerRepo,
		generator,
		wsHub,
		logger,
	)
	tournamentService := services.NewTournamentService(tournamentRepo, matchRepo, winnerRepo, uploader, wsHub, logger)
	registrationService := services.NewRegistrationService(registrationRepo, tournamentRepo, userRepo)
	logger.Info("services initialized")

	// Completion sweep: closes tournaments whose final winner exists.
	go func() {
		ticker := time.NewTicker(cfg.CompletionSweepInterval)
		defer ticker.Stop()
		logger.Info("completion sweep started", slog.Duration("interval", cfg.CompletionSweepInterval))

		for {
			if n, sweepErr := tournamentService.CompleteFinished(context.Background()); sweepErr != nil {
				logger.Error("completion sweep failed", slog.Any("error", sweepErr))
			} else if n > 0 {
				logger.Info("completion sweep finished tournaments", slog.Int("count", n))
			}
			<-ticker.C
		}
	}()

	router := routes.InitRoutes(routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		User:         handlers.NewUserHandler(userService, notificationService),
		Tournament:   handlers.NewTournamentHandler(tournamentService, progressionService, matchService),
		Match:        handlers.NewMatchHandler(matchService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, logger),
	}, cfg.JWTSecretKey)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("forced shutdown failed", slog.Any("error", closeErr))
			}
		}
		logger.Info("server stopped")
	}
}
