package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/avatarctic/credential-management/configs"
	"github.com/avatarctic/credential-management/internal/application/services"
	"github.com/avatarctic/credential-management/internal/core/ports"
	"github.com/avatarctic/credential-management/internal/infrastructure/db"
	"github.com/avatarctic/credential-management/internal/infrastructure/email"
	"github.com/avatarctic/credential-management/internal/infrastructure/health"
	"github.com/avatarctic/credential-management/internal/infrastructure/httpserver"
	"github.com/avatarctic/credential-management/internal/infrastructure/redis"
	"github.com/avatarctic/credential-management/internal/infrastructure/repositories"
	"github.com/avatarctic/credential-management/internal/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting credential management service...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Initialize repositories
	userGateway := repositories.NewUserGatewayRepository(database, logger)
	redisRateLimitRepo := repositories.NewRateLimitRedisRepository(redisClient)

	// Initialize the notifier
	notifierConfig := &email.NotifierConfig{
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
		CompanyName:    cfg.Email.CompanyName,
		BaseURL:        cfg.Email.BaseURL,
	}
	notifier, err := email.NewSendGridNotifier(notifierConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifier:", err)
	}

	// Wire the workflow engine
	managementOpts := services.ManagementOptions{
		LongTokenLen:     cfg.Management.LongTokenLen,
		ShortTokenLen:    cfg.Management.ShortTokenLen,
		ShortTokenDigits: cfg.Management.ShortTokenDigits,
		VerifyDelay:      cfg.Management.VerifyDelay,
		ResetDelay:       cfg.Management.ResetDelay,
		IdentityFields:   cfg.Management.IdentityFields,
		OwnAcctOnly:      cfg.Management.OwnAcctOnly,
		ActionsNoAuth:    cfg.Management.ActionsNoAuth,
		ReturnTokens:     cfg.Management.ReturnTokens,
	}
	managementService := services.NewManagementService(
		userGateway,
		notifier,
		utils.NewBcryptHasher(cfg.Management.BcryptCost),
		utils.NewRandomTokenGenerator(),
		managementOpts,
		logger,
	)

	rateLimiterConfig := &services.RateLimiterConfig{
		DefaultRequestsPerMinute: cfg.RateLimit.DefaultRequestsPerMinute,
		BurstMultiplier:          cfg.RateLimit.BurstMultiplier,
		Window:                   cfg.RateLimit.Window,
		KeyPrefix:                cfg.RateLimit.KeyPrefix,
	}
	rateLimiterService := services.NewRateLimiterService(redisRateLimitRepo, rateLimiterConfig, logger)

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database), health.NewRedisHealthChecker(redisClient)}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	// Initialize HTTP server using ServerDeps for clearer wiring
	deps := httpserver.ServerDeps{
		ManagementService:  managementService,
		RateLimiterService: rateLimiterService,
		HealthCheckers:     hcSlice,
	}

	server := httpserver.NewServer(serverConfig, cfg.JWT.Secret, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
