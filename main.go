package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/auth"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
	"github.com/tempus-hq/timetracker-engine/pkg/config"
	"github.com/tempus-hq/timetracker-engine/pkg/database"
	"github.com/tempus-hq/timetracker-engine/pkg/handlers"
	"github.com/tempus-hq/timetracker-engine/pkg/logging"
	"github.com/tempus-hq/timetracker-engine/pkg/mail"
	"github.com/tempus-hq/timetracker-engine/pkg/middleware"
	"github.com/tempus-hq/timetracker-engine/pkg/repositories"
	"github.com/tempus-hq/timetracker-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const migrationsPath = "migrations"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auth.InitSessionStore(cfg.SessionSecret)

	// Run migrations via database/sql (golang-migrate requirement), then
	// open the pgx pool the application runs on.
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, migrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	contributorRepo := repositories.NewContributorRepository(db)
	activityRepo := repositories.NewActivityRepository(db)
	invitationRepo := repositories.NewInvitationRepository(db)

	// Authorization
	resolver := authz.NewResolver(contributorRepo)
	authorizer := authz.NewAuthorizer(resolver, orgRepo)

	// Services
	orgService := services.NewOrganizationService(orgRepo, contributorRepo, db, logger)
	projectService := services.NewProjectService(projectRepo, contributorRepo, db, logger)
	contributorService := services.NewContributorService(userRepo, orgRepo, contributorRepo, invitationRepo, db, logger)
	activityService := services.NewActivityService(activityRepo, contributorRepo, logger)
	activationService := services.NewActivationService(userRepo, invitationRepo, logger)

	var mailer mail.Mailer
	if cfg.SMTP.IsConfigured() {
		mailer = mail.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.BaseURL)
	} else {
		logger.Warn("SMTP not configured, activation mail will only be logged")
		mailer = mail.NewLogMailer(logger)
	}

	dispatcher := services.NewInvitationDispatcher(invitationRepo, db, mailer, services.DispatcherConfig{
		Interval:    time.Duration(cfg.Invitations.PollSeconds) * time.Second,
		BatchSize:   cfg.Invitations.BatchSize,
		MaxAttempts: cfg.Invitations.MaxAttempts,
	}, logger)
	go dispatcher.Run(ctx)

	// HTTP routes
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg.Version, logger).RegisterRoutes(mux)
	handlers.NewActivationHandler(activationService, logger).RegisterRoutes(mux)
	handlers.NewOrganizationsHandler(orgService, authorizer, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewMembersHandler(orgService, authorizer, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewProjectsHandler(orgService, projectService, authorizer, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewContributorsHandler(orgService, projectService, contributorService, authorizer, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewActivitiesHandler(orgService, projectService, activityService, authorizer, logger).RegisterRoutes(mux, authMiddleware)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting timetracker-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if cfg.TLSCertPath != "" {
			errCh <- server.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			errCh <- server.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
