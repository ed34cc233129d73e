// Package server provides the HTTP server for the tourbook application.
// It handles routing, middleware configuration, and server lifecycle
// management, including graceful shutdown and periodic maintenance tasks.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vandreio/tourbook/internal/auth"
	"github.com/vandreio/tourbook/internal/config"
	"github.com/vandreio/tourbook/internal/constants"
	"github.com/vandreio/tourbook/internal/database"
	"github.com/vandreio/tourbook/internal/handlers"
	"github.com/vandreio/tourbook/internal/repository"
	"github.com/vandreio/tourbook/internal/service"
	"github.com/vandreio/tourbook/internal/web"
	"github.com/vandreio/tourbook/migrations"
	"github.com/vandreio/tourbook/scripts"
)

// Handlers contains all HTTP handlers for the application.
type Handlers struct {
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	TourHandler   *handlers.TourHandler
	ReviewHandler *handlers.ReviewHandler
	Views         *web.Views
}

// AuthProviders contains the authentication services shared between
// middleware and handlers.
type AuthProviders struct {
	JWTService  *auth.JWTService
	PasswordCfg *auth.PasswordConfig
}

type repositories struct {
	users   repository.UserRepository
	tours   repository.TourRepository
	reviews repository.ReviewRepository
}

type services struct {
	authService  *service.AuthService
	userService  *service.UserService
	imageService *service.ImageService
	emailService service.EmailSender
}

// Server represents the API server. It owns the database pool, the
// router and the HTTP server, and manages their lifecycle.
type Server struct {
	Config *config.AppConfig
	Db     *database.Pool

	Handlers      *Handlers
	authProviders *AuthProviders

	repos repositories
	svcs  services

	router     chi.Router
	httpServer *http.Server
}

// NewServer creates a fully initialized server. Initialization follows a
// fixed order: database, auth providers, repositories, services, handlers,
// routes.
func NewServer(cfg *config.AppConfig) (*Server, error) {
	s := &Server{Config: cfg}

	if err := s.setupDatabase(); err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	s.setupAuthProviders()
	s.setupRepositories()
	s.setupServices()

	if err := s.setupHandlers(); err != nil {
		return nil, fmt.Errorf("failed to set up handlers: %w", err)
	}

	s.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupDatabase connects to PostgreSQL, runs migrations and seeds
// initial data.
func (s *Server) setupDatabase() error {
	db, err := database.Connect(s.Config)
	if err != nil {
		return err
	}
	s.Db = db

	migrator := migrations.NewMigrator(db)
	if err := migrator.RunMigrations(context.Background()); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	seeder := scripts.NewSeeder(db, auth.ConfigFromAppConfig(s.Config))
	if err := seeder.SeedDatabase(context.Background()); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	return nil
}

func (s *Server) setupAuthProviders() {
	s.authProviders = &AuthProviders{
		JWTService:  auth.NewJWTService(&s.Config.JWT),
		PasswordCfg: auth.ConfigFromAppConfig(s.Config),
	}
}

func (s *Server) setupRepositories() {
	s.repos = repositories{
		users:   repository.NewUserRepository(s.Db),
		tours:   repository.NewTourRepository(s.Db),
		reviews: repository.NewReviewRepository(s.Db),
	}
}

func (s *Server) setupServices() {
	s.svcs = services{
		emailService: service.NewEmailService(&s.Config.Email),
		userService:  service.NewUserService(s.repos.users),
		imageService: service.NewImageService(s.Config.Uploads.Dir),
	}
	s.svcs.authService = service.NewAuthService(
		s.repos.users,
		s.authProviders.JWTService,
		s.authProviders.PasswordCfg,
		s.svcs.emailService,
		s.Config.App.PublicURL,
	)
}

func (s *Server) setupHandlers() error {
	views, err := web.NewViews(s.repos.tours, s.repos.reviews)
	if err != nil {
		return fmt.Errorf("failed to parse page templates: %w", err)
	}

	s.Handlers = &Handlers{
		AuthHandler:   handlers.NewAuthHandler(s.svcs.authService, s.Config),
		UserHandler:   handlers.NewUserHandler(s.svcs.userService, s.repos.users, s.svcs.imageService),
		TourHandler:   handlers.NewTourHandler(s.repos.tours, s.repos.reviews, s.svcs.imageService),
		ReviewHandler: handlers.NewReviewHandler(s.repos.reviews),
		Views:         views,
	}
	return nil
}

// Start runs the HTTP server, blocking until an error occurs or a
// shutdown signal is received.
func (s *Server) Start() error {
	serverErrors := make(chan error, 1)

	go func() {
		log.Info().
			Str("address", s.Config.Server.ServerAddress()).
			Msg("Starting server")

		serverErrors <- s.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	s.SetupMaintenanceTasks()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info().
			Str("signal", sig.String()).
			Msg("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			if closeErr := s.httpServer.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// before closing the database connection.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	log.Info().Msg("Server stopped gracefully")

	s.Db.Close()
	log.Info().Msg("Database connection closed")

	return nil
}

// SetupMaintenanceTasks starts the periodic cleanup of expired password
// reset tokens.
func (s *Server) SetupMaintenanceTasks() {
	ticker := time.NewTicker(constants.MaintenanceInterval)
	go func() {
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

			if count, err := s.repos.users.ClearExpiredResetTokens(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to clear expired reset tokens")
			} else if count > 0 {
				log.Info().Int64("count", count).Msg("Cleared expired reset tokens")
			}

			cancel()
		}
	}()
}
