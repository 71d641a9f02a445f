package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/calendar"
	"github.com/vzalabardo/tomorrowmanyers/internal/config"
	"github.com/vzalabardo/tomorrowmanyers/internal/database"
	"github.com/vzalabardo/tomorrowmanyers/internal/handlers"
	"github.com/vzalabardo/tomorrowmanyers/internal/middleware"
	"github.com/vzalabardo/tomorrowmanyers/internal/ratelimit"
	"github.com/vzalabardo/tomorrowmanyers/internal/repository"
	"github.com/vzalabardo/tomorrowmanyers/internal/services"
)

// app holds the services shared by the commands.
type app struct {
	auth    *services.AuthService
	users   *services.UserService
	events  *services.EventService
	rsvps   *services.RSVPService
	sync    *services.SyncService
	avatars *services.AvatarService
	hub     *services.WSHub
}

func newApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (*app, error) {
	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	rsvpRepo := repository.NewRSVPRepository(db)

	source, err := calendar.New(ctx, cfg.Calendar)
	switch {
	case errors.Is(err, calendar.ErrNotConfigured):
		log.Warn().Msg("Calendar sync is not configured")
		source = nil
	case err != nil:
		return nil, fmt.Errorf("failed to create calendar source: %w", err)
	}

	avatars, err := services.NewAvatarService(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed to create avatar service: %w", err)
	}

	// Initialize services
	hub := services.NewWSHub()
	return &app{
		auth:    services.NewAuthService(userRepo, cfg.JWT.Secret, services.WithSessionTTL(cfg.Session.TTL)),
		users:   services.NewUserService(userRepo),
		events:  services.NewEventService(eventRepo, rsvpRepo, userRepo),
		rsvps:   services.NewRSVPService(eventRepo, rsvpRepo, hub),
		sync:    services.NewSyncService(eventRepo, source, cfg.Calendar.FetchTimeout, cfg.Calendar.WindowMonths),
		avatars: avatars,
		hub:     hub,
	}, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	// Connect to database
	db, err := database.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	a, err := newApp(ctx, cfg, db)
	if err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.Deps{
		Auth:       a.auth,
		Users:      a.users,
		Events:     a.events,
		RSVPs:      a.rsvps,
		Sync:       a.sync,
		Avatars:    a.avatars,
		Hub:        a.hub,
		Sessions:   middleware.NewSessions(a.auth, cfg.Session.CookieName, cfg.IsProduction()),
		Limiter:    ratelimit.NewSlidingWindow(cfg.RateLimit.LoginAttempts, cfg.RateLimit.Window),
		CalendarID: cfg.Calendar.CalendarID,
		StaticDir:  cfg.Server.StaticDir,
		TrustProxy: cfg.Server.TrustProxy,
		Middleware: []func(http.Handler) http.Handler{
			chiMiddleware.Logger,
			middleware.CORS(cfg.Server.AllowedOrigins),
		},
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("env", cfg.Env).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; they end
	// when the process exits.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
