package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/mediconnect/mediconnect/internal/config"
	"github.com/mediconnect/mediconnect/internal/domain/clinical"
	"github.com/mediconnect/mediconnect/internal/domain/identity"
	"github.com/mediconnect/mediconnect/internal/domain/scheduling"
	"github.com/mediconnect/mediconnect/internal/platform/access"
	"github.com/mediconnect/mediconnect/internal/platform/apperr"
	"github.com/mediconnect/mediconnect/internal/platform/auth"
	"github.com/mediconnect/mediconnect/internal/platform/db"
	"github.com/mediconnect/mediconnect/internal/platform/middleware"
	"github.com/mediconnect/mediconnect/internal/platform/validate"
	"github.com/mediconnect/mediconnect/internal/platform/video"
)

const version = "0.1.0"

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// newRevocationStore returns the shared Redis list when REDIS_URL is set and
// a process-local one otherwise. The returned func releases it.
func newRevocationStore(ctx context.Context, cfg *config.Config) (auth.RevocationList, func() error, error) {
	if cfg.RedisURL == "" {
		store := auth.NewMemoryRevocationStore()
		return store, store.Close, nil
	}
	client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewRedisRevocationStore(client), client.Close, nil
}

// newAuthenticator picks the single authentication strategy for this
// deployment.
func newAuthenticator(cfg *config.Config, revoked auth.RevocationList) (auth.Authenticator, error) {
	if cfg.HeaderMode() {
		return auth.NewHeaderAuthenticator(), nil
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		SigningKey: []byte(cfg.JWTKey),
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		TTL:        cfg.JWTTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}
	return auth.NewTokenAuthenticator(issuer, revoked), nil
}

// newServer builds the echo instance with every route. The pool is only
// touched by handlers, so tests may pass nil and stay off protected routes.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool,
	authn auth.Authenticator, revoked auth.RevocationList) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	allowHeaders := []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID}
	if cfg.HeaderMode() {
		allowHeaders = append(allowHeaders, auth.HeaderUserID, auth.HeaderUserRole)
	}

	// Repositories and services
	users := identity.NewUserRepoPG(pool)
	specialties := identity.NewSpecialtyRepoPG(pool)
	doctors := identity.NewDoctorRepoPG(pool)
	patients := identity.NewPatientRepoPG(pool)
	appointments := scheduling.NewAppointmentRepoPG(pool)
	statuses := scheduling.NewStatusRepoPG(pool)
	tx := db.NewPoolTx(pool)
	guard := access.NewGuard(nil)
	rooms := video.NewRooms(video.Config{
		Provider:       cfg.VideoProvider,
		JitsiBaseURL:   cfg.VideoJitsiBaseURL,
		RoomNameSecret: cfg.VideoRoomNameSecret,
	})

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled || cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: allowHeaders,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(auth.Middleware(authn, auth.AuthSkipper))
	e.Use(access.Enrich(identity.NewProfileResolver(doctors, patients)))

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":    "ok",
			"version":   version,
			"auth_mode": authn.Mode(),
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	api := e.Group("/api")

	identitySvc := identity.NewService(users, specialties, doctors, patients, tx, guard)
	authSvc := identity.NewAuthService(users, specialties, doctors, patients, tx, guard,
		auth.NewPasswordHasher(cfg.BcryptCost), authn)
	identity.NewHandler(identitySvc, authSvc, guard).RegisterRoutes(api)

	if authn.Mode() == auth.ModeToken {
		auth.RegisterRevocationRoutes(api.Group("/auth"), revoked, cfg.JWTTTL)
	}

	schedulingSvc := scheduling.NewService(appointments, statuses, doctors, patients, tx, guard, rooms)
	scheduling.NewHandler(schedulingSvc, guard).RegisterRoutes(api)

	clinicalSvc := clinical.NewService(clinical.NewMedicalRecordRepoPG(pool), clinical.NewClinicalHistoryRepoPG(pool),
		patients, appointments, tx, guard)
	clinical.NewHandler(clinicalSvc, guard).RegisterRoutes(api)

	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	revoked, closeRevoked, err := newRevocationStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open revocation store")
	}
	defer closeRevoked()

	authn, err := newAuthenticator(cfg, revoked)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure authentication")
	}
	if cfg.HeaderMode() {
		logger.Warn().
			Str("headers", auth.HeaderUserID+", "+auth.HeaderUserRole).
			Msg("header authentication enabled: identity headers are trusted as-is and must be set by an authenticating gateway")
	}

	e := newServer(cfg, logger, pool, authn, revoked)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("auth_mode", authn.Mode()).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
