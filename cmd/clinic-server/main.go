package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/clients"
	"github.com/clinic/clinic/internal/domain/intake"
	"github.com/clinic/clinic/internal/domain/procedures"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/blobstore"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/events"
	"github.com/clinic/clinic/internal/platform/metrics"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/internal/platform/session"
	"github.com/clinic/clinic/internal/platform/telemetry"
)

const serviceName = "clinic-server"

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Aesthetics clinic API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(appointmentsCmd())
	rootCmd.AddCommand(bmiCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	// Logger
	logger := newLogger()

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load clinic timezone")
	}

	ctx := context.Background()

	// Tracing
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSamplingRatio,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}

	// Database
	poolOpts := db.PoolOptions{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns}
	if cfg.IsDev() {
		poolOpts.QueryLogger = &logger
	}
	pool, err := db.NewPool(ctx, poolOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Metrics
	collector := metrics.New(serviceName)
	collector.RegisterPool(pool)

	// Events
	var publisher events.Publisher = events.NopPublisher{}
	if brokers := events.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kp := events.NewKafkaPublisher(brokers, cfg.KafkaTopicPrefix)
		defer kp.Close()
		publisher = kp
		logger.Info().Strs("brokers", brokers).Msg("publishing domain events to kafka")
	}
	publisher = collector.Publisher(publisher)

	// Session
	holder := session.NewHolder()
	defer holder.Close()
	unsubscribe := holder.Subscribe(sessionObserver(logger, publisher))
	defer unsubscribe()

	// Storage
	photos, err := blobstore.NewFSStore(cfg.StorageDir, cfg.StoragePublicURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}

	// Rate limiting
	limiter, closeLimiter, err := newLimiter(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up rate limiter")
	}
	defer closeLimiter()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(collector.Middleware())
	e.Use(telemetry.RouteNames())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit("1M", "6M"))

	// Public endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, 3*time.Second))
	e.GET("/metrics", echo.WrapHandler(collector.Handler()))
	blobstore.NewHandler(photos).RegisterRoutes(e.Group("/storage"))

	// API group
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.SecurityHeaders())
	onAuthenticated := func(_ context.Context, id auth.Identity) { holder.Set(id) }
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware(onAuthenticated))
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:          cfg.AuthIssuer,
			Audience:        cfg.AuthAudience,
			SigningKey:      []byte(cfg.AuthJWTSecret),
			OnAuthenticated: onAuthenticated,
		}))
	}
	apiV1.Use(middleware.RateLimit(limiter, rateLimitConfig(cfg), logger))
	apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout, isUpload))

	// Domains
	clientRepo := clients.NewClientRepo(pool)
	clientSvc := clients.NewService(clientRepo, photos, loc)
	clients.NewHandler(clientSvc).RegisterRoutes(apiV1)

	procedureSvc := procedures.NewService(procedures.NewProcedureRepo(pool))
	procedures.NewHandler(procedureSvc).RegisterRoutes(apiV1)

	schedulingSvc := scheduling.NewService(scheduling.NewAppointmentRepo(pool), publisher, loc)
	scheduling.NewHandler(schedulingSvc, cfg.ClinicName).RegisterRoutes(apiV1)

	intakeSvc := intake.NewService(intake.NewRecordRepo(pool), clientSvc, pool, publisher, intake.Options{
		ClinicName:   cfg.ClinicName,
		PublicAppURL: cfg.PublicAppURL,
		Location:     loc,
	})
	intake.NewHandler(intakeSvc).RegisterRoutes(apiV1)

	session.NewHandler(holder).RegisterRoutes(apiV1)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           telemetry.WrapHandler(e, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracer shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// sessionObserver logs every sign-in/sign-out and forwards it as a domain
// event.
func sessionObserver(logger zerolog.Logger, pub events.Publisher) func(session.Event) {
	ctx := logger.WithContext(context.Background())
	return func(ev session.Event) {
		logger.Info().
			Str("event", string(ev.Type)).
			Str("user_id", ev.Identity.UserID).
			Msg("session changed")
		events.Emit(ctx, pub, events.SessionChanged, ev.Identity.UserID, ev)
	}
}

// isUpload exempts photo uploads from the request deadline; slow client
// links would otherwise cut them off mid-body.
func isUpload(c echo.Context) bool {
	return strings.HasSuffix(c.Path(), "/photo")
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	rl.KeyFunc = func(c echo.Context) string {
		if id := auth.UserIDFromContext(c.Request().Context()); id != "" {
			return "user:" + id
		}
		return "ip:" + c.RealIP()
	}
	return rl
}

// newLimiter shares counters through Redis when REDIS_URL is set, so several
// server instances enforce one shared limit. The window is sized so that a full
// burst drains at the configured steady rate.
func newLimiter(cfg *config.Config) (middleware.Limiter, func(), error) {
	rl := rateLimitConfig(cfg)
	if cfg.RedisURL == "" {
		return middleware.NewMemoryLimiter(rl), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opts)
	window := redisWindow(rl)
	return middleware.NewRedisLimiter(rdb, rl.BurstSize, window, "clinic:ratelimit:"), func() { _ = rdb.Close() }, nil
}

func redisWindow(rl middleware.RateLimitConfig) time.Duration {
	if rl.RequestsPerSecond <= 0 {
		return time.Second
	}
	w := time.Duration(float64(rl.BurstSize) / rl.RequestsPerSecond * float64(time.Second))
	if w < time.Second {
		w = time.Second
	}
	return w
}
