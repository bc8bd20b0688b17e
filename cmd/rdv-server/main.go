package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rdv/rdv/internal/config"
	"github.com/rdv/rdv/internal/domain/dashboard"
	"github.com/rdv/rdv/internal/domain/medication"
	"github.com/rdv/rdv/internal/domain/patient"
	"github.com/rdv/rdv/internal/domain/practitioner"
	"github.com/rdv/rdv/internal/domain/prescription"
	"github.com/rdv/rdv/internal/domain/scheduling"
	"github.com/rdv/rdv/internal/domain/tutor"
	"github.com/rdv/rdv/internal/platform/addresslookup"
	"github.com/rdv/rdv/internal/platform/auth"
	"github.com/rdv/rdv/internal/platform/blobstore"
	"github.com/rdv/rdv/internal/platform/cache"
	"github.com/rdv/rdv/internal/platform/db"
	"github.com/rdv/rdv/internal/platform/events"
	"github.com/rdv/rdv/internal/platform/logging"
	"github.com/rdv/rdv/internal/platform/middleware"
	"github.com/rdv/rdv/internal/platform/notification"
	"github.com/rdv/rdv/internal/platform/telemetry"
	"github.com/rdv/rdv/internal/worker"
	"github.com/rdv/rdv/migrations"
)

const (
	clinicTimeZone = "America/Sao_Paulo"

	devPractitionerID = "dev|practitioner"
	devEmail          = "dev@rdv.local"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rdv-server",
		Short: "Veterinary records, prescriptions and scheduling API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, schema, closeFn, err := openMigrator(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Printf("Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	addMigrateFlags(upCmd)
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, schema, closeFn, err := openMigrator(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	addMigrateFlags(statusCmd)
	cmd.AddCommand(statusCmd)

	return cmd
}

func addMigrateFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	cmd.Flags().String("dir", "", "Migrations directory (defaults to the embedded set)")
}

func openMigrator(ctx context.Context, cmd *cobra.Command) (*db.Migrator, string, func(), error) {
	schema, _ := cmd.Flags().GetString("schema")
	dir, _ := cmd.Flags().GetString("dir")

	cfg, err := config.Load()
	if err != nil {
		return nil, "", nil, err
	}
	if schema == "" {
		schema = cfg.DBSchema
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, "", nil, err
	}
	return db.NewMigratorFS(pool, migrationsFS(dir)), schema, pool.Close, nil
}

func migrationsFS(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			email, _ := cmd.Flags().GetString("email")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			secret := os.Getenv("AUTH_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET must be set to mint tokens")
			}
			tok, err := auth.IssueToken([]byte(secret), os.Getenv("AUTH_ISSUER"), subject, email, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("subject", devPractitionerID, "Practitioner identifier (sub claim)")
	cmd.Flags().String("email", devEmail, "Practitioner email claim")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger, logCloser := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.IsDev(),
		File:   cfg.LogFile,
	})
	defer logCloser.Close()

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	loc, err := time.LoadLocation(clinicTimeZone)
	if err != nil {
		logger.Fatal().Err(err).Str("zone", clinicTimeZone).Msg("failed to load time zone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
		Schema:   cfg.DBSchema,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	metrics := telemetry.New("rdv")

	// Optional infrastructure. Each piece degrades to a no-op when absent.
	var (
		viewCache   prescription.ViewCache
		lookupCache addresslookup.Cache
		publisher   events.Publisher = events.NopPublisher{}
		archive     blobstore.Store
		notifier    *notification.Notifier
		nc          *nats.Conn
	)

	if cfg.RedisURL != "" {
		c, err := cache.Connect(ctx, cache.Config{URL: cfg.RedisURL, Prefix: "rdv:"})
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, caching disabled")
		} else {
			defer c.Close()
			viewCache, lookupCache = c, c
			logger.Info().Msg("connected to redis")
		}
	}

	if cfg.NATSURL != "" {
		conn, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, events disabled")
		} else {
			nc = conn
			defer nc.Drain()
			publisher = events.NewNATSPublisher(nc)
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("connected to nats")
		}
	}

	if cfg.S3Bucket != "" {
		store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure document archive")
		}
		archive = store
	}

	if cfg.SMTPHost != "" {
		sender, err := notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure smtp")
		}
		notifier = notification.NewNotifier(sender, notification.NewTemplateEngine())
	}

	// Domain services
	profileSvc := practitioner.NewService(practitioner.NewProfileRepoPG(pool))
	tutorSvc := tutor.NewService(tutor.NewTutorRepoPG(pool), db.NewTransactor(pool))
	patientSvc := patient.NewService(patient.NewPatientRepoPG(pool), tutorSvc)
	docSvc := prescription.NewService(prescription.NewDocumentRepoPG(pool), profileSvc, patientSvc, tutorSvc, prescription.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		Location:      loc,
		Cache:         viewCache,
		Publisher:     publisher,
		Archive:       archive,
		Metrics:       metrics,
		Logger:        logger,
	})
	schedOpts := scheduling.Options{Location: loc, Logger: logger}
	if notifier != nil {
		schedOpts.Notifier = notifier
	}
	schedSvc := scheduling.NewService(scheduling.NewAppointmentRepoPG(pool), tutorSvc, patientSvc, schedOpts)
	medSvc := medication.NewService(medication.NewCatalogRepoPG(pool))
	dashSvc := dashboard.NewService(tutorSvc, patientSvc, docSvc, schedSvc, loc)
	lookup := addresslookup.NewClient(cfg.AddressLookupURL, lookupCache, logger)

	e := newEcho(cfg, logger, metrics)
	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))

	apiV1 := e.Group("/api/v1", authMiddleware(cfg), middleware.RateLimit(rateLimitConfig(cfg.RateLimitRPS, cfg.RateLimitBurst, middleware.DefaultRateLimitConfig())))
	pub := e.Group("/public", middleware.RateLimit(rateLimitConfig(cfg.PublicRateLimitRPS, cfg.PublicRateLimitBurst, middleware.PublicRateLimitConfig())))

	docHandler := prescription.NewHandler(docSvc)
	practitioner.NewHandler(profileSvc).RegisterRoutes(apiV1)
	tutor.NewHandler(tutorSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	docHandler.RegisterRoutes(apiV1)
	scheduling.NewHandler(schedSvc).RegisterRoutes(apiV1)
	medication.NewHandler(medSvc).RegisterRoutes(apiV1)
	dashboard.NewHandler(dashSvc).RegisterRoutes(apiV1)
	addresslookup.NewHandler(lookup).RegisterRoutes(apiV1)
	docHandler.RegisterPublicRoutes(pub)

	// Issued-document worker
	if nc != nil {
		var mailer worker.Mailer
		if notifier != nil {
			mailer = notifier
		}
		w := worker.NewDocumentWorker(docSvc, mailer, metrics, logger)
		go func() {
			if err := w.Run(ctx, nc); err != nil {
				logger.Error().Err(err).Msg("document worker stopped")
			}
		}()
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
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

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newEcho builds the server with the global middleware chain and the
// endpoints that need no database.
func newEcho(cfg *config.Config, logger zerolog.Logger, metrics *telemetry.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled, "/public/"))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Content-Disposition"},
	}))
	e.Use(middleware.Audit(logger, nil))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	return e
}

// authMiddleware verifies bearer tokens. In development unauthenticated
// requests run as a fixed practitioner.
func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	var verify echo.MiddlewareFunc
	switch {
	case cfg.StaticAuth():
		verify = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthJWTSecret),
		})
	case cfg.AuthIssuer != "" || cfg.AuthJWKSURL != "":
		verify = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		})
	}
	if cfg.IsDev() {
		return auth.DevAuthMiddleware(devPractitionerID, devEmail, verify)
	}
	if verify == nil {
		return func(echo.HandlerFunc) echo.HandlerFunc {
			return func(echo.Context) error {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication is not configured")
			}
		}
	}
	return verify
}

func rateLimitConfig(rps float64, burst int, def middleware.RateLimitConfig) middleware.RateLimitConfig {
	if rps > 0 {
		def.RequestsPerSecond = rps
	}
	if burst > 0 {
		def.BurstSize = burst
	}
	return def
}
