package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/schedula/schedula/internal/config"
	"github.com/schedula/schedula/internal/domain/identity"
	"github.com/schedula/schedula/internal/domain/scheduling"
	"github.com/schedula/schedula/internal/platform/db"
	"github.com/schedula/schedula/internal/platform/middleware"
	"github.com/schedula/schedula/internal/platform/slotlock"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "schedula-server",
		Short: "Appointment scheduling API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server",
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
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

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
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a backup or write a forward migration instead.")
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load seed data",
	}
	cmd.AddCommand(seedProvidersCmd())
	cmd.AddCommand(seedDemoCmd())
	return cmd
}

func seedProvidersCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "providers",
		Short: "Load the provider roster from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")

			roster, err := loadRoster(file)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := identity.NewService(identity.NewPatientRepo(pool), identity.NewProviderRepo(pool))

			count, err := svc.ProviderCount(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				fmt.Printf("Providers table already has %d rows. Aborting seed.\n", count)
				return nil
			}

			for _, prov := range roster {
				if err := svc.AddProvider(ctx, prov); err != nil {
					return fmt.Errorf("seed provider %s: %w", prov.Name, err)
				}
			}
			fmt.Printf("Seeded %d providers.\n", len(roster))
			return nil
		},
	}
	c.Flags().String("file", "./providers.json", "Path to the provider roster")
	return c
}

func seedDemoCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "demo",
		Short: "Generate demo patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("patients")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := identity.NewService(identity.NewPatientRepo(pool), identity.NewProviderRepo(pool))

			created := 0
			for _, p := range demoPatients(n) {
				err := svc.RegisterPatient(ctx, p)
				if errors.Is(err, identity.ErrPatientExists) {
					continue
				}
				if err != nil {
					return err
				}
				created++
			}
			fmt.Printf("Registered %d demo patients.\n", created)
			return nil
		},
	}
	c.Flags().Int("patients", 25, "Number of demo patients to generate")
	return c
}

// loadRoster parses a provider roster file.
func loadRoster(path string) ([]*identity.Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var roster []*identity.Provider
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("roster %s is empty", path)
	}
	return roster, nil
}

// demoPatients generates n random patients for demo environments.
func demoPatients(n int) []*identity.Patient {
	patients := make([]*identity.Patient, 0, n)
	for i := 0; i < n; i++ {
		dob := gofakeit.DateRange(
			time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2008, 12, 31, 0, 0, 0, 0, time.UTC),
		)
		patients = append(patients, &identity.Patient{
			Name:    gofakeit.Name(),
			DOB:     dob.Format(identity.DateLayout),
			Contact: gofakeit.Phone(),
		})
	}
	return patients
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.Audit(logger))

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.BodyLimit("1M"))
	apiV1.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second))
	apiV1.Use(middleware.SecurityHeaders())
	apiV1.Use(middleware.SanitizeWithLogger(logger))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Identity domain
	identitySvc := identity.NewService(identity.NewPatientRepo(pool), identity.NewProviderRepo(pool))
	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)

	// Scheduling domain
	apptRepo := scheduling.NewRepo(pool)
	schedSvc := scheduling.NewService(apptRepo, identitySvc, pool)
	schedSvc.SetLogger(logger)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, slot locking disabled")
		} else {
			schedSvc.SetLocker(slotlock.NewRedisLocker(client, 10*time.Second))
			logger.Info().Msg("slot locking enabled")
		}
	}

	scheduling.NewHandler(schedSvc).RegisterRoutes(apiV1)

	// Completion sweeper (optional, started when a cron schedule is set)
	if cfg.CompletionSweepSchedule != "" {
		sweeper := scheduling.NewSweeper(apptRepo, cfg.CompletionSweepSchedule, logger)
		if err := sweeper.Start(); err != nil {
			logger.Fatal().Err(err).Str("schedule", cfg.CompletionSweepSchedule).Msg("failed to start completion sweeper")
		}
		defer sweeper.Stop()
		logger.Info().Str("schedule", cfg.CompletionSweepSchedule).Msg("completion sweeper started")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
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
