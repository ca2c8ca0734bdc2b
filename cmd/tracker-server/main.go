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
	"github.com/spf13/cobra"

	"github.com/clinictrack/clinictrack/internal/config"
	"github.com/clinictrack/clinictrack/internal/domain/clinic"
	"github.com/clinictrack/clinictrack/internal/domain/followup"
	"github.com/clinictrack/clinictrack/internal/platform/auth"
	"github.com/clinictrack/clinictrack/internal/platform/clock"
	"github.com/clinictrack/clinictrack/internal/platform/db"
	"github.com/clinictrack/clinictrack/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tracker-server",
		Short: "Clinic follow-up tracker API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(clinicCmd())
	rootCmd.AddCommand(staffCmd())
	rootCmd.AddCommand(importCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the follow-up tracker API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// openPool loads config and connects to the database; shared by every
// subcommand that touches it.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
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

			ctx := context.Background()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
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

			ctx := context.Background()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
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

	return cmd
}

func clinicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Manage clinics",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new clinic",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := newClinicService(cfg, pool)
			c, err := svc.CreateClinic(ctx, name)
			if err != nil {
				return err
			}
			fmt.Printf("Created clinic %q with code %s\n", c.Name, c.ClinicCode)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Clinic name")
	cmd.AddCommand(createCmd)

	return cmd
}

func staffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff users",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff user linked to a clinic",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			clinicCode, _ := cmd.Flags().GetString("clinic-code")
			if username == "" || password == "" || clinicCode == "" {
				return fmt.Errorf("--username, --password and --clinic-code are required")
			}

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := newClinicService(cfg, pool)
			u, err := svc.CreateStaff(ctx, username, password, clinicCode)
			if err != nil {
				return err
			}
			fmt.Printf("Created staff user %q (%s)\n", u.Username, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Login username")
	createCmd.Flags().String("password", "", "Login password")
	createCmd.Flags().String("clinic-code", "", "Code of the clinic to link the user to")
	cmd.AddCommand(createCmd)

	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-import follow-ups from a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			csvPath, _ := cmd.Flags().GetString("csv")
			username, _ := cmd.Flags().GetString("username")
			if csvPath == "" || username == "" {
				return fmt.Errorf("--csv and --username are required")
			}

			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			clinicSvc := newClinicService(cfg, pool)
			u, err := clinicSvc.GetStaffByUsername(ctx, username)
			if err != nil {
				return fmt.Errorf("staff user %q: %w", username, err)
			}
			clinicID, err := clinicSvc.ClinicIDForUser(ctx, u.ID)
			if err != nil {
				return fmt.Errorf("staff user %q has no clinic profile: %w", username, err)
			}

			f, err := os.Open(csvPath)
			if err != nil {
				return err
			}
			defer f.Close()

			followupSvc := followup.NewService(followup.NewRepo(pool), clock.System())
			stats, err := followup.NewImporter(followupSvc, logger).Run(ctx, f, clinicID, u.ID)
			if err != nil {
				return fmt.Errorf("import aborted: %w", err)
			}
			fmt.Printf("Imported %d follow-up(s), skipped %d row(s).\n", stats.Created, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().String("csv", "", "Path to the CSV file")
	cmd.Flags().String("username", "", "Staff user the imported rows are attributed to")
	return cmd
}

func newClinicService(cfg *config.Config, pool *pgxpool.Pool) *clinic.Service {
	issuer := auth.NewTokenIssuer(cfg.AuthSigningKey, time.Duration(cfg.AuthTokenTTL)*time.Minute)
	return clinic.NewService(clinic.NewClinicRepo(pool), clinic.NewStaffRepo(pool), issuer, clock.System())
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
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Services
	issuer := auth.NewTokenIssuer(cfg.AuthSigningKey, time.Duration(cfg.AuthTokenTTL)*time.Minute)
	clk := clock.System()

	clinicSvc := clinic.NewService(clinic.NewClinicRepo(pool), clinic.NewStaffRepo(pool), issuer, clk)
	followupSvc := followup.NewService(followup.NewRepo(pool), clk)

	// Routes
	clinic.NewHandler(clinicSvc).RegisterRoutes(e)
	followup.NewHandler(followupSvc, clinicSvc).RegisterRoutes(e, auth.Middleware(issuer))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

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
