// Command seed fills a development database with marketplace fixtures.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/nabostylisten-backend/internal/config"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
	"github.com/tbourn/nabostylisten-backend/internal/seed"
	"github.com/tbourn/nabostylisten-backend/internal/sysutil"
)

var (
	dbTarget  string
	driver    string
	seedValue uint64
	stylists  int
	customers int
	reset     bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "seed",
	Short:         "Seed the Nabostylisten database with fixture data",
	Long:          `Seed creates profiles, services, discounts, affiliate links, bookings with payments, reviews and chats. It is a no-op on an already seeded database unless --reset is given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&dbTarget, "db", "", "SQLite file path or PostgreSQL URL (default: DB_PATH / DATABASE_URL)")
	rootCmd.Flags().StringVar(&driver, "driver", "", "Database driver: sqlite or postgres (default: DB_DRIVER)")
	rootCmd.Flags().Uint64Var(&seedValue, "seed", 42, "Random seed; the same seed yields the same data")
	rootCmd.Flags().IntVar(&stylists, "stylists", 8, "Number of stylists")
	rootCmd.Flags().IntVar(&customers, "customers", 20, "Number of customers")
	rootCmd.Flags().BoolVar(&reset, "reset", false, "Delete all rows before seeding (also SEED_RESET)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")
}

func run(cmd *cobra.Command, _ []string) error {
	config.LoadDotEnv()
	sysutil.ConfigureLogger(logLevel, true, os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	reset = reset || sysutil.IsTruthy(os.Getenv("SEED_RESET"))
	dbCfg := cfg.DB
	if driver != "" {
		dbCfg.Driver = driver
	}
	if dbTarget != "" {
		if dbCfg.Driver == "postgres" {
			dbCfg.DSN = dbTarget
		} else {
			dbCfg.Path = dbTarget
		}
	}
	if stylists < 1 || customers < 1 {
		return fmt.Errorf("--stylists and --customers must be at least 1")
	}

	db, err := repo.Open(dbCfg, false)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := seed.Run(ctx, db, seed.Options{
		Seed:               seedValue,
		Stylists:           stylists,
		Customers:          customers,
		Reset:              reset,
		PlatformFeePercent: cfg.Payments.PlatformFeePercent,
	})
	if err != nil {
		return err
	}
	if rep.Skipped {
		fmt.Fprintln(cmd.OutOrStdout(), "database already seeded; use --reset to start over")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"seeded %d profiles, %d services, %d bookings, %d payments, %d refunds, %d commissions, %d reviews, %d messages\n",
		rep.Profiles, rep.Services, rep.Bookings, rep.Payments, rep.Refunds, rep.Commissions, rep.Reviews, rep.Messages)
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("seed failed")
		os.Exit(1)
	}
}
