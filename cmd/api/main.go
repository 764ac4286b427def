// Command api serves the Nabostylisten HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	_ "github.com/tbourn/nabostylisten-backend/docs"
	"github.com/tbourn/nabostylisten-backend/internal/config"
	"github.com/tbourn/nabostylisten-backend/internal/email"
	"github.com/tbourn/nabostylisten-backend/internal/events"
	httpapi "github.com/tbourn/nabostylisten-backend/internal/http"
	"github.com/tbourn/nabostylisten-backend/internal/http/handlers"
	"github.com/tbourn/nabostylisten-backend/internal/locks"
	"github.com/tbourn/nabostylisten-backend/internal/notify"
	"github.com/tbourn/nabostylisten-backend/internal/observability"
	"github.com/tbourn/nabostylisten-backend/internal/payments"
	"github.com/tbourn/nabostylisten-backend/internal/repo"
	"github.com/tbourn/nabostylisten-backend/internal/services"
	"github.com/tbourn/nabostylisten-backend/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const brandAddress = "Nabostylisten AS, Oslo"

var envFiles []string

var rootCmd = &cobra.Command{
	Use:           "api",
	Short:         "Run the Nabostylisten API server",
	Long:          `Loads configuration from the environment (and optional .env files), migrates the database and serves the HTTP API until SIGINT or SIGTERM.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "Additional .env files to load")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("api exited")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	config.LoadDotEnv(envFiles...)
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, os.Stdout)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DB, cfg.OTEL.Enabled)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	provider, err := newProvider(cfg.Payments)
	if err != nil {
		return err
	}
	locker, err := newLocker(ctx, cfg.Redis)
	if err != nil {
		return err
	}

	mailer := newMailer(cfg.Email)
	renderer, err := email.NewRenderer(email.Brand{
		Name:    "Nabostylisten",
		Address: brandAddress,
		BaseURL: sysutil.FirstNonEmpty(cfg.Email.BaseURL, "http://localhost:"+cfg.Port),
	}, email.DefaultTokens)
	if err != nil {
		return fmt.Errorf("email templates: %w", err)
	}
	worker := &notify.Worker{DB: db, Renderer: renderer, Mailer: mailer}

	g, gctx := errgroup.WithContext(ctx)

	publisher, closeBus, err := newPublisher(gctx, g, cfg.AMQP, worker)
	if err != nil {
		return err
	}
	defer closeBus()

	bookings := &services.BookingService{
		DB:       db,
		Provider: provider,
		Locks:    locker,
		Events:   publisher,
		Policy:   services.PolicyFromConfig(cfg.Payments, cfg.Redis.LockTTL),
	}
	affiliates := services.NewAffiliateService(db)
	catalog := services.NewCatalogService(db)
	if err := catalog.Reindex(ctx); err != nil {
		return fmt.Errorf("catalog index: %w", err)
	}

	h := &handlers.Handlers{
		DB:             db,
		Catalog:        catalog,
		Profiles:       &services.ProfileService{DB: db, Events: publisher},
		Bookings:       bookings,
		Chats:          &services.ChatService{DB: db, Events: publisher},
		Reviews:        &services.ReviewService{DB: db},
		Affiliates:     affiliates,
		Discounts:      &services.DiscountService{DB: db},
		Payments:       &services.PaymentService{DB: db, Provider: provider, Events: publisher, PlatformFeePercent: cfg.Payments.PlatformFeePercent},
		IdempotencyTTL: cfg.IdempotencyTTL,
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, h, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info().Msg("http: shutting down")
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		every(gctx, cfg.Payments.CaptureInterval, func(ctx context.Context) {
			n, err := bookings.CaptureDue(ctx)
			if err != nil {
				log.Error().Err(err).Msg("capture: sweep failed")
				return
			}
			if n > 0 {
				log.Info().Int("captured", n).Msg("capture: sweep done")
			}
		})
		return nil
	})
	g.Go(func() error {
		every(gctx, time.Hour, func(ctx context.Context) {
			purge(ctx, db)
		})
		return nil
	})

	err = g.Wait()
	log.Info().Msg("api stopped")
	return err
}

func newProvider(cfg config.PaymentsConfig) (payments.Provider, error) {
	switch cfg.Provider {
	case payments.ProviderOmise:
		p, err := payments.NewOmiseProvider(cfg.PublicKey, cfg.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("omise: %w", err)
		}
		log.Info().Msg("payments: omise provider")
		return p, nil
	case payments.ProviderFake, "":
		log.Warn().Msg("payments: fake provider, no money moves")
		return payments.NewFakeProvider(), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

func newLocker(ctx context.Context, cfg config.RedisConfig) (locks.Locker, error) {
	if cfg.Addr == "" {
		log.Info().Msg("locks: in-process")
		return locks.NewMemory(), nil
	}
	client := locks.NewRedisClient(cfg)
	if err := locks.Ping(ctx, client); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	log.Info().Str("addr", cfg.Addr).Msg("locks: redis")
	return locks.NewRedis(client), nil
}

func newMailer(cfg config.EmailConfig) email.Mailer {
	if cfg.SMTPAddr == "" {
		return email.LogMailer{}
	}
	return email.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPass, cfg.From)
}

// newPublisher returns the event publisher. With an AMQP URL events go to
// the broker and a consumer goroutine feeds the worker; without one the
// in-process bus calls the worker directly.
func newPublisher(ctx context.Context, g *errgroup.Group, cfg config.AMQPConfig, worker *notify.Worker) (events.Publisher, func(), error) {
	if cfg.URL == "" {
		bus := events.NewBus()
		bus.Subscribe(worker.Handle, events.AllKeys...)
		log.Info().Msg("events: in-process bus")
		return bus, func() {}, nil
	}
	pub, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp publisher: %w", err)
	}
	cons, err := events.NewAMQPConsumer(cfg.URL, cfg.Exchange, cfg.Queue, events.AllKeys)
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("amqp consumer: %w", err)
	}
	g.Go(func() error { return cons.Run(ctx, worker.Handle) })
	log.Info().Str("exchange", cfg.Exchange).Str("queue", cfg.Queue).Msg("events: amqp")
	return pub, func() {
		_ = cons.Close()
		_ = pub.Close()
	}, nil
}

func every(ctx context.Context, d time.Duration, fn func(context.Context)) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}

func purge(ctx context.Context, db *gorm.DB) {
	n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("idempotency: purge failed")
		return
	}
	if n > 0 {
		log.Debug().Int64("purged", n).Msg("idempotency: purge done")
	}
}
