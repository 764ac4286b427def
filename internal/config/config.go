// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, database selection, rate limiting, observability, and the
// marketplace settings (payments, fees, cancellation policy, messaging,
// locks and email).
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "nabostylisten-api")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the SQL backend.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite file)
	DSN    string // DATABASE_URL (postgres)
}

// AuthConfig holds bearer-token settings.
type AuthConfig struct {
	JWTSecret  string        // JWT_SECRET (empty = bearer tokens rejected)
	TokenTTL   time.Duration // JWT_TTL
	DevHeaders bool          // AUTH_DEV_HEADERS: trust X-User-ID / X-User-Role
}

// PaymentsConfig configures the processor and the money rules around it.
type PaymentsConfig struct {
	Provider             string        // PAYMENT_PROVIDER: omise|fake
	PublicKey            string        // OMISE_PUBLIC_KEY
	SecretKey            string        // OMISE_SECRET_KEY
	Currency             string        // PAYMENT_CURRENCY
	PlatformFeePercent   int           // PLATFORM_FEE_PERCENT
	CaptureLeadTime      time.Duration // CAPTURE_LEAD_TIME
	CaptureInterval      time.Duration // CAPTURE_INTERVAL
	CancellationWindow   time.Duration // CANCELLATION_WINDOW
	LateCancelFeePercent int           // LATE_CANCEL_FEE_PERCENT
	MinBookingLead       time.Duration // MIN_BOOKING_LEAD
}

// AMQPConfig configures the event bus.
type AMQPConfig struct {
	URL      string // AMQP_URL (empty = in-process bus)
	Exchange string // AMQP_EXCHANGE
	Queue    string // AMQP_NOTIFY_QUEUE
}

// RedisConfig configures distributed slot locks.
type RedisConfig struct {
	Addr     string        // REDIS_ADDR (empty = in-memory locks)
	Password string        // REDIS_PASSWORD
	DB       int           // REDIS_DB
	LockTTL  time.Duration // SLOT_LOCK_TTL
}

// EmailConfig configures transactional mail.
type EmailConfig struct {
	From     string // EMAIL_FROM
	BaseURL  string // APP_BASE_URL, used for links in templates
	SMTPAddr string // SMTP_ADDR (empty = log mailer)
	SMTPUser string // SMTP_USER
	SMTPPass string // SMTP_PASS
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	DB DBConfig

	// Rate limiting
	RateRPS        float64 // tokens per second (>= 0)
	RateBurst      int     // bucket size (>= 1)
	WriteRateRPS   float64 // POSTs that reach the payment provider
	WriteRateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig

	Auth     AuthConfig
	Payments PaymentsConfig
	AMQP     AMQPConfig
	Redis    RedisConfig
	Email    EmailConfig
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (default ".env")
// into the process environment without overriding variables that are
// already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "nabostylisten.db"),
			DSN:    getenv("DATABASE_URL", ""),
		},

		// Rate limiting
		RateRPS:        getfloat("RATE_RPS", 5.0),
		RateBurst:      getint("RATE_BURST", 10),
		WriteRateRPS:   getfloat("WRITE_RATE_RPS", 0.5),
		WriteRateBurst: getint("WRITE_RATE_BURST", 5),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "nabostylisten-api"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},

		Auth: AuthConfig{
			JWTSecret:  getenv("JWT_SECRET", ""),
			TokenTTL:   getdur("JWT_TTL", 12*time.Hour),
			DevHeaders: getbool("AUTH_DEV_HEADERS", false),
		},

		Payments: PaymentsConfig{
			Provider:             strings.ToLower(getenv("PAYMENT_PROVIDER", "fake")),
			PublicKey:            getenv("OMISE_PUBLIC_KEY", ""),
			SecretKey:            getenv("OMISE_SECRET_KEY", ""),
			Currency:             strings.ToUpper(getenv("PAYMENT_CURRENCY", "NOK")),
			PlatformFeePercent:   getint("PLATFORM_FEE_PERCENT", 20),
			CaptureLeadTime:      getdur("CAPTURE_LEAD_TIME", 24*time.Hour),
			CaptureInterval:      getdur("CAPTURE_INTERVAL", 5*time.Minute),
			CancellationWindow:   getdur("CANCELLATION_WINDOW", 24*time.Hour),
			LateCancelFeePercent: getint("LATE_CANCEL_FEE_PERCENT", 50),
			MinBookingLead:       getdur("MIN_BOOKING_LEAD", time.Hour),
		},

		AMQP: AMQPConfig{
			URL:      getenv("AMQP_URL", ""),
			Exchange: getenv("AMQP_EXCHANGE", "nabostylisten.events"),
			Queue:    getenv("AMQP_NOTIFY_QUEUE", "nabostylisten.notify"),
		},

		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			LockTTL:  getdur("SLOT_LOCK_TTL", 10*time.Second),
		},

		Email: EmailConfig{
			From:     getenv("EMAIL_FROM", "Nabostylisten <no-reply@nabostylisten.no>"),
			BaseURL:  strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:3000"), "/"),
			SMTPAddr: getenv("SMTP_ADDR", ""),
			SMTPUser: getenv("SMTP_USER", ""),
			SMTPPass: getenv("SMTP_PASS", ""),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.WriteRateRPS < 0 || cfg.WriteRateBurst < 1 {
		return cfg, errors.New("WRITE_RATE_RPS must be >= 0 and WRITE_RATE_BURST >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	if cfg.Auth.JWTSecret != "" && len(cfg.Auth.JWTSecret) < 16 {
		return cfg, errors.New("JWT_SECRET must be at least 16 bytes")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return cfg, errors.New("JWT_TTL must be > 0")
	}
	switch cfg.Payments.Provider {
	case "fake":
	case "omise":
		if cfg.Payments.PublicKey == "" || cfg.Payments.SecretKey == "" {
			return cfg, errors.New("OMISE_PUBLIC_KEY and OMISE_SECRET_KEY are required when PAYMENT_PROVIDER=omise")
		}
	default:
		return cfg, errors.New("PAYMENT_PROVIDER must be one of: omise, fake")
	}
	if len(cfg.Payments.Currency) != 3 {
		return cfg, errors.New("PAYMENT_CURRENCY must be a 3-letter ISO code")
	}
	if cfg.Payments.PlatformFeePercent < 0 || cfg.Payments.PlatformFeePercent > 100 {
		return cfg, errors.New("PLATFORM_FEE_PERCENT must be in [0,100]")
	}
	if cfg.Payments.LateCancelFeePercent < 0 || cfg.Payments.LateCancelFeePercent > 100 {
		return cfg, errors.New("LATE_CANCEL_FEE_PERCENT must be in [0,100]")
	}
	if cfg.Payments.CaptureLeadTime < 0 || cfg.Payments.CancellationWindow < 0 || cfg.Payments.MinBookingLead < 0 {
		return cfg, errors.New("payment windows must be >= 0")
	}
	if cfg.Payments.CaptureInterval <= 0 {
		return cfg, errors.New("CAPTURE_INTERVAL must be > 0")
	}
	if cfg.Redis.LockTTL <= 0 {
		return cfg, errors.New("SLOT_LOCK_TTL must be > 0")
	}
	if strings.TrimSpace(cfg.AMQP.Exchange) == "" || strings.TrimSpace(cfg.AMQP.Queue) == "" {
		return cfg, errors.New("AMQP_EXCHANGE and AMQP_NOTIFY_QUEUE must not be empty")
	}
	if strings.TrimSpace(cfg.Email.From) == "" {
		return cfg, errors.New("EMAIL_FROM must not be empty")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
