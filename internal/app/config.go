package app

import (
	"time"

	"github.com/tenxcards/tenxcards-backend/internal/data/db"
	"github.com/tenxcards/tenxcards-backend/internal/observability"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/platform/envutil"
	"github.com/tenxcards/tenxcards-backend/internal/platform/openrouter"
	"github.com/tenxcards/tenxcards-backend/internal/services"
)

type Config struct {
	Port         string
	Environment  string
	JWTSecretKey string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RefreshReuse    time.Duration
	CookieSecure    bool

	Postgres db.PostgresConfig

	OpenRouterAPIKey       string
	OpenRouterAPIURL       string
	OpenRouterDefaultModel string
	OpenRouterTimeout      time.Duration
	OpenRouterErrorLogSize int
	OpenRouterReferer      string

	MinSourceChars       int
	MaxSourceChars       int
	AllowGuestGeneration bool
	GenerationRatePerMin int
	GenerationRateBurst  int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AllowedOrigins []string
	TrustedProxies []string
	WebDistDir     string
	MetricsEnabled bool

	Otel observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:         envutil.String("PORT", "8080", log),
		Environment:  envutil.String("APP_ENV", "development", log),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", "defaultsecret", log),

		AccessTokenTTL:  envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour, log),
		RefreshTokenTTL: envutil.Seconds("REFRESH_TOKEN_TTL", 7*24*time.Hour, log),
		RefreshReuse:    envutil.Seconds("REFRESH_REUSE_WINDOW", services.DefaultRefreshReuseWindow, log),
		CookieSecure:    envutil.Bool("COOKIE_SECURE", true, log),

		Postgres: db.PostgresConfig{
			Host:       envutil.String("POSTGRES_HOST", "localhost", log),
			Port:       envutil.String("POSTGRES_PORT", "5432", log),
			User:       envutil.String("POSTGRES_USER", "postgres", log),
			Password:   envutil.String("POSTGRES_PASSWORD", "", log),
			Name:       envutil.String("POSTGRES_NAME", "tenxcards", log),
			SSLMode:    envutil.String("POSTGRES_SSLMODE", "disable", log),
			RLSEnabled: envutil.Bool("POSTGRES_RLS_ENABLED", true, log),
		},

		OpenRouterAPIKey:       envutil.String("OPENROUTER_API_KEY", "", log),
		OpenRouterAPIURL:       envutil.String("OPENROUTER_API_URL", openrouter.DefaultAPIURL, log),
		OpenRouterDefaultModel: envutil.String("OPENROUTER_DEFAULT_MODEL", openrouter.DefaultModel, log),
		OpenRouterTimeout:      envutil.Seconds("OPENROUTER_TIMEOUT_SECONDS", 30*time.Second, log),
		OpenRouterErrorLogSize: envutil.Int("OPENROUTER_ERROR_LOG_SIZE", 100, log),
		OpenRouterReferer:      envutil.String("OPENROUTER_REFERER", "", log),

		MinSourceChars:       envutil.Int("GENERATION_MIN_SOURCE_CHARS", services.DefaultMinSourceChars, log),
		MaxSourceChars:       envutil.Int("GENERATION_MAX_SOURCE_CHARS", services.DefaultMaxSourceChars, log),
		AllowGuestGeneration: envutil.Bool("ALLOW_GUEST_GENERATION", true, log),
		GenerationRatePerMin: envutil.Int("GENERATION_RATE_PER_MINUTE", 10, log),
		GenerationRateBurst:  envutil.Int("GENERATION_RATE_BURST", 3, log),

		RedisAddr:     envutil.String("REDIS_ADDR", "", log),
		RedisPassword: envutil.String("REDIS_PASSWORD", "", log),
		RedisDB:       envutil.Int("REDIS_DB", 0, log),

		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
		TrustedProxies: envutil.List("TRUSTED_PROXIES", nil),
		WebDistDir:     envutil.String("WEB_DIST_DIR", "", log),
		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true, log),
	}
	cfg.Otel = observability.OtelConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", observability.DefaultServiceName, log),
		Environment: cfg.Environment,
		Version:     envutil.String("APP_VERSION", "", log),
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
		Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", nil)),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
		SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", observability.DefaultSampleRatio, log),
	}
	return cfg
}
