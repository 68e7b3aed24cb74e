package app

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tenxcards/tenxcards-backend/internal/http"
	httpH "github.com/tenxcards/tenxcards-backend/internal/http/handlers"
	httpMW "github.com/tenxcards/tenxcards-backend/internal/http/middleware"
	"github.com/tenxcards/tenxcards-backend/internal/observability"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/platform/ratelimit"
)

type Middleware struct {
	Auth    *httpMW.AuthMiddleware
	Storage httpMW.SessionStorage
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Auth       *httpH.AuthHandler
	Flashcard  *httpH.FlashcardHandler
	Generation *httpH.GenerationHandler
	Page       *httpH.PageHandler
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) Middleware {
	log.Info("Wiring middleware...")
	storage := httpMW.NewCookieStorage(cfg.CookieSecure)
	return Middleware{
		Auth:    httpMW.NewAuthMiddleware(log, services.Auth, storage),
		Storage: storage,
	}
}

func wireHandlers(log *logger.Logger, cfg Config, theDB *gorm.DB, services Services, clients Clients, mw Middleware) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := theDB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if cfg.RedisAddr != "" {
		checks["redis"] = clients.SessionCache.Ping
	}
	return Handlers{
		Health:     httpH.NewHealthHandler(checks).WithModelErrors(clients.OpenRouter.ErrorLog()),
		Auth:       httpH.NewAuthHandler(log, services.Auth, mw.Storage),
		Flashcard:  httpH.NewFlashcardHandler(log, services.Flashcard),
		Generation: httpH.NewGenerationHandler(log, services.Generation),
		Page:       httpH.NewPageHandler(cfg.WebDistDir),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, mw Middleware) *http.Server {
	var serviceName string
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewServer(":"+cfg.Port, http.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       serviceName,
		AllowedOrigins:    cfg.AllowedOrigins,
		TrustedProxies:    cfg.TrustedProxies,
		AllowGuests:       cfg.AllowGuestGeneration,
		AuthHandler:       handlers.Auth,
		AuthMiddleware:    mw.Auth,
		FlashcardHandler:  handlers.Flashcard,
		GenerationHandler: handlers.Generation,
		GenerationLimiter: ratelimit.New(cfg.GenerationRatePerMin, time.Minute, cfg.GenerationRateBurst),
		HealthHandler:     handlers.Health,
		PageHandler:       handlers.Page,
	})
}
