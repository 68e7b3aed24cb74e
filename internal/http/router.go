package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/tenxcards/tenxcards-backend/internal/http/handlers"
	httpMW "github.com/tenxcards/tenxcards-backend/internal/http/middleware"
	"github.com/tenxcards/tenxcards-backend/internal/http/response"
	"github.com/tenxcards/tenxcards-backend/internal/observability"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/platform/ratelimit"
)

var pageRoutes = []string{"/", "/login", "/register", "/reset-password", "/generate", "/flashcards"}

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	ServiceName    string
	AllowedOrigins []string
	AllowGuests    bool
	// TrustedProxies may set X-Forwarded-For for ClientIP. Empty trusts none.
	TrustedProxies []string

	AuthHandler       *httpH.AuthHandler
	AuthMiddleware    *httpMW.AuthMiddleware
	FlashcardHandler  *httpH.FlashcardHandler
	GenerationHandler *httpH.GenerationHandler
	GenerationLimiter *ratelimit.KeyedRateLimiter

	HealthHandler *httpH.HealthHandler
	PageHandler   *httpH.PageHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		if cfg.Log != nil {
			cfg.Log.Warn("Invalid trusted proxies, trusting none", "proxies", cfg.TrustedProxies, "error", err)
		}
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.RequestIDs())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	if cfg.AuthMiddleware != nil {
		r.Use(cfg.AuthMiddleware.Authenticate())
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/auth/login", cfg.AuthHandler.Login)
			api.POST("/auth/register", cfg.AuthHandler.Register)
			api.POST("/auth/logout", cfg.AuthHandler.Logout)
			api.GET("/auth/session", cfg.AuthHandler.Session)
		}

		// Generation is open to guests unless disabled.
		if cfg.GenerationHandler != nil {
			chain := []gin.HandlerFunc{}
			if !cfg.AllowGuests && cfg.AuthMiddleware != nil {
				chain = append(chain, cfg.AuthMiddleware.RequireAuth())
			}
			chain = append(chain, httpMW.RateLimit(cfg.GenerationLimiter), cfg.GenerationHandler.Generate)
			api.POST("/generations", chain...)
		}
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Flashcards
		if cfg.FlashcardHandler != nil {
			protected.GET("/flashcards", cfg.FlashcardHandler.List)
			protected.POST("/flashcards", cfg.FlashcardHandler.Create)
			protected.DELETE("/flashcards", cfg.FlashcardHandler.Delete)
			protected.GET("/flashcards/:id", cfg.FlashcardHandler.Get)
			protected.PUT("/flashcards/:id", cfg.FlashcardHandler.Update)
		}

		// Generations (read)
		if cfg.GenerationHandler != nil {
			protected.GET("/generations", cfg.GenerationHandler.List)
			protected.GET("/generations/:id", cfg.GenerationHandler.Get)
			protected.GET("/generation-error-logs", cfg.GenerationHandler.ErrorLogs)
		}
	}

	// Pages
	if cfg.PageHandler != nil {
		pages := r.Group("/", httpMW.RoutePolicy())
		for _, p := range pageRoutes {
			pages.GET(p, cfg.PageHandler.Serve)
		}
		r.NoRoute(apiNotFound, httpMW.RoutePolicy(), cfg.PageHandler.Serve)
	} else {
		r.NoRoute(apiNotFound)
	}

	return r
}

func apiNotFound(c *gin.Context) {
	if c.Request.URL.Path == "/api" || strings.HasPrefix(c.Request.URL.Path, "/api/") {
		response.RespondMessage(c, http.StatusNotFound, "not_found", "Not found")
		c.Abort()
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusNotFound)
		c.Abort()
	}
}
