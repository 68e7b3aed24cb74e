package app

import (
	"fmt"

	"github.com/tenxcards/tenxcards-backend/internal/clients/redis"
	"github.com/tenxcards/tenxcards-backend/internal/observability"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/platform/openrouter"
)

type Clients struct {
	SessionCache redis.SessionCache
	OpenRouter   *openrouter.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	cache := redis.Nop()
	if cfg.RedisAddr != "" {
		c, err := redis.NewSessionCache(log, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis session cache: %w", err)
		}
		cache = c
		observability.Current().SetRedisUp(true)
	}

	// OpenRouter
	if cfg.OpenRouterAPIKey == "" {
		log.Warn("OPENROUTER_API_KEY is not set; generation requests will fail with a configuration error")
	}
	client := openrouter.NewClient(openrouter.Config{
		APIKey:            cfg.OpenRouterAPIKey,
		APIURL:            cfg.OpenRouterAPIURL,
		DefaultModel:      cfg.OpenRouterDefaultModel,
		DefaultParameters: openrouter.DefaultParameters(),
		Timeout:           cfg.OpenRouterTimeout,
		Referer:           cfg.OpenRouterReferer,
		Title:             "10x Cards",
	}, openrouter.NewRingErrorLog(cfg.OpenRouterErrorLogSize), log)

	return Clients{
		SessionCache: cache,
		OpenRouter:   client,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SessionCache != nil {
		_ = c.SessionCache.Close()
	}
}
