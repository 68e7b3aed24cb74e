package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tenxcards/tenxcards-backend/internal/data/db"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/platform/promptstyle"
	"github.com/tenxcards/tenxcards-backend/internal/platform/validation"
	"github.com/tenxcards/tenxcards-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Flashcard  services.FlashcardService
	Generation services.GenerationService
}

func wireServices(theDB *gorm.DB, log *logger.Logger, cfg Config, rlsEnabled bool, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	v := validation.New()
	scope := db.NewOwnerScope(theDB, rlsEnabled)

	catalog, err := promptstyle.Load()
	if err != nil {
		return Services{}, fmt.Errorf("load prompt catalog: %w", err)
	}

	auth := services.NewAuthService(theDB, log, reposet.User, reposet.UserToken, clients.SessionCache, v, services.AuthConfig{
		JWTSecretKey:       cfg.JWTSecretKey,
		AccessTTL:          cfg.AccessTokenTTL,
		RefreshTTL:         cfg.RefreshTokenTTL,
		RefreshReuseWindow: cfg.RefreshReuse,
	})
	flashcard := services.NewFlashcardService(log, scope, reposet.Flashcard, reposet.Generation, v)
	generation, err := services.NewGenerationService(log, scope, reposet.Generation, reposet.GenerationErrorLog,
		clients.OpenRouter, catalog, v, services.GenerationConfig{
			MinSourceChars: cfg.MinSourceChars,
			MaxSourceChars: cfg.MaxSourceChars,
			AllowGuests:    cfg.AllowGuestGeneration,
		})
	if err != nil {
		return Services{}, fmt.Errorf("init generation service: %w", err)
	}

	return Services{
		Auth:       auth,
		Flashcard:  flashcard,
		Generation: generation,
	}, nil
}
