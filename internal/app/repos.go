package app

import (
	"gorm.io/gorm"

	"github.com/tenxcards/tenxcards-backend/internal/data/repos"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

type Repos struct {
	User               repos.UserRepo
	UserToken          repos.UserTokenRepo
	Flashcard          repos.FlashcardRepo
	Generation         repos.GenerationRepo
	GenerationErrorLog repos.GenerationErrorLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:               repos.NewUserRepo(db, log),
		UserToken:          repos.NewUserTokenRepo(db, log),
		Flashcard:          repos.NewFlashcardRepo(db, log),
		Generation:         repos.NewGenerationRepo(db, log),
		GenerationErrorLog: repos.NewGenerationErrorLogRepo(db, log),
	}
}
