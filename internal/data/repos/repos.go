package repos

import (
	"gorm.io/gorm"

	"github.com/tenxcards/tenxcards-backend/internal/data/repos/auth"
	"github.com/tenxcards/tenxcards-backend/internal/data/repos/flashcards"
	"github.com/tenxcards/tenxcards-backend/internal/data/repos/user"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type FlashcardRepo = flashcards.FlashcardRepo
type GenerationRepo = flashcards.GenerationRepo
type GenerationErrorLogRepo = flashcards.GenerationErrorLogRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewFlashcardRepo(db *gorm.DB, baseLog *logger.Logger) FlashcardRepo {
	return flashcards.NewFlashcardRepo(db, baseLog)
}
func NewGenerationRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRepo {
	return flashcards.NewGenerationRepo(db, baseLog)
}
func NewGenerationErrorLogRepo(db *gorm.DB, baseLog *logger.Logger) GenerationErrorLogRepo {
	return flashcards.NewGenerationErrorLogRepo(db, baseLog)
}
