package domain

import (
	"github.com/tenxcards/tenxcards-backend/internal/domain/auth"
	"github.com/tenxcards/tenxcards-backend/internal/domain/flashcards"
	"github.com/tenxcards/tenxcards-backend/internal/domain/user"
)

type (
	User      = user.User
	UserToken = auth.UserToken

	Flashcard          = flashcards.Flashcard
	Generation         = flashcards.Generation
	GenerationErrorLog = flashcards.GenerationErrorLog
)

// Models lists every persisted type, in dependency order, for AutoMigrate.
func Models() []any {
	return []any{
		&User{},
		&UserToken{},
		&Generation{},
		&Flashcard{},
		&GenerationErrorLog{},
	}
}
