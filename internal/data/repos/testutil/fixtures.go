package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/tenxcards/tenxcards-backend/internal/domain"
	"github.com/tenxcards/tenxcards-backend/internal/domain/flashcards"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: "pw",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedGeneration(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.Generation {
	tb.Helper()
	g := &types.Generation{
		UserID:           userID,
		Model:            "openai/gpt-4o-mini",
		SourceTextHash:   strings.Repeat("a", 64),
		SourceTextLength: 1000,
		GeneratedCount:   3,
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed generation: %v", err)
	}
	return g
}

func SeedFlashcard(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, front string) *types.Flashcard {
	tb.Helper()
	f := &types.Flashcard{
		UserID: userID,
		Front:  front,
		Back:   "back of " + front,
		Source: flashcards.SourceManual,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed flashcard: %v", err)
	}
	return f
}

func PtrInt64(v int64) *int64 { return &v }
