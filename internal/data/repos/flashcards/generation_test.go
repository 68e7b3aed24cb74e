package flashcards

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/tenxcards/tenxcards-backend/internal/data/repos/testutil"
	types "github.com/tenxcards/tenxcards-backend/internal/domain"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
)

func TestGenerationRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := testutil.Ctx(db)
	ctx := context.Background()
	repo := NewGenerationRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, db, "gen@example.com")
	other := testutil.SeedUser(t, ctx, db, "gen-other@example.com")

	row := &types.Generation{UserID: owner.ID, Model: "m", SourceTextHash: "h", SourceTextLength: 1200}
	if err := repo.Create(dbc, row); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if row.ID == 0 || row.GeneratedCount != 0 {
		t.Fatalf("Create: unexpected %+v", row)
	}

	params := datatypes.JSON([]byte(`{"temperature":0.7,"max_tokens":1024}`))
	if err := repo.UpdateResult(dbc, owner.ID, row.ID, 5, 1234, params); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}
	if err := repo.IncrementAccepted(dbc, owner.ID, row.ID, 2, 1); err != nil {
		t.Fatalf("IncrementAccepted: %v", err)
	}
	if err := repo.IncrementAccepted(dbc, owner.ID, row.ID, 1, 0); err != nil {
		t.Fatalf("IncrementAccepted again: %v", err)
	}

	got, err := repo.GetByID(dbc, owner.ID, row.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.GeneratedCount != 5 || got.GenerationDuration != 1234 || got.AcceptedUneditedCount != 3 || got.AcceptedEditedCount != 1 {
		t.Fatalf("GetByID: unexpected counters %+v", got)
	}

	if _, err := repo.GetByID(dbc, other.ID, row.ID); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("GetByID other owner: expected not found, got %v", err)
	}
	if err := repo.IncrementAccepted(dbc, other.ID, row.ID, 1, 0); apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("IncrementAccepted other owner: expected not found, got %v", err)
	}

	owned, err := repo.GetByIDs(dbc, other.ID, []int64{row.ID})
	if err != nil || len(owned) != 0 {
		t.Fatalf("GetByIDs other owner: err=%v len=%d", err, len(owned))
	}

	testutil.SeedGeneration(t, ctx, db, owner.ID)
	rows, total, err := repo.List(dbc, owner.ID, 1, 1)
	if err != nil || total != 2 || len(rows) != 1 {
		t.Fatalf("List: err=%v total=%d len=%d", err, total, len(rows))
	}
}

func TestGenerationErrorLogRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := testutil.Ctx(db)
	ctx := context.Background()
	repo := NewGenerationErrorLogRepo(db, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, db, "errlog@example.com")
	for _, code := range []string{"api_error", "empty_result"} {
		if err := repo.Create(dbc, &types.GenerationErrorLog{
			UserID:           owner.ID,
			Model:            "m",
			SourceTextHash:   "h",
			SourceTextLength: 1000,
			ErrorCode:        code,
			ErrorMessage:     "failed",
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rows, err := repo.ListByUser(dbc, owner.ID, 10)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByUser: err=%v len=%d", err, len(rows))
	}
	if rows[0].ErrorCode != "empty_result" {
		t.Fatalf("ListByUser: expected newest first, got %q", rows[0].ErrorCode)
	}
}
