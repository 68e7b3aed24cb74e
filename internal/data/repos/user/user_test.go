package user

import (
	"testing"

	"github.com/google/uuid"

	"github.com/tenxcards/tenxcards-backend/internal/data/repos/testutil"
	types "github.com/tenxcards/tenxcards-backend/internal/domain"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := testutil.Ctx(db)
	repo := NewUserRepo(db, testutil.Logger(t))

	created, err := repo.Create(dbc, []*types.User{{Email: "  UserRepo@Example.com ", Password: "hash"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: expected 1 user with an id, got %+v", created)
	}
	if created[0].Email != "userrepo@example.com" {
		t.Fatalf("Create: email not normalized: %q", created[0].Email)
	}

	gotByIDs, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID})
	if err != nil || len(gotByIDs) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(gotByIDs))
	}

	got, err := repo.GetByEmail(dbc, "USERREPO@example.com")
	if err != nil || got == nil || got.ID != created[0].ID {
		t.Fatalf("GetByEmail: err=%v got=%+v", err, got)
	}
	missing, err := repo.GetByEmail(dbc, "nobody@example.com")
	if err != nil || missing != nil {
		t.Fatalf("GetByEmail missing: err=%v got=%+v", err, missing)
	}

	exists, err := repo.EmailExists(dbc, "userrepo@example.com")
	if err != nil || !exists {
		t.Fatalf("EmailExists: err=%v exists=%v", err, exists)
	}
	exists, err = repo.EmailExists(dbc, "does-not-exist@example.com")
	if err != nil || exists {
		t.Fatalf("EmailExists missing: err=%v exists=%v", err, exists)
	}

	_, err = repo.Create(dbc, []*types.User{{Email: "userrepo@example.com", Password: "hash"}})
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("duplicate email: expected conflict, got %v", err)
	}
}
