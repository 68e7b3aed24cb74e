package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/tenxcards/tenxcards-backend/internal/data/db"
	"github.com/tenxcards/tenxcards-backend/internal/data/repos"
	"github.com/tenxcards/tenxcards-backend/internal/data/repos/testutil"
	types "github.com/tenxcards/tenxcards-backend/internal/domain"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/ctxutil"
	"github.com/tenxcards/tenxcards-backend/internal/platform/openrouter"
)

type fixture struct {
	db             *gorm.DB
	scope          *db.OwnerScope
	flashcardRepo  repos.FlashcardRepo
	generationRepo repos.GenerationRepo
	errorLogRepo   repos.GenerationErrorLogRepo
	userRepo       repos.UserRepo
	userTokenRepo  repos.UserTokenRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	return &fixture{
		db:             gdb,
		scope:          db.NewOwnerScope(gdb, false),
		flashcardRepo:  repos.NewFlashcardRepo(gdb, log),
		generationRepo: repos.NewGenerationRepo(gdb, log),
		errorLogRepo:   repos.NewGenerationErrorLogRepo(gdb, log),
		userRepo:       repos.NewUserRepo(gdb, log),
		userTokenRepo:  repos.NewUserTokenRepo(gdb, log),
	}
}

func (f *fixture) user(t *testing.T, email string) *types.User {
	t.Helper()
	return testutil.SeedUser(t, context.Background(), f.db, email)
}

func asUser(u *types.User) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: u.ID, Email: u.Email})
}

// fakeModel answers every chat completion with status and the given message content.
type fakeModel struct {
	srv   *httptest.Server
	calls atomic.Int32
}

func newFakeModel(t *testing.T, status int, content string) *fakeModel {
	t.Helper()
	fm := &fakeModel{}
	fm.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fm.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "gen-test",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(fm.srv.Close)
	return fm
}

func (fm *fakeModel) client() *openrouter.Client {
	return openrouter.NewClient(openrouter.Config{
		APIKey:            "sk-test",
		APIURL:            fm.srv.URL,
		DefaultModel:      openrouter.DefaultModel,
		DefaultParameters: openrouter.DefaultParameters(),
	}, nil, nil)
}

const threeCards = `{"flashcards":[
	{"front":"What is Go?","back":"A programming language.","source":"ai-full"},
	{"front":"Who designed Go?","back":"Griesemer, Pike and Thompson.","source":"ai-full"},
	{"front":"When was Go announced?","back":"2009.","source":"ai-full"}
]}`

func text(n int) string { return strings.Repeat("a", n) }

func newUnkeyedClient(fm *fakeModel) *openrouter.Client {
	return openrouter.NewClient(openrouter.Config{
		APIURL:       fm.srv.URL,
		DefaultModel: openrouter.DefaultModel,
	}, nil, nil)
}
