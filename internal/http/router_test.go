package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenxcards/tenxcards-backend/internal/data/db"
	"github.com/tenxcards/tenxcards-backend/internal/data/repos"
	"github.com/tenxcards/tenxcards-backend/internal/data/repos/testutil"
	domain "github.com/tenxcards/tenxcards-backend/internal/domain/flashcards"
	httpH "github.com/tenxcards/tenxcards-backend/internal/http/handlers"
	httpMW "github.com/tenxcards/tenxcards-backend/internal/http/middleware"
	"github.com/tenxcards/tenxcards-backend/internal/platform/openrouter"
	"github.com/tenxcards/tenxcards-backend/internal/platform/ratelimit"
	"github.com/tenxcards/tenxcards-backend/internal/review"
	"github.com/tenxcards/tenxcards-backend/internal/services"
)

const modelReply = `[
	{"front":"What is a flashcard?","back":"A card with a prompt and an answer.","source":"ai-full"},
	{"front":"What is spaced repetition?","back":"Reviewing at growing intervals.","source":"ai-full"},
	{"front":"Why review?","back":"To move facts into long-term memory.","source":"ai-full"}
]`

type testEnv struct {
	srv *httptest.Server
}

func newTestEnv(t *testing.T, allowGuests bool, opts ...func(*RouterConfig)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	gdb := testutil.DB(t)

	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": modelReply}}},
		})
	}))
	t.Cleanup(model.Close)
	client := openrouter.NewClient(openrouter.Config{
		APIKey:            "sk-test",
		APIURL:            model.URL,
		DefaultModel:      openrouter.DefaultModel,
		DefaultParameters: openrouter.DefaultParameters(),
	}, nil, log)

	scope := db.NewOwnerScope(gdb, false)
	userRepo := repos.NewUserRepo(gdb, log)
	tokenRepo := repos.NewUserTokenRepo(gdb, log)
	flashcardRepo := repos.NewFlashcardRepo(gdb, log)
	generationRepo := repos.NewGenerationRepo(gdb, log)
	errorLogRepo := repos.NewGenerationErrorLogRepo(gdb, log)

	authService := services.NewAuthService(gdb, log, userRepo, tokenRepo, nil, nil, services.AuthConfig{
		JWTSecretKey: "router-test-secret",
		AccessTTL:    time.Hour,
		RefreshTTL:   24 * time.Hour,
	})
	flashcardService := services.NewFlashcardService(log, scope, flashcardRepo, generationRepo, nil)
	generationService, err := services.NewGenerationService(log, scope, generationRepo, errorLogRepo, client, nil, nil,
		services.GenerationConfig{AllowGuests: allowGuests})
	require.NoError(t, err)

	storage := httpMW.NewCookieStorage(false)
	cfg := RouterConfig{
		Log:               log,
		AllowGuests:       allowGuests,
		AuthHandler:       httpH.NewAuthHandler(log, authService, storage),
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, authService, storage),
		FlashcardHandler:  httpH.NewFlashcardHandler(log, flashcardService),
		GenerationHandler: httpH.NewGenerationHandler(log, generationService),
		HealthHandler:     httpH.NewHealthHandler(nil),
		PageHandler:       httpH.NewPageHandler(""),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	srv := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv}
}

// browser keeps cookies and never follows redirects.
func (e *testEnv) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:           jar,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHealthcheck(t *testing.T) {
	env := newTestEnv(t, true)
	resp, err := http.Get(env.srv.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGenerateReviewCommitFlow(t *testing.T) {
	env := newTestEnv(t, true)
	browser := env.browser(t)

	status, body := env.do(t, browser, http.MethodPost, "/api/auth/register", map[string]string{"email": "flow@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, "flow@example.com", body["user"].(map[string]any)["email"])

	status, body = env.do(t, browser, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"has_access_token": true, "has_refresh_token": true}, body["cookies"])
	assert.NotNil(t, body["session"])

	status, body = env.do(t, browser, http.MethodPost, "/api/generations", map[string]string{"source_text": strings.Repeat("a", 1000)})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	require.NotNil(t, body["generation_id"])
	genID := int64(body["generation_id"].(float64))

	var proposals []domain.FlashcardProposal
	raw, _ := json.Marshal(body["flashcards_proposals"])
	require.NoError(t, json.Unmarshal(raw, &proposals))
	require.NotEmpty(t, proposals)

	sess := review.NewSession(&genID, proposals)
	sess.AcceptAll()
	base, _ := url.Parse(env.srv.URL)
	created, err := sess.Commit(context.Background(), review.NewHTTPSubmitter(env.srv.URL, browser.Jar.Cookies(base)))
	require.NoError(t, err)
	require.Len(t, created, len(proposals))

	status, body = env.do(t, browser, http.MethodGet, "/api/flashcards?sortBy=front&order=asc", nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].([]any)
	require.Len(t, data, len(proposals))
	for _, row := range data {
		assert.Equal(t, "ai-full", row.(map[string]any)["source"])
	}

	status, body = env.do(t, browser, http.MethodGet, fmt.Sprintf("/api/generations/%d", genID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, len(proposals), body["accepted_unedited_count"])
	assert.EqualValues(t, len(proposals), body["generated_count"])
}

func TestGuestGenerationAndProtectedRoutes(t *testing.T) {
	env := newTestEnv(t, true)
	guest := env.browser(t)

	status, body := env.do(t, guest, http.MethodPost, "/api/generations", map[string]string{"source_text": strings.Repeat("b", 1500)})
	require.Equal(t, http.StatusCreated, status, "%v", body)
	assert.Nil(t, body["generation_id"])
	assert.EqualValues(t, 3, body["generated_count"])

	status, body = env.do(t, guest, http.MethodPost, "/api/generations", map[string]string{"source_text": strings.Repeat("b", 999)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "source_text_too_short", body["code"])

	status, _ = env.do(t, guest, http.MethodGet, "/api/flashcards", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = env.do(t, guest, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["code"])

	resp, err := guest.Get(env.srv.URL + "/flashcards")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	status, body = env.do(t, guest, http.MethodGet, "/generate", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "/generate", body["page"])
}

func TestGuestRateLimitIgnoresForwardedFor(t *testing.T) {
	cases := []struct {
		name    string
		proxies []string
		want    []int
	}{
		{"no trusted proxies", nil, []int{http.StatusCreated, http.StatusTooManyRequests, http.StatusTooManyRequests}},
		{"trusted loopback proxy", []string{"127.0.0.1"}, []int{http.StatusCreated, http.StatusCreated, http.StatusCreated}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, true, func(cfg *RouterConfig) {
				cfg.GenerationLimiter = ratelimit.New(1, time.Hour, 1)
				cfg.TrustedProxies = tc.proxies
			})
			raw, err := json.Marshal(map[string]string{"source_text": strings.Repeat("d", 1200)})
			require.NoError(t, err)

			var got []int
			for i := range tc.want {
				req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/generations", bytes.NewReader(raw))
				require.NoError(t, err)
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err)
				resp.Body.Close()
				got = append(got, resp.StatusCode)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGuestGenerationDisabled(t *testing.T) {
	env := newTestEnv(t, false)
	status, _ := env.do(t, env.browser(t), http.MethodPost, "/api/generations", map[string]string{"source_text": strings.Repeat("c", 1000)})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginLogoutMessages(t *testing.T) {
	env := newTestEnv(t, true)
	browser := env.browser(t)

	status, _ := env.do(t, browser, http.MethodPost, "/api/auth/register", map[string]string{"email": "pl@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, browser, http.MethodPost, "/api/auth/register", map[string]string{"email": "pl@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Użytkownik o tym adresie email już istnieje", body["error"])

	status, body = env.do(t, env.browser(t), http.MethodPost, "/api/login", map[string]string{"email": "pl@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Nieprawidłowy email lub hasło", body["error"])

	status, body = env.do(t, browser, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusFound, status, "%v", body)

	status, body = env.do(t, browser, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Wylogowano pomyślnie", body["message"])

	status, body = env.do(t, browser, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["user"])
	assert.Equal(t, map[string]any{"has_access_token": false, "has_refresh_token": false}, body["cookies"])

	status, body = env.do(t, env.browser(t), http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status, "logout without a session still succeeds")
}
