package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenxcards/tenxcards-backend/internal/data/repos/testutil"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
)

func newAuthService(t *testing.T, f *fixture) *authService {
	t.Helper()
	svc := NewAuthService(f.db, testutil.Logger(t), f.userRepo, f.userTokenRepo, nil, nil, AuthConfig{
		JWTSecretKey: "test-secret",
		AccessTTL:    time.Hour,
		RefreshTTL:   24 * time.Hour,
	})
	return svc.(*authService)
}

func codeOf(err error) string {
	if e, ok := apperrors.As(err); ok {
		return e.Code
	}
	return ""
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f)
	ctx := context.Background()

	sess, err := svc.RegisterUser(ctx, "  New.User@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", sess.Email)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)

	_, err = svc.RegisterUser(ctx, "new.user@example.com", "another1")
	assert.Equal(t, CodeUserExists, codeOf(err))
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	_, err = svc.RegisterUser(ctx, "not-an-email", "secret1")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	_, err = svc.RegisterUser(ctx, "short@example.com", "12345")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	again, err := svc.LoginUser(ctx, "NEW.USER@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, again.UserID)
	assert.NotEqual(t, sess.AccessToken, again.AccessToken, "each login is its own session")

	_, err = svc.LoginUser(ctx, "new.user@example.com", "wrong")
	assert.Equal(t, CodeInvalidCredentials, codeOf(err))
	_, err = svc.LoginUser(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, CodeInvalidCredentials, codeOf(err))
}

func TestAuthenticateAndLogout(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f)
	ctx := context.Background()

	sess, err := svc.RegisterUser(ctx, "auth@example.com", "secret1")
	require.NoError(t, err)

	got, refreshed, err := svc.Authenticate(ctx, sess.AccessToken, sess.RefreshToken)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, "auth@example.com", got.Email)

	require.NoError(t, svc.LogoutUser(ctx, sess.AccessToken, sess.RefreshToken))
	_, _, err = svc.Authenticate(ctx, sess.AccessToken, "")
	assert.Equal(t, CodeSessionRevoked, codeOf(err))

	require.NoError(t, svc.LogoutUser(ctx, "", ""), "logout without a session is a no-op")

	_, _, err = svc.Authenticate(ctx, "", "")
	assert.Equal(t, CodeMissingSession, codeOf(err))
	_, _, err = svc.Authenticate(ctx, "garbage", "")
	assert.Equal(t, CodeInvalidToken, codeOf(err))
}

func TestAuthenticateRotatesExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f)
	ctx := context.Background()

	sess, err := svc.RegisterUser(ctx, "rotate@example.com", "secret1")
	require.NoError(t, err)

	later := time.Now().UTC().Add(2 * time.Hour)
	svc.now = func() time.Time { return later }

	_, _, err = svc.Authenticate(ctx, sess.AccessToken, "")
	assert.Equal(t, CodeInvalidToken, codeOf(err), "expired token without refresh must fail")

	next, refreshed, err := svc.Authenticate(ctx, sess.AccessToken, sess.RefreshToken)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.NotEqual(t, sess.AccessToken, next.AccessToken)
	assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)

	svc.now = func() time.Time { return later.Add(DefaultRefreshReuseWindow + time.Second) }
	_, err = svc.RefreshSession(ctx, sess.RefreshToken)
	assert.Equal(t, CodeRefreshInvalid, codeOf(err), "old refresh token is dead after the reuse window")

	got, refreshed, err := svc.Authenticate(ctx, next.AccessToken, next.RefreshToken)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, sess.UserID, got.UserID)
}

func TestRefreshExpiredTokenIsDeleted(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f)
	ctx := context.Background()

	sess, err := svc.RegisterUser(ctx, "stale@example.com", "secret1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().UTC().Add(48 * time.Hour) }
	_, err = svc.RefreshSession(ctx, sess.RefreshToken)
	assert.Equal(t, CodeRefreshExpired, codeOf(err))

	_, err = svc.RefreshSession(ctx, sess.RefreshToken)
	assert.Equal(t, CodeRefreshInvalid, codeOf(err))
}

func TestConcurrentRefreshesShareOneSuccessor(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(t, f)
	ctx := context.Background()

	sess, err := svc.RegisterUser(ctx, "tabs@example.com", "secret1")
	require.NoError(t, err)

	later := time.Now().UTC().Add(2 * time.Hour)
	svc.now = func() time.Time { return later }

	first, refreshed, err := svc.Authenticate(ctx, sess.AccessToken, sess.RefreshToken)
	require.NoError(t, err)
	require.True(t, refreshed)

	// A second tab still holding the old cookies lands on the same pair.
	svc.now = func() time.Time { return later.Add(DefaultRefreshReuseWindow / 2) }
	second, refreshed, err := svc.Authenticate(ctx, sess.AccessToken, sess.RefreshToken)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, first.RefreshToken, second.RefreshToken)

	rows, err := f.userTokenRepo.GetByUserIDs(testutil.Ctx(f.db), []uuid.UUID{sess.UserID})
	require.NoError(t, err)
	assert.Len(t, rows, 2, "reuse must not mint another pair")

	_, _, err = svc.Authenticate(ctx, "", sess.RefreshToken)
	require.NoError(t, err)

	// Rotated rows are pruned on the next login once the window has passed.
	svc.now = func() time.Time { return later.Add(DefaultRefreshReuseWindow + time.Second) }
	_, err = svc.LoginUser(ctx, "tabs@example.com", "secret1")
	require.NoError(t, err)
	rows, err = f.userTokenRepo.GetByUserIDs(testutil.Ctx(f.db), []uuid.UUID{sess.UserID})
	require.NoError(t, err)
	for _, r := range rows {
		assert.Nil(t, r.RotatedAt, "rotated row survived pruning")
	}
	assert.Len(t, rows, 2)
}
