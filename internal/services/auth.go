package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tenxcards/tenxcards-backend/internal/clients/redis"
	"github.com/tenxcards/tenxcards-backend/internal/data/repos"
	userrepo "github.com/tenxcards/tenxcards-backend/internal/data/repos/user"
	types "github.com/tenxcards/tenxcards-backend/internal/domain"
	"github.com/tenxcards/tenxcards-backend/internal/domain/user"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/dbctx"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/platform/validation"
)

// Codes returned on auth failures; handlers map them to user-facing messages.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeUserExists         = "user_exists"
	CodeAutoLoginFailed    = "auto_login_failed"
	CodeMissingSession     = "missing_session"
	CodeInvalidToken       = "invalid_token"
	CodeSessionRevoked     = "session_revoked"
	CodeRefreshInvalid     = "invalid_refresh_token"
	CodeRefreshExpired     = "refresh_token_expired"
)

type JWTClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Session is an issued or validated token pair. ExpiresAt is the refresh expiry.
type Session struct {
	UserID          uuid.UUID
	Email           string
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	ExpiresAt       time.Time
}

// DefaultRefreshReuseWindow is how long a rotated refresh token still resolves to its successor.
const DefaultRefreshReuseWindow = 10 * time.Second

type AuthConfig struct {
	JWTSecretKey string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration

	// RefreshReuseWindow defaults to DefaultRefreshReuseWindow when zero.
	RefreshReuseWindow time.Duration
}

type AuthService interface {
	RegisterUser(ctx context.Context, email, password string) (*Session, error)
	LoginUser(ctx context.Context, email, password string) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	// Authenticate reports refreshed=true when the pair was rotated and the cookies must be rewritten.
	Authenticate(ctx context.Context, accessToken, refreshToken string) (*Session, bool, error)
	LogoutUser(ctx context.Context, accessToken, refreshToken string) error
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	cache         redis.SessionCache
	validator     *validation.Validator
	jwtSecretKey  []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	reuseWindow   time.Duration
	now           func() time.Time
}

// NewAuthService builds the auth service. cache may be nil.
func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	cache redis.SessionCache,
	validator *validation.Validator,
	cfg AuthConfig,
) AuthService {
	if validator == nil {
		validator = validation.New()
	}
	if cache == nil {
		cache = redis.Nop()
	}
	if cfg.RefreshReuseWindow <= 0 {
		cfg.RefreshReuseWindow = DefaultRefreshReuseWindow
	}
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		cache:         cache,
		validator:     validator,
		jwtSecretKey:  []byte(cfg.JWTSecretKey),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		reuseWindow:   cfg.RefreshReuseWindow,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (as *authService) AccessTTL() time.Duration  { return as.accessTTL }
func (as *authService) RefreshTTL() time.Duration { return as.refreshTTL }

func invalidCredentials() *apperrors.Error {
	return apperrors.New(apperrors.KindUnauthorized, CodeInvalidCredentials, "Invalid email or password")
}

func (as *authService) RegisterUser(ctx context.Context, email, password string) (*Session, error) {
	cmd := user.RegisterCommand{Email: userrepo.NormalizeEmail(email), Password: password}
	if err := as.validator.Validate(cmd); err != nil {
		return nil, err
	}

	exists, err := as.userRepo.EmailExists(dbctx.Of(ctx), cmd.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, apperrors.Conflict(CodeUserExists, "User with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("hash password", err)
	}

	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := as.userRepo.Create(dbctx.Context{Ctx: ctx, Tx: tx}, []*types.User{{
			Email:    cmd.Email,
			Password: string(hash),
		}})
		return err
	}); err != nil {
		if apperrors.KindOf(err) == apperrors.KindConflict {
			return nil, apperrors.Conflict(CodeUserExists, "User with this email already exists")
		}
		as.log.Error("Create user failed", "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}
	as.log.Info("User registered", "email", cmd.Email)

	sess, err := as.LoginUser(ctx, cmd.Email, cmd.Password)
	if err != nil {
		as.log.Warn("Auto login after registration failed", "error", err)
		return nil, apperrors.Wrap(apperrors.KindInternal, CodeAutoLoginFailed, "Registration succeeded but login failed", err)
	}
	return sess, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (*Session, error) {
	cmd := user.LoginCommand{Email: userrepo.NormalizeEmail(email), Password: password}
	if err := as.validator.Validate(cmd); err != nil {
		return nil, invalidCredentials().WithDetails(detailsOf(err))
	}

	u, err := as.userRepo.GetByEmail(dbctx.Of(ctx), cmd.Email)
	if err != nil {
		return nil, fmt.Errorf("load user by email: %w", err)
	}
	if u == nil {
		return nil, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(cmd.Password)); err != nil {
		return nil, invalidCredentials()
	}

	var sess *Session
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := as.pruneExpired(dbc, u.ID); err != nil {
			return err
		}
		s, err := as.issueSession(dbc, u, uuid.Nil)
		if err != nil {
			return err
		}
		sess = s
		return nil
	}); err != nil {
		as.log.Error("Login failed", "error", err)
		return nil, err
	}
	return sess, nil
}

func (as *authService) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperrors.New(apperrors.KindUnauthorized, CodeRefreshInvalid, "Missing refresh token")
	}

	var (
		sess      *Session
		oldAccess string
		failure   *apperrors.Error
	)
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		existing, err := as.loadRefreshRow(dbc, refreshToken)
		if err != nil {
			return err
		}
		oldAccess = existing.AccessToken
		now := as.now()

		if existing.RotatedAt == nil {
			if !existing.ExpiresAt.After(now) {
				// Commit the deletion of the stale row, then fail.
				failure = apperrors.New(apperrors.KindUnauthorized, CodeRefreshExpired, "Refresh token expired")
				return as.userTokenRepo.DeleteByIDs(dbc, []uuid.UUID{existing.ID})
			}
			successorID := uuid.New()
			won, err := as.userTokenRepo.MarkRotated(dbc, existing.ID, successorID, now)
			if err != nil {
				return fmt.Errorf("mark token rotated: %w", err)
			}
			if won {
				u, err := as.loadUser(dbc, existing.UserID)
				if err != nil {
					return err
				}
				sess, err = as.issueSession(dbc, u, successorID)
				return err
			}
			// A concurrent refresh rotated the row first; reread to find its successor.
			if existing, err = as.loadRefreshRow(dbc, refreshToken); err != nil {
				return err
			}
		}

		s, err := as.successorSession(dbc, existing, now)
		if err != nil {
			return err
		}
		if s == nil {
			failure = apperrors.New(apperrors.KindUnauthorized, CodeRefreshInvalid, "Invalid refresh token")
			return as.userTokenRepo.DeleteByIDs(dbc, []uuid.UUID{existing.ID})
		}
		sess = s
		return nil
	})
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindUnauthorized {
			as.log.Warn("Refresh failed", "error", err)
		}
		return nil, err
	}
	if oldAccess != "" {
		as.evict(ctx, oldAccess)
	}
	if failure != nil {
		return nil, failure
	}
	return sess, nil
}

func (as *authService) loadRefreshRow(dbc dbctx.Context, refreshToken string) (*types.UserToken, error) {
	found, err := as.userTokenRepo.GetByRefreshTokens(dbc, []string{refreshToken})
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	if len(found) == 0 {
		return nil, apperrors.New(apperrors.KindUnauthorized, CodeRefreshInvalid, "Invalid refresh token")
	}
	return found[0], nil
}

func (as *authService) loadUser(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	users, err := as.userRepo.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("load user for refresh: %w", err)
	}
	if len(users) == 0 {
		return nil, apperrors.New(apperrors.KindUnauthorized, CodeRefreshInvalid, "No user for refresh token")
	}
	return users[0], nil
}

// successorSession returns the pair that replaced a rotated row, or nil once the
// reuse window has passed or the successor is gone.
func (as *authService) successorSession(dbc dbctx.Context, rotated *types.UserToken, now time.Time) (*Session, error) {
	if rotated.RotatedAt == nil || rotated.ReplacedByID == nil || now.Sub(*rotated.RotatedAt) > as.reuseWindow {
		return nil, nil
	}
	next, err := as.userTokenRepo.GetByIDs(dbc, []uuid.UUID{*rotated.ReplacedByID})
	if err != nil {
		return nil, fmt.Errorf("load successor token: %w", err)
	}
	if len(next) == 0 || !next[0].ExpiresAt.After(now) {
		return nil, nil
	}
	u, err := as.loadUser(dbc, next[0].UserID)
	if err != nil {
		return nil, err
	}
	claims, err := as.parseAccessToken(next[0].AccessToken)
	if err != nil || claims.ExpiresAt == nil {
		return nil, nil
	}
	return &Session{
		UserID:          u.ID,
		Email:           u.Email,
		AccessToken:     next[0].AccessToken,
		RefreshToken:    next[0].RefreshToken,
		AccessExpiresAt: claims.ExpiresAt.Time.UTC(),
		ExpiresAt:       next[0].ExpiresAt,
	}, nil
}

func (as *authService) Authenticate(ctx context.Context, accessToken, refreshToken string) (*Session, bool, error) {
	if accessToken == "" && refreshToken == "" {
		return nil, false, apperrors.New(apperrors.KindUnauthorized, CodeMissingSession, "No session")
	}
	if accessToken == "" {
		return as.rotate(ctx, refreshToken)
	}

	claims, err := as.parseAccessToken(accessToken)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired) && refreshToken != "":
		return as.rotate(ctx, refreshToken)
	default:
		return nil, false, apperrors.Wrap(apperrors.KindUnauthorized, CodeInvalidToken, "Invalid or expired token", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.KindUnauthorized, CodeInvalidToken, "Invalid user id in token", err)
	}
	accessExp := as.now()
	if claims.ExpiresAt != nil {
		accessExp = claims.ExpiresAt.Time.UTC()
	}

	if cached, ok, cerr := as.cache.Get(ctx, accessToken); cerr != nil {
		as.log.Warn("Session cache lookup failed", "error", cerr)
	} else if ok && cached.UserID == userID {
		return &Session{
			UserID:          cached.UserID,
			Email:           cached.Email,
			AccessToken:     accessToken,
			RefreshToken:    cached.RefreshToken,
			AccessExpiresAt: accessExp,
			ExpiresAt:       cached.ExpiresAt,
		}, false, nil
	}

	found, err := as.userTokenRepo.GetByAccessTokens(dbctx.Of(ctx), []string{accessToken})
	if err != nil {
		return nil, false, fmt.Errorf("load access token: %w", err)
	}
	if len(found) == 0 || found[0].UserID != userID || found[0].RotatedAt != nil {
		return nil, false, apperrors.New(apperrors.KindUnauthorized, CodeSessionRevoked, "Session no longer valid")
	}
	row := found[0]

	sess := &Session{
		UserID:          userID,
		Email:           claims.Email,
		AccessToken:     accessToken,
		RefreshToken:    row.RefreshToken,
		AccessExpiresAt: accessExp,
		ExpiresAt:       row.ExpiresAt,
	}
	if err := as.cache.Set(ctx, accessToken, redis.CachedSession{
		UserID:       sess.UserID,
		Email:        sess.Email,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
	}, accessExp.Sub(as.now())); err != nil {
		as.log.Warn("Session cache write failed", "error", err)
	}
	return sess, false, nil
}

func (as *authService) rotate(ctx context.Context, refreshToken string) (*Session, bool, error) {
	sess, err := as.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

func (as *authService) LogoutUser(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" && refreshToken == "" {
		return nil
	}
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if accessToken != "" {
			found, err := as.userTokenRepo.GetByAccessTokens(dbc, []string{accessToken})
			if err != nil {
				return fmt.Errorf("load access token: %w", err)
			}
			ids := make([]uuid.UUID, 0, len(found))
			for _, t := range found {
				ids = append(ids, t.ID)
			}
			if err := as.userTokenRepo.DeleteByIDs(dbc, ids); err != nil {
				return fmt.Errorf("delete user token: %w", err)
			}
		}
		if refreshToken != "" {
			if err := as.userTokenRepo.DeleteByRefreshTokens(dbc, []string{refreshToken}); err != nil {
				return fmt.Errorf("delete refresh token: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		as.log.Error("Logout failed", "error", err)
		return err
	}
	as.evict(ctx, accessToken)
	return nil
}

// issueSession stores a new token pair. A nil id lets the row generate its own.
func (as *authService) issueSession(dbc dbctx.Context, u *types.User, id uuid.UUID) (*Session, error) {
	now := as.now()
	accessExp := now.Add(as.accessTTL)
	claims := JWTClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(accessExp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.jwtSecretKey)
	if err != nil {
		return nil, apperrors.Internal("sign access token", err)
	}

	row := &types.UserToken{
		ID:           id,
		UserID:       u.ID,
		AccessToken:  accessToken,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    now.Add(as.refreshTTL),
	}
	if _, err := as.userTokenRepo.Create(dbc, []*types.UserToken{row}); err != nil {
		return nil, fmt.Errorf("create user token: %w", err)
	}
	return &Session{
		UserID:          u.ID,
		Email:           u.Email,
		AccessToken:     accessToken,
		RefreshToken:    row.RefreshToken,
		AccessExpiresAt: accessExp,
		ExpiresAt:       row.ExpiresAt,
	}, nil
}

func (as *authService) pruneExpired(dbc dbctx.Context, userID uuid.UUID) error {
	tokens, err := as.userTokenRepo.GetByUserIDs(dbc, []uuid.UUID{userID})
	if err != nil {
		return fmt.Errorf("load user tokens: %w", err)
	}
	now := as.now()
	var expired []uuid.UUID
	for _, t := range tokens {
		rotatedOut := t.RotatedAt != nil && now.Sub(*t.RotatedAt) > as.reuseWindow
		if rotatedOut || !t.ExpiresAt.After(now) {
			expired = append(expired, t.ID)
		}
	}
	if len(expired) == 0 {
		return nil
	}
	if err := as.userTokenRepo.DeleteByIDs(dbc, expired); err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}
	return nil
}

func (as *authService) parseAccessToken(tokenString string) (*JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.jwtSecretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func (as *authService) evict(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}
	if err := as.cache.Delete(ctx, accessToken); err != nil {
		as.log.Warn("Session cache eviction failed", "error", err)
	}
}

func detailsOf(err error) any {
	if e, ok := apperrors.As(err); ok {
		return e.Details
	}
	return nil
}
