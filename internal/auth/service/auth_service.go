package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	identitydomain "github.com/DragaoTI/auth-service/internal/identity/domain"
	identityrepo "github.com/DragaoTI/auth-service/internal/identity/repository"
	ledgerrepo "github.com/DragaoTI/auth-service/internal/ledger/repository"
	"github.com/DragaoTI/auth-service/internal/security"
)

// Sentinel errors for the auth service; the handler maps them to HTTP statuses.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrValidation             = errors.New("validation failed")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountInactive        = errors.New("account inactive")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrRefreshTokenRejected   = errors.New("refresh token rejected")
	ErrPersistence            = errors.New("persistence failure")
)

// TokenPair is the outcome of Login and Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
}

// GeoRecorder records a successful login's origin out of band. Implementations
// must not block and must swallow their own failures.
type GeoRecorder interface {
	LoginSucceeded(userID, ip, userAgent string)
}

// AuthService implements register, login, refresh rotation, and logout for
// end users. Identity lives in GoTrue; only refresh token state is local.
type AuthService struct {
	users      identityrepo.Store
	ledger     ledgerrepo.Repository
	codec      *security.Codec
	geo        GeoRecorder
	log        *zap.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService returns an AuthService with the given dependencies.
// geo may be nil when geo logging is disabled.
func NewAuthService(
	users identityrepo.Store,
	ledger ledgerrepo.Repository,
	codec *security.Codec,
	geo GeoRecorder,
	log *zap.Logger,
	accessTTL, refreshTTL time.Duration,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		ledger:     ledger,
		codec:      codec,
		geo:        geo,
		log:        log,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a confirmed GoTrue account with role "user".
// Returns the created user; no tokens are issued.
func (s *AuthService) Register(ctx context.Context, email, password string, metadata map[string]any) (*identitydomain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyRegistered
	}
	user, err := s.users.CreateUser(ctx, email, password, metadata)
	if err != nil {
		if errors.Is(err, identityrepo.ErrEmailTaken) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	return user, nil
}

// Login validates credentials against GoTrue and mints a token pair. The
// refresh token is recorded in the ledger before the pair is returned; a
// ledger failure fails the login. ip and userAgent feed the best-effort geo log.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*TokenPair, *identitydomain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}
	user, err := s.users.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrAccountInactive
	}
	pair, err := s.mintPair(ctx, user.ID, user.Role, "")
	if err != nil {
		return nil, nil, err
	}
	if s.geo != nil {
		s.geo.LoginSucceeded(user.ID, ip, userAgent)
	}
	return pair, user, nil
}

// Refresh rotates a refresh token. Every rejection path revokes state before
// returning: a replayed token revokes the owner's whole family, an expired or
// malformed one revokes itself. The compare-and-set in MarkUsed decides
// concurrent rotations of the same token.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	if rawRefresh == "" {
		return nil, ErrInvalidRefreshToken
	}
	rec, err := s.ledger.FindByRaw(ctx, rawRefresh)
	if err != nil {
		return nil, ErrPersistence
	}
	if rec == nil {
		return nil, ErrInvalidRefreshToken
	}
	if rec.Revoked {
		// Replay of an already-rotated token. The whole family is burned.
		if err := s.ledger.RevokeAllForOwner(ctx, rec.OwnerID); err != nil {
			s.log.Error("family revocation failed", zap.String("owner_id", rec.OwnerID), zap.Error(err))
			return nil, ErrPersistence
		}
		s.log.Warn("refresh token replay detected", zap.String("owner_id", rec.OwnerID))
		return nil, ErrRefreshTokenRejected
	}
	if rec.Expired(time.Now().UTC()) {
		if err := s.ledger.RevokeByRaw(ctx, rawRefresh); err != nil {
			return nil, ErrPersistence
		}
		return nil, ErrRefreshTokenRejected
	}
	claims, err := s.codec.Verify(rawRefresh, security.KindRefresh)
	if err != nil || claims.Subject != rec.OwnerID {
		if err := s.ledger.RevokeByRaw(ctx, rawRefresh); err != nil {
			return nil, ErrPersistence
		}
		return nil, ErrRefreshTokenRejected
	}
	used, err := s.ledger.MarkUsed(ctx, rec.ID)
	if err != nil {
		return nil, ErrPersistence
	}
	if !used {
		// Lost the rotation race; the other caller already consumed this token.
		if err := s.ledger.RevokeAllForOwner(ctx, rec.OwnerID); err != nil {
			return nil, ErrPersistence
		}
		s.log.Warn("concurrent refresh rotation lost", zap.String("owner_id", rec.OwnerID))
		return nil, ErrRefreshTokenRejected
	}
	user, err := s.users.GetUserByID(ctx, rec.OwnerID)
	if err != nil {
		return nil, ErrPersistence
	}
	if user == nil || !user.IsActive {
		return nil, ErrRefreshTokenRejected
	}
	return s.mintPair(ctx, user.ID, user.Role, rawRefresh)
}

// Logout revokes the specific refresh token when provided, otherwise all
// tokens of principalID when set. Revocation failures are logged, never
// surfaced; logout always succeeds from the caller's view.
func (s *AuthService) Logout(ctx context.Context, rawRefresh, principalID string) {
	switch {
	case rawRefresh != "":
		if err := s.ledger.RevokeByRaw(ctx, rawRefresh); err != nil {
			s.log.Error("logout revocation failed", zap.Error(err))
		}
	case principalID != "":
		if err := s.ledger.RevokeAllForOwner(ctx, principalID); err != nil {
			s.log.Error("logout family revocation failed", zap.String("owner_id", principalID), zap.Error(err))
		}
	}
}

// GetUser fetches the user for id from GoTrue.
func (s *AuthService) GetUser(ctx context.Context, id string) (*identitydomain.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// mintPair issues an access/refresh pair and records the refresh token in the
// ledger with parentRaw linking the rotation chain.
func (s *AuthService) mintPair(ctx context.Context, userID, role, parentRaw string) (*TokenPair, error) {
	access, accessExp, err := s.codec.Issue(security.KindAccess, userID, role, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.codec.Issue(security.KindRefresh, userID, "", s.refreshTTL)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Store(ctx, userID, refresh, refreshExp, parentRaw); err != nil {
		s.log.Error("refresh token persist failed", zap.String("owner_id", userID), zap.Error(err))
		return nil, ErrPersistence
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    accessExp,
	}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	return nil
}
