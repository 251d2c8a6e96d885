package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DragaoTI/auth-service/internal/admin/domain"
	"github.com/DragaoTI/auth-service/internal/admin/repository"
	"github.com/DragaoTI/auth-service/internal/security"
)

// Sentinel errors for the admin service; the handler maps them to HTTP statuses.
var (
	ErrInvalidCredentials = errors.New("invalid administrator credentials")
	ErrAccountInactive    = errors.New("administrator account inactive")
	ErrUsernameTaken      = errors.New("administrator username already registered")
	ErrNotFound           = errors.New("administrator not found")
)

// UpdateParams carries the mutable administrator fields. Nil pointers leave
// the field unchanged; a pointer to "" clears the fingerprint binding.
type UpdateParams struct {
	Password          *string
	ClientFingerprint *string
	Status            *domain.Status
}

// AdminService implements panel authentication with device fingerprint
// binding plus administrator CRUD.
type AdminService struct {
	admins repository.Repository
	hasher *security.Hasher
	log    *zap.Logger
}

// NewAdminService returns an AdminService with the given dependencies.
func NewAdminService(admins repository.Repository, hasher *security.Hasher, log *zap.Logger) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{admins: admins, hasher: hasher, log: log}
}

// Authenticate validates username, password, and the device fingerprint.
//
// Fingerprint rules: an unbound account presented with a fingerprint is bound
// to it on this login; an unbound account with no fingerprint is allowed
// through unbound; a bound account must present the same fingerprint, and a
// missing or different one is rejected exactly like a bad password. A failure
// to persist the binding also denies the login.
func (s *AdminService) Authenticate(ctx context.Context, username, password, clientFingerprint string) (*domain.Administrator, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(admin.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	fpHash := security.HashFingerprint(clientFingerprint)
	switch {
	case admin.Bound():
		if admin.FingerprintHash != fpHash {
			s.log.Warn("administrator fingerprint mismatch", zap.String("username", username))
			return nil, ErrInvalidCredentials
		}
	case fpHash != "":
		if err := s.admins.UpdateFingerprint(ctx, admin.ID, fpHash); err != nil {
			s.log.Error("fingerprint binding failed", zap.String("username", username), zap.Error(err))
			return nil, ErrInvalidCredentials
		}
		admin.FingerprintHash = fpHash
	}

	if !admin.Active() {
		return nil, ErrAccountInactive
	}

	now := time.Now().UTC()
	if err := s.admins.UpdateLastLogin(ctx, admin.ID, now); err != nil {
		s.log.Error("last login update failed", zap.String("username", username), zap.Error(err))
	} else {
		admin.LastLoginAt = &now
	}
	return admin, nil
}

// Create registers an administrator with an optional initial fingerprint.
func (s *AdminService) Create(ctx context.Context, username, password, clientFingerprint string) (*domain.Administrator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	existing, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	admin := &domain.Administrator{
		ID:              uuid.NewString(),
		Username:        username,
		PasswordHash:    hashed,
		FingerprintHash: security.HashFingerprint(clientFingerprint),
		Status:          domain.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// Update applies the set fields of params to the administrator.
func (s *AdminService) Update(ctx context.Context, id string, params UpdateParams) (*domain.Administrator, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}
	if params.Password != nil && *params.Password != "" {
		hashed, err := s.hasher.Hash([]byte(*params.Password))
		if err != nil {
			return nil, err
		}
		admin.PasswordHash = hashed
	}
	if params.ClientFingerprint != nil {
		admin.FingerprintHash = security.HashFingerprint(*params.ClientFingerprint)
	}
	if params.Status != nil {
		admin.Status = *params.Status
	}
	if err := s.admins.Update(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// GetByID returns the administrator for id.
func (s *AdminService) GetByID(ctx context.Context, id string) (*domain.Administrator, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}
	return admin, nil
}

// List returns administrators ordered by username.
func (s *AdminService) List(ctx context.Context, skip, limit int) ([]*domain.Administrator, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}
	return s.admins.List(ctx, skip, limit)
}
