package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DragaoTI/auth-service/internal/admin/domain"
	"github.com/DragaoTI/auth-service/internal/security"
)

type memAdminRepo struct {
	mu              sync.Mutex
	byID            map[string]*domain.Administrator
	failFingerprint bool
}

func newMemAdminRepo() *memAdminRepo {
	return &memAdminRepo{byID: map[string]*domain.Administrator{}}
}

func (r *memAdminRepo) GetByID(ctx context.Context, id string) (*domain.Administrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *memAdminRepo) GetByUsername(ctx context.Context, username string) (*domain.Administrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAdminRepo) Create(ctx context.Context, a *domain.Administrator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAdminRepo) Update(ctx context.Context, a *domain.Administrator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *memAdminRepo) UpdateFingerprint(ctx context.Context, id, fingerprintHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFingerprint {
		return errors.New("db down")
	}
	if a, ok := r.byID[id]; ok {
		a.FingerprintHash = fingerprintHash
		return nil
	}
	return errors.New("administrator not found")
}

func (r *memAdminRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		t := at
		a.LastLoginAt = &t
	}
	return nil
}

func (r *memAdminRepo) List(ctx context.Context, offset, limit int) ([]*domain.Administrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Administrator
	for _, a := range r.byID {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func newTestAdminService(t *testing.T) (*AdminService, *memAdminRepo) {
	t.Helper()
	repo := newMemAdminRepo()
	return NewAdminService(repo, security.NewHasher(4), nil), repo
}

func seedAdmin(t *testing.T, svc *AdminService, username, password, fingerprint string) *domain.Administrator {
	t.Helper()
	a, err := svc.Create(context.Background(), username, password, fingerprint)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

func TestAuthenticate_UnboundNoFingerprint(t *testing.T) {
	svc, repo := newTestAdminService(t)
	seedAdmin(t, svc, "root", "password1", "")

	admin, err := svc.Authenticate(context.Background(), "root", "password1", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if admin.Bound() {
		t.Error("account should stay unbound when no fingerprint is sent")
	}
	stored, _ := repo.GetByUsername(context.Background(), "root")
	if stored.LastLoginAt == nil {
		t.Error("last login should be recorded")
	}
}

func TestAuthenticate_UnboundBindsOnFirstFingerprint(t *testing.T) {
	svc, repo := newTestAdminService(t)
	seedAdmin(t, svc, "root", "password1", "")

	admin, err := svc.Authenticate(context.Background(), "root", "password1", "DEVICE-A")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	want := security.HashFingerprint("DEVICE-A")
	if admin.FingerprintHash != want {
		t.Errorf("fingerprint hash = %q, want %q", admin.FingerprintHash, want)
	}
	stored, _ := repo.GetByUsername(context.Background(), "root")
	if stored.FingerprintHash != want {
		t.Error("binding should be persisted")
	}
}

func TestAuthenticate_BoundSameFingerprint(t *testing.T) {
	svc, _ := newTestAdminService(t)
	seedAdmin(t, svc, "root", "password1", "DEVICE-A")

	if _, err := svc.Authenticate(context.Background(), "root", "password1", "DEVICE-A"); err != nil {
		t.Fatalf("Authenticate bound same device: %v", err)
	}
}

func TestAuthenticate_BoundRejectsOtherDevice(t *testing.T) {
	svc, _ := newTestAdminService(t)
	seedAdmin(t, svc, "root", "password1", "DEVICE-A")

	if _, err := svc.Authenticate(context.Background(), "root", "password1", "DEVICE-B"); err != ErrInvalidCredentials {
		t.Errorf("other device: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "root", "password1", ""); err != ErrInvalidCredentials {
		t.Errorf("missing fingerprint on bound account: want ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_BindFailureDeniesLogin(t *testing.T) {
	svc, repo := newTestAdminService(t)
	seedAdmin(t, svc, "root", "password1", "")
	repo.failFingerprint = true

	if _, err := svc.Authenticate(context.Background(), "root", "password1", "DEVICE-A"); err != ErrInvalidCredentials {
		t.Errorf("bind failure: want ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	svc, _ := newTestAdminService(t)
	seedAdmin(t, svc, "root", "password1", "")

	if _, err := svc.Authenticate(context.Background(), "root", "wrong", ""); err != ErrInvalidCredentials {
		t.Errorf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "ghost", "password1", ""); err != ErrInvalidCredentials {
		t.Errorf("unknown username: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "", "", ""); err != ErrInvalidCredentials {
		t.Errorf("empty input: want ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_InactiveAccount(t *testing.T) {
	svc, _ := newTestAdminService(t)
	a := seedAdmin(t, svc, "root", "password1", "")
	inactive := domain.StatusInactive
	if _, err := svc.Update(context.Background(), a.ID, UpdateParams{Status: &inactive}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "root", "password1", ""); err != ErrAccountInactive {
		t.Errorf("inactive account: want ErrAccountInactive, got %v", err)
	}
}

func TestCreate_DuplicateUsername(t *testing.T) {
	svc, _ := newTestAdminService(t)
	seedAdmin(t, svc, "root", "password1", "")
	if _, err := svc.Create(context.Background(), "root", "password2", ""); err != ErrUsernameTaken {
		t.Errorf("duplicate username: want ErrUsernameTaken, got %v", err)
	}
}

func TestCreate_StoresHashesOnly(t *testing.T) {
	svc, repo := newTestAdminService(t)
	seedAdmin(t, svc, "root", "password1", "DEVICE-A")
	stored, _ := repo.GetByUsername(context.Background(), "root")
	if stored.PasswordHash == "password1" {
		t.Error("password must not be stored in plaintext")
	}
	if stored.FingerprintHash == "DEVICE-A" {
		t.Error("fingerprint must not be stored raw")
	}
	if stored.FingerprintHash != security.HashFingerprint("DEVICE-A") {
		t.Error("fingerprint hash mismatch")
	}
}

func TestUpdate_PasswordAndFingerprint(t *testing.T) {
	svc, _ := newTestAdminService(t)
	a := seedAdmin(t, svc, "root", "password1", "DEVICE-A")

	newPassword := "password2"
	clear := ""
	updated, err := svc.Update(context.Background(), a.ID, UpdateParams{
		Password:          &newPassword,
		ClientFingerprint: &clear,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Bound() {
		t.Error("explicit empty fingerprint should clear the binding")
	}
	if _, err := svc.Authenticate(context.Background(), "root", "password2", ""); err != nil {
		t.Errorf("authenticate with new password: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "root", "password1", ""); err != ErrInvalidCredentials {
		t.Errorf("old password should be rejected, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestAdminService(t)
	if _, err := svc.Update(context.Background(), "missing", UpdateParams{}); err != ErrNotFound {
		t.Errorf("missing id: want ErrNotFound, got %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc, _ := newTestAdminService(t)
	if _, err := svc.GetByID(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("missing id: want ErrNotFound, got %v", err)
	}
}
