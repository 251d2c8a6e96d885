package repository

import (
	"context"
	"errors"

	"github.com/DragaoTI/auth-service/internal/identity/domain"
)

// ErrEmailTaken is returned by CreateUser when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Store defines the identity operations delegated to GoTrue. Lookups return
// (nil, nil) when the user does not exist or the credentials do not match;
// errors are reserved for transport and server failures.
type Store interface {
	// CreateUser registers a confirmed account with the given metadata.
	CreateUser(ctx context.Context, email, password string, metadata map[string]any) (*domain.User, error)
	// GetUserByID returns the user for id, or nil when not found.
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// EmailExists reports whether an account with the email is registered.
	EmailExists(ctx context.Context, email string) (bool, error)
	// SignInWithPassword validates credentials via the password grant and
	// returns the user, or nil when the credentials are rejected.
	SignInWithPassword(ctx context.Context, email, password string) (*domain.User, error)
}
