package middleware

import (
	"context"
	"net/http"
	"strings"

	admindomain "github.com/DragaoTI/auth-service/internal/admin/domain"
	identitydomain "github.com/DragaoTI/auth-service/internal/identity/domain"
	"github.com/DragaoTI/auth-service/internal/security"
	"github.com/DragaoTI/auth-service/internal/server/respond"
)

// AdminLookup fetches an administrator record; nil when not found.
type AdminLookup interface {
	GetByID(ctx context.Context, id string) (*admindomain.Administrator, error)
}

// UserLookup fetches an end-user record; nil when not found.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*identitydomain.User, error)
}

// Authenticator produces the bearer-token gate middlewares. Token validity is
// decided purely by the codec; role and administrator gates additionally
// confirm the account still exists and is active.
type Authenticator struct {
	codec  *security.Codec
	admins AdminLookup
	users  UserLookup
}

// NewAuthenticator returns an Authenticator. admins may be nil when no
// administrator routes are mounted; users may be nil when no role-gated
// routes are mounted.
func NewAuthenticator(codec *security.Codec, admins AdminLookup, users UserLookup) *Authenticator {
	return &Authenticator{codec: codec, admins: admins, users: users}
}

// BearerToken extracts the bearer token from r, or "" when absent.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireUser admits requests carrying a valid user access token and stores
// the principal in the context.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.codec.Verify(BearerToken(r), security.KindAccess)
		if err != nil {
			respond.Unauthorized(w, "Could not validate credentials")
			return
		}
		p := Principal{ID: claims.Subject, Role: claims.Role, Kind: security.KindAccess}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAdminRole admits user access tokens whose account resolves to an
// active user with the admin role. The role check reads the stored account,
// not the token claim, so a role change takes effect without reissuing tokens.
func (a *Authenticator) RequireAdminRole(next http.Handler) http.Handler {
	return a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		if a.users == nil {
			respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		user, err := a.users.GetUserByID(r.Context(), p.ID)
		if err != nil {
			respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if user == nil {
			respond.Unauthorized(w, "Could not validate credentials")
			return
		}
		if !user.IsActive {
			respond.WriteDetail(w, http.StatusBadRequest, "Inactive user")
			return
		}
		if !strings.EqualFold(user.Role, "admin") {
			respond.WriteDetail(w, http.StatusForbidden, "The user doesn't have enough privileges")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireAdministrator admits requests carrying a valid panel token whose
// administrator account is still present and active.
func (a *Authenticator) RequireAdministrator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.codec.Verify(BearerToken(r), security.KindAdminAccess)
		if err != nil {
			respond.Unauthorized(w, "Could not validate credentials")
			return
		}
		admin, err := a.admins.GetByID(r.Context(), claims.Subject)
		if err != nil {
			respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if admin == nil {
			respond.Unauthorized(w, "Could not validate credentials")
			return
		}
		if !admin.Active() {
			respond.WriteDetail(w, http.StatusForbidden, "Administrator account inactive")
			return
		}
		p := Principal{ID: admin.ID, Kind: security.KindAdminAccess}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}
