package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	admindomain "github.com/DragaoTI/auth-service/internal/admin/domain"
	identitydomain "github.com/DragaoTI/auth-service/internal/identity/domain"
	"github.com/DragaoTI/auth-service/internal/security"
)

var errTestLookup = errors.New("lookup unavailable")

type fakeAdminLookup struct {
	admins map[string]*admindomain.Administrator
	err    error
}

func (f *fakeAdminLookup) GetByID(_ context.Context, id string) (*admindomain.Administrator, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.admins[id], nil
}

type fakeUserLookup struct {
	users map[string]*identitydomain.User
	err   error
}

func (f *fakeUserLookup) GetUserByID(_ context.Context, id string) (*identitydomain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func okHandler(t *testing.T, hit *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		if got := BearerToken(r); got != tc.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestRequireUser_ValidToken(t *testing.T) {
	codec := security.NewTestCodec(t)
	token, _, err := codec.Issue(security.KindAccess, "user-1", "admin", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	var principal Principal
	h := NewAuthenticator(codec, nil, nil).RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if principal.ID != "user-1" || principal.Role != "admin" {
		t.Errorf("principal = %+v", principal)
	}
}

func TestRequireUser_RejectsMissingAndWrongKind(t *testing.T) {
	codec := security.NewTestCodec(t)
	refresh, _, err := codec.Issue(security.KindRefresh, "user-1", "", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	for name, header := range map[string]string{
		"no token":      "",
		"refresh token": "Bearer " + refresh,
		"garbage":       "Bearer not-a-jwt",
	} {
		hit := false
		h := NewAuthenticator(codec, nil, nil).RequireUser(okHandler(t, &hit))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Errorf("%s: missing WWW-Authenticate challenge", name)
		}
		if hit {
			t.Errorf("%s: handler was reached", name)
		}
	}
}

func TestRequireAdminRole(t *testing.T) {
	codec := security.NewTestCodec(t)
	users := &fakeUserLookup{users: map[string]*identitydomain.User{
		"user-1": {ID: "user-1", Role: "admin", IsActive: true},
		"user-2": {ID: "user-2", Role: "user", IsActive: true},
		"user-3": {ID: "user-3", Role: "Admin", IsActive: true},
		"user-4": {ID: "user-4", Role: "admin", IsActive: false},
	}}
	authn := NewAuthenticator(codec, nil, users)

	issue := func(sub, role string) string {
		tok, _, err := codec.Issue(security.KindAccess, sub, role, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}

	for name, tc := range map[string]struct {
		token string
		want  int
	}{
		"admin role":            {issue("user-1", "admin"), http.StatusOK},
		"plain user":            {issue("user-2", "user"), http.StatusForbidden},
		"case-insensitive role": {issue("user-3", "Admin"), http.StatusOK},
		"inactive admin":        {issue("user-4", "admin"), http.StatusBadRequest},
		"deleted user":          {issue("user-5", "admin"), http.StatusUnauthorized},
		// The claim says admin but the account does not; the store decides.
		"stale role claim": {issue("user-2", "admin"), http.StatusForbidden},
	} {
		hit := false
		h := authn.RequireAdminRole(okHandler(t, &hit))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+tc.token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", name, rec.Code, tc.want)
		}
		if hit != (tc.want == http.StatusOK) {
			t.Errorf("%s: handler hit = %v with status %d", name, hit, rec.Code)
		}
	}
}

func TestRequireAdminRole_LookupError(t *testing.T) {
	codec := security.NewTestCodec(t)
	authn := NewAuthenticator(codec, nil, &fakeUserLookup{err: errTestLookup})
	tok, _, err := codec.Issue(security.KindAccess, "user-1", "admin", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	hit := false
	h := authn.RequireAdminRole(okHandler(t, &hit))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if hit {
		t.Error("handler was reached")
	}
}

func TestRequireAdministrator(t *testing.T) {
	codec := security.NewTestCodec(t)
	lookup := &fakeAdminLookup{admins: map[string]*admindomain.Administrator{
		"adm-1": {ID: "adm-1", Username: "root", Status: admindomain.StatusActive},
		"adm-2": {ID: "adm-2", Username: "off", Status: admindomain.StatusInactive},
	}}
	authn := NewAuthenticator(codec, lookup, nil)

	issue := func(sub string) string {
		tok, _, err := codec.Issue(security.KindAdminAccess, sub, "", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}

	for name, tc := range map[string]struct {
		token string
		want  int
	}{
		"active admin":   {issue("adm-1"), http.StatusOK},
		"inactive admin": {issue("adm-2"), http.StatusForbidden},
		"deleted admin":  {issue("adm-3"), http.StatusUnauthorized},
	} {
		hit := false
		h := authn.RequireAdministrator(okHandler(t, &hit))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+tc.token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", name, rec.Code, tc.want)
		}
	}

	// A user access token must never open an administrator gate.
	userTok, _, _ := codec.Issue(security.KindAccess, "user-1", "admin", time.Minute)
	hit := false
	h := authn.RequireAdministrator(okHandler(t, &hit))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+userTok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("user token: status = %d, want 401", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.4:12345"
	if got := ClientIP(r); got != "198.51.100.4" {
		t.Errorf("ClientIP = %q, want remote host", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.4")
	if got := ClientIP(r); got != "203.0.113.9" {
		t.Errorf("ClientIP = %q, want first forwarded address", got)
	}
}
