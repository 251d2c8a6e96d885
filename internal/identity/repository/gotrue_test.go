package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newGoTrueTestServer(t *testing.T, handler http.HandlerFunc) (*GoTrueStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGoTrueStore(srv.URL, "test-service-key"), srv
}

func TestGoTrueStore_CreateUser(t *testing.T) {
	store, _ := newGoTrueTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/v1/admin/users" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("apikey") != "test-service-key" {
			t.Error("apikey header missing")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email_confirm"] != true {
			t.Error("email_confirm should be true")
		}
		meta, _ := body["user_metadata"].(map[string]any)
		if meta["role"] != "user" {
			t.Errorf("role default = %v, want user", meta["role"])
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "11111111-1111-1111-1111-111111111111",
			"email":         body["email"],
			"user_metadata": meta,
		})
	})

	u, err := store.CreateUser(context.Background(), "a@b.com", "Password123!", nil)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u == nil || u.Email != "a@b.com" {
		t.Fatalf("CreateUser user = %+v", u)
	}
	if u.Role != "user" || !u.IsActive {
		t.Errorf("user = %+v, want role=user active", u)
	}
}

func TestGoTrueStore_CreateUser_EmailTaken(t *testing.T) {
	store, _ := newGoTrueTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	_, err := store.CreateUser(context.Background(), "a@b.com", "Password123!", nil)
	if err != ErrEmailTaken {
		t.Errorf("CreateUser duplicate: want ErrEmailTaken, got %v", err)
	}
}

func TestGoTrueStore_GetUserByID(t *testing.T) {
	store, _ := newGoTrueTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/admin/users/u-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "u-1",
			"email": "a@b.com",
			"user_metadata": map[string]any{
				"role": "admin",
			},
		})
	})
	u, err := store.GetUserByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u == nil || u.Role != "admin" {
		t.Fatalf("user = %+v, want role=admin", u)
	}
}

func TestGoTrueStore_GetUserByID_NotFound(t *testing.T) {
	store, _ := newGoTrueTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	u, err := store.GetUserByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u != nil {
		t.Errorf("user = %+v, want nil", u)
	}
}

func TestGoTrueStore_GetUserByID_InactiveMetadata(t *testing.T) {
	store, _ := newGoTrueTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "u-1",
			"email": "a@b.com",
			"user_metadata": map[string]any{
				"is_active": false,
			},
		})
	})
	u, err := store.GetUserByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u == nil || u.IsActive {
		t.Fatalf("user = %+v, want inactive", u)
	}
}

func TestGoTrueStore_EmailExists(t *testing.T) {
	store, _ := newGoTrueTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("email"); got != "a@b.com" {
			t.Errorf("email query = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]any{{"id": "u-1", "email": "a@b.com"}},
		})
	})
	ok, err := store.EmailExists(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("EmailExists: %v", err)
	}
	if !ok {
		t.Error("EmailExists = false, want true")
	}
}

func TestGoTrueStore_EmailExists_NoMatch(t *testing.T) {
	store, _ := newGoTrueTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"users": []map[string]any{}})
	})
	ok, err := store.EmailExists(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("EmailExists: %v", err)
	}
	if ok {
		t.Error("EmailExists = true, want false")
	}
}

func TestGoTrueStore_SignInWithPassword(t *testing.T) {
	store, _ := newGoTrueTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request: %s %s", r.URL.Path, r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "gotrue-token",
			"user": map[string]any{
				"id":    "u-1",
				"email": "a@b.com",
				"user_metadata": map[string]any{
					"role": "user",
				},
			},
		})
	})
	u, err := store.SignInWithPassword(context.Background(), "a@b.com", "Password123!")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if u == nil || u.ID != "u-1" {
		t.Fatalf("user = %+v", u)
	}
}

func TestGoTrueStore_SignInWithPassword_BadCredentials(t *testing.T) {
	store, _ := newGoTrueTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	u, err := store.SignInWithPassword(context.Background(), "a@b.com", "wrong")
	if err != nil {
		t.Fatalf("SignInWithPassword: %v", err)
	}
	if u != nil {
		t.Errorf("user = %+v, want nil on rejected credentials", u)
	}
}

func TestGoTrueStore_ServerError(t *testing.T) {
	store, _ := newGoTrueTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := store.GetUserByID(context.Background(), "u-1"); err == nil {
		t.Error("GetUserByID on 500: want error")
	}
	if _, err := store.SignInWithPassword(context.Background(), "a@b.com", "p"); err == nil {
		t.Error("SignInWithPassword on 500: want error")
	}
}
