package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DragaoTI/auth-service/internal/identity/domain"
)

// GoTrueStore talks to the Supabase GoTrue API with the service-role key.
// All admin endpoints live under /auth/v1/admin; the password grant under
// /auth/v1/token.
type GoTrueStore struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewGoTrueStore returns a Store for the Supabase project at baseURL
// (e.g. https://xyz.supabase.co) authenticated with serviceKey.
func NewGoTrueStore(baseURL, serviceKey string) *GoTrueStore {
	return &GoTrueStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	BannedUntil  string         `json:"banned_until,omitempty"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type gotrueUserList struct {
	Users []gotrueUser `json:"users"`
}

type gotrueTokenResponse struct {
	AccessToken string     `json:"access_token"`
	User        gotrueUser `json:"user"`
}

// CreateUser registers a confirmed account. GoTrue answers 422 when the email
// is already registered, mapped to ErrEmailTaken.
func (s *GoTrueStore) CreateUser(ctx context.Context, email, password string, metadata map[string]any) (*domain.User, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	if _, ok := metadata["role"]; !ok {
		metadata["role"] = "user"
	}
	body := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": metadata,
	}
	var created gotrueUser
	status, err := s.do(ctx, http.MethodPost, "/auth/v1/admin/users", body, &created)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		return toDomain(&created), nil
	case status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return nil, ErrEmailTaken
	default:
		return nil, fmt.Errorf("gotrue create user: status %d", status)
	}
}

// GetUserByID returns the user for id, or nil when GoTrue answers 404.
func (s *GoTrueStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var u gotrueUser
	status, err := s.do(ctx, http.MethodGet, "/auth/v1/admin/users/"+url.PathEscape(id), nil, &u)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return toDomain(&u), nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("gotrue get user: status %d", status)
	}
}

// EmailExists lists users filtered by email and reports whether any match.
func (s *GoTrueStore) EmailExists(ctx context.Context, email string) (bool, error) {
	q := url.Values{}
	q.Set("email", email)
	var list gotrueUserList
	status, err := s.do(ctx, http.MethodGet, "/auth/v1/admin/users?"+q.Encode(), nil, &list)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("gotrue list users: status %d", status)
	}
	for i := range list.Users {
		if strings.EqualFold(list.Users[i].Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// SignInWithPassword validates credentials via the password grant. Rejected
// credentials (400/401) yield (nil, nil) so callers cannot distinguish a bad
// password from a missing account.
func (s *GoTrueStore) SignInWithPassword(ctx context.Context, email, password string) (*domain.User, error) {
	body := map[string]any{"email": email, "password": password}
	var tok gotrueTokenResponse
	status, err := s.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", body, &tok)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return toDomain(&tok.User), nil
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return nil, nil
	default:
		return nil, fmt.Errorf("gotrue password grant: status %d", status)
	}
}

// do executes one GoTrue request and decodes the response body into out when
// the status is 2xx. Non-2xx bodies are drained and discarded.
func (s *GoTrueStore) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}

func toDomain(u *gotrueUser) *domain.User {
	if u == nil || u.ID == "" {
		return nil
	}
	role := "user"
	active := true
	if u.UserMetadata != nil {
		if r, ok := u.UserMetadata["role"].(string); ok && r != "" {
			role = r
		}
		if a, ok := u.UserMetadata["is_active"].(bool); ok {
			active = a
		}
	}
	if u.BannedUntil != "" {
		if until, err := time.Parse(time.RFC3339, u.BannedUntil); err == nil && until.After(time.Now()) {
			active = false
		}
	}
	return &domain.User{
		ID:       u.ID,
		Email:    u.Email,
		Role:     role,
		IsActive: active,
		Metadata: u.UserMetadata,
	}
}
