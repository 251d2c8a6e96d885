package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/DragaoTI/auth-service/internal/auth/service"
	identitydomain "github.com/DragaoTI/auth-service/internal/identity/domain"
	"github.com/DragaoTI/auth-service/internal/security"
	"github.com/DragaoTI/auth-service/internal/server/middleware"
	"github.com/DragaoTI/auth-service/internal/server/respond"
)

const maxBodyBytes = 1 << 20

// Handler serves the user-facing auth endpoints under /auth.
type Handler struct {
	auth  *service.AuthService
	codec *security.Codec
	log   *zap.Logger
}

// NewHandler returns a Handler.
func NewHandler(auth *service.AuthService, codec *security.Codec, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{auth: auth, codec: codec, log: log}
}

// Register mounts the auth routes on mux. authn guards /auth/me.
func (h *Handler) Register(mux *http.ServeMux, authn *middleware.Authenticator) {
	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login", h.loginForm)
	mux.HandleFunc("POST /auth/login/json", h.loginJSON)
	mux.HandleFunc("POST /auth/refresh", h.refresh)
	mux.HandleFunc("POST /auth/logout", h.logout)
	mux.Handle("GET /auth/me", authn.RequireUser(http.HandlerFunc(h.me)))
}

type registerRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type userResponse struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Role     string         `json:"role"`
	IsActive bool           `json:"is_active"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

func toUserResponse(u *identitydomain.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Email:    u.Email,
		Role:     u.Role,
		IsActive: u.IsActive,
		Metadata: u.Metadata,
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		respond.WriteDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Metadata)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyRegistered):
			respond.WriteDetail(w, http.StatusBadRequest, "Email already registered")
		case errors.Is(err, service.ErrValidation):
			respond.WriteDetail(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error("register failed", zap.Error(err))
			respond.WriteDetail(w, http.StatusInternalServerError, "Could not create user")
		}
		return
	}
	respond.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// loginForm handles the OAuth2-style form login; the username field carries
// the email.
func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respond.WriteDetail(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	h.login(w, r, r.PostFormValue("username"), r.PostFormValue("password"))
}

func (h *Handler) loginJSON(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		respond.WriteDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.login(w, r, req.Email, req.Password)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, email, password string) {
	pair, _, err := h.auth.Login(r.Context(), email, password, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respond.Unauthorized(w, "Incorrect email or password")
		case errors.Is(err, service.ErrAccountInactive):
			respond.WriteDetail(w, http.StatusBadRequest, "Inactive user")
		case errors.Is(err, service.ErrPersistence):
			respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		default:
			h.log.Error("login failed", zap.Error(err))
			respond.WriteDetail(w, http.StatusServiceUnavailable, "Authentication service unavailable")
		}
		return
	}
	respond.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := respond.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		respond.WriteDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefreshToken):
			respond.Unauthorized(w, "Invalid or expired refresh token")
		case errors.Is(err, service.ErrRefreshTokenRejected):
			respond.WriteDetail(w, http.StatusForbidden, "Refresh token rejected")
		default:
			h.log.Error("refresh failed", zap.Error(err))
			respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	respond.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	})
}

// logout always answers 204. The body's refresh token wins over the bearer
// principal; with neither, nothing is revoked.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	_ = respond.DecodeJSON(w, r, maxBodyBytes, &req)

	principalID := ""
	if claims, err := h.codec.Verify(middleware.BearerToken(r), security.KindAccess); err == nil {
		principalID = claims.Subject
	}
	h.auth.Logout(r.Context(), req.RefreshToken, principalID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respond.Unauthorized(w, "Could not validate credentials")
		return
	}
	user, err := h.auth.GetUser(r.Context(), p.ID)
	if err != nil {
		h.log.Error("fetch current user failed", zap.Error(err))
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
	respond.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
