package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/DragaoTI/auth-service/internal/admin/domain"
	"github.com/DragaoTI/auth-service/internal/admin/service"
	apilogdomain "github.com/DragaoTI/auth-service/internal/apilog/domain"
	apilogsvc "github.com/DragaoTI/auth-service/internal/apilog/service"
	geologsvc "github.com/DragaoTI/auth-service/internal/geolog/service"
	"github.com/DragaoTI/auth-service/internal/security"
	"github.com/DragaoTI/auth-service/internal/server/middleware"
	"github.com/DragaoTI/auth-service/internal/server/respond"
)

const maxBodyBytes = 1 << 20

// Handler serves the admin panel endpoints under /admin-panel. Every route
// except the token grant sits behind RequireAdministrator.
type Handler struct {
	admins   *service.AdminService
	apiLogs  *apilogsvc.Recorder
	geoLogs  *geologsvc.Recorder
	codec    *security.Codec
	log      *zap.Logger
	tokenTTL time.Duration
}

// NewHandler returns a Handler. apiLogs and geoLogs may be nil; the log routes
// then answer 404.
func NewHandler(
	admins *service.AdminService,
	apiLogs *apilogsvc.Recorder,
	geoLogs *geologsvc.Recorder,
	codec *security.Codec,
	log *zap.Logger,
	tokenTTL time.Duration,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		admins:   admins,
		apiLogs:  apiLogs,
		geoLogs:  geoLogs,
		codec:    codec,
		log:      log,
		tokenTTL: tokenTTL,
	}
}

// Register mounts the admin panel routes on mux.
func (h *Handler) Register(mux *http.ServeMux, authn *middleware.Authenticator) {
	guard := authn.RequireAdministrator
	mux.HandleFunc("POST /admin-panel/auth/token", h.token)
	mux.Handle("GET /admin-panel/me", guard(http.HandlerFunc(h.me)))
	mux.Handle("GET /admin-panel/administrators", guard(http.HandlerFunc(h.list)))
	mux.Handle("POST /admin-panel/administrators", guard(http.HandlerFunc(h.create)))
	mux.Handle("GET /admin-panel/administrators/{id}", guard(http.HandlerFunc(h.get)))
	mux.Handle("PUT /admin-panel/administrators/{id}", guard(http.HandlerFunc(h.update)))
	if h.apiLogs != nil {
		mux.Handle("GET /admin-panel/logs/api", guard(http.HandlerFunc(h.apiLogList)))
	}
	if h.geoLogs != nil {
		mux.Handle("GET /admin-panel/logs/geo", guard(http.HandlerFunc(h.geoLogList)))
		// Legacy listing for admin-role users signed in through /auth.
		mux.Handle("GET /admin/logs/geo", authn.RequireAdminRole(http.HandlerFunc(h.geoLogList)))
	}
}

type tokenRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientFingerprint string `json:"client_fingerprint,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type createRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientFingerprint string `json:"client_fingerprint,omitempty"`
}

type updateRequest struct {
	Password          *string `json:"password,omitempty"`
	ClientFingerprint *string `json:"client_fingerprint,omitempty"`
	Status            *string `json:"status,omitempty"`
}

// adminView is the wire shape of an administrator. Password and fingerprint
// hashes never leave the service.
type adminView struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Status      string     `json:"status"`
	IsBound     bool       `json:"is_fingerprint_bound"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toAdminView(a *domain.Administrator) adminView {
	return adminView{
		ID:          a.ID,
		Username:    a.Username,
		Status:      string(a.Status),
		IsBound:     a.Bound(),
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := respond.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		respond.WriteDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	admin, err := h.admins.Authenticate(r.Context(), req.Username, req.Password, req.ClientFingerprint)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respond.Unauthorized(w, "Incorrect username or password")
		case errors.Is(err, service.ErrAccountInactive):
			respond.WriteDetail(w, http.StatusForbidden, "Administrator account inactive")
		default:
			h.log.Error("administrator authentication failed", zap.Error(err))
			respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	access, _, err := h.codec.Issue(security.KindAdminAccess, admin.ID, "", h.tokenTTL)
	if err != nil {
		h.log.Error("admin token issue failed", zap.Error(err))
		respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respond.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: access, TokenType: "bearer"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respond.Unauthorized(w, "Could not validate credentials")
		return
	}
	admin, err := h.admins.GetByID(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respond.Unauthorized(w, "Could not validate credentials")
			return
		}
		h.log.Error("fetch current administrator failed", zap.Error(err))
		respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respond.WriteJSON(w, http.StatusOK, toAdminView(admin))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 20)
	admins, err := h.admins.List(r.Context(), skip, limit)
	if err != nil {
		h.log.Error("list administrators failed", zap.Error(err))
		respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	views := make([]adminView, 0, len(admins))
	for _, a := range admins {
		views = append(views, toAdminView(a))
	}
	respond.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := respond.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		respond.WriteDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	admin, err := h.admins.Create(r.Context(), req.Username, req.Password, req.ClientFingerprint)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			respond.WriteDetail(w, http.StatusBadRequest, "Username already registered")
			return
		}
		respond.WriteDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusCreated, toAdminView(admin))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	admin, err := h.admins.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respond.WriteDetail(w, http.StatusNotFound, "Administrator not found")
			return
		}
		h.log.Error("get administrator failed", zap.Error(err))
		respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respond.WriteJSON(w, http.StatusOK, toAdminView(admin))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := respond.DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		respond.WriteDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	params := service.UpdateParams{
		Password:          req.Password,
		ClientFingerprint: req.ClientFingerprint,
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		if status != domain.StatusActive && status != domain.StatusInactive {
			respond.WriteDetail(w, http.StatusBadRequest, "Invalid status")
			return
		}
		params.Status = &status
	}
	admin, err := h.admins.Update(r.Context(), r.PathValue("id"), params)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respond.WriteDetail(w, http.StatusNotFound, "Administrator not found")
			return
		}
		h.log.Error("update administrator failed", zap.Error(err))
		respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respond.WriteJSON(w, http.StatusOK, toAdminView(admin))
}

type apiLogView struct {
	ID               string    `json:"id"`
	Method           string    `json:"method"`
	Path             string    `json:"path"`
	StatusCode       int       `json:"status_code"`
	ClientHost       string    `json:"client_host,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
	UserID           string    `json:"user_id,omitempty"`
	AdminID          string    `json:"admin_id,omitempty"`
	ProcessingTimeMS float64   `json:"processing_time_ms"`
	Tags             []string  `json:"tags"`
	Timestamp        time.Time `json:"timestamp"`
}

func (h *Handler) apiLogList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := apilogdomain.Filter{
		Method:       q.Get("method"),
		StatusCode:   queryInt(r, "status_code", 0),
		PathContains: q.Get("path_contains"),
		UserID:       q.Get("user_id"),
		AdminID:      q.Get("admin_id"),
		Skip:         queryInt(r, "skip", 0),
		Limit:        queryInt(r, "limit", 50),
	}
	entries, err := h.apiLogs.List(r.Context(), filter)
	if err != nil {
		h.log.Error("list api logs failed", zap.Error(err))
		respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	views := make([]apiLogView, 0, len(entries))
	for _, e := range entries {
		views = append(views, apiLogView{
			ID:               e.ID,
			Method:           e.Method,
			Path:             e.Path,
			StatusCode:       e.StatusCode,
			ClientHost:       e.ClientHost,
			UserAgent:        e.UserAgent,
			UserID:           e.UserID,
			AdminID:          e.AdminID,
			ProcessingTimeMS: e.ProcessingTimeMS,
			Tags:             e.Tags,
			Timestamp:        e.Timestamp,
		})
	}
	respond.WriteJSON(w, http.StatusOK, views)
}

type geoLogView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty"`
	Country   string    `json:"country,omitempty"`
	City      string    `json:"city,omitempty"`
	Region    string    `json:"region,omitempty"`
	Latitude  float64   `json:"latitude,omitempty"`
	Longitude float64   `json:"longitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handler) geoLogList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.geoLogs.List(r.Context(), queryInt(r, "skip", 0), queryInt(r, "limit", 100))
	if err != nil {
		h.log.Error("list geo logs failed", zap.Error(err))
		respond.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	views := make([]geoLogView, 0, len(entries))
	for _, e := range entries {
		views = append(views, geoLogView{
			ID:        e.ID,
			UserID:    e.UserID,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			Country:   e.Country,
			City:      e.City,
			Region:    e.Region,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
			Timestamp: e.Timestamp,
		})
	}
	respond.WriteJSON(w, http.StatusOK, views)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
