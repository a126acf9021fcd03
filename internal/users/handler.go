package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docmanager-backend/internal/shared/metrics"
	"docmanager-backend/internal/shared/server/middleware"
	"docmanager-backend/internal/shared/server/respond"
	"docmanager-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts the account routes. authed guards logout and me.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/logout", authed, h.logout)
	rg.GET("/me", authed, h.me)
}

// RegisterSearchRoutes mounts user search under the documents group.
func (h *Handler) RegisterSearchRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/search/:query", h.search)
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "bad_request", "email and password are required", nil)
		return
	}
	user, err := h.Svc.Register(c.Request.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusBadRequest, "conflict", "Email already registered", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "bad_request", err.Error(), nil)
		default:
			respond.Internal(c, "failed to create user", err)
		}
		return
	}
	telemetry.Info("user.registered", map[string]any{"user_id": user.ID, "email": user.Email})
	respond.Message(c, "User created successfully")
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil || req.Email == "" || req.Password == "" {
		respond.Error(c, http.StatusBadRequest, "bad_request", "email and password are required", nil)
		return
	}
	tok, user, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.IncLoginFailures()
			c.Header("WWW-Authenticate", "Bearer")
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Incorrect email or password", nil)
			return
		}
		respond.Internal(c, "failed to log in", err)
		return
	}
	respond.OK(c, LoginResponse{
		AccessToken: tok.Value,
		TokenType:   "bearer",
		Role:        user.Role,
	})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Svc.Logout(c.Request.Context(), middleware.AccessTokenFromContext(c)); err != nil {
		respond.Internal(c, "failed to log out", err)
		return
	}
	respond.Message(c, "Logged out")
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.GetByEmail(c.Request.Context(), middleware.UserEmailFromContext(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Could not validate credentials", nil)
			return
		}
		respond.Internal(c, "failed to load user", err)
		return
	}
	respond.OK(c, toSummary(user))
}

func (h *Handler) search(c *gin.Context) {
	found, err := h.Svc.Search(c.Request.Context(), c.Param("query"), 0)
	if err != nil {
		respond.Internal(c, "failed to search users", err)
		return
	}
	out := make([]UserSummary, 0, len(found))
	for _, u := range found {
		out = append(out, toSummary(u))
	}
	respond.OK(c, out)
}
