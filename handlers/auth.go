package handlers

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/devconnector/devconnector/backend/go-services/internal/config"
	"github.com/devconnector/devconnector/backend/go-services/internal/models"
	"github.com/devconnector/devconnector/backend/go-services/internal/profile/service"
	"github.com/devconnector/devconnector/backend/go-services/internal/sessions"
	"github.com/devconnector/devconnector/backend/go-services/internal/tokens"
	"github.com/devconnector/devconnector/backend/go-services/internal/users"
	"github.com/devconnector/devconnector/backend/go-services/pkg/logger"
	"github.com/devconnector/devconnector/backend/go-services/pkg/middleware"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
}

func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s}
}

// Register mounts POST /api/users and the /api/auth group. auth guards the
// current-user route.
func (h *AuthHandler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	r.POST("/api/users", h.SignUp)
	a := r.Group("/api/auth")
	a.GET("", auth, h.Me)
	a.POST("", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

// SignUp creates an account and logs it in.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be valid JSON")
		return
	}
	u, err := h.usersSvc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		var inErr *users.InputError
		switch {
		case errors.As(err, &inErr):
			c.JSON(http.StatusBadRequest, gin.H{"errors": fieldErrors(inErr)})
		case errors.Is(err, users.ErrUserExists):
			badRequest(c, "User already exists")
		default:
			serverError(c, "register", err)
		}
		return
	}
	h.issue(c, u)
}

// Login checks credentials and returns an access and refresh token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Request body must be valid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(c, "Invalid Credentials")
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			badRequest(c, "Invalid Credentials")
			return
		}
		serverError(c, "login", err)
		return
	}
	h.issue(c, u)
}

func (h *AuthHandler) issue(c *gin.Context, u *models.User) {
	rft, err := h.sessionsSvc.CreateSession(c.Request.Context(), u.ID.Hex(), h.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		serverError(c, "create session", err)
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		serverError(c, "sign token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": access, "refreshToken": rft, "expiresIn": int(h.cfg.JWT.AccessTokenTTL.Seconds())})
}

// Me returns the authenticated user without the password hash.
func (h *AuthHandler) Me(c *gin.Context) {
	uid, _ := middleware.UserID(c)
	u, err := h.usersSvc.GetByID(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "Token is not valid"})
			return
		}
		serverError(c, "current user", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refreshToken is required")
		return
	}
	sess, err := h.sessionsSvc.ValidateRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		serverError(c, "validate refresh", err)
		return
	}
	if sess == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Invalid refresh token"})
		return
	}
	uid, err := primitive.ObjectIDFromHex(sess.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Invalid refresh token"})
		return
	}
	u, err := h.usersSvc.GetByID(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			_ = h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken)
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "Invalid refresh token"})
			return
		}
		serverError(c, "refresh user lookup", err)
		return
	}
	access, err := tokens.GenerateAccessToken(h.cfg, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		serverError(c, "sign token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": access, "expiresIn": int(h.cfg.JWT.AccessTokenTTL.Seconds())})
}

// Logout invalidates the refresh token and blacklists the presented access
// token until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refreshToken is required")
		return
	}
	if raw, ok := middleware.BearerToken(c); ok {
		if claims, err := tokens.ParseAccessToken(h.cfg.JWT.Secret, raw); err == nil {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				if err := sessions.BlacklistAccessToken(c.Request.Context(), raw, time.Until(exp.Time)); err != nil {
					serverError(c, "blacklist token", err)
					return
				}
			}
		}
	}
	if err := h.sessionsSvc.DeleteRefresh(c.Request.Context(), req.RefreshToken); err != nil {
		serverError(c, "delete session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Logged out"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": []service.FieldError{{Msg: msg}}})
}

func serverError(c *gin.Context, op string, err error) {
	logger.WithFields(logger.Fields{"op": op, "rid": c.GetString(middleware.RequestIDKey)}).Errorf("%s failed: %v", op, err)
	c.String(http.StatusInternalServerError, "Server Error")
}

func fieldErrors(e *users.InputError) []service.FieldError {
	params := make([]string, 0, len(e.Fields))
	for p := range e.Fields {
		params = append(params, p)
	}
	sort.Strings(params)
	out := make([]service.FieldError, 0, len(params))
	for _, p := range params {
		out = append(out, service.FieldError{Msg: e.Fields[p], Param: p, Location: "body"})
	}
	return out
}
