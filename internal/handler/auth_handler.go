package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/middleware"
	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/repository"
	"github.com/sistec/enquiry-backend/internal/response"
	"github.com/sistec/enquiry-backend/internal/service"
)

// AuthHandler handles registration and session endpoints.
type AuthHandler struct {
	userService  *service.UserService
	authService  *service.AuthService
	cookieSecure bool
	log          zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	userService *service.UserService,
	authService *service.AuthService,
	cookieSecure bool,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		authService:  authService,
		cookieSecure: cookieSecure,
		log:          logger.Component(log, "auth_handler"),
	}
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Register godoc
// POST /register
// Creates a student account. Does not log in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		response.Fail(c, http.StatusConflict, response.ErrDuplicateEmail)
		return
	case errors.Is(err, service.ErrMissingField):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
		return
	case errors.Is(err, service.ErrPasswordTooLong):
		failField(c, "password", "password must be at most 72 bytes")
		return
	case errors.Is(err, service.ErrInvalidText):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
		return
	case err != nil:
		failInternal(c, h.log, err, "Register failed")
		return
	}

	h.log.Info().Int("user_id", user.ID).Msg("Student registered")
	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// StudentLogin godoc
// POST /login
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	h.login(c, model.RoleStudent)
}

// AdminLogin godoc
// POST /admin_login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, model.RoleAdmin)
}

// login checks credentials for role, issues a session and sets the session cookie.
func (h *AuthHandler) login(c *gin.Context, role model.Role) {
	var req model.LoginRequest
	if !bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	user, err := h.userService.Authenticate(ctx, req.Email, req.Password, role)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		failInternal(c, h.log, err, "Login lookup failed")
		return
	}

	token, claims, err := h.authService.IssueSession(ctx, user)
	if err != nil {
		failInternal(c, h.log, err, "Issue session failed")
		return
	}

	h.setSessionCookie(c, token, int(h.authService.TTL().Seconds()))
	h.log.Info().Int("user_id", user.ID).Str("role", string(role)).Msg("Logged in")

	response.Success(c, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	})
}

// Logout godoc
// GET|POST /logout
// Revokes the current session if there is one and clears the cookie. Always succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.ExtractToken(c); token != "" {
		if claims, err := h.authService.ValidateToken(token); err == nil {
			if err := h.authService.Revoke(c.Request.Context(), claims); err != nil {
				h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Revoke session failed")
			}
		}
	}
	h.setSessionCookie(c, "", -1)

	if middleware.WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, middleware.StudentLoginPath)
		return
	}
	response.Success(c, http.StatusOK, response.Message{Message: "Logged out."})
}

// Me godoc
// GET /api/me
// Returns the profile of the logged-in user.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		failInternal(c, h.log, err, "Get profile failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", h.cookieSecure, true)
}
