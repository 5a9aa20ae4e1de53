package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/response"
	"github.com/sistec/enquiry-backend/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for session claims.
	ContextKeyClaims = "claims"

	// SessionCookie carries the session token for browser clients.
	SessionCookie = "session"

	// LoginRedirectHeader tells API clients where to send the user to log in.
	LoginRedirectHeader = "X-Login-Redirect"

	StudentLoginPath = "/login"
	AdminLoginPath   = "/admin_login"
)

// SessionValidator resolves a token to live session claims.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*service.Claims, error)
}

// RequireStudent admits only requests carrying a live student session.
func RequireStudent(auth SessionValidator) gin.HandlerFunc {
	return RequireRole(auth, model.RoleStudent)
}

// RequireAdmin admits only requests carrying a live admin session.
func RequireAdmin(auth SessionValidator) gin.HandlerFunc {
	return RequireRole(auth, model.RoleAdmin)
}

// RequireRole rejects the request before the handler runs unless it carries a
// live session for role. Browsers are redirected to the matching login page;
// API clients get 401/403 and the login path in LoginRedirectHeader.
func RequireRole(auth SessionValidator, role model.Role) gin.HandlerFunc {
	loginPath, wrongRole := StudentLoginPath, response.ErrStudentAccessOnly
	if role == model.RoleAdmin {
		loginPath, wrongRole = AdminLoginPath, response.ErrAdminAccessOnly
	}

	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			deny(c, http.StatusUnauthorized, response.ErrTokenRequired, loginPath)
			return
		}

		claims, err := auth.ValidateSession(c.Request.Context(), token)
		switch {
		case errors.Is(err, service.ErrSessionRevoked):
			deny(c, http.StatusUnauthorized, response.ErrSessionInvalidated, loginPath)
			return
		case errors.Is(err, service.ErrInvalidToken):
			deny(c, http.StatusUnauthorized, response.ErrTokenInvalid, loginPath)
			return
		case err != nil:
			_ = c.Error(err)
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		if claims.Role != role {
			deny(c, http.StatusForbidden, wrongRole, loginPath)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the session claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// ExtractToken reads the session token from the Authorization header, the
// session cookie, or the token query parameter (WebSocket clients), in that order.
func ExtractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if tok := strings.TrimSpace(parts[1]); tok != "" {
				return tok
			}
		}
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("token")
}

// WantsHTML reports whether the client is a browser navigating to a page.
func WantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}

func deny(c *gin.Context, status int, code response.ErrCode, loginPath string) {
	if WantsHTML(c) {
		c.Redirect(http.StatusSeeOther, loginPath)
		c.Abort()
		return
	}
	c.Header(LoginRedirectHeader, loginPath)
	response.AbortFail(c, status, code)
}
