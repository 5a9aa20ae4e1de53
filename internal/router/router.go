package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/config"
	"github.com/sistec/enquiry-backend/internal/handler"
	"github.com/sistec/enquiry-backend/internal/middleware"
	"github.com/sistec/enquiry-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth  *handler.AuthHandler
	Chat  *handler.ChatHandler
	Admin *handler.AdminHandler
	WS    *handler.WSHandler

	// System is optional; the metrics stream is not mounted without it.
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	sessions middleware.SessionValidator,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		// The session cookie only travels cross-origin with credentials.
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", middleware.LoginRedirectHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth (public, rate limited) ────────────────────────────────
	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
	auth := router.Group("/")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.StudentLogin)
		auth.POST("/admin_login", handlers.Auth.AdminLogin)
	}
	router.GET("/logout", handlers.Auth.Logout)
	router.POST("/logout", handlers.Auth.Logout)

	// ─── 2. Student ────────────────────────────────────────────────────
	requireStudent := middleware.RequireStudent(sessions)
	router.POST("/chat", middleware.NoStore(), requireStudent, handlers.Chat.Chat)

	studentAPI := router.Group("/api")
	studentAPI.Use(middleware.NoStore(), requireStudent)
	{
		studentAPI.GET("/me", handlers.Auth.Me)
		studentAPI.POST("/chat", handlers.Chat.Chat)
		studentAPI.GET("/chat_history", handlers.Chat.History)
	}

	// ─── 3. Admin ──────────────────────────────────────────────────────
	adminAPI := router.Group("/api/admin")
	adminAPI.Use(middleware.NoStore(), middleware.RequireAdmin(sessions))
	{
		adminAPI.GET("/me", handlers.Auth.Me)
		adminAPI.GET("/pending_queries", handlers.Admin.PendingQueries)
		adminAPI.POST("/answer_query", handlers.Admin.AnswerQuery)
		adminAPI.GET("/stats", handlers.Admin.Stats)
		adminAPI.GET("/stream", handlers.WS.AdminStream)
		if handlers.System != nil {
			adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
		}
	}

	return router
}
