package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quizium/quizium-backend/internal/config"
	"github.com/quizium/quizium-backend/internal/handler"
	"github.com/quizium/quizium-backend/internal/middleware"
	"github.com/quizium/quizium-backend/internal/response"
	"github.com/quizium/quizium-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Quiz    *handler.QuizHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve question images statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", "./uploads")
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for anonymous join attempts (30 requests per minute per IP)
	// to slow down access key guessing.
	joinLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 0. Public Group (No Auth, Rate Limited) ───────────────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(joinLimiter.Middleware())
	{
		publicAPI.POST("/quizzes/join", handlers.Attempt.JoinByKey)
	}

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/student/register", handlers.Auth.StudentRegister)
		auth.POST("/teacher/login", handlers.Auth.TeacherLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/teacher/me", middleware.RequireTeacherJWT(authService), handlers.Auth.GetTeacherProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.POST("/quizzes/:id/join", handlers.Attempt.JoinAsStudent)
	}

	// ─── 3. Attempt Group (Student or Attempt-Scoped Guest) ────────────
	attemptAPI := router.Group("/api/v1/attempts")
	attemptAPI.Use(middleware.RequireParticipantJWT(authService))
	{
		attemptAPI.GET("/:id/paper", handlers.Attempt.GetPaper)
		attemptAPI.GET("/:id/state", handlers.Attempt.GetState)
		attemptAPI.POST("/:id/answers", handlers.Attempt.SaveAnswer)
		attemptAPI.POST("/:id/tab-switch", handlers.Attempt.AddTabSwitch)
		attemptAPI.POST("/:id/submit", handlers.Attempt.Submit)
		attemptAPI.GET("/:id/result", handlers.Attempt.GetResult)
	}

	// ─── 4. WebSocket Group (Token Via Query) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireParticipantWSAuth(authService))
	{
		ws.GET("/attempts/:id/stream", handlers.WS.AttemptStream)
	}

	// ─── 5. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.GET("/summary", handlers.Quiz.OwnerSummary)

		teacherAPI.POST("/quizzes", handlers.Quiz.Create)
		teacherAPI.GET("/quizzes", handlers.Quiz.List)
		teacherAPI.GET("/quizzes/:id", handlers.Quiz.Get)
		teacherAPI.DELETE("/quizzes/:id", handlers.Quiz.Delete)

		teacherAPI.POST("/quizzes/:id/activate", handlers.Quiz.Activate)
		teacherAPI.POST("/quizzes/:id/deactivate", handlers.Quiz.Deactivate)

		teacherAPI.GET("/quizzes/:id/results", handlers.Quiz.Results)
		teacherAPI.GET("/quizzes/:id/roster", handlers.Quiz.ListRoster)
		teacherAPI.PUT("/quizzes/:id/roster", handlers.Quiz.ReplaceRoster)

		teacherAPI.GET("/quizzes/:id/analytics", handlers.Quiz.Summary)
		teacherAPI.GET("/quizzes/:id/analytics/questions", handlers.Quiz.QuestionBreakdown)

		// System Monitoring
		teacherAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
