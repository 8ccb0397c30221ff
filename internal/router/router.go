package router

import (
	"context"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/peterskelv123-tech/backend-offline/internal/config"
	"github.com/peterskelv123-tech/backend-offline/internal/handler"
	"github.com/peterskelv123-tech/backend-offline/internal/metrics"
	"github.com/peterskelv123-tech/backend-offline/internal/middleware"
	"github.com/peterskelv123-tech/backend-offline/internal/response"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam       *handler.ExamHandler
	Question   *handler.QuestionHandler
	Result     *handler.ResultHandler
	Progress   *handler.ProgressHandler
	Subject    *handler.SubjectHandler
	Class      *handler.ClassHandler
	Attendance *handler.AttendanceHandler
	Dashboard  *handler.DashboardHandler
	Health     *handler.HealthHandler
	WS         *handler.WSHandler
}

// SetupRouter configures the route table. ctx bounds the rate limiter's
// background cleanup; log is tagged per request with its id.
func SetupRouter(ctx context.Context, handlers *Handlers, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	if cfg.MetricsEnabled {
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}

	router.GET("/health", handlers.Health.Health)

	// The socket carries its own per-connection event limit.
	router.GET("/ws", handlers.WS.Serve)

	api := router.Group("")
	if cfg.RateLimitRPS > 0 {
		api.Use(middleware.NewRateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware())
	}
	api.Use(middleware.Compress(brotli.DefaultCompression, 0))
	{
		exams := api.Group("/exams")
		exams.GET("", handlers.Exam.ListExams)
		exams.POST("", handlers.Exam.CreateExam)
		exams.PUT("", handlers.Exam.UpdateExamStatus)
		exams.DELETE("", handlers.Exam.DeleteExam)
		exams.GET("/take", handlers.Exam.TakeExam)

		api.GET("/questions/exam-taker", handlers.Question.ExamTaker)

		results := api.Group("/results")
		results.POST("", handlers.Result.Submit)
		results.GET("", handlers.Result.List)
		results.DELETE("", handlers.Result.Delete)

		progress := api.Group("/redis/student-progress", middleware.NoStore())
		progress.GET("", handlers.Progress.Get)
		progress.POST("", handlers.Progress.Save)

		subjects := api.Group("/subjects")
		subjects.GET("", handlers.Subject.GetAll)
		subjects.POST("", handlers.Subject.Create)
		subjects.GET("/search", handlers.Subject.Search)

		classes := api.Group("/class")
		classes.GET("", handlers.Class.ListClasses)
		classes.POST("", handlers.Class.CreateClass)
		classes.GET("/search", handlers.Class.SearchClasses)

		attendance := api.Group("/attendance", middleware.NoStore())
		attendance.GET("", handlers.Attendance.List)
		attendance.GET("/stream", handlers.Attendance.Stream)

		api.GET("/dashboard", handlers.Dashboard.GetDashboardData)
	}

	return router
}
