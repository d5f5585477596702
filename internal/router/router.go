package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusjournal/backend/internal/handler"
	"focusjournal/backend/internal/middleware"
	"focusjournal/backend/internal/service"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Timer      *handler.TimerHandler
	Tasks      *handler.TaskHandler
	Courses    *handler.CourseHandler
	Reflection *handler.ReflectionHandler
	Dashboard  *handler.DashboardHandler
	Stats      *handler.StatsHandler
}

func New(authService *service.AuthService, h Handlers, corsOrigins []string) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	protected := api.Group("")
	protected.Use(middleware.Auth(authService))

	timer := protected.Group("/timer")
	timer.GET("/state", h.Timer.GetState)
	timer.POST("/start", h.Timer.Start)
	timer.POST("/pause", h.Timer.Pause)
	timer.POST("/resume", h.Timer.Resume)
	timer.POST("/stop", h.Timer.Stop)
	timer.POST("/skip", h.Timer.Skip)
	timer.GET("/settings", h.Timer.GetSettings)
	timer.PUT("/settings", h.Timer.UpdateSettings)
	timer.GET("/sessions", h.Timer.ListSessions)
	timer.DELETE("/sessions/:id", h.Timer.DeleteSession)
	timer.GET("/events", h.Timer.Events)

	tasks := protected.Group("/tasks")
	tasks.GET("", h.Tasks.List)
	tasks.POST("", h.Tasks.Create)
	tasks.PATCH("/:id", h.Tasks.Update)
	tasks.POST("/:id/toggle", h.Tasks.Toggle)
	tasks.DELETE("/:id", h.Tasks.Delete)

	courses := protected.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", h.Courses.Create)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", h.Courses.Update)
	courses.DELETE("/:id", h.Courses.Delete)
	courses.POST("/:id/assignments", h.Courses.CreateAssignment)
	courses.PATCH("/:id/assignments/:assignmentId", h.Courses.UpdateAssignment)
	courses.DELETE("/:id/assignments/:assignmentId", h.Courses.DeleteAssignment)
	protected.GET("/assignments/overdue", h.Courses.Overdue)

	reflections := protected.Group("/reflections")
	reflections.GET("", h.Reflection.List)
	reflections.POST("", h.Reflection.Save)
	reflections.GET("/:date", h.Reflection.Get)
	reflections.PUT("/:date", h.Reflection.Save)
	reflections.DELETE("/:date", h.Reflection.Delete)

	protected.GET("/dashboard", h.Dashboard.Get)
	protected.GET("/stats", h.Stats.Get)

	return engine
}
