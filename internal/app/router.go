package app

import (
	"kege_trainer_backend/docs"
	"kege_trainer_backend/internal/config"
	"kege_trainer_backend/internal/middleware"
	"kege_trainer_backend/internal/model"
	"kege_trainer_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerAttemptRoutes(authGroup, c)
		a.registerStatsRoutes(authGroup, c)
	}

	// 3. 管理员路由
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/dashboard", c.dashboard.GetDashboard)
	}
}

func (a *App) registerAttemptRoutes(group *gin.RouterGroup, c *controllers) {
	group.POST("/variants/:id/attempts", c.attempt.Start)

	attempts := group.Group("/attempts")
	{
		attempts.GET("/:id", c.attempt.Data)
		attempts.POST("/:id/answers", c.attempt.SaveAnswer)
		attempts.POST("/:id/finish", c.attempt.Finish)
		attempts.GET("/:id/summary", c.attempt.Summary)
	}
}

func (a *App) registerStatsRoutes(group *gin.RouterGroup, c *controllers) {
	stats := group.Group("/stats")
	{
		stats.GET("/attempts", c.stats.Attempts)
		stats.GET("/performance", c.stats.Performance)
		stats.GET("/trends", c.stats.Trends)
		stats.GET("/summary", c.stats.Summary)
	}
}
