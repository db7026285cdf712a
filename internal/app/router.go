package app

import (
	"query_clash_backend/docs"
	"query_clash_backend/internal/config"
	"query_clash_backend/internal/middleware"
	"query_clash_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerGameRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
		public.POST("/logout", c.auth.Logout)
		public.GET("/leaderboard", c.admin.Leaderboard)
	}
}

func (a *App) registerGameRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/state", c.game.GetState)
	rg.GET("/investigations", c.game.ListInvestigations)
	rg.GET("/schema", c.game.GetSchema)
	rg.POST("/verify", c.game.Verify)
	rg.POST("/submit", c.game.Submit)
	rg.POST("/query", c.game.RunQuery)
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("/stats", c.admin.Stats)
		admin.GET("/investigations", c.admin.Investigations)
		admin.POST("/participants/:name/reset", c.admin.Reset)
		admin.POST("/participants/:name/delete", c.admin.Delete)
	}
}
