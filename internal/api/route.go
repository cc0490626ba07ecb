package api

import (
	"Capstone/internal/api/config"
	"Capstone/internal/api/middleware"
	"Capstone/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", group.HealthHandler.Check)

		mediaGroup := apiGroup.Group("/media")
		{
			// 无需登录即可读取配置说明
			mediaGroup.GET("/config", group.MediaHandler.Config)

			authGroup := mediaGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				// 上限取最大允许文件再留 1MB 给 multipart 封装
				uploadLimit := config.Cfg.Upload.MaxVideoSize + 1<<20
				authGroup.POST("/upload",
					middleware.BodySizeLimit(uploadLimit), group.MediaHandler.Upload)
				authGroup.GET("", group.MediaHandler.List)
				authGroup.GET("/:id", group.MediaHandler.Get)
				authGroup.GET("/:id/download", group.MediaHandler.Download)
				authGroup.POST("/:id/associate", group.MediaHandler.Associate)
				authGroup.POST("/:id/permanent", group.MediaHandler.MarkPermanent)
				authGroup.POST("/:id/validate", group.MediaHandler.Revalidate)
				authGroup.DELETE("/:id", group.MediaHandler.Delete)
			}
		}

		// 需要登录 & 拥有 admin 角色
		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(middleware.AuthMiddleware(), middleware.CheckRoles("admin"))
		{
			adminGroup.GET("/jobs", group.AdminHandler.Jobs)
			adminGroup.POST("/jobs/:job_id/run", group.AdminHandler.RunJob)
			adminGroup.POST("/groups/:group_id/cleanup", group.AdminHandler.CleanupGroup)
			adminGroup.GET("/stats", group.AdminHandler.Stats)
		}
	}

	return r
}
