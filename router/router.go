package router

import (
	"erp-knowledge-backend/controller"
	"erp-knowledge-backend/middleware"

	"github.com/gin-gonic/gin"
)

func Register() *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		public := api.Group("/user")
		{
			public.POST("/register", controller.UserRegister)
			public.POST("/login", controller.UserLogin)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("/resources", controller.CreateResource)
			protected.GET("/resources", controller.GetResources)
			protected.GET("/resources/:id", controller.GetResource)
			protected.DELETE("/resources/:id", controller.DeleteResource)
			protected.PUT("/resources/:id/content", controller.UpdateResourceContent)
			protected.PUT("/resources/:id/collections", controller.SetResourceCollections)
			protected.GET("/resources/:id/logs", controller.GetResourceLogs)
			protected.POST("/resources/:id/recompute-hash", controller.RecomputeResourceHash)
			protected.POST("/resources/:id/reindex", controller.ReindexResource)
			protected.POST("/resources/process", controller.ProcessResources)
			protected.POST("/resources/unlock", controller.UnlockResources)
			protected.POST("/resources/reset", controller.ResetResources)

			protected.POST("/collections", controller.CreateCollection)
			protected.GET("/collections", controller.GetCollections)
			protected.PUT("/collections/:id", controller.UpdateCollection)
			protected.DELETE("/collections/:id", controller.DeleteCollection)
			protected.POST("/collections/:id/reindex", controller.ReindexCollection)

			protected.POST("/glossaries", controller.CreateGlossary)
			protected.GET("/glossaries", controller.GetGlossaries)
			protected.DELETE("/glossaries/:id", controller.DeleteGlossary)
			protected.POST("/glossaries/:id/terms", controller.CreateGlossaryTerm)
			protected.DELETE("/glossary-terms/:id", controller.DeleteGlossaryTerm)

			protected.POST("/search", controller.Search)

			protected.POST("/attachments", controller.RegisterAttachment)
			protected.GET("/attachments", controller.GetAttachments)
			protected.DELETE("/attachments/:id", controller.DeleteAttachment)
			protected.GET("/attachments/:id/download", controller.DownloadAttachment)

			protected.POST("/admin/process-pending", controller.RunProcessPending)
			protected.POST("/admin/index-attachments", controller.RunIndexAttachments)
		}
	}

	return r
}
