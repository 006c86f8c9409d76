package router

import (
	"github.com/docpilot/backend/config"
	"github.com/docpilot/backend/internal/handler"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

func Setup(
	cfg *config.Config,
	agentHandler *handler.AgentHandler,
	projectHandler *handler.ProjectHandler,
	docHandler *handler.DocumentHandler,
	chatHandler *handler.ChatHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	api := r.Group("/api")
	{
		agent := api.Group("/agent")
		{
			agent.POST("/messages", agentHandler.PostMessage)
		}

		projects := api.Group("/projects")
		{
			projects.POST("", projectHandler.Create)
			projects.GET("", projectHandler.List)
			projects.GET("/:id", projectHandler.Get)
			projects.DELETE("/:id", projectHandler.Delete)
			projects.GET("/:id/documents", docHandler.GetByProject)
		}

		docs := api.Group("/documents")
		{
			docs.POST("", docHandler.Create)
			docs.GET("/:id", docHandler.Get)
			docs.PUT("/:id", docHandler.Update)
			docs.DELETE("/:id", docHandler.Delete)
		}

		chats := api.Group("/chats")
		{
			chats.GET("/:token/messages", chatHandler.GetMessages)
		}
	}

	return r
}
