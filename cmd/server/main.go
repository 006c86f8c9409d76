package main

import (
	"flag"
	"log"

	"k8s.io/klog/v2"

	"github.com/docpilot/backend/config"
	"github.com/docpilot/backend/internal/handler"
	"github.com/docpilot/backend/internal/pkg/database"
	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/pkg/search"
	"github.com/docpilot/backend/internal/repository"
	"github.com/docpilot/backend/internal/router"
	"github.com/docpilot/backend/internal/service"
	"github.com/docpilot/backend/internal/service/agent"
	"github.com/docpilot/backend/internal/service/docvalidator"
	"github.com/docpilot/backend/internal/service/websearch"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化 Repository
	projectRepo := repository.NewProjectRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// 初始化外部客户端
	completer := llm.NewClient(cfg)
	searchClient := search.NewHTTPClient(cfg)

	// 初始化 Service
	validator := docvalidator.New(docvalidator.Thresholds{
		SectionLossErrorPct: cfg.Agent.SectionLossErrorPct,
		HeadingCountFloor:   cfg.Agent.HeadingCountFloor,
		LengthFloor:         cfg.Agent.LengthFloor,
	})
	searchService := websearch.NewService(searchClient, completer, &cfg.Agent)
	agentService := agent.NewService(projectRepo, docRepo, chatRepo, completer, searchService, &cfg.Agent)
	docService := service.NewDocumentService(docRepo, validator)
	projectService := service.NewProjectService(projectRepo)
	chatService := service.NewChatService(chatRepo)

	// 初始化 Handler
	agentHandler := handler.NewAgentHandler(agentService)
	projectHandler := handler.NewProjectHandler(projectService)
	docHandler := handler.NewDocumentHandler(docService)
	chatHandler := handler.NewChatHandler(chatService)

	// 设置路由
	r := router.Setup(cfg, agentHandler, projectHandler, docHandler, chatHandler)

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
