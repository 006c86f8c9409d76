package handler

import (
	"net/http"

	"github.com/docpilot/backend/internal/service/agent"
	"github.com/gin-gonic/gin"
)

type AgentHandler struct {
	service *agent.Service
}

// NewAgentHandler 创建决策流水线处理器
func NewAgentHandler(service *agent.Service) *AgentHandler {
	return &AgentHandler{service: service}
}

// PostMessage 处理一条用户消息并返回决策结果与回复
func (h *AgentHandler) PostMessage(c *gin.Context) {
	var req struct {
		ProjectID string `json:"project_id"`
		ChatToken string `json:"chat_token"`
		Message   string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.service.ProcessWithChat(c.Request.Context(), req.ChatToken, req.ProjectID, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chat_token": outcome.Chat.Token,
		"reply":      outcome.Reply.Content,
		"result":     outcome.Result,
	})
}
