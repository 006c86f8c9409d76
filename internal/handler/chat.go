package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/docpilot/backend/internal/repository"
	"github.com/docpilot/backend/internal/service"
	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler 创建会话处理器
func NewChatHandler(service *service.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// GetMessages 按会话 token 取消息列表，支持 limit 参数
func (h *ChatHandler) GetMessages(c *gin.Context) {
	chat, err := h.service.GetByToken(c.Param("token"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	msgs, err := h.service.GetMessages(chat.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat, "messages": msgs})
}
