package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docpilot/backend/config"
	"github.com/docpilot/backend/internal/handler"
	"github.com/docpilot/backend/internal/model"
	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/repository"
	"github.com/docpilot/backend/internal/router"
	"github.com/docpilot/backend/internal/service"
	"github.com/docpilot/backend/internal/service/agent"
	"github.com/docpilot/backend/internal/service/docvalidator"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type canned struct {
	text string
}

func (c canned) Complete(ctx context.Context, msgs []llm.ChatMessage, opts llm.Options) (string, error) {
	return c.text, nil
}

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	if err := db.AutoMigrate(&model.Project{}, &model.Document{}, &model.Chat{}, &model.ChatMessage{}); err != nil {
		t.Fatalf("migrate error: %v", err)
	}

	cfg := config.Default()
	projectRepo := repository.NewProjectRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	chatRepo := repository.NewChatRepository(db)

	agentService := agent.NewService(projectRepo, docRepo, chatRepo, canned{text: "Hello there!"}, nil, &cfg.Agent)
	docService := service.NewDocumentService(docRepo, docvalidator.New(docvalidator.DefaultThresholds()))
	projectService := service.NewProjectService(projectRepo)
	chatService := service.NewChatService(chatRepo)

	return router.Setup(cfg,
		handler.NewAgentHandler(agentService),
		handler.NewProjectHandler(projectService),
		handler.NewDocumentHandler(docService),
		handler.NewChatHandler(chatService),
	), db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "identity")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProjectAndDocumentLifecycle(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/projects", gin.H{"name": "Demo", "description": "test project"})
	assert.Equal(t, http.StatusOK, w.Code, "创建项目应成功")

	var project model.Project
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))
	assert.NotEmpty(t, project.ID)

	w = doJSON(t, r, http.MethodPost, "/api/documents", gin.H{
		"project_id": project.ID,
		"name":       "Guide",
		"content":    "# Guide\n\nSome content.",
	})
	assert.Equal(t, http.StatusOK, w.Code, "创建文档应成功")

	var doc model.Document
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

	// 同名重复创建应被拒绝
	w = doJSON(t, r, http.MethodPost, "/api/documents", gin.H{
		"project_id": project.ID,
		"name":       "guide",
		"content":    "# Guide\n",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "重名文档应返回 400")

	w = doJSON(t, r, http.MethodGet, "/api/projects/"+project.ID+"/documents", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var docs []model.Document
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	assert.Len(t, docs, 1)

	w = doJSON(t, r, http.MethodGet, "/api/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/documents/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "文档不存在应返回 404")
}

func TestAgentMessageEndpoint(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/projects", gin.H{"name": "Demo"})
	assert.Equal(t, http.StatusOK, w.Code)
	var project model.Project
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))

	w = doJSON(t, r, http.MethodPost, "/api/agent/messages", gin.H{
		"project_id": project.ID,
		"message":    "hello",
	})
	assert.Equal(t, http.StatusOK, w.Code, "寒暄消息应正常返回")

	var resp struct {
		ChatToken string `json:"chat_token"`
		Reply     string `json:"reply"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ChatToken)
	assert.Equal(t, "Hello there!", resp.Reply)

	// 会话消息可以按 token 查询
	w = doJSON(t, r, http.MethodGet, "/api/chats/"+resp.ChatToken+"/messages", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var chatResp struct {
		Messages []model.ChatMessage `json:"messages"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &chatResp))
	assert.Len(t, chatResp.Messages, 2, "应存有用户消息与助手回复")
}

func TestAgentMessageRequiresBody(t *testing.T) {
	r, _ := setupTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/agent/messages", gin.H{"project_id": "p1"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "缺少 message 字段应返回 400")
}
