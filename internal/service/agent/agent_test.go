package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docpilot/backend/internal/model"
	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/repository"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db error: %v", err)
	}
	if err := db.AutoMigrate(&model.Project{}, &model.Document{}, &model.Chat{}, &model.ChatMessage{}); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return db
}

func seedDocument(t *testing.T, repo repository.DocumentRepository, projectID, name, content string) *model.Document {
	t.Helper()
	doc := &model.Document{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Content:   content,
	}
	if err := repo.Create(doc); err != nil {
		t.Fatalf("seed document error: %v", err)
	}
	return doc
}

// scriptedLLM 按 system 消息分流到各个 LLM 角色
type scriptedLLM struct {
	stage1JSON     string
	stage2JSON     string
	rewrites       []string
	intentJSON     string
	conversational string

	stage1Calls  int
	stage2Calls  int
	rewriteCalls int
	intentCalls  int
	convCalls    int

	lastConvPrompt string
}

func (s *scriptedLLM) Complete(ctx context.Context, msgs []llm.ChatMessage, opts llm.Options) (string, error) {
	system := msgs[0].Content
	switch {
	case strings.Contains(system, "intent classifier"):
		s.stage1Calls++
		if s.stage1JSON == "" {
			return "", errors.New("unexpected intent classification call")
		}
		return s.stage1JSON, nil
	case strings.Contains(system, "decisions about editing"):
		s.stage2Calls++
		if s.stage2JSON == "" {
			return "", errors.New("unexpected decision call")
		}
		return s.stage2JSON, nil
	case strings.Contains(system, "expert editor"):
		if s.rewriteCalls >= len(s.rewrites) {
			return "", errors.New("no more rewrites scripted")
		}
		out := s.rewrites[s.rewriteCalls]
		s.rewriteCalls++
		return out, nil
	case strings.Contains(system, "changes match user intent"):
		s.intentCalls++
		if s.intentJSON == "" {
			return "", errors.New("unexpected intent validation call")
		}
		return s.intentJSON, nil
	case strings.Contains(system, "friendly assistant"):
		s.convCalls++
		s.lastConvPrompt = msgs[1].Content
		return s.conversational, nil
	}
	return "", errors.New("unrecognized system prompt: " + system)
}
