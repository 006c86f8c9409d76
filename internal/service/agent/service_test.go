package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/docpilot/backend/config"
	"github.com/docpilot/backend/internal/model"
	"github.com/docpilot/backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, fake *scriptedLLM) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := config.Default()
	return NewService(
		repository.NewProjectRepository(db),
		repository.NewDocumentRepository(db),
		repository.NewChatRepository(db),
		fake,
		nil,
		&cfg.Agent,
	), db
}

func seedProject(t *testing.T, db *gorm.DB, name string) *model.Project {
	t.Helper()
	p := &model.Project{ID: uuid.NewString(), Name: name}
	if err := repository.NewProjectRepository(db).Create(p); err != nil {
		t.Fatalf("seed project error: %v", err)
	}
	return p
}

func TestProcessMessageGreetingSkipsDecisionStage(t *testing.T) {
	fake := &scriptedLLM{conversational: "Hello! How can I help with your documents?"}
	svc, db := newTestService(t, fake)
	project := seedProject(t, db, "Demo")

	result, err := svc.ProcessMessage(context.Background(), project.ID, "hello", nil)
	if err != nil {
		t.Fatalf("process error: %v", err)
	}
	if result.Decision.Action != ActionAnswerOnly {
		t.Fatalf("expected ANSWER_ONLY, got %s", result.Decision.Action)
	}
	if result.Decision.ConversationalResponse == "" {
		t.Fatal("expected a conversational reply")
	}
	if fake.stage1Calls != 0 || fake.stage2Calls != 0 {
		t.Fatalf("greeting must skip both stages, got stage1=%d stage2=%d", fake.stage1Calls, fake.stage2Calls)
	}
}

func TestProcessWithChatUpdatesDocument(t *testing.T) {
	fake := &scriptedLLM{
		stage1JSON: `{
			"action": "UPDATE_DOCUMENT",
			"targets": [{"document_name": "Guide", "summary": "target", "role": "primary"}],
			"confidence": 0.95,
			"intent_statement": "I want to add a closing paragraph to the Guide"
		}`,
		stage2JSON: `{
			"should_edit": true,
			"document_id": "",
			"edit_scope": "selective",
			"intent_statement": "I added a closing paragraph to the Guide",
			"change_summary": "Added a closing paragraph.",
			"reasoning": "The user asked for an addition to an existing document."
		}`,
		rewrites: []string{preservedDoc},
	}
	svc, db := newTestService(t, fake)
	project := seedProject(t, db, "Demo")
	docs := repository.NewDocumentRepository(db)
	doc := seedDocument(t, docs, project.ID, "Guide", threeSectionDoc)

	outcome, err := svc.ProcessWithChat(context.Background(), "", project.ID, "add a closing paragraph to the guide")
	if err != nil {
		t.Fatalf("process error: %v", err)
	}
	if outcome.Result.UpdatedDocument == nil {
		t.Fatal("expected the document to be updated")
	}
	// Stage 2 未回传 document_id，应回落到 Stage 1 解析出的目标
	if outcome.Result.UpdatedDocument.ID != doc.ID {
		t.Fatalf("updated wrong document: %s", outcome.Result.UpdatedDocument.ID)
	}
	if outcome.Reply.Content != "Added a closing paragraph." {
		t.Fatalf("unexpected reply: %q", outcome.Reply.Content)
	}

	var meta messageMetadata
	if err := json.Unmarshal([]byte(outcome.Reply.Metadata), &meta); err != nil {
		t.Fatalf("metadata parse error: %v", err)
	}
	if meta.Decision == nil || meta.Decision.Action != ActionUpdateDocument || !meta.DocumentUpdated {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	chats := repository.NewChatRepository(db)
	msgs, err := chats.GetMessages(outcome.Chat.ID, 10)
	if err != nil {
		t.Fatalf("get messages error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected user and assistant messages stored, got %d", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[1].Role != model.RoleAssistant {
		t.Fatalf("messages out of order: %s, %s", msgs[0].Role, msgs[1].Role)
	}
}

func TestProcessWithChatReusesChatByToken(t *testing.T) {
	fake := &scriptedLLM{conversational: "Hi again!"}
	svc, db := newTestService(t, fake)
	project := seedProject(t, db, "Demo")

	first, err := svc.ProcessWithChat(context.Background(), "", project.ID, "hello")
	if err != nil {
		t.Fatalf("first process error: %v", err)
	}
	second, err := svc.ProcessWithChat(context.Background(), first.Chat.Token, project.ID, "hi")
	if err != nil {
		t.Fatalf("second process error: %v", err)
	}
	if second.Chat.ID != first.Chat.ID {
		t.Fatal("expected the same chat to be reused via its token")
	}

	chats := repository.NewChatRepository(db)
	msgs, err := chats.GetMessages(first.Chat.ID, 10)
	if err != nil {
		t.Fatalf("get messages error: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 stored messages across two turns, got %d", len(msgs))
	}
}

func TestProcessMessageCreationCollisionAnnotates(t *testing.T) {
	fake := &scriptedLLM{
		stage1JSON: `{
			"action": "CREATE_DOCUMENT",
			"new_document": {"name": "TestDoc"},
			"confidence": 0.9,
			"intent_statement": "I want to create a document called TestDoc"
		}`,
		stage2JSON: `{
			"should_create": true,
			"document_name": "TestDoc",
			"document_content": "# TestDoc\n\nFresh content.",
			"intent_statement": "I created TestDoc",
			"reasoning": "The user asked for a new document."
		}`,
	}
	svc, db := newTestService(t, fake)
	project := seedProject(t, db, "Demo")
	docs := repository.NewDocumentRepository(db)
	existing := seedDocument(t, docs, project.ID, "TestDoc", "# TestDoc\n\nOld content.")

	result, err := svc.ProcessMessage(context.Background(), project.ID, "create a document called TestDoc", nil)
	if err != nil {
		t.Fatalf("process error: %v", err)
	}
	if result.CreatedDocument != nil {
		t.Fatal("expected no document on collision")
	}
	ce := result.Decision.CreationError
	if ce == nil || ce.Type != "duplicate_name" || ce.ExistingDocumentID != existing.ID {
		t.Fatalf("unexpected creation error: %+v", ce)
	}
}

func TestProcessMessageClarificationPassesThrough(t *testing.T) {
	fake := &scriptedLLM{
		stage1JSON: `{"action": "NEEDS_CLARIFICATION", "confidence": 0.3, "intent_statement": "unclear request"}`,
		stage2JSON: `{
			"needs_clarification": true,
			"clarification_question": "Which document do you mean?",
			"reasoning": "The request is ambiguous."
		}`,
	}
	svc, db := newTestService(t, fake)
	project := seedProject(t, db, "Demo")

	result, err := svc.ProcessMessage(context.Background(), project.ID, "change it", nil)
	if err != nil {
		t.Fatalf("process error: %v", err)
	}
	if result.Decision.Action != ActionNeedsClarification {
		t.Fatalf("expected NEEDS_CLARIFICATION, got %s", result.Decision.Action)
	}
	if formatReply(result) != "Which document do you mean?" {
		t.Fatalf("unexpected reply: %q", formatReply(result))
	}
}

func TestProcessMessageShowDocumentCarriesContent(t *testing.T) {
	fake := &scriptedLLM{
		stage1JSON: `{
			"action": "SHOW_DOCUMENT",
			"targets": [{"document_name": "Recipes", "summary": "target", "role": "primary"}],
			"confidence": 0.9,
			"intent_statement": "I want to see the Recipes document"
		}`,
		stage2JSON:     `{"reasoning": "The user wants to read a document."}`,
		conversational: "Here is your Recipes document.",
	}
	svc, db := newTestService(t, fake)
	project := seedProject(t, db, "Demo")
	docs := repository.NewDocumentRepository(db)
	seedDocument(t, docs, project.ID, "Recipes", "# Recipes\n\nTomato soup with basil.")

	result, err := svc.ProcessMessage(context.Background(), project.ID, "show me the recipes", nil)
	if err != nil {
		t.Fatalf("process error: %v", err)
	}
	if result.Decision.Action != ActionShowDocument {
		t.Fatalf("expected SHOW_DOCUMENT, got %s", result.Decision.Action)
	}
	// 回复提示词要带上目标文档正文，不能只有文档名列表
	if !strings.Contains(fake.lastConvPrompt, "Tomato soup with basil.") {
		t.Fatalf("conversational prompt is missing the document content: %q", fake.lastConvPrompt)
	}
}
