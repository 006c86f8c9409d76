package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/docpilot/backend/internal/prompt"
	"github.com/docpilot/backend/internal/repository"
	"github.com/docpilot/backend/internal/service/docvalidator"
)

func newTestCreator(t *testing.T) (*Creator, repository.DocumentRepository) {
	t.Helper()
	docs := repository.NewDocumentRepository(newTestDB(t))
	return NewCreator(docs, docvalidator.New(docvalidator.DefaultThresholds()), nil), docs
}

func TestCreatorDuplicateNameZeroWrites(t *testing.T) {
	creator, docs := newTestCreator(t)
	existing := seedDocument(t, docs, "p1", "TestDoc", "# TestDoc\n\nExisting content.")

	decision := &Decision{Action: ActionCreateDocument, DocumentName: "TestDoc"}
	created, _, err := creator.Create(context.Background(), decision, "p1", "create a TestDoc", nil, nil)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if created != nil {
		t.Fatal("expected no document on name collision")
	}
	if decision.CreationError == nil || decision.CreationError.Type != "duplicate_name" {
		t.Fatalf("expected duplicate_name creation error, got %+v", decision.CreationError)
	}
	if decision.CreationError.ExistingDocumentID != existing.ID {
		t.Fatalf("expected colliding document id %s, got %s", existing.ID, decision.CreationError.ExistingDocumentID)
	}
	remaining, err := docs.ListByProject("p1")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected zero writes, found %d documents", len(remaining))
	}
}

func TestCreatorCaseInsensitiveCollision(t *testing.T) {
	creator, docs := newTestCreator(t)
	seedDocument(t, docs, "p1", "Recipes", "# Recipes\n")

	decision := &Decision{Action: ActionCreateDocument, DocumentName: "recipes"}
	created, _, err := creator.Create(context.Background(), decision, "p1", "create recipes", nil, nil)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if created != nil || decision.CreationError == nil {
		t.Fatal("expected case-insensitive collision to be caught")
	}
}

func TestCreatorCreatesDocument(t *testing.T) {
	creator, docs := newTestCreator(t)

	decision := &Decision{
		Action:          ActionCreateDocument,
		DocumentName:    "Travel Plans",
		DocumentContent: "# Travel Plans\n\nPlaces to visit this year.",
	}
	created, _, err := creator.Create(context.Background(), decision, "p1", "create a travel plans doc", nil, nil)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if created == nil {
		t.Fatal("expected a created document")
	}
	if created.Name != "Travel Plans" || created.ProjectID != "p1" {
		t.Fatalf("unexpected document fields: %+v", created)
	}
	stored, err := docs.Get(created.ID)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if stored.Content != decision.DocumentContent {
		t.Fatalf("unexpected stored content: %q", stored.Content)
	}
}

func TestCreatorFallbackNumberedName(t *testing.T) {
	creator, docs := newTestCreator(t)
	seedDocument(t, docs, "p1", "First", "# First\n")

	existing := []prompt.DocumentContext{{ID: "d1", Name: "First"}}
	decision := &Decision{Action: ActionCreateDocument}
	created, _, err := creator.Create(context.Background(), decision, "p1", "please", existing, nil)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if created == nil {
		t.Fatal("expected a created document")
	}
	if created.Name != "Document 2" {
		t.Fatalf("expected fallback name Document 2, got %q", created.Name)
	}
}

func TestCreatorRejectsOverlongName(t *testing.T) {
	creator, docs := newTestCreator(t)

	decision := &Decision{Action: ActionCreateDocument, DocumentName: strings.Repeat("x", 201)}
	created, _, err := creator.Create(context.Background(), decision, "p1", "create it", nil, nil)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if created != nil {
		t.Fatal("expected validation to block creation")
	}
	if decision.CreationError == nil || decision.CreationError.Type != "validation" {
		t.Fatalf("expected validation creation error, got %+v", decision.CreationError)
	}
	remaining, err := docs.ListByProject("p1")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected zero writes, found %d documents", len(remaining))
	}
}
