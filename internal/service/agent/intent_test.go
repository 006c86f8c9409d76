package agent

import (
	"context"
	"testing"

	"github.com/docpilot/backend/internal/prompt"
)

func TestClassifyGreetingShortCircuits(t *testing.T) {
	fake := &scriptedLLM{}
	classifier := NewIntentClassifier(fake, prompt.NewService(20), 0.3)

	for _, msg := range []string{"hi", "Hello!", "  hey  ", "Thanks."} {
		result, err := classifier.Classify(context.Background(), msg, nil, nil, nil)
		if err != nil {
			t.Fatalf("classify %q error: %v", msg, err)
		}
		if !result.Greeting || result.Action != ActionAnswerOnly {
			t.Fatalf("expected greeting short-circuit for %q, got %+v", msg, result)
		}
	}
	if fake.stage1Calls != 0 {
		t.Fatalf("greetings must not reach the LLM, got %d calls", fake.stage1Calls)
	}
}

func TestClassifyQuestionIsNotAGreeting(t *testing.T) {
	if isTrivialGreeting("hi, can you update my notes?") {
		t.Fatal("a message with real content must not short-circuit")
	}
	if isTrivialGreeting("what is the capital of France") {
		t.Fatal("information questions must proceed to the decision stage")
	}
}

func TestClassifyResolvesTargetsAndDropsUnknown(t *testing.T) {
	fake := &scriptedLLM{stage1JSON: `{
		"action": "UPDATE_DOCUMENT",
		"targets": [
			{"document_name": "python guide", "summary": "the document to edit", "role": "primary"},
			{"document_name": "Nonexistent Doc", "summary": "not a real one", "role": "secondary"}
		],
		"confidence": 0.9,
		"intent_statement": "I want to update the Python Guide"
	}`}
	classifier := NewIntentClassifier(fake, prompt.NewService(20), 0.3)
	documents := []prompt.DocumentContext{
		{ID: "d1", Name: "Python Guide"},
		{ID: "d2", Name: "Go Guide"},
	}

	result, err := classifier.Classify(context.Background(), "update the python guide", documents, nil, nil)
	if err != nil {
		t.Fatalf("classify error: %v", err)
	}
	if len(result.Targets) != 1 {
		t.Fatalf("expected the unresolved target to be dropped, got %d targets", len(result.Targets))
	}
	if result.Targets[0].DocumentID != "d1" || result.Targets[0].Role != "primary" {
		t.Fatalf("unexpected resolved target: %+v", result.Targets[0])
	}
}

func TestClassifyUnknownActionBecomesClarification(t *testing.T) {
	fake := &scriptedLLM{stage1JSON: `{"action": "LAUNCH_ROCKET", "confidence": 0.4, "intent_statement": "unclear"}`}
	classifier := NewIntentClassifier(fake, prompt.NewService(20), 0.3)

	result, err := classifier.Classify(context.Background(), "do the thing", nil, nil, nil)
	if err != nil {
		t.Fatalf("classify error: %v", err)
	}
	if result.Action != ActionNeedsClarification {
		t.Fatalf("expected NEEDS_CLARIFICATION for an unknown action, got %s", result.Action)
	}
}

func TestResolveDocumentIDPrefersExactMatch(t *testing.T) {
	documents := []prompt.DocumentContext{
		{ID: "d1", Name: "Guide"},
		{ID: "d2", Name: "Guide Extended"},
	}
	if got := resolveDocumentID("guide", documents); got != "d1" {
		t.Fatalf("expected exact match d1, got %s", got)
	}
	if got := resolveDocumentID("Extended", documents); got != "d2" {
		t.Fatalf("expected substring match d2, got %s", got)
	}
	if got := resolveDocumentID("Unrelated", documents); got != "" {
		t.Fatalf("expected no match, got %s", got)
	}
}
