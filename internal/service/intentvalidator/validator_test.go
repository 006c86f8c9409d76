package intentvalidator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/service/docvalidator"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
	lastMsgs []llm.ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.ChatMessage, _ llm.Options) (string, error) {
	f.calls++
	f.lastMsgs = messages
	return f.response, f.err
}

func sectionRemovalResult() *docvalidator.Result {
	v := docvalidator.New(docvalidator.DefaultThresholds())
	original := "## Section 1\n\ncontent\n\n## Section 2\n\ncontent\n\n## Section 3\n\ncontent\n"
	candidate := "## Section 3\n\ncontent\n"
	return v.ValidateRewrite(original, candidate, false)
}

func TestReviewNarrowsIntentionalRemovals(t *testing.T) {
	fake := &fakeCompleter{response: `{
		"all_changes_intentional": true,
		"intentional_changes": [
			{"type": "section_removal", "description": "Removed Section 1 and Section 2", "user_intent": "user asked to remove them"}
		],
		"unintentional_errors": [],
		"reasoning": "explicit removal request"
	}`}

	validator := New(fake, 0.3)
	result := validator.Review(context.Background(), "remove Section 1, Section 2", sectionRemovalResult())

	if !result.AllChangesIntentional {
		t.Fatalf("expected all changes intentional")
	}
	if len(result.UnintentionalErrors) != 0 {
		t.Fatalf("expected no unintentional errors, got %v", result.UnintentionalErrors)
	}
	if fake.calls != 1 {
		t.Fatalf("expected single llm call, got %d", fake.calls)
	}

	prompt := fake.lastMsgs[len(fake.lastMsgs)-1].Content
	if !strings.Contains(prompt, "Removed sections") || !strings.Contains(prompt, "Section 1") {
		t.Fatalf("prompt missing change summary: %s", prompt[:200])
	}
}

func TestReviewFailsClosedOnLLMError(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("boom")}
	validator := New(fake, 0.3)
	validation := sectionRemovalResult()

	result := validator.Review(context.Background(), "remove Section 1", validation)
	if result.AllChangesIntentional {
		t.Fatalf("llm failure must not mark changes intentional")
	}
	if len(result.UnintentionalErrors) != len(validation.Messages()) {
		t.Fatalf("expected all original errors back, got %v", result.UnintentionalErrors)
	}
}

func TestReviewFailsClosedOnBadJSON(t *testing.T) {
	fake := &fakeCompleter{response: "not json at all"}
	validator := New(fake, 0.3)
	validation := sectionRemovalResult()

	result := validator.Review(context.Background(), "remove Section 1", validation)
	if result.AllChangesIntentional || len(result.UnintentionalErrors) != len(validation.Messages()) {
		t.Fatalf("bad json must fail closed, got %+v", result)
	}
}

func TestReviewSkipsLLMForTechnicalErrors(t *testing.T) {
	v := docvalidator.New(docvalidator.DefaultThresholds())
	validation := v.ValidateRewrite("## A\n\ncontent\n", "## A\n\ncontent\n\nTODO later\n", false)
	if validation.IsValid || validation.HasCheckableErrors() {
		t.Fatalf("fixture should produce only technical errors")
	}

	fake := &fakeCompleter{}
	validator := New(fake, 0.3)
	result := validator.Review(context.Background(), "add a note", validation)

	if fake.calls != 0 {
		t.Fatalf("technical-only errors must not trigger an llm call")
	}
	if result.AllChangesIntentional || len(result.UnintentionalErrors) == 0 {
		t.Fatalf("technical errors must stay unintentional: %+v", result)
	}
}
