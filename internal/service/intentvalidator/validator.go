// Package intentvalidator 用 LLM 判断结构校验发现的变更是否为用户本意。
// 与结构校验、改写流程解耦，只做意图比对。
package intentvalidator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/service/docvalidator"
	"github.com/docpilot/backend/internal/utils"
	"k8s.io/klog/v2"
)

// Change 一项被判定为用户本意的变更
type Change struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	UserIntent  string `json:"user_intent"`
}

// Result 意图比对结果
type Result struct {
	AllChangesIntentional bool     `json:"all_changes_intentional"`
	IntentionalChanges    []Change `json:"intentional_changes"`
	UnintentionalErrors   []string `json:"unintentional_errors"`
	Reasoning             string   `json:"reasoning"`
}

// Validator 意图校验器
type Validator struct {
	llm         llm.Completer
	temperature float64
}

func New(completer llm.Completer, temperature float64) *Validator {
	if temperature <= 0 {
		temperature = 0.3
	}
	return &Validator{llm: completer, temperature: temperature}
}

// Review 判断校验错误对应的变更是否为用户明确要求。
// 永不返回 error：任何失败都按“非本意”处理，退回全部原始错误。
func (v *Validator) Review(ctx context.Context, userMessage string, validation *docvalidator.Result) *Result {
	if !validation.HasCheckableErrors() {
		return &Result{
			AllChangesIntentional: false,
			UnintentionalErrors:   validation.Messages(),
			Reasoning:             "No intent-checkable errors found. All errors are technical.",
		}
	}

	prompt := buildPrompt(userMessage, validation)

	messages := []llm.ChatMessage{
		{Role: "system", Content: "Analyze if document changes match user intent. Respond with valid JSON only."},
		{Role: "user", Content: prompt},
	}

	response, err := v.llm.Complete(ctx, messages, llm.Options{
		Temperature: v.temperature,
		JSONMode:    true,
	})
	if err != nil {
		klog.Errorf("意图校验调用失败: %v", err)
		return v.failClosed(validation, fmt.Sprintf("Intent validation failed: %v. Assuming changes are not intentional.", err))
	}

	var result Result
	if err := json.Unmarshal([]byte(utils.ExtractJSON(response)), &result); err != nil {
		klog.Errorf("意图校验响应解析失败: %v", err)
		return v.failClosed(validation, fmt.Sprintf("Invalid JSON response: %v. Assuming changes are not intentional.", err))
	}
	return &result
}

func (v *Validator) failClosed(validation *docvalidator.Result, reasoning string) *Result {
	return &Result{
		AllChangesIntentional: false,
		UnintentionalErrors:   validation.Messages(),
		Reasoning:             reasoning,
	}
}

func buildPrompt(userMessage string, validation *docvalidator.Result) string {
	details := validation.Details

	var changes []string
	for _, e := range validation.CheckableErrors() {
		switch e.Category {
		case docvalidator.CategorySectionRemoval:
			shown := details.MissingSections
			more := ""
			if len(shown) > 5 {
				more = fmt.Sprintf(" and %d more", len(shown)-5)
				shown = shown[:5]
			}
			changes = append(changes, fmt.Sprintf("- **Removed sections**: %s%s", strings.Join(shown, ", "), more))
		case docvalidator.CategoryStructuralChange:
			pctChange := 0.0
			if details.OriginalSectionCount > 0 {
				pctChange = float64(details.NewSectionCount-details.OriginalSectionCount) / float64(details.OriginalSectionCount) * 100
			}
			changes = append(changes, fmt.Sprintf("- **Structure changed**: %d sections → %d sections (%.1f%% change)",
				details.OriginalSectionCount, details.NewSectionCount, pctChange))
		case docvalidator.CategoryContentReduction:
			changes = append(changes, fmt.Sprintf("- **Content reduced**: %d chars → %d chars (%.1f%% reduction)",
				details.OriginalLength, details.NewLength, details.ReductionPct))
		}
	}

	var errorList []string
	for i, msg := range validation.Messages() {
		errorList = append(errorList, fmt.Sprintf("%d. %s", i+1, msg))
	}

	return fmt.Sprintf(`Analyze if the changes made to the document align with what the user explicitly requested.

User's request: %q

Changes detected in the rewritten document:
%s

Original validation errors (reference them precisely when narrowing):
%s

Document structure:
- Original: %d sections, %d characters
- New: %d sections, %d characters

Question: Do these changes match what the user asked for?

Consider:
1. **Removals**: Did user explicitly ask to remove sections?
   - Direct: "remove X", "delete Y section", "drop Z", "eliminate W"
   - Indirect: "without the tokens section", "simplify by removing technical parts"
   - Context: "make it shorter" might mean removing sections, but be cautious
2. **Rewrites/Restructuring**: Did user ask to rewrite or reorganize?
   - "rewrite the document", "restructure", "reorganize", "complete overhaul"
3. **Content Reduction**: Did user ask to make it shorter/more concise?
   - "make it shorter", "more concise", "condense", "simplify"
4. **Safety First**:
   - If unclear or ambiguous, assume NOT intentional (better to preserve content)
   - Only mark as intentional if user's request clearly indicates the change

Respond with JSON:
{
    "all_changes_intentional": boolean,
    "intentional_changes": [
        {
            "type": "section_removal" | "structural_change" | "content_reduction",
            "description": "What change was intentional",
            "user_intent": "How user's request matches this change"
        }
    ],
    "unintentional_errors": [
        "error message 1"
    ],
    "reasoning": "Brief explanation of your analysis"
}`,
		userMessage,
		strings.Join(changes, "\n"),
		strings.Join(errorList, "\n"),
		details.OriginalSectionCount, details.OriginalLength,
		details.NewSectionCount, details.NewLength)
}
