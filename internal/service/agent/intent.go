package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/prompt"
	"github.com/docpilot/backend/internal/utils"
	"k8s.io/klog/v2"
)

// 纯寒暄短语才走快捷通道。信息类提问必须进入 Stage 2，
// 因为是否需要检索只有 Stage 2 能判断。
var trivialGreetings = map[string]bool{
	"hi":             true,
	"hello":          true,
	"hey":            true,
	"thanks":         true,
	"thank you":      true,
	"good morning":   true,
	"good afternoon": true,
	"good evening":   true,
}

// IntentClassifier Stage 1 意图分类器
type IntentClassifier struct {
	llm         llm.Completer
	prompts     *prompt.Service
	temperature float64
}

func NewIntentClassifier(completer llm.Completer, prompts *prompt.Service, temperature float64) *IntentClassifier {
	if temperature <= 0 {
		temperature = 0.3
	}
	return &IntentClassifier{llm: completer, prompts: prompts, temperature: temperature}
}

type intentWire struct {
	Action  string `json:"action"`
	Targets []struct {
		DocumentName string `json:"document_name"`
		Summary      string `json:"summary"`
		Role         string `json:"role"`
	} `json:"targets"`
	NewDocument *struct {
		Name string `json:"name"`
	} `json:"new_document"`
	Confidence      float64 `json:"confidence"`
	IntentStatement string  `json:"intent_statement"`
}

// Classify 对用户消息做意图分类。寒暄消息直接短路，不调用 LLM。
func (c *IntentClassifier) Classify(ctx context.Context, userMessage string, documents []prompt.DocumentContext, project *prompt.ProjectContext, history []prompt.HistoryMessage) (*IntentResult, error) {
	if isTrivialGreeting(userMessage) {
		klog.V(6).Infof("寒暄消息短路: %q", userMessage)
		return &IntentResult{
			Action:          ActionAnswerOnly,
			Confidence:      1.0,
			IntentStatement: "I greeted the user",
			Greeting:        true,
		}, nil
	}

	promptText := c.prompts.ClassifyIntentPrompt(userMessage, documents, project, history)
	response, err := c.llm.Complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: "You are an intent classifier for a document assistant. Always respond with valid JSON."},
		{Role: "user", Content: promptText},
	}, llm.Options{Temperature: c.temperature, JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("意图分类失败: %w", err)
	}

	var wire intentWire
	if err := json.Unmarshal([]byte(utils.ExtractJSON(response)), &wire); err != nil {
		return nil, fmt.Errorf("意图分类结果解析失败: %w", err)
	}

	action, known := ParseAction(wire.Action)
	if !known {
		klog.Warningf("未知意图动作 %q，降级为澄清", wire.Action)
	}

	result := &IntentResult{
		Action:          action,
		Confidence:      wire.Confidence,
		IntentStatement: wire.IntentStatement,
	}
	if wire.NewDocument != nil {
		result.NewDocumentName = wire.NewDocument.Name
	}
	for _, t := range wire.Targets {
		id := resolveDocumentID(t.DocumentName, documents)
		if id == "" {
			// 解析不到的目标直接丢弃，绝不提升其他目标顶替 primary
			klog.Warningf("目标文档 %q 无法解析为已知文档，已丢弃", t.DocumentName)
			continue
		}
		result.Targets = append(result.Targets, prompt.Target{
			DocumentName: t.DocumentName,
			DocumentID:   id,
			Summary:      t.Summary,
			Role:         t.Role,
		})
	}
	klog.V(6).Infof("意图分类: action=%s, confidence=%.2f, targets=%d", action, wire.Confidence, len(result.Targets))
	return result, nil
}

// resolveDocumentID 先精确匹配（忽略大小写），再子串匹配。
func resolveDocumentID(name string, documents []prompt.DocumentContext) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return ""
	}
	for _, d := range documents {
		if strings.ToLower(d.Name) == lower {
			return d.ID
		}
	}
	for _, d := range documents {
		docLower := strings.ToLower(d.Name)
		if strings.Contains(docLower, lower) || strings.Contains(lower, docLower) {
			return d.ID
		}
	}
	return ""
}

func isTrivialGreeting(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, "!. ")
	return trivialGreetings[normalized]
}
