package agent

import (
	"fmt"
	"strings"

	"k8s.io/klog/v2"
)

// extractDocumentName 按优先级推断新文档名：
// 决策字段 > intent_statement 模式提取 > 用户消息模式提取 > 顺号兜底。
// 模式提取只是尽力而为的启发式，决策字段才是可靠来源。
func extractDocumentName(decision *Decision, userMessage string, documentCount int) string {
	name := decision.DocumentName
	if name == "" {
		name = extractFromIntent(decision.IntentStatement)
	}
	if name == "" {
		name = extractFromMessage(userMessage)
	}
	if name == "" || name == "New Document" {
		name = fmt.Sprintf("Document %d", documentCount+1)
		klog.Warningf("无法推断文档名，使用兜底名称: %s", name)
	}
	return name
}

var nameFillerWords = map[string]bool{
	"document": true, "in": true, "this": true, "project": true,
	"a": true, "new": true, "for": true,
}

func extractFromIntent(intentStatement string) string {
	if intentStatement == "" {
		return ""
	}
	parts := strings.Fields(intentStatement)

	for i, part := range parts {
		switch strings.ToLower(part) {
		case "called", "named", "for":
			if i+1 < len(parts) {
				name := cleanNameWords(parts[i+1:])
				if name != "" {
					return name
				}
			}
		}
	}
	for i, part := range parts {
		if strings.ToLower(part) == "create" && i+1 < len(parts) {
			end := i + 4
			if end > len(parts) {
				end = len(parts)
			}
			name := cleanNameWords(parts[i+1 : end])
			if len(name) > 1 {
				return name
			}
		}
	}
	return ""
}

func cleanNameWords(words []string) string {
	var kept []string
	for _, w := range words {
		trimmed := strings.Trim(w, `"'.,`)
		if trimmed == "" || nameFillerWords[strings.ToLower(trimmed)] {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}

var nameActionWords = map[string]bool{
	"add": true, "create": true, "make": true, "new": true, "my": true,
}

var nameStopWords = map[string]bool{
	"my": true, "favorite": true, "the": true, "a": true, "an": true,
	"for": true, "to": true, "in": true, "with": true, "about": true,
}

func extractFromMessage(userMessage string) string {
	words := strings.Fields(userMessage)
	for i, word := range words {
		if !nameActionWords[strings.ToLower(word)] || i+1 >= len(words) {
			continue
		}
		var candidate []string
		for j := i + 1; j < len(words) && j < i+4; j++ {
			next := strings.ToLower(words[j])
			if nameActionWords[next] || nameStopWords[next] {
				break
			}
			candidate = append(candidate, capitalize(words[j]))
		}
		if len(candidate) > 0 {
			return strings.Join(candidate, " ")
		}
	}
	return ""
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
