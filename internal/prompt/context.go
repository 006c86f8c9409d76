package prompt

import (
	"fmt"
	"strings"
)

// BuildDocumentsList 渲染压缩后的文档列表。
// 超长内容保留头尾各 maxLength/2，中间以省略标记替代。
func BuildDocumentsList(documents []DocumentContext, maxLength int) string {
	if len(documents) == 0 {
		return "No documents available"
	}
	if maxLength <= 0 {
		maxLength = 2000
	}

	var parts []string
	for _, d := range documents {
		name := d.Name
		if name == "" {
			name = "Unnamed"
		}
		content := d.Content

		var preview string
		if len(content) <= maxLength {
			if content == "" {
				preview = "(empty)"
			} else {
				preview = content
			}
		} else {
			half := maxLength / 2
			preview = fmt.Sprintf("%s\n[...%d chars...]\n%s",
				content[:half], len(content)-maxLength, content[len(content)-half:])
		}

		parts = append(parts, fmt.Sprintf("Doc: %s (id:%s)\n%s\n---", name, d.ID, preview))
	}
	return strings.Join(parts, "\n")
}

var originalIntentKeywords = []string{
	"create", "make a new", "write a", "new document",
	"edit", "add", "update", "change", "save",
}

// BuildConversationContext 渲染会话上下文。
// 取窗口内最近 window 条消息；如更早的历史里存在发起请求的用户消息，
// 额外在开头附带一条标注的原始请求。
func BuildConversationContext(history []HistoryMessage, window int) string {
	if len(history) == 0 {
		return "No previous messages"
	}
	if window <= 0 {
		window = 20
	}

	start := len(history) - window
	if start < 0 {
		start = 0
	}
	recent := history[start:]

	var lines []string

	// 在窗口外寻找最近的原始请求
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if !strings.EqualFold(msg.Role, "user") {
			continue
		}
		lower := strings.ToLower(msg.Content)
		matched := false
		for _, kw := range originalIntentKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if i < start {
			messagesAgo := len(history) - i
			lines = append(lines, fmt.Sprintf("user: %s (previous request - %d messages ago, for context only)", msg.Content, messagesAgo))
			lines = append(lines, "...")
		}
		break
	}

	for _, msg := range recent {
		if msg.PendingConfirmation {
			lines = append(lines, fmt.Sprintf("%s: %s [PENDING CONFIRMATION: %s]", msg.Role, msg.Content, msg.IntentStatement))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
		}
	}

	return strings.Join(lines, "\n")
}
