package utils

import (
	"encoding/json"
	"strings"

	"k8s.io/klog/v2"
)

// ExtractJSON 从文本中提取第一个完整的 JSON 对象
func ExtractJSON(content string) string {
	start := -1
	end := -1
	depth := 0

	for i, ch := range content {
		if ch == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == '}' {
			depth--
			if depth == 0 && start != -1 {
				end = i + 1
				break
			}
		}
	}

	if start >= 0 && end > start {
		return content[start:end]
	}

	return content
}

func ToJSON(v any) string {
	jsonData, err := json.Marshal(v)
	if err != nil {
		klog.Errorf("JSON序列化失败: %v", err)
		return ""
	}
	return string(jsonData)
}

// ExtractMarkdown 剥离包裹整个回复的 ```markdown 代码块。
// 没有外层代码块时原样返回。
func ExtractMarkdown(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return content
	}

	rest := trimmed[3:]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		lang := strings.TrimSpace(rest[:idx])
		if lang != "" && !strings.EqualFold(lang, "markdown") && !strings.EqualFold(lang, "md") {
			return content
		}
		rest = rest[idx+1:]
	} else {
		return content
	}

	closing := strings.LastIndex(rest, "```")
	if closing < 0 {
		return content
	}
	klog.V(6).Infof("[ExtractMarkdown] 提取到 Markdown 代码块")
	return rest[:closing]
}
