package prompt

import (
	"fmt"
	"strings"
)

// Block 提示词的一个段落，priority 越小越靠前。
type Block struct {
	Title    string
	Body     string
	Priority int
}

func (b Block) Render() string {
	if b.Title == "" {
		return strings.TrimSpace(b.Body)
	}
	return strings.TrimSpace(b.Title + ":\n" + b.Body)
}

// Bullets 渲染为无序列表
func Bullets(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// Numbered 渲染为有序列表
func Numbered(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}
