package websearch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docpilot/backend/internal/pkg/llm"
	"k8s.io/klog/v2"
)

// Evaluator 用 LLM 给搜索结果打分
type Evaluator struct {
	llm         llm.Completer
	temperature float64
}

func NewEvaluator(completer llm.Completer, temperature float64) *Evaluator {
	return &Evaluator{llm: completer, temperature: temperature}
}

// Evaluate 返回 0.0-1.0 的质量分；评估失败返回 nil。
func (e *Evaluator) Evaluate(ctx context.Context, results, query, userMessage, extraContext string) *float64 {
	if len(strings.TrimSpace(results)) < 50 {
		zero := 0.0
		return &zero
	}

	contextLine := ""
	if extraContext != "" {
		contextLine = "Context: " + extraContext + "\n"
	}
	prompt := fmt.Sprintf(`Evaluate the quality of these web search results.

Search Query: %q
User Request: %q
%s
Search Results:
%s

Rate the quality on a scale of 0.0 to 1.0 where:
- 1.0 = Results are highly relevant, comprehensive, and directly answer the user's request
- 0.7-0.9 = Results are relevant but may be missing some details or slightly off-topic
- 0.4-0.6 = Results are somewhat relevant but generic or missing key information
- 0.0-0.3 = Results are irrelevant, too generic, or don't address the request

Respond with ONLY a number between 0.0 and 1.0 (e.g., 0.75).`,
		query, userMessage, contextLine, truncate(results, 2000))

	response, err := e.llm.Complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: "You are a quality evaluator. Respond with only a number."},
		{Role: "user", Content: prompt},
	}, llm.Options{Temperature: e.temperature})
	if err != nil {
		klog.Warningf("搜索结果评估失败: %v", err)
		return nil
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(response), 64)
	if err != nil {
		klog.Warningf("搜索结果评分解析失败: %q", response)
		return nil
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return &score
}

// Summarizer 把搜索结果压成两三句摘要
type Summarizer struct {
	llm         llm.Completer
	temperature float64
}

func NewSummarizer(completer llm.Completer, temperature float64) *Summarizer {
	return &Summarizer{llm: completer, temperature: temperature}
}

// Summarize 摘要失败时返回空串
func (s *Summarizer) Summarize(ctx context.Context, results string) string {
	if len(strings.TrimSpace(results)) < 50 {
		return "No significant results found."
	}

	prompt := fmt.Sprintf(`Summarize these web search results in 2-3 sentences.
Focus on the most relevant and useful information.

Search Results:
%s

Provide a concise summary that highlights key findings.`, truncate(results, 2000))

	response, err := s.llm.Complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: "You are a summarizer. Provide concise summaries."},
		{Role: "user", Content: prompt},
	}, llm.Options{Temperature: s.temperature})
	if err != nil {
		klog.Warningf("搜索结果摘要失败: %v", err)
		return ""
	}
	return strings.TrimSpace(response)
}

// QueryGenerator 基于历次尝试生成替代查询
type QueryGenerator struct {
	llm         llm.Completer
	temperature float64
}

func NewQueryGenerator(completer llm.Completer, temperature float64) *QueryGenerator {
	return &QueryGenerator{llm: completer, temperature: temperature}
}

// GenerateAlternative 携带全部历史尝试的查询、摘要与评分，避免重复走失败的查询。
// 生成失败时返回空串。
func (g *QueryGenerator) GenerateAlternative(ctx context.Context, originalQuery, userMessage string, previousAttempts []Attempt, extraContext string) string {
	var attemptsContext strings.Builder
	for _, a := range previousAttempts {
		fmt.Fprintf(&attemptsContext, "Query: %s\n", a.Query)
		if a.Summary != "" {
			fmt.Fprintf(&attemptsContext, "Results: %s\n", a.Summary)
		}
		if a.QualityScore != nil {
			fmt.Fprintf(&attemptsContext, "Quality: %.2f\n", *a.QualityScore)
		}
		attemptsContext.WriteString("\n")
	}

	contextLine := ""
	if extraContext != "" {
		contextLine = "Context: " + extraContext + "\n"
	}
	prompt := fmt.Sprintf(`Generate an alternative, more specific search query based on the user's request and previous search attempts.

User Request: %q
%s
Previous Search Attempts:
%s
Original Query: %q

Generate a NEW, DIFFERENT search query that:
1. Is more specific than the original
2. Addresses gaps in previous results
3. Uses different keywords or phrasing
4. Better matches the user's intent

Respond with ONLY the search query (no explanations, no quotes).`,
		userMessage, contextLine, attemptsContext.String(), originalQuery)

	response, err := g.llm.Complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: "You are a search query optimizer. Respond with only the query."},
		{Role: "user", Content: prompt},
	}, llm.Options{Temperature: g.temperature})
	if err != nil {
		klog.Warningf("替代查询生成失败: %v", err)
		return ""
	}
	return strings.Trim(strings.TrimSpace(response), `"'`)
}

// RetryStrategy 重试判定
type RetryStrategy struct {
	MinQualityScore float64
	MinResultLength int
}

func (r RetryStrategy) ShouldRetry(attempt Attempt, evaluationEnabled bool) bool {
	if !evaluationEnabled {
		return false
	}
	if attempt.QualityScore == nil {
		return false
	}
	if *attempt.QualityScore < r.MinQualityScore {
		return true
	}
	if len(strings.TrimSpace(attempt.Results)) < r.MinResultLength {
		return true
	}
	return false
}

func (r RetryStrategy) RetryReason(previous Attempt) string {
	if previous.QualityScore == nil {
		return "Initial results were insufficient or could not be evaluated"
	}
	switch {
	case *previous.QualityScore < 0.4:
		return "Initial results were too generic or irrelevant"
	case *previous.QualityScore < 0.6:
		return "Initial results were missing key information"
	default:
		return "Initial results needed more specific information"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
