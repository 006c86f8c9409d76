package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/pkg/search"
)

type fakeSearchClient struct {
	calls   int
	results map[string][]search.Result
	err     error
}

func (f *fakeSearchClient) Search(ctx context.Context, query string) ([]search.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

// routingCompleter 按提示词前缀分流到评估、摘要或改写查询。
type routingCompleter struct {
	scores    []string
	scoreIdx  int
	queries   []string
	queryIdx  int
	evalCalls int
}

func (r *routingCompleter) Complete(ctx context.Context, msgs []llm.ChatMessage, opts llm.Options) (string, error) {
	prompt := msgs[len(msgs)-1].Content
	switch {
	case strings.HasPrefix(prompt, "Evaluate the quality"):
		r.evalCalls++
		if r.scoreIdx >= len(r.scores) {
			return "", errors.New("no more scores scripted")
		}
		s := r.scores[r.scoreIdx]
		r.scoreIdx++
		return s, nil
	case strings.HasPrefix(prompt, "Summarize these"):
		return "summary of results", nil
	case strings.HasPrefix(prompt, "Generate an alternative"):
		if r.queryIdx >= len(r.queries) {
			return "", errors.New("no more queries scripted")
		}
		q := r.queries[r.queryIdx]
		r.queryIdx++
		return q, nil
	}
	return "", fmt.Errorf("unexpected prompt: %.40s", prompt)
}

func longResult(title, content string) search.Result {
	return search.Result{Title: title, URL: "https://example.com/" + title, Content: strings.Repeat(content+" ", 30)}
}

func newTestService(client search.Client, completer llm.Completer, opts Options) *Service {
	return &Service{
		client:     client,
		evaluator:  NewEvaluator(completer, 0.3),
		summarizer: NewSummarizer(completer, 0.5),
		queryGen:   NewQueryGenerator(completer, 0.5),
		retry:      RetryStrategy{MinQualityScore: opts.MinQualityScore, MinResultLength: opts.MinResultLength},
		opts:       opts,
	}
}

func defaultOptions() Options {
	return Options{
		RetryEnabled:     true,
		MaxRetries:       2,
		EvaluateResults:  true,
		SummarizeResults: false,
		MinQualityScore:  0.6,
		MinResultLength:  100,
	}
}

func TestSearchWithRetryStopsOnQualityImprovement(t *testing.T) {
	client := &fakeSearchClient{results: map[string][]search.Result{
		"go generics":          {longResult("old-post", "generic generics info")},
		"go generics tutorial": {longResult("deep-dive", "a thorough generics walkthrough")},
	}}
	completer := &routingCompleter{
		scores:  []string{"0.3", "0.8"},
		queries: []string{"go generics tutorial"},
	}
	svc := newTestService(client, completer, defaultOptions())

	result := svc.SearchWithRetry(context.Background(), "go generics", "explain go generics", "")

	if len(result.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(result.Attempts))
	}
	if !result.WasRetried() {
		t.Fatal("expected WasRetried to be true")
	}
	if result.Attempts[0].AttemptNumber != 1 || result.Attempts[1].AttemptNumber != 2 {
		t.Fatalf("unexpected attempt numbering: %d, %d",
			result.Attempts[0].AttemptNumber, result.Attempts[1].AttemptNumber)
	}
	if result.Attempts[1].RetryReason != "Initial results were too generic or irrelevant" {
		t.Fatalf("unexpected retry reason: %q", result.Attempts[1].RetryReason)
	}
	best := result.BestResults()
	if !strings.Contains(best, "deep-dive") {
		t.Fatalf("BestResults should come from the higher-scored attempt, got: %.80s", best)
	}
}

func TestSearchWithRetryBoundedByMaxRetries(t *testing.T) {
	client := &fakeSearchClient{results: map[string][]search.Result{
		"q0": {longResult("a", "thin content")},
		"q1": {longResult("b", "still thin")},
		"q2": {longResult("c", "no better")},
	}}
	completer := &routingCompleter{
		scores:  []string{"0.1", "0.1", "0.1"},
		queries: []string{"q1", "q2", "q3"},
	}
	svc := newTestService(client, completer, defaultOptions())

	result := svc.SearchWithRetry(context.Background(), "q0", "anything", "")

	if got, max := len(result.Attempts), 1+svc.opts.MaxRetries; got != max {
		t.Fatalf("expected exactly %d attempts, got %d", max, got)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 search calls, got %d", client.calls)
	}
	// 同分时保留最早一次
	if !strings.Contains(result.BestResults(), "a") {
		t.Fatalf("unexpected best results: %.80s", result.BestResults())
	}
}

func TestSearchClientFailureDegradesToEmptyResults(t *testing.T) {
	client := &fakeSearchClient{err: errors.New("connection refused")}
	completer := &routingCompleter{queries: []string{"alt1", "alt2"}}
	svc := newTestService(client, completer, defaultOptions())

	result := svc.SearchWithRetry(context.Background(), "q", "msg", "")

	first := result.Attempts[0]
	if first.Results != "" {
		t.Fatalf("expected empty results on client failure, got %q", first.Results)
	}
	if first.QualityScore == nil || *first.QualityScore != 0.0 {
		t.Fatalf("expected quality 0.0 for empty results, got %v", first.QualityScore)
	}
	// 空结果不足 50 字符，评估不应调用 LLM
	if completer.evalCalls != 0 {
		t.Fatalf("expected no evaluation LLM calls, got %d", completer.evalCalls)
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("expected retries to proceed after degradation, got %d attempts", len(result.Attempts))
	}
}

func TestSearchWithRetryDisabled(t *testing.T) {
	client := &fakeSearchClient{results: map[string][]search.Result{
		"q": {longResult("only", "short")},
	}}
	completer := &routingCompleter{scores: []string{"0.1"}}
	opts := defaultOptions()
	opts.RetryEnabled = false
	svc := newTestService(client, completer, opts)

	result := svc.SearchWithRetry(context.Background(), "q", "msg", "")

	if len(result.Attempts) != 1 {
		t.Fatalf("expected a single attempt with retry disabled, got %d", len(result.Attempts))
	}
}

func TestSearchWithEvaluationDisabled(t *testing.T) {
	client := &fakeSearchClient{results: map[string][]search.Result{
		"q": {longResult("only", "short")},
	}}
	completer := &routingCompleter{}
	opts := defaultOptions()
	opts.EvaluateResults = false
	svc := newTestService(client, completer, opts)

	result := svc.SearchWithRetry(context.Background(), "q", "msg", "")

	if len(result.Attempts) != 1 {
		t.Fatalf("expected no retries without evaluation, got %d attempts", len(result.Attempts))
	}
	if result.Attempts[0].QualityScore != nil {
		t.Fatalf("expected nil quality score, got %v", *result.Attempts[0].QualityScore)
	}
	if completer.evalCalls != 0 {
		t.Fatalf("expected no evaluation calls, got %d", completer.evalCalls)
	}
}

func TestSearchWithRetryStopsWhenQueryGenerationFails(t *testing.T) {
	client := &fakeSearchClient{results: map[string][]search.Result{
		"q": {longResult("only", "thin")},
	}}
	completer := &routingCompleter{scores: []string{"0.2"}}
	svc := newTestService(client, completer, defaultOptions())

	result := svc.SearchWithRetry(context.Background(), "q", "msg", "")

	if len(result.Attempts) != 1 {
		t.Fatalf("expected loop to stop when no alternative query, got %d attempts", len(result.Attempts))
	}
}
