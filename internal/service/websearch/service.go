package websearch

import (
	"context"

	"github.com/docpilot/backend/config"
	"github.com/docpilot/backend/internal/pkg/llm"
	"github.com/docpilot/backend/internal/pkg/search"
	"k8s.io/klog/v2"
)

// Options 编排行为开关
type Options struct {
	RetryEnabled     bool
	MaxRetries       int
	EvaluateResults  bool
	SummarizeResults bool
	MinQualityScore  float64
	MinResultLength  int
}

func OptionsFromConfig(cfg *config.AgentConfig) Options {
	return Options{
		RetryEnabled:     cfg.SearchRetryEnabled,
		MaxRetries:       cfg.SearchMaxRetries,
		EvaluateResults:  cfg.SearchEvaluateResults,
		SummarizeResults: cfg.SearchSummarizeResults,
		MinQualityScore:  cfg.SearchMinQualityScore,
		MinResultLength:  cfg.SearchMinResultLength,
	}
}

// Service 搜索编排服务。搜索客户端失败降级为空结果，从不向上抛错。
type Service struct {
	client     search.Client
	evaluator  *Evaluator
	summarizer *Summarizer
	queryGen   *QueryGenerator
	retry      RetryStrategy
	opts       Options
}

func NewService(client search.Client, completer llm.Completer, cfg *config.AgentConfig) *Service {
	opts := OptionsFromConfig(cfg)
	if opts.MinResultLength <= 0 {
		opts.MinResultLength = 100
	}
	return &Service{
		client:     client,
		evaluator:  NewEvaluator(completer, cfg.EvaluationTemperature),
		summarizer: NewSummarizer(completer, cfg.SummarizationTemperature),
		queryGen:   NewQueryGenerator(completer, cfg.DecisionTemperature),
		retry:      RetryStrategy{MinQualityScore: opts.MinQualityScore, MinResultLength: opts.MinResultLength},
		opts:       opts,
	}
}

func (s *Service) search(ctx context.Context, query string) string {
	hits, err := s.client.Search(ctx, query)
	if err != nil {
		klog.Warningf("搜索失败，降级为空结果: query=%s err=%v", query, err)
		return ""
	}
	return search.FormatResults(hits)
}

func (s *Service) runAttempt(ctx context.Context, query, userMessage, extraContext string, number int, retryReason string) Attempt {
	results := s.search(ctx, query)

	attempt := Attempt{
		Query:         query,
		Results:       results,
		AttemptNumber: number,
		RetryReason:   retryReason,
	}
	if s.opts.SummarizeResults {
		attempt.Summary = s.summarizer.Summarize(ctx, results)
	}
	if s.opts.EvaluateResults {
		attempt.QualityScore = s.evaluator.Evaluate(ctx, results, query, userMessage, extraContext)
	}
	return attempt
}

// SearchWithRetry 执行搜索，不满足质量要求时最多重试 MaxRetries 次。
// 质量首次达标立即停止；替代查询生成失败也会停止。
func (s *Service) SearchWithRetry(ctx context.Context, initialQuery, userMessage, extraContext string) *Result {
	result := &Result{}

	attempt := s.runAttempt(ctx, initialQuery, userMessage, extraContext, 1, "")
	result.AddAttempt(attempt)
	klog.V(6).Infof("搜索第 1 次: query=%s, quality=%v", initialQuery, attempt.QualityScore)

	if !s.opts.RetryEnabled {
		return result
	}
	if !s.retry.ShouldRetry(attempt, s.opts.EvaluateResults) {
		return result
	}

	previous := attempt
	for retryNum := 1; retryNum <= s.opts.MaxRetries; retryNum++ {
		alternative := s.queryGen.GenerateAlternative(ctx, initialQuery, userMessage, result.Attempts, extraContext)
		if alternative == "" {
			klog.Warningf("无法生成替代查询，停止重试: retry=%d", retryNum)
			break
		}

		retryAttempt := s.runAttempt(ctx, alternative, userMessage, extraContext, retryNum+1, s.retry.RetryReason(previous))
		result.AddAttempt(retryAttempt)
		klog.V(6).Infof("搜索重试 %d: query=%s, quality=%v, reason=%s",
			retryNum, alternative, retryAttempt.QualityScore, retryAttempt.RetryReason)

		if retryAttempt.QualityScore != nil && *retryAttempt.QualityScore >= s.opts.MinQualityScore {
			break
		}
		previous = retryAttempt
	}

	return result
}
