// Package websearch 带重试与质量评估的网页搜索编排。
package websearch

// Attempt 一次搜索尝试及其评估
type Attempt struct {
	Query         string   `json:"query"`
	Results       string   `json:"results"`
	AttemptNumber int      `json:"attempt"`
	Summary       string   `json:"summary,omitempty"`
	QualityScore  *float64 `json:"quality_score,omitempty"`
	RetryReason   string   `json:"retry_reason,omitempty"`
}

// Result 一次请求内的全部搜索尝试。只追加，不回改。
type Result struct {
	Attempts     []Attempt `json:"attempts"`
	FinalResults string    `json:"final_results"`
}

func (r *Result) AddAttempt(a Attempt) {
	r.Attempts = append(r.Attempts, a)
	r.FinalResults = a.Results
}

// BestResults 返回质量最高的一次结果；没有任何评分时返回最后一次。
func (r *Result) BestResults() string {
	if len(r.Attempts) == 0 {
		return ""
	}
	var best *Attempt
	for i := range r.Attempts {
		a := &r.Attempts[i]
		if a.QualityScore == nil {
			continue
		}
		if best == nil || *a.QualityScore > *best.QualityScore {
			best = a
		}
	}
	if best != nil {
		return best.Results
	}
	return r.FinalResults
}

func (r *Result) WasRetried() bool {
	return len(r.Attempts) > 1
}
