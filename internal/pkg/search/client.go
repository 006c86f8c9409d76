package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docpilot/backend/config"
	"k8s.io/klog/v2"
)

// Result 单条搜索结果
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Client 网页搜索接口
type Client interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// HTTPClient Tavily 兼容的搜索客户端
type HTTPClient struct {
	APIURL     string
	APIKey     string
	MaxResults int
	Client     *http.Client
}

func NewHTTPClient(cfg *config.Config) *HTTPClient {
	maxResults := cfg.Search.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &HTTPClient{
		APIURL:     cfg.Search.APIURL,
		APIKey:     cfg.Search.APIKey,
		MaxResults: maxResults,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

func (c *HTTPClient) Search(ctx context.Context, query string) ([]Result, error) {
	klog.V(6).Infof("搜索请求: query=%s", query)

	jsonData, err := json.Marshal(searchRequest{
		APIKey:     c.APIKey,
		Query:      query,
		MaxResults: c.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.APIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(body))
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return searchResp.Results, nil
}

// FormatResults 把结果渲染为可直接注入提示词的文本记录
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Title: %s\nURL: %s\nContent: %s\n", r.Title, r.URL, r.Content)
	}
	return sb.String()
}
