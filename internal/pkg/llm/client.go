package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docpilot/backend/config"
	"golang.org/x/sync/semaphore"
	"k8s.io/klog/v2"
)

// Options 单次请求的可调项
type Options struct {
	Temperature float64
	JSONMode    bool
}

// Completer 单轮补全接口，供各服务注入与测试替换
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, opts Options) (string, error)
}

// Client LLM 客户端。所有出站请求共用一个并发信号量，
// 超出上限的调用在 Acquire 处排队而不是失败。
type Client struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client

	sem *semaphore.Weighted
}

// NewClient 创建新的 LLM 客户端
func NewClient(cfg *config.Config) *Client {
	maxConcurrent := cfg.LLM.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &Client{
		BaseURL:   cfg.LLM.APIURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Client: &http.Client{
			Timeout: 5 * time.Minute,
		},
		sem: semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Complete 发送单轮对话请求并返回首个候选的文本
func (c *Client) Complete(ctx context.Context, messages []ChatMessage, opts Options) (string, error) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("acquire llm slot: %w", err)
		}
		defer c.sem.Release(1)
	}

	klog.V(6).Infof("LLM 请求: model=%s, messages=%d, temperature=%.2f, json=%v",
		c.Model, len(messages), opts.Temperature, opts.JSONMode)

	reqBody := ChatRequest{
		Model:       c.Model,
		Messages:    messages,
		MaxTokens:   c.MaxTokens,
		Temperature: opts.Temperature,
	}
	if opts.JSONMode {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	resp, err := c.sendRequest(ctx, reqBody)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}
	return resp.Choices[0].Message.Content, nil
}

// sendRequest 发送 HTTP 请求到 LLM API
func (c *Client) sendRequest(ctx context.Context, reqBody ChatRequest) (*ChatResponse, error) {
	url := c.BaseURL + "/chat/completions"
	klog.V(6).Infof("发送 LLM 请求: url=%s, model=%s", url, reqBody.Model)

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	return &chatResp, nil
}
