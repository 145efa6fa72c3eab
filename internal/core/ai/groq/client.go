package groq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"nutrition-advisor/internal/core/ai/provider"
	"nutrition-advisor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL Groq 的 OpenAI 相容端點
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Client Groq 聊天補全客戶端
type Client struct {
	client           *resty.Client
	model            string
	maxResponseChars int
}

type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float64            `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message provider.Message `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient 創建 Groq 客戶端，金鑰為空時返回錯誤
func NewClient(cfg provider.Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, common.Wrap(common.ErrProviderUnavailable, "LLM API key is not configured", nil)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		client:           client,
		model:            cfg.Model,
		maxResponseChars: cfg.MaxResponseChars,
	}, nil
}

// Model 返回模型名稱
func (c *Client) Model() string {
	return c.model
}

// Complete 發送聊天補全請求
func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	start := time.Now()
	resp, err := c.complete(ctx, req)
	common.LogAICall(c.model, time.Since(start), err)
	return resp, err
}

func (c *Client) complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		if isTimeout(err) {
			return nil, common.Wrap(common.ErrGatewayTimeout, "LLM request timed out", err)
		}
		return nil, common.Wrap(common.ErrServiceUnavailable, "failed to send request to LLM", err)
	}

	if resp.StatusCode() != http.StatusOK {
		msg := resp.Status()
		var apiErr apiError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		common.LogWarn("LLM API returned error",
			zap.Int("status", resp.StatusCode()),
			zap.String("message", msg),
		)
		return nil, common.Wrap(common.ErrServiceUnavailable, fmt.Sprintf("LLM API returned status %d", resp.StatusCode()), fmt.Errorf("%s", msg))
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, common.Wrap(common.ErrServiceUnavailable, "failed to parse LLM response", err)
	}
	if len(result.Choices) == 0 {
		return nil, common.Wrap(common.ErrServiceUnavailable, "no choices in LLM response", nil)
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return nil, common.Wrap(common.ErrServiceUnavailable, "empty LLM response", nil)
	}

	return &provider.Response{
		Content: truncateRunes(content, c.maxResponseChars),
		Usage:   result.Usage,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// truncateRunes 依字元數截斷，limit <= 0 時不截斷
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
