package provider

import (
	"context"
	"time"
)

// 對話角色
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message 表示與 AI 模型的對話消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 表示發送到 AI 提供者的請求
type Request struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Usage token 使用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 表示從 AI 提供者收到的響應
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// ChatCompleter 定義聊天補全供應商介面
type ChatCompleter interface {
	// Complete 發送一次對話並取得第一個回覆
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Model 當前使用的模型名稱
	Model() string
}

// Config 定義 AI 提供者配置
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	Timeout          time.Duration
	MaxResponseChars int
}
