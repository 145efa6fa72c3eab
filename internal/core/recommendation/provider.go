package recommendation

import (
	"context"

	"nutrition-advisor/internal/core/ai/provider"
	"nutrition-advisor/internal/core/nutrition"
)

// Source 建議的產生來源
type Source string

const (
	SourceLLM   Source = "llm"
	SourceRules Source = "rules"
)

// Provider 產生建議文字的策略
type Provider interface {
	Source() Source
	Recommend(ctx context.Context, user nutrition.UserProfile, product nutrition.ProductRecord) (string, error)
}

// ReferenceLookup 取得添加物參考資料
type ReferenceLookup interface {
	Lookup(ctx context.Context, additives []string) string
}

// LLMProvider 透過聊天補全模型產生建議
type LLMProvider struct {
	client      provider.ChatCompleter
	reference   ReferenceLookup
	maxTokens   int
	temperature float64
}

// NewLLMProvider 創建 LLM 策略，reference 可為 nil
func NewLLMProvider(client provider.ChatCompleter, reference ReferenceLookup, maxTokens int, temperature float64) *LLMProvider {
	return &LLMProvider{
		client:      client,
		reference:   reference,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Source 返回 llm
func (p *LLMProvider) Source() Source { return SourceLLM }

// Recommend 組 prompt 並呼叫模型，返回模型原文
func (p *LLMProvider) Recommend(ctx context.Context, user nutrition.UserProfile, product nutrition.ProductRecord) (string, error) {
	var reference string
	if p.reference != nil && len(product.Additives) > 0 {
		reference = p.reference.Lookup(ctx, product.Additives)
	}

	resp, err := p.client.Complete(ctx, &provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: nutrition.BuildPrompt(user, product, reference)},
			{Role: provider.RoleUser, Content: nutrition.TaskInstruction},
		},
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// RuleProvider 以固定規則產生建議，永遠成功
type RuleProvider struct{}

// Source 返回 rules
func (RuleProvider) Source() Source { return SourceRules }

// Recommend 套用規則引擎
func (RuleProvider) Recommend(_ context.Context, user nutrition.UserProfile, product nutrition.ProductRecord) (string, error) {
	return nutrition.EvaluateRules(user, product).Text, nil
}
