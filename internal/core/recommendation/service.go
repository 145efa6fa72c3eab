package recommendation

import (
	"context"
	"errors"

	"nutrition-advisor/internal/core/ai/provider"
	"nutrition-advisor/internal/core/metrics"
	"nutrition-advisor/internal/core/nutrition"
	"nutrition-advisor/internal/pkg/common"

	"go.uber.org/zap"
)

// 改用規則引擎的原因
const (
	FallbackUnconfigured = "unconfigured"
	FallbackTimeout      = "timeout"
	FallbackError        = "error"
	FallbackEmpty        = "empty_response"
)

// Result 一次建議的結果
type Result struct {
	Verdict        nutrition.Verdict
	Source         Source
	FallbackReason string
}

// Service 建議服務：模型可用時走 LLM，否則或失敗時走規則引擎
type Service struct {
	llm   *LLMProvider
	model string
	rules RuleProvider
}

// NewService 創建建議服務，client 為 nil 代表未設定模型
func NewService(client provider.ChatCompleter, reference ReferenceLookup, maxTokens int, temperature float64) *Service {
	s := &Service{}
	if client != nil {
		s.llm = NewLLMProvider(client, reference, maxTokens, temperature)
		s.model = client.Model()
	}
	return s
}

// Available 模型客戶端是否已設定
func (s *Service) Available() bool {
	return s.llm != nil
}

// Model 使用中的模型名稱，未設定時為空字串
func (s *Service) Model() string {
	return s.model
}

// Recommend 產生建議並分類
func (s *Service) Recommend(ctx context.Context, req *nutrition.Request) (Result, error) {
	if req == nil {
		return Result{}, common.Wrap(common.ErrRecommendation, "", errors.New("nil request"))
	}

	text, source, reason := s.generate(ctx, req)

	verdict := nutrition.BuildVerdict(text)
	if verdict.Text == "" {
		return Result{}, common.Wrap(common.ErrRecommendation, "", errors.New("empty recommendation text"))
	}

	metrics.RecommendationsTotal.WithLabelValues(string(verdict.Type), string(source)).Inc()
	common.LogInfo("Recommendation generated",
		zap.String("user_id", req.User.UserID),
		zap.String("barcode", req.Product.Barcode),
		zap.String("type", string(verdict.Type)),
		zap.String("source", string(source)),
	)

	return Result{
		Verdict:        verdict,
		Source:         source,
		FallbackReason: reason,
	}, nil
}

func (s *Service) generate(ctx context.Context, req *nutrition.Request) (string, Source, string) {
	if !s.Available() {
		return s.fallback(ctx, req, FallbackUnconfigured)
	}

	text, err := s.llm.Recommend(ctx, req.User, req.Product)
	if err != nil {
		reason := FallbackError
		if errors.Is(err, common.ErrGatewayTimeout) || errors.Is(err, context.DeadlineExceeded) {
			reason = FallbackTimeout
		}
		common.LogWarn("LLM recommendation failed, using rule engine",
			zap.String("reason", reason),
			zap.Error(err),
		)
		return s.fallback(ctx, req, reason)
	}
	if common.NormalizeText(text) == "" {
		common.LogWarn("LLM returned empty recommendation, using rule engine")
		return s.fallback(ctx, req, FallbackEmpty)
	}
	return text, SourceLLM, ""
}

func (s *Service) fallback(ctx context.Context, req *nutrition.Request, reason string) (string, Source, string) {
	metrics.ProviderFallbacksTotal.WithLabelValues(reason).Inc()
	text, _ := s.rules.Recommend(ctx, req.User, req.Product)
	return text, SourceRules, reason
}
