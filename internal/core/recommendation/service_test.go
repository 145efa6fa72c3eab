package recommendation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"nutrition-advisor/internal/core/ai/provider"
	"nutrition-advisor/internal/core/nutrition"
	"nutrition-advisor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu       sync.Mutex
	calls    int
	requests []*provider.Request
	content  string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, req *provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.content}, nil
}

func (f *fakeCompleter) Model() string { return "fake-model" }

type fakeReference struct {
	got []string
}

func (f *fakeReference) Lookup(_ context.Context, additives []string) string {
	f.got = additives
	return "E150D: Sulphite ammonia caramel"
}

func peanutRequest() *nutrition.Request {
	return &nutrition.Request{
		User: nutrition.UserProfile{UserID: "u1", Allergies: []string{"peanuts"}, PreferredLanguage: "french"},
		Product: nutrition.ProductRecord{
			Name:        "Snack",
			Ingredients: []string{"sugar", "peanuts"},
			Additives:   []string{"E150d"},
			NutriScore:  "E",
		},
	}
}

func TestRecommendWithoutClientUsesRules(t *testing.T) {
	svc := NewService(nil, nil, 500, 0.3)
	assert.False(t, svc.Available())
	assert.Empty(t, svc.Model())

	res, err := svc.Recommend(context.Background(), peanutRequest())
	require.NoError(t, err)

	assert.Equal(t, nutrition.Avoid, res.Verdict.Type)
	assert.Equal(t, SourceRules, res.Source)
	assert.Equal(t, FallbackUnconfigured, res.FallbackReason)
	assert.NotContains(t, res.Verdict.Text, "è")
}

func TestRecommendUsesLLM(t *testing.T) {
	client := &fakeCompleter{content: "⚠️ Consume with caution - high sugar content."}
	ref := &fakeReference{}
	svc := NewService(client, ref, 500, 0.3)
	require.True(t, svc.Available())
	assert.Equal(t, "fake-model", svc.Model())

	req := peanutRequest()
	req.User.Allergies = nil
	res, err := svc.Recommend(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, nutrition.Caution, res.Verdict.Type)
	assert.Equal(t, SourceLLM, res.Source)
	assert.Empty(t, res.FallbackReason)

	require.Equal(t, 1, client.calls)
	sent := client.requests[0]
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, provider.RoleSystem, sent.Messages[0].Role)
	assert.Contains(t, sent.Messages[0].Content, "E150D: Sulphite ammonia caramel")
	assert.Equal(t, nutrition.TaskInstruction, sent.Messages[1].Content)
	assert.Equal(t, 500, sent.MaxTokens)
	assert.Equal(t, []string{"E150d"}, ref.got)
}

func TestRecommendFallsBackOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeCompleter
		reason string
	}{
		{name: "provider error", client: &fakeCompleter{err: errors.New("connection refused")}, reason: FallbackError},
		{name: "timeout", client: &fakeCompleter{err: common.Wrap(common.ErrGatewayTimeout, "", nil)}, reason: FallbackTimeout},
		{name: "empty text", client: &fakeCompleter{content: "   "}, reason: FallbackEmpty},
		{name: "null text", client: &fakeCompleter{content: "null"}, reason: FallbackEmpty},
		{name: "undefined text", client: &fakeCompleter{content: " undefined "}, reason: FallbackEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.client, nil, 500, 0.3)
			res, err := svc.Recommend(context.Background(), peanutRequest())
			require.NoError(t, err)

			assert.Equal(t, 1, tt.client.calls)
			assert.Equal(t, SourceRules, res.Source)
			assert.Equal(t, tt.reason, res.FallbackReason)
			assert.Equal(t, nutrition.Avoid, res.Verdict.Type)
		})
	}
}

func TestRecommendClassifiesUnmarkedText(t *testing.T) {
	svc := NewService(&fakeCompleter{content: "This product is probably fine."}, nil, 500, 0.3)
	res, err := svc.Recommend(context.Background(), peanutRequest())
	require.NoError(t, err)
	assert.Equal(t, nutrition.Caution, res.Verdict.Type)
	assert.Equal(t, "This product is probably fine.", res.Verdict.Text)
}

func TestRecommendNilRequest(t *testing.T) {
	_, err := NewService(nil, nil, 500, 0.3).Recommend(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrRecommendation)
}
