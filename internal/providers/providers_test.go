package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veracity/internal/config"
	"veracity/internal/costtracker"
	"veracity/pkg/classifier"
)

// --- Mock OpenAI Client ---
type mockOpenAIClient struct {
	mockResponse openai.ChatCompletionResponse
	mockError    error
	lastRequest  openai.ChatCompletionRequest
}

func (m *mockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.lastRequest = req
	if m.mockError != nil {
		return openai.ChatCompletionResponse{}, m.mockError
	}
	return m.mockResponse, nil
}

func chatResponse(content string, in, out int) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
		Usage:   openai.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}
}

// --- Recording cost tracker ---
type recordingTracker struct {
	events []costtracker.CostEvent
}

func (r *recordingTracker) RecordCost(ctx context.Context, event costtracker.CostEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingTracker) TotalCost(ctx context.Context) (float64, error) {
	var total float64
	for _, e := range r.events {
		total += e.AmountUSD
	}
	return total, nil
}

// --- Fake generator for Gemini ---
type fakeGenerator struct {
	gen    Generation
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (Generation, error) {
	f.prompt = prompt
	return f.gen, f.err
}

type fakeScorer struct {
	scores map[string]float64
	err    error
}

func (f *fakeScorer) Score(ctx context.Context, text string, attributes []string) (map[string]float64, error) {
	return f.scores, f.err
}

func TestCall_SetsSourceAndNormalizes(t *testing.T) {
	p := &Static{ProviderName: "gemini", Result: classifier.Result{Category: "nonsense", Confidence: 1.7}}

	out := Call(context.Background(), p, "text", time.Second)

	require.False(t, out.Failed())
	require.NotNil(t, out.Result)
	assert.Equal(t, "gemini", out.Provider)
	assert.Equal(t, "gemini", out.Result.Source)
	assert.Equal(t, classifier.CategoryOther, out.Result.Category)
	assert.Equal(t, 1.0, out.Result.Confidence)
	assert.NotNil(t, out.Result.Keywords)
}

func TestCall_ErrorReasons(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		ctx    context.Context
		p      Provider
		reason string
	}{
		{"timeout", context.Background(), &Static{ProviderName: "slow", Delay: time.Second}, ReasonTimeout},
		{"cancelled", cancelled, &Static{ProviderName: "slow", Delay: time.Second}, ReasonCancelled},
		{"error", context.Background(), &Static{ProviderName: "bad", Err: errors.New("boom")}, ReasonError},
		{"not configured", context.Background(), &Static{ProviderName: "off", Err: ErrNotConfigured}, ReasonNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Call(tt.ctx, tt.p, "text", 20*time.Millisecond)
			require.True(t, out.Failed())
			assert.Nil(t, out.Result)
			assert.Equal(t, tt.reason, out.Err.Reason)
			assert.Equal(t, tt.p.Name(), out.Err.Provider)
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	pe := NewProviderError(context.Background(), "openai", fmt.Errorf("wrapped: %w", ErrNotConfigured))
	assert.True(t, errors.Is(pe, ErrNotConfigured))
	assert.Contains(t, pe.Error(), "openai")
}

func TestSet(t *testing.T) {
	a := &Static{ProviderName: "a"}
	b := &Static{ProviderName: "b"}
	s := NewSet(a, nil, b, &Static{ProviderName: "a"})

	assert.Equal(t, []string{"a", "b"}, s.Names())
	assert.Equal(t, 2, s.Len())
	got, ok := s.Get("b")
	require.True(t, ok)
	assert.Same(t, b, got)

	var empty *Set
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.All())
}

func TestParseVerdict(t *testing.T) {
	content := "Sure, here you go:\n```json\n{\"category\": \"Hate Speech\", \"confidence\": 0.8, \"sentiment\": {\"score\": -0.6, \"label\": \"NEGATIVE\"}, \"toxicity\": {\"score\": 0.7}, \"explanation\": \"slur\"}\n```"

	res, err := ParseVerdict(content)
	require.NoError(t, err)
	assert.Equal(t, classifier.CategoryHateSpeech, res.Category)
	assert.Equal(t, 0.8, res.Confidence)
	assert.Equal(t, classifier.SentimentNegative, res.Sentiment.Label)
	assert.Equal(t, 0.7, res.Toxicity.Score)
	assert.Equal(t, "slur", res.Explanation)

	_, err = ParseVerdict("no json here")
	assert.Error(t, err)

	_, err = ParseVerdict("{not json}")
	assert.Error(t, err)
}

func TestRenderPrompt(t *testing.T) {
	out := RenderPrompt(`Content: "{{TEXT}}"`, `say "hi"`)
	assert.Equal(t, `Content: "say \"hi\""`, out)
}

func TestMapLabels(t *testing.T) {
	assert.Equal(t, classifier.CategoryViolence, MapHuggingFaceLabel("threat"))
	assert.Equal(t, classifier.CategoryHateSpeech, MapHuggingFaceLabel("IDENTITY_HATE"))
	assert.Equal(t, classifier.CategoryOther, MapHuggingFaceLabel("non-toxic"))

	assert.Equal(t, classifier.CategoryScam, MapLLMCategory("scam"))
	assert.Equal(t, classifier.CategorySexualHarassment, MapLLMCategory("Sexual Harassment"))
	assert.Equal(t, classifier.CategoryFakeNews, MapLLMCategory("fake news"))
	assert.Equal(t, classifier.CategoryOther, MapLLMCategory("spam-ish"))
}

func TestOpenAI_Classify(t *testing.T) {
	mockClient := &mockOpenAIClient{
		mockResponse: chatResponse(`{"category": "scam", "confidence": 0.9, "sentiment": {"score": 0, "label": "neutral"}, "toxicity": {"score": 0.2}}`, 100, 20),
	}
	tracker := &recordingTracker{}
	pricing := map[string]config.PricingInfo{"gpt-test": {InputPerToken: 0.001, OutputPerToken: 0.002}}
	p := NewOpenAI(mockClient, "gpt-test", "", tracker, pricing)

	res, err := p.Classify(context.Background(), "win a free iphone")
	require.NoError(t, err)

	assert.Equal(t, classifier.CategoryScam, res.Category)
	assert.Equal(t, 0.9, res.Confidence)
	assert.Contains(t, mockClient.lastRequest.Messages[0].Content, "win a free iphone")
	require.NotNil(t, mockClient.lastRequest.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, mockClient.lastRequest.ResponseFormat.Type)

	require.Len(t, tracker.events, 1)
	assert.Equal(t, "openai", tracker.events[0].Provider)
	assert.InDelta(t, 0.14, tracker.events[0].AmountUSD, 1e-9)
}

func TestOpenAI_Failures(t *testing.T) {
	_, err := NewOpenAI(nil, "m", "", nil, nil).Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewOpenAI(&mockOpenAIClient{mockError: errors.New("rate limited")}, "m", "", nil, nil).Classify(context.Background(), "x")
	assert.ErrorContains(t, err, "rate limited")

	_, err = NewOpenAI(&mockOpenAIClient{}, "m", "", nil, nil).Classify(context.Background(), "x")
	assert.ErrorContains(t, err, "no choices")

	_, err = NewOpenAI(&mockOpenAIClient{mockResponse: chatResponse("This is just plain text, not JSON.", 1, 1)}, "m", "", nil, nil).Classify(context.Background(), "x")
	assert.Error(t, err)
}

func TestGemini_Classify(t *testing.T) {
	gen := &fakeGenerator{gen: Generation{Text: `{"category": "violence", "confidence": 0.95, "toxicity": {"score": 0.9}, "sentiment": {"score": -0.8, "label": "negative"}}`, InputTokens: 10, OutputTokens: 5}}
	tracker := &recordingTracker{}
	p := NewGemini(gen, "gemini-test", "Classify: {{TEXT}}", tracker, map[string]config.PricingInfo{"gemini-test": {InputPerToken: 1, OutputPerToken: 1}})

	res, err := p.Classify(context.Background(), "i will hurt you")
	require.NoError(t, err)
	assert.Equal(t, "Classify: i will hurt you", gen.prompt)
	assert.Equal(t, classifier.CategoryViolence, res.Category)
	assert.Equal(t, "Gemini gemini-test classification", res.Explanation)
	require.Len(t, tracker.events, 1)
	assert.Equal(t, 15.0, tracker.events[0].AmountUSD)

	_, err = NewGemini(nil, "m", "", nil, nil).Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewGemini(&fakeGenerator{err: errors.New("quota")}, "m", "", nil, nil).Classify(context.Background(), "x")
	assert.ErrorContains(t, err, "quota")
}

func TestPerspective_Thresholds(t *testing.T) {
	tests := []struct {
		name                    string
		toxicity, threat, insult float64
		want                    classifier.Category
		label                   classifier.SentimentLabel
	}{
		{"threat wins", 0.9, 0.8, 0.9, classifier.CategoryViolence, classifier.SentimentNegative},
		{"insult", 0.6, 0.1, 0.75, classifier.CategoryCyberbullying, classifier.SentimentNegative},
		{"toxic only", 0.72, 0.1, 0.2, classifier.CategoryHarassment, classifier.SentimentNegative},
		{"benign", 0.1, 0.05, 0.05, classifier.CategoryOther, classifier.SentimentNeutral},
		{"at threshold", 0.7, 0.7, 0.7, classifier.CategoryOther, classifier.SentimentNegative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPerspective(&fakeScorer{scores: map[string]float64{AttrToxicity: tt.toxicity, AttrThreat: tt.threat, AttrInsult: tt.insult}})
			res, err := p.Classify(context.Background(), "text")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Category)
			assert.Equal(t, tt.label, res.Sentiment.Label)
			assert.Equal(t, max(tt.toxicity, tt.threat, tt.insult), res.Confidence)
		})
	}

	_, err := NewPerspective(nil).Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func huggingFaceConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Providers.HuggingFace.ApiKey = "hf-test"
	cfg.Providers.HuggingFace.BaseURL = baseURL
	return cfg
}

func TestHuggingFace_Classify(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer hf-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "toxic-bert"):
			fmt.Fprint(w, `[[{"label":"toxic","score":0.82},{"label":"insult","score":0.4}]]`)
		case strings.Contains(r.URL.Path, "sentiment"):
			fmt.Fprint(w, `[[{"label":"negative","score":0.9},{"label":"neutral","score":0.08}]]`)
		default:
			fmt.Fprint(w, `[{"label":"INSULT","score":0.77},{"label":"TOXIC","score":0.2}]`)
		}
	}))
	defer server.Close()

	p := NewHuggingFace(server.Client(), huggingFaceConfig(server.URL))
	res, err := p.Classify(context.Background(), "you are an idiot")
	require.NoError(t, err)

	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, classifier.CategoryCyberbullying, res.Category)
	assert.Equal(t, 0.77, res.Confidence)
	assert.Equal(t, 0.82, res.Toxicity.Score)
	assert.Equal(t, classifier.SentimentNegative, res.Sentiment.Label)
	assert.Equal(t, -0.9, res.Sentiment.Score)
}

func TestHuggingFace_ModelFailureFailsCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "sentiment") {
			http.Error(w, `{"error":"Model is currently loading"}`, http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[[{"label":"toxic","score":0.1}]]`)
	}))
	defer server.Close()

	_, err := NewHuggingFace(server.Client(), huggingFaceConfig(server.URL)).Classify(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	_, err = NewHuggingFace(nil, config.Default()).Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStatuses(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Gemini.ApiKey = "k"

	statuses := Statuses(cfg)
	require.Len(t, statuses, 4)
	assert.Equal(t, Status{Name: "gemini", Configured: true, Enabled: true}, statuses[0])
	assert.Equal(t, Status{Name: "openai", Configured: false, Enabled: false}, statuses[1])
}
