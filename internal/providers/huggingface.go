package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"veracity/internal/config"
	"veracity/pkg/classifier"
)

// LabelScore is one entry of a text-classification pipeline response.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// HuggingFace queries three hosted inference models (toxicity, sentiment and
// classification) concurrently and folds them into one Result.
type HuggingFace struct {
	client              *http.Client
	apiKey              string
	baseURL             string
	toxicityModel       string
	sentimentModel      string
	classificationModel string
}

func NewHuggingFace(client *http.Client, cfg *config.Config) *HuggingFace {
	if client == nil {
		client = http.DefaultClient
	}
	hf := cfg.Providers.HuggingFace
	return &HuggingFace{
		client:              client,
		apiKey:              hf.ApiKey,
		baseURL:             strings.TrimRight(hf.BaseURL, "/"),
		toxicityModel:       hf.ToxicityModel,
		sentimentModel:      hf.SentimentModel,
		classificationModel: hf.ClassificationModel,
	}
}

func (p *HuggingFace) Name() string { return config.ProviderHuggingFace }

func (p *HuggingFace) Classify(ctx context.Context, text string) (classifier.Result, error) {
	if p.apiKey == "" {
		return classifier.Result{}, ErrNotConfigured
	}

	var toxicity, sentiment, classification []LabelScore
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { toxicity, err = p.query(gctx, p.toxicityModel, text); return })
	g.Go(func() (err error) { sentiment, err = p.query(gctx, p.sentimentModel, text); return })
	g.Go(func() (err error) { classification, err = p.query(gctx, p.classificationModel, text); return })
	if err := g.Wait(); err != nil {
		return classifier.Result{}, fmt.Errorf("huggingface analysis failed: %w", err)
	}

	return huggingFaceResult(toxicity, sentiment, classification), nil
}

func huggingFaceResult(toxicity, sentiment, classification []LabelScore) classifier.Result {
	var toxScore float64
	for _, ls := range toxicity {
		if strings.EqualFold(ls.Label, "TOXIC") {
			toxScore = ls.Score
			break
		}
	}

	res := classifier.Result{
		Category: classifier.CategoryOther,
		Toxicity: classifier.Toxicity{
			Score:         toxScore,
			Contributions: []classifier.Contribution{{Name: "toxic", Score: toxScore}},
		},
	}

	if top, ok := topLabel(classification); ok {
		res.Category = MapHuggingFaceLabel(top.Label)
		res.Confidence = top.Score
		res.Explanation = fmt.Sprintf("HuggingFace analysis: %s (%.1f%%)", top.Label, top.Score*100)
	}

	if top, ok := topLabel(sentiment); ok {
		label := classifier.ParseSentimentLabel(top.Label)
		res.Sentiment.Label = label
		switch label {
		case classifier.SentimentPositive:
			res.Sentiment.Score = top.Score
		case classifier.SentimentNegative:
			res.Sentiment.Score = -top.Score
		}
	}

	res.Normalize()
	return res
}

func topLabel(scores []LabelScore) (LabelScore, bool) {
	if len(scores) == 0 {
		return LabelScore{}, false
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best, true
}

func (p *HuggingFace) query(ctx context.Context, model, text string) ([]LabelScore, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+model, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", model, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("model %s: read body: %w", model, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model %s: status %d: %s", model, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return decodeLabelScores(raw)
}

// decodeLabelScores accepts both [[{label,score}]] and [{label,score}].
func decodeLabelScores(raw []byte) ([]LabelScore, error) {
	var nested [][]LabelScore
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}
	var flat []LabelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	return flat, nil
}

var _ Provider = (*HuggingFace)(nil)
