package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"veracity/internal/config"
	"veracity/pkg/classifier"
)

// DefaultPromptFile is looked up in the prompt directory when no path is configured.
const DefaultPromptFile = "moderation.txt"

// DefaultModerationPrompt is used when no prompt file can be loaded.
const DefaultModerationPrompt = `Analyze the following social media content for harmful content.
Classify it into exactly one of these categories: violence, hate_speech, harassment,
cyberbullying, sexual_harassment, fake_news, scam, misinformation, other.

Respond only with a JSON object of this shape:
{
  "category": "<category>",
  "confidence": <0.0-1.0>,
  "sentiment": {"score": <-1.0-1.0>, "label": "positive|negative|neutral"},
  "toxicity": {"score": <0.0-1.0>},
  "explanation": "<one sentence>"
}

Content: "{{TEXT}}"`

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

var errNoVerdict = errors.New("no JSON object in model response")

// verdict is the JSON shape the moderation prompt asks for.
type verdict struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Sentiment  struct {
		Score float64 `json:"score"`
		Label string  `json:"label"`
	} `json:"sentiment"`
	Toxicity struct {
		Score float64 `json:"score"`
	} `json:"toxicity"`
	Explanation string `json:"explanation"`
}

// LoadPrompt returns the prompt template at path, falling back to
// DefaultModerationPrompt when the file cannot be read.
func LoadPrompt(path string) string {
	content, err := config.LoadPromptContent(path, DefaultPromptFile)
	if err != nil {
		log.Debugf("Using built-in moderation prompt: %v", err)
		return DefaultModerationPrompt
	}
	if !strings.Contains(content, "{{TEXT}}") {
		log.Warnf("Prompt template %q has no {{TEXT}} placeholder, using built-in prompt", path)
		return DefaultModerationPrompt
	}
	return content
}

// RenderPrompt substitutes text into tmpl.
func RenderPrompt(tmpl, text string) string {
	// quotes would close the Content: "..." literal
	escaped := strings.ReplaceAll(text, `"`, `\"`)
	return strings.ReplaceAll(tmpl, "{{TEXT}}", escaped)
}

// ParseVerdict extracts the first {...} block from an LLM reply and maps it
// into a classifier.Result.
func ParseVerdict(content string) (classifier.Result, error) {
	raw := jsonObject.FindString(strings.TrimSpace(content))
	if raw == "" {
		return classifier.Result{}, errNoVerdict
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return classifier.Result{}, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}

	res := classifier.Result{
		Category:    MapLLMCategory(v.Category),
		Confidence:  v.Confidence,
		Sentiment:   classifier.Sentiment{Score: v.Sentiment.Score, Label: classifier.ParseSentimentLabel(v.Sentiment.Label)},
		Toxicity:    classifier.Toxicity{Score: v.Toxicity.Score},
		Explanation: v.Explanation,
	}
	res.Normalize()
	return res, nil
}
