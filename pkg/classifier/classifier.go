package classifier

import "strings"

// Category is one harm classification from the fixed enumerated set.
type Category string

const (
	CategoryViolence         Category = "violence"
	CategoryHateSpeech       Category = "hate_speech"
	CategoryHarassment       Category = "harassment"
	CategoryCyberbullying    Category = "cyberbullying"
	CategorySexualHarassment Category = "sexual_harassment"
	CategoryFakeNews         Category = "fake_news"
	CategoryScam             Category = "scam"
	CategoryMisinformation   Category = "misinformation"
	CategoryOther            Category = "other"
)

// Categories lists every category in declared order. The order is the tie-break
// for the lexical argmax, so don't reorder it.
var Categories = []Category{
	CategoryViolence,
	CategoryHateSpeech,
	CategoryHarassment,
	CategoryCyberbullying,
	CategorySexualHarassment,
	CategoryFakeNews,
	CategoryScam,
	CategoryMisinformation,
	CategoryOther,
}

// ParseCategory maps a label onto the fixed set. Anything unknown is "other".
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// Valid reports whether c belongs to the fixed set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// SentimentLabel is positive, negative or neutral.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// ParseSentimentLabel normalises provider labels ("POSITIVE", "Negative", "neg").
// Unknown labels come back empty so callers can tell "absent" from "neutral".
func ParseSentimentLabel(s string) SentimentLabel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "pos":
		return SentimentPositive
	case "negative", "neg":
		return SentimentNegative
	case "neutral", "neu":
		return SentimentNeutral
	}
	return ""
}

// LabelForScore applies the ±0.1 band used for sentiment labels.
func LabelForScore(score float64) SentimentLabel {
	switch {
	case score > 0.1:
		return SentimentPositive
	case score < -0.1:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

type Sentiment struct {
	Score float64        `json:"score"`
	Label SentimentLabel `json:"label"`
}

// Reported is false when the source gave no sentiment at all.
func (s Sentiment) Reported() bool { return s.Label != "" }

// Contribution is one named component of the toxicity score.
type Contribution struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type Toxicity struct {
	Score         float64        `json:"score"`
	Contributions []Contribution `json:"contributions"`
}

// Stats carries cheap text statistics alongside a result.
type Stats struct {
	TextLength int `json:"text_length"`
	WordCount  int `json:"word_count"`
}

// Result is the canonical classification shape shared by the lexical classifier
// and every provider adapter.
type Result struct {
	Category    Category  `json:"category"`
	Confidence  float64   `json:"confidence"`
	Sentiment   Sentiment `json:"sentiment"`
	Toxicity    Toxicity  `json:"toxicity"`
	Keywords    []string  `json:"keywords"`
	Source      string    `json:"source"`
	Explanation string    `json:"explanation,omitempty"`
	Stats       *Stats    `json:"stats,omitempty"`
}

// Normalize clamps every bounded field into its declared range and coerces
// an empty or unknown category to "other". An empty sentiment label is derived
// from a non-zero score; with a zero score it stays empty, meaning the source
// reported no sentiment.
func (r *Result) Normalize() {
	if !r.Category.Valid() {
		r.Category = CategoryOther
	}
	r.Confidence = Clamp(r.Confidence, 0, 1)
	r.Sentiment.Score = Clamp(r.Sentiment.Score, -1, 1)
	if r.Sentiment.Label == "" && r.Sentiment.Score != 0 {
		r.Sentiment.Label = LabelForScore(r.Sentiment.Score)
	}
	r.Toxicity.Score = Clamp(r.Toxicity.Score, 0, 1)
	for i := range r.Toxicity.Contributions {
		r.Toxicity.Contributions[i].Score = Clamp(r.Toxicity.Contributions[i].Score, 0, 1)
	}
	if r.Keywords == nil {
		r.Keywords = []string{}
	}
	if r.Toxicity.Contributions == nil {
		r.Toxicity.Contributions = []Contribution{}
	}
}

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
