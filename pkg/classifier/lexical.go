package classifier

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
)

// SourceLocal tags results produced by the lexical classifier.
const SourceLocal = "local"

const (
	DefaultMinConfidence = 0.30
	DefaultMinScore      = 2
	DefaultKeywordLimit  = 10

	sentimentDivisor      = 10.0
	negativeSentimentGate = -0.3
	negativeSentimentRate = 0.3
	harmMatchWeight       = 0.2
)

// Options tunes the insufficient-evidence policy and keyword extraction.
type Options struct {
	MinConfidence float64 // below this the category is forced to "other"
	MinScore      int     // a winning score below this also forces "other"
	KeywordLimit  int
}

func DefaultOptions() Options {
	return Options{
		MinConfidence: DefaultMinConfidence,
		MinScore:      DefaultMinScore,
		KeywordLimit:  DefaultKeywordLimit,
	}
}

// Lexical is the deterministic local classifier. It holds no mutable state
// after construction and is safe for concurrent use.
type Lexical struct {
	opts        Options
	phraseStems map[Category][][]string // parallel to categoryPhrases
}

// NewLexical builds a classifier. Zero-valued option fields fall back to defaults.
func NewLexical(opts Options) *Lexical {
	def := DefaultOptions()
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = def.MinConfidence
	}
	if opts.MinScore <= 0 {
		opts.MinScore = def.MinScore
	}
	if opts.KeywordLimit <= 0 {
		opts.KeywordLimit = def.KeywordLimit
	}

	c := &Lexical{opts: opts, phraseStems: make(map[Category][][]string, len(categoryPhrases))}
	for cat, phrases := range categoryPhrases {
		stems := make([][]string, len(phrases))
		for i, p := range phrases {
			stems[i] = c.Preprocess(p)
		}
		c.phraseStems[cat] = stems
	}
	return c
}

// Options returns the options the classifier was built with.
func (c *Lexical) Options() Options { return c.opts }

// Classify runs the full lexical pipeline over text.
func (c *Lexical) Classify(text string) (Result, error) {
	if err := validateText(text); err != nil {
		return Result{}, err
	}

	tokens := c.Preprocess(text)
	lower := strings.ToLower(text)

	sentiment := c.Sentiment(text)
	category, confidence, _ := c.Categorize(lower, tokens)
	toxicity := c.Toxicity(text, sentiment)

	res := Result{
		Category:   category,
		Confidence: confidence,
		Sentiment:  sentiment,
		Toxicity:   toxicity,
		Keywords:   Keywords(tokens, c.opts.KeywordLimit),
		Source:     SourceLocal,
		Stats: &Stats{
			TextLength: utf8.RuneCountInString(text),
			WordCount:  len(strings.Fields(text)),
		},
		Explanation: fmt.Sprintf("Local NLP: %s (%.1f%%)", category, confidence*100),
	}
	res.Normalize()
	return res, nil
}

// BatchItem is one entry of a batch classification.
type BatchItem struct {
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// ClassifyBatch classifies every text independently; one bad input doesn't
// fail the others.
func (c *Lexical) ClassifyBatch(texts []string) []BatchItem {
	items := make([]BatchItem, len(texts))
	for i, t := range texts {
		res, err := c.Classify(t)
		if err != nil {
			items[i].Error = err.Error()
			continue
		}
		items[i].Result = &res
	}
	return items
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}
	if !utf8.ValidString(text) || strings.ContainsRune(text, 0) {
		return fmt.Errorf("%w: text is not valid UTF-8 text", ErrInvalidInput)
	}
	return nil
}

// Preprocess lower-cases, tokenises, drops short/non-alphabetic/stop-word
// tokens and stems the rest. The result is a multiset in text order.
func (c *Lexical) Preprocess(text string) []string {
	raw := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) <= 2 || !isASCIIAlpha(tok) {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out = append(out, english.Stem(tok, false))
	}
	return out
}

func isASCIIAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

// Sentiment sums per-word valence, normalises by a fixed divisor and labels it.
func (c *Lexical) Sentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	sum := 0
	for i, w := range words {
		v, ok := valence[w]
		if !ok {
			continue
		}
		if i > 0 {
			if _, neg := negators[words[i-1]]; neg {
				v = -v
			}
		}
		sum += v
	}
	for phrase, v := range valencePhrases {
		sum += v * strings.Count(lower, phrase)
	}

	score := Clamp(float64(sum)/sentimentDivisor, -1, 1)
	return Sentiment{Score: score, Label: LabelForScore(score)}
}

// Categorize scores every category ruleset and applies the insufficient-evidence
// policy. lower must be the lower-cased raw text and tokens its preprocessed stems.
func (c *Lexical) Categorize(lower string, tokens []string) (Category, float64, map[Category]int) {
	present := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		present[t] = struct{}{}
	}

	scores := make(map[Category]int, len(categoryPhrases))
	best, maxScore, total := CategoryOther, 0, 0
	for _, cat := range Categories {
		phrases, ok := categoryPhrases[cat]
		if !ok {
			continue
		}
		score := 0
		for i, phrase := range phrases {
			if strings.Contains(lower, phrase) {
				score += 2
			}
			for _, stem := range c.phraseStems[cat][i] {
				if _, hit := present[stem]; hit {
					score++
				}
			}
		}
		scores[cat] = score
		total += score
		// strict > keeps the earlier category on ties
		if score > maxScore {
			maxScore = score
			best = cat
		}
	}

	confidence := 0.0
	if total > 0 {
		confidence = float64(maxScore) / float64(total)
	}
	if confidence < c.opts.MinConfidence || maxScore < c.opts.MinScore {
		best = CategoryOther
	}
	return best, math.Min(confidence, 1), scores
}

// Toxicity combines negative sentiment with harm-pattern matches.
func (c *Lexical) Toxicity(text string, s Sentiment) Toxicity {
	tox := Toxicity{Contributions: []Contribution{}}
	if s.Score < negativeSentimentGate {
		tox.Score += math.Abs(s.Score) * negativeSentimentRate
		tox.Contributions = append(tox.Contributions, Contribution{
			Name:  "negative_sentiment",
			Score: math.Min(math.Abs(s.Score), 1),
		})
	}
	for _, g := range harmGroups {
		n := len(g.Pattern.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		groupScore := float64(n) * harmMatchWeight
		tox.Score += groupScore
		tox.Contributions = append(tox.Contributions, Contribution{
			Name:  g.Name,
			Score: math.Min(groupScore, 1),
		})
	}
	tox.Score = math.Min(tox.Score, 1)
	return tox
}

// Keywords ranks stems by frequency (ties keep first-occurrence order) and
// returns at most limit of them.
func Keywords(tokens []string, limit int) []string {
	freq := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if freq[t] == 0 {
			order = append(order, t)
		}
		freq[t]++
	}
	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order
}
