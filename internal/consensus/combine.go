package consensus

import (
	"fmt"
	"sort"

	"veracity/pkg/classifier"
)

// Hybrid weights.
const (
	externalWeight = 0.7
	localWeight    = 0.3
)

// Boost is the agreement boost applied in hybrid combination.
type Boost struct {
	Factor  float64 // multiplier, e.g. 1.2
	Ceiling float64 // boost only applies below this confidence
}

// combineHybrid merges the local result with exactly one external result.
func combineHybrid(local, ext classifier.Result, boost Boost) Result {
	res := Result{
		Result: classifier.Result{
			Category:   ext.Category,
			Confidence: externalWeight*ext.Confidence + localWeight*local.Confidence,
			Sentiment:  local.Sentiment,
			Toxicity:   mergeToxicity(local.Toxicity, max(local.Toxicity.Score, ext.Toxicity.Score), ext),
			Keywords:   local.Keywords,
			Source:     SourceHybrid,
			Stats:      local.Stats,
		},
		Agreement:           local.Category == ext.Category,
		LocalCategory:       local.Category,
		ContributingSources: sortedSources(SourceLocal, ext.Source),
	}

	localSentiment := local.Sentiment
	res.LocalSentiment = &localSentiment
	if ext.Sentiment.Reported() {
		extSentiment := ext.Sentiment
		res.Sentiment = extSentiment
		res.ExternalSentiment = &extSentiment
	}

	extCategory := ext.Category
	res.ExternalCategory = &extCategory

	if res.Agreement && res.Confidence < boost.Ceiling {
		res.Confidence = min(1.0, res.Confidence*boost.Factor)
		res.AgreementBoost = true
	}
	if !res.Agreement {
		res.NeedsReview = true
		reason := fmt.Sprintf("local detected %s, %s detected %s", local.Category, ext.Source, ext.Category)
		res.DisagreementReason = &reason
	}

	res.Explanation = joinExplanations(local.Explanation, ext.Explanation)
	res.Normalize()
	return res
}

// combineMajority merges the local result with two or more external results.
// priority decides ties; see rankSources.
func combineMajority(local classifier.Result, exts []classifier.Result, priority []string) Result {
	all := make([]classifier.Result, 0, len(exts)+1)
	all = append(all, local)
	all = append(all, exts...)
	ranked := rankSources(all, priority)

	category := majorityCategory(all, ranked)
	extCategory := majorityCategory(exts, rankSources(exts, priority))
	sentimentLabel := majoritySentiment(all, ranked)

	var confSum, toxSum, sentSum float64
	var sentN int
	for _, r := range all {
		confSum += r.Confidence
		toxSum += r.Toxicity.Score
		if r.Sentiment.Label == sentimentLabel {
			sentSum += r.Sentiment.Score
			sentN++
		}
	}
	n := float64(len(all))

	tox := local.Toxicity
	for _, ext := range exts {
		tox = mergeToxicity(tox, 0, ext)
	}
	tox.Score = toxSum / n

	sources := make([]string, 0, len(all))
	for _, r := range all {
		sources = append(sources, r.Source)
	}

	res := Result{
		Result: classifier.Result{
			Category:   category,
			Confidence: confSum / n,
			Sentiment:  classifier.Sentiment{Score: sentSum / float64(max(sentN, 1)), Label: sentimentLabel},
			Toxicity:   tox,
			Keywords:   local.Keywords,
			Source:     SourceConsensus,
			Stats:      local.Stats,
		},
		Agreement:           category == local.Category,
		LocalCategory:       local.Category,
		ExternalCategory:    &extCategory,
		ContributingSources: sortedSources(sources...),
	}
	localSentiment := local.Sentiment
	res.LocalSentiment = &localSentiment

	if !res.Agreement {
		res.NeedsReview = true
		reason := fmt.Sprintf("local detected %s, consensus of %d sources detected %s", local.Category, len(all), category)
		res.DisagreementReason = &reason
	}
	res.Explanation = fmt.Sprintf("Consensus of %d sources: %s", len(all), category)
	res.Normalize()
	return res
}

// mergeToxicity keeps base's contributions, adds one external:<source>
// entry for ext, and sets the score.
func mergeToxicity(base classifier.Toxicity, score float64, ext classifier.Result) classifier.Toxicity {
	contribs := make([]classifier.Contribution, 0, len(base.Contributions)+1)
	contribs = append(contribs, base.Contributions...)
	contribs = append(contribs, classifier.Contribution{Name: "external:" + ext.Source, Score: ext.Toxicity.Score})
	return classifier.Toxicity{Score: score, Contributions: contribs}
}

// rankSources orders results for tie-breaking: sources listed in priority
// first (in that order), then unlisted externals alphabetically, then an
// unlisted local source.
func rankSources(results []classifier.Result, priority []string) []classifier.Result {
	pos := make(map[string]int, len(priority))
	for i, name := range priority {
		if _, seen := pos[name]; !seen {
			pos[name] = i
		}
	}
	group := func(r classifier.Result) (int, int) {
		if i, ok := pos[r.Source]; ok {
			return 0, i
		}
		if r.Source == SourceLocal {
			return 2, 0
		}
		return 1, 0
	}

	ranked := append([]classifier.Result(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		gi, pi := group(ranked[i])
		gj, pj := group(ranked[j])
		if gi != gj {
			return gi < gj
		}
		if pi != pj {
			return pi < pj
		}
		return ranked[i].Source < ranked[j].Source
	})
	return ranked
}

func majorityCategory(results, ranked []classifier.Result) classifier.Category {
	counts := make(map[classifier.Category]int)
	best := 0
	for _, r := range results {
		counts[r.Category]++
		best = max(best, counts[r.Category])
	}
	for _, r := range ranked {
		if counts[r.Category] == best {
			return r.Category
		}
	}
	return classifier.CategoryOther
}

func majoritySentiment(results, ranked []classifier.Result) classifier.SentimentLabel {
	counts := make(map[classifier.SentimentLabel]int)
	best := 0
	for _, r := range results {
		if !r.Sentiment.Reported() {
			continue
		}
		counts[r.Sentiment.Label]++
		best = max(best, counts[r.Sentiment.Label])
	}
	for _, r := range ranked {
		if r.Sentiment.Reported() && counts[r.Sentiment.Label] == best {
			return r.Sentiment.Label
		}
	}
	return classifier.SentimentNeutral
}

func sortedSources(names ...string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func joinExplanations(local, ext string) string {
	switch {
	case local == "":
		return ext
	case ext == "":
		return local
	}
	return local + "; " + ext
}
