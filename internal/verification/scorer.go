package verification

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"veracity/internal/config"
	"veracity/internal/consensus"
	"veracity/internal/metadata"
	"veracity/internal/metrics"
)

// Content length bounds, in characters.
const (
	minContentLength = 50
	maxContentLength = 2000
)

var platformPatterns = map[string]*regexp.Regexp{
	"twitter":   regexp.MustCompile(`^https?://(www\.)?(twitter\.com|x\.com)/\w+/status/\d+`),
	"x":         regexp.MustCompile(`^https?://(www\.)?(twitter\.com|x\.com)/\w+/status/\d+`),
	"instagram": regexp.MustCompile(`^https?://(www\.)?instagram\.com/p/[\w-]+`),
	"facebook":  regexp.MustCompile(`^https?://(www\.)?facebook\.com/\w+/posts/\d+`),
	"youtube":   regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?v=[\w-]+`),
	"tiktok":    regexp.MustCompile(`^https?://(www\.)?tiktok\.com/@[\w.]+/video/\d+`),
	"reddit":    regexp.MustCompile(`^https?://(www\.)?reddit\.com/r/\w+/comments/\w+`),
}

// ValidatePlatformURL checks rawURL against the declared platform's pattern.
// Platforms without a pattern accept any non-empty URL.
func ValidatePlatformURL(rawURL, platform string) (bool, string) {
	if rawURL == "" {
		return false, "No URL provided"
	}
	pattern, ok := platformPatterns[strings.ToLower(strings.TrimSpace(platform))]
	if !ok {
		return true, "Platform pattern not defined, assuming valid"
	}
	if pattern.MatchString(rawURL) {
		return true, "URL matches platform pattern"
	}
	return false, fmt.Sprintf("URL doesn't match %s pattern", platform)
}

// LevelFor maps a total onto a verification level.
func LevelFor(total int) Level {
	switch {
	case total >= 80:
		return LevelHigh
	case total >= 60:
		return LevelMedium
	case total >= 40:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// AssessRisk applies the risk table; toxicity is in [0,1] and compared as a
// percentage. The first matching row wins.
func AssessRisk(toxicity float64, total int) RiskAssessment {
	// 0.7*100 is 70.00000000000001 in float64
	tox := math.Round(toxicity*100*1e6) / 1e6
	ver := total

	level := RiskVeryLow
	switch {
	case tox > 70 && ver < 40:
		level = RiskCritical
	case tox > 50 && ver < 60:
		level = RiskHigh
	case tox > 30 || ver < 40:
		level = RiskMedium
	case tox > 10 || ver < 60:
		level = RiskLow
	}
	return RiskAssessment{RiskLevel: level, ToxicityPercent: tox, VerificationTotal: total}
}

// Scorer applies the verification rubric.
type Scorer struct {
	rubric  config.Rubric
	fetcher metadata.Fetcher
}

// NewScorer builds a scorer. fetcher may be nil when metadata is always
// supplied by the caller.
func NewScorer(rubric config.Rubric, fetcher metadata.Fetcher) *Scorer {
	return &Scorer{rubric: rubric, fetcher: fetcher}
}

// Rubric returns the weights in use.
func (s *Scorer) Rubric() config.Rubric { return s.rubric }

// Score rates a submission. cons supplies the toxicity for the risk
// assessment (0 when nil); md is optional fetched page metadata.
func (s *Scorer) Score(sub Submission, cons *consensus.Result, md *metadata.PageMetadata) (Score, RiskAssessment) {
	r := s.rubric
	factors := []Factor{
		s.urlFactor(sub),
		boolFactor(FactorVerifiedAuthor, sub.Author.Verified, r.VerifiedAuthor, "Author not verified"),
		boolFactor(FactorProfileURL, strings.TrimSpace(sub.Author.ProfileURL) != "", r.ProfileURL, "No profile URL provided"),
		s.contentFactor(sub.Content),
		s.metadataFactor(md),
		boolFactor(FactorEngagement, sub.Engagement.Likes > 0 || sub.Engagement.Shares > 0 || sub.Engagement.Comments > 0, r.Engagement, "No engagement data"),
	}

	total := 0
	for _, f := range factors {
		total += f.PointsAwarded
	}
	total = min(total, 100)

	score := Score{Total: total, Level: LevelFor(total), Factors: factors}

	var toxicity float64
	if cons != nil {
		toxicity = cons.Toxicity.Score
	}
	risk := AssessRisk(toxicity, total)

	metrics.VerificationScores.Observe(float64(total))
	metrics.RiskLevels.WithLabelValues(string(risk.RiskLevel)).Inc()
	return score, risk
}

// Verify fetches metadata for the submission URL (when there is one and a
// fetcher is configured) and scores. A failed fetch only downgrades the
// metadata factor.
func (s *Scorer) Verify(ctx context.Context, sub Submission, cons *consensus.Result) (Score, RiskAssessment, *metadata.PageMetadata, error) {
	if err := sub.Validate(); err != nil {
		return Score{}, RiskAssessment{}, nil, err
	}

	var md *metadata.PageMetadata
	if sub.OriginalURL != "" && s.fetcher != nil {
		fetched := s.fetcher.Fetch(ctx, sub.OriginalURL)
		md = &fetched
		if !fetched.Accessible {
			log.WithField("url", sub.OriginalURL).Infof("Metadata unavailable: %s", fetched.Error)
		}
	}

	score, risk := s.Score(sub, cons, md)
	return score, risk, md, nil
}

func (s *Scorer) urlFactor(sub Submission) Factor {
	ok, reason := ValidatePlatformURL(sub.OriginalURL, sub.Platform)
	f := boolFactor(FactorURLPattern, ok, s.rubric.URLPattern, reason)
	if ok && reason != "URL matches platform pattern" {
		f.Reason = reason
	}
	return f
}

func (s *Scorer) contentFactor(content string) Factor {
	n := utf8.RuneCountInString(content)
	f := Factor{Name: FactorContentQuality, MaxPoints: s.rubric.ContentQuality}
	switch {
	case n > minContentLength && n < maxContentLength:
		f.PointsAwarded, f.Status = s.rubric.ContentQuality, StatusPass
	case n <= minContentLength:
		f.PointsAwarded, f.Status, f.Reason = s.rubric.ContentShort, StatusPartial, "Content too short"
	default:
		f.PointsAwarded, f.Status, f.Reason = s.rubric.ContentLong, StatusPartial, "Content very long"
	}
	f.PointsAwarded = min(f.PointsAwarded, f.MaxPoints)
	return f
}

func (s *Scorer) metadataFactor(md *metadata.PageMetadata) Factor {
	per := s.rubric.MetadataField
	f := Factor{Name: FactorMetadata, MaxPoints: 4 * per, Status: StatusFail}
	switch {
	case md == nil:
		f.Reason = "No metadata available"
		return f
	case !md.Accessible:
		f.Reason = "URL not accessible"
		return f
	}

	for _, v := range []string{md.Title, md.Author, md.PublishDate, md.SiteName} {
		if strings.TrimSpace(v) != "" {
			f.PointsAwarded += per
		}
	}
	// pass needs more than half the fields
	if f.PointsAwarded > 2*per {
		f.Status = StatusPass
	} else {
		f.Status = StatusPartial
	}
	return f
}

func boolFactor(name string, ok bool, points int, reason string) Factor {
	if ok {
		return Factor{Name: name, PointsAwarded: points, MaxPoints: points, Status: StatusPass}
	}
	return Factor{Name: name, MaxPoints: points, Status: StatusFail, Reason: reason}
}
