package verification

import (
	"errors"
	"strings"
)

// ErrInvalidSubmission is returned for submissions without content.
var ErrInvalidSubmission = errors.New("invalid submission")

// Factor statuses.
const (
	StatusPass    = "pass"
	StatusPartial = "partial"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Level is the verification level derived from the total.
type Level string

const (
	LevelVeryLow Level = "very_low"
	LevelLow     Level = "low"
	LevelMedium  Level = "medium"
	LevelHigh    Level = "high"
)

// RiskLevel combines harm and credibility.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Factor names, as reported.
const (
	FactorURLPattern     = "URL Pattern Match"
	FactorVerifiedAuthor = "Verified Author"
	FactorProfileURL     = "Author Profile URL"
	FactorContentQuality = "Content Quality"
	FactorMetadata       = "Metadata Available"
	FactorEngagement     = "Engagement Metrics"
)

type Author struct {
	Username   string `json:"username"`
	ProfileURL string `json:"profile_url,omitempty"`
	Verified   bool   `json:"verified"`
}

type Engagement struct {
	Likes    int `json:"likes"`
	Shares   int `json:"shares"`
	Comments int `json:"comments"`
	Reach    int `json:"reach"`
}

// Submission is the provenance a user reports for a post.
type Submission struct {
	Content     string     `json:"content"`
	Platform    string     `json:"platform"`
	OriginalURL string     `json:"original_url,omitempty"`
	Author      Author     `json:"author"`
	Engagement  Engagement `json:"engagement"`
}

// Validate rejects submissions that cannot be scored.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Content) == "" {
		return errors.Join(ErrInvalidSubmission, errors.New("content is required"))
	}
	return nil
}

// Factor is one rubric line. 0 <= PointsAwarded <= MaxPoints.
type Factor struct {
	Name          string `json:"factor"`
	PointsAwarded int    `json:"score"`
	MaxPoints     int    `json:"max_score"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

// Score is the verification total, capped at 100.
type Score struct {
	Total   int      `json:"score"`
	Level   Level    `json:"level"`
	Factors []Factor `json:"factors"`
}

// RiskAssessment is a pure function of toxicity and verification total.
type RiskAssessment struct {
	RiskLevel         RiskLevel `json:"risk_level"`
	ToxicityPercent   float64   `json:"toxicity_percent"`
	VerificationTotal int       `json:"verification_score"`
}
