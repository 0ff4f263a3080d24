package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veracity/internal/consensus"
	"veracity/internal/engine"
	"veracity/internal/verification"
	"veracity/pkg/classifier"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("analysis:\n  mode: local_only\nlog:\n  level: error\n"), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestClassifyCommand_JSON(t *testing.T) {
	out, err := runCLI(t, "classify", "--output", "json", "This game is okay, nothing special.")
	require.NoError(t, err)

	var res consensus.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, classifier.CategoryOther, res.Category)
	assert.Equal(t, consensus.SourceLocal, res.Source)
}

func TestVerifyCommand_YAML(t *testing.T) {
	out, err := runCLI(t, "verify", "--output", "yaml", "--platform", "twitter", "This is a thirty char message.")
	require.NoError(t, err)
	assert.Contains(t, out, "risk_level:")
	assert.Contains(t, out, "level: very_low")
}

func TestEnqueueWithoutRedis(t *testing.T) {
	_, err := runCLI(t, "enqueue", "some text")
	assert.ErrorContains(t, err, "redis.address")
}

func TestReadInput(t *testing.T) {
	got, err := readInput(strings.NewReader("ignored"), []string{"hello", "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	got, err = readInput(strings.NewReader("line one\nline two"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", got)

	got, err = readInput(strings.NewReader("from stdin"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from stdin\n", got)
}

func TestPrintClassification(t *testing.T) {
	color.NoColor = true
	reason := "local detected other, gemini detected violence"
	res := consensus.Result{
		Result: classifier.Result{
			Category:   classifier.CategoryViolence,
			Confidence: 0.78,
			Sentiment:  classifier.Sentiment{Score: -0.5, Label: classifier.SentimentNegative},
			Toxicity:   classifier.Toxicity{Score: 0.8},
			Keywords:   []string{"kill"},
			Source:     consensus.SourceHybrid,
		},
		Mode:                "combined",
		NeedsReview:         true,
		DisagreementReason:  &reason,
		ContributingSources: []string{"gemini", "local"},
	}

	var buf bytes.Buffer
	printClassification(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "violence (78.0% confidence)")
	assert.Contains(t, out, "hybrid [combined] from gemini, local")
	assert.Contains(t, out, "needs review: "+reason)
	assert.Contains(t, out, "Keywords:   kill")
}

func TestPrintAssessment(t *testing.T) {
	color.NoColor = true
	a := engine.Assessment{
		ID: "abc",
		Verification: verification.Score{Total: 5, Level: verification.LevelVeryLow, Factors: []verification.Factor{
			{Name: verification.FactorContentQuality, PointsAwarded: 5, MaxPoints: 20, Status: verification.StatusPartial, Reason: "Content too short"},
		}},
		Risk: verification.RiskAssessment{RiskLevel: verification.RiskMedium, ToxicityPercent: 12.5, VerificationTotal: 5},
	}

	var buf bytes.Buffer
	printAssessment(&buf, a)
	out := buf.String()
	assert.Contains(t, out, "Assessment abc")
	assert.Contains(t, out, "5/20")
	assert.Contains(t, out, "Content too short")
	assert.Contains(t, out, "medium (toxicity 12.5%, verification 5)")
}
