package clix

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veracity/internal/consensus"
)

func flagSet(args ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("mode", "", "")
	fs.String("output", "text", "")
	fs.Bool("json", false, "")
	fs.String("providers", "", "")
	_ = fs.Parse(args)
	return fs
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(flagSet())
	require.NoError(t, err)
	assert.Equal(t, consensus.Mode{}, mode)

	mode, err = ParseMode(flagSet("--mode", "single_provider:openai"))
	require.NoError(t, err)
	assert.Equal(t, consensus.SingleProvider("openai"), mode)

	_, err = ParseMode(flagSet("--mode", "single_provider"))
	assert.ErrorContains(t, err, "invalid --mode")
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		args []string
		want string
		err  bool
	}{
		{nil, OutputText, false},
		{[]string{"--output", "YAML"}, OutputYAML, false},
		{[]string{"--json"}, OutputJSON, false},
		{[]string{"--output", "yaml", "--json"}, OutputJSON, false},
		{[]string{"--output", "xml"}, "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutput(flagSet(tt.args...))
		if tt.err {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"gemini", "openai"}, ParseList(flagSet("--providers", " gemini, ,openai,"), "providers"))
	assert.Nil(t, ParseList(flagSet(), "providers"))
}

func TestEncode(t *testing.T) {
	v := struct {
		RiskLevel string  `json:"risk_level"`
		Score     float64 `json:"score"`
	}{"high", 0.5}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, OutputJSON, v))
	assert.JSONEq(t, `{"risk_level":"high","score":0.5}`, buf.String())

	buf.Reset()
	require.NoError(t, Encode(&buf, OutputYAML, v))
	assert.Contains(t, buf.String(), "risk_level: high")
	assert.Contains(t, buf.String(), "score: 0.5")

	assert.Error(t, Encode(&buf, "xml", v))
}
