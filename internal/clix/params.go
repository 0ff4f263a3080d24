package clix

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"veracity/internal/consensus"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// ParseMode reads --mode. An empty flag yields the zero mode, which the
// engine resolves to the configured default.
func ParseMode(flags *pflag.FlagSet) (consensus.Mode, error) {
	raw, _ := flags.GetString("mode")
	if strings.TrimSpace(raw) == "" {
		return consensus.Mode{}, nil
	}
	mode, err := consensus.ParseMode(raw)
	if err != nil {
		return consensus.Mode{}, fmt.Errorf("invalid --mode: %w", err)
	}
	return mode, nil
}

// ParseOutput reads --output, honouring --json as a shorthand.
func ParseOutput(flags *pflag.FlagSet) (string, error) {
	if asJSON, _ := flags.GetBool("json"); asJSON {
		return OutputJSON, nil
	}
	out, _ := flags.GetString("output")
	switch out = strings.ToLower(strings.TrimSpace(out)); out {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputYAML:
		return out, nil
	}
	return "", fmt.Errorf("invalid --output %q (want text, json or yaml)", out)
}

// ParseList splits a comma-separated flag, dropping blanks.
func ParseList(flags *pflag.FlagSet, name string) []string {
	raw, _ := flags.GetString(name)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Encode writes v as JSON or YAML. YAML goes through JSON first so field
// names follow the json tags.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(b, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format %q", format)
}
