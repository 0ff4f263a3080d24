package consensus

import (
	"fmt"
	"strings"
	"unicode"

	"veracity/internal/config"
)

// Kind selects how a request is analyzed.
type Kind string

const (
	KindLocalOnly      Kind = config.ModeLocalOnly
	KindSingleProvider Kind = config.ModeSingleProvider
	KindCombined       Kind = config.ModeCombined
	// KindAuto runs the escalation mode only for texts ShouldEscalate accepts.
	KindAuto Kind = config.ModeAuto
)

// Mode is a consensus mode plus, for single_provider, the provider name.
type Mode struct {
	Kind     Kind   `json:"kind"`
	Provider string `json:"provider,omitempty"`
}

func LocalOnly() Mode                 { return Mode{Kind: KindLocalOnly} }
func Combined() Mode                  { return Mode{Kind: KindCombined} }
func Auto() Mode                      { return Mode{Kind: KindAuto} }
func SingleProvider(name string) Mode { return Mode{Kind: KindSingleProvider, Provider: name} }

func (m Mode) String() string {
	if m.Kind == KindSingleProvider {
		return string(m.Kind) + ":" + m.Provider
	}
	return string(m.Kind)
}

// ParseMode accepts "local_only" (or "local", or ""), "combined", "auto",
// "single_provider:<name>", or a bare provider name as shorthand for
// single_provider(name).
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "local", config.ModeLocalOnly:
		return LocalOnly(), nil
	case config.ModeCombined:
		return Combined(), nil
	case config.ModeAuto:
		return Auto(), nil
	case config.ModeSingleProvider:
		return Mode{}, fmt.Errorf("mode %q needs a provider name (single_provider:<name>)", s)
	}
	if name, ok := strings.CutPrefix(s, config.ModeSingleProvider+":"); ok {
		s = name
	}
	if !validProviderName(s) {
		return Mode{}, fmt.Errorf("invalid mode %q", s)
	}
	return SingleProvider(s), nil
}

// FromConfig resolves the configured default mode.
func FromConfig(a config.Analysis) (Mode, error) {
	if a.Mode == config.ModeSingleProvider {
		if a.Provider == "" {
			return Mode{}, fmt.Errorf("analysis.provider is required for mode %s", a.Mode)
		}
		return SingleProvider(a.Provider), nil
	}
	return ParseMode(a.Mode)
}

func validProviderName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// ShouldEscalate reports whether a text is worth sending to external
// providers: mixed Devanagari/Latin script, longer than 50 characters, or
// phrased as a question or hedge.
func ShouldEscalate(text string) bool {
	var hasDevanagari, hasLatin bool
	n := 0
	for _, r := range text {
		n++
		switch {
		case unicode.In(r, unicode.Devanagari):
			hasDevanagari = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLatin = true
		}
	}
	return (hasDevanagari && hasLatin) || n > 50 || strings.Contains(text, "?") || strings.Contains(text, "maybe")
}
