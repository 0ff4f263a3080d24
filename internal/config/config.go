package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Consensus modes.
const (
	ModeLocalOnly      = "local_only"
	ModeSingleProvider = "single_provider"
	ModeCombined       = "combined"
	ModeAuto           = "auto"
)

// Known provider names.
const (
	ProviderOpenAI      = "openai"
	ProviderGemini      = "gemini"
	ProviderPerspective = "perspective"
	ProviderHuggingFace = "huggingface"
	SourceLocal         = "local"
)

// PricingInfo holds cost details per token for a specific model.
type PricingInfo struct {
	InputPerToken  float64 `mapstructure:"input_per_token"`
	OutputPerToken float64 `mapstructure:"output_per_token"`
}

// Rubric holds the verification factor weights.
type Rubric struct {
	URLPattern     int `mapstructure:"url_pattern"`
	VerifiedAuthor int `mapstructure:"verified_author"`
	ProfileURL     int `mapstructure:"profile_url"`
	ContentQuality int `mapstructure:"content_quality"`
	ContentShort   int `mapstructure:"content_short"` // partial credit for <= 50 chars
	ContentLong    int `mapstructure:"content_long"`  // partial credit for >= 2000 chars
	MetadataField  int `mapstructure:"metadata_field"` // per present metadata field, 4 fields
	Engagement     int `mapstructure:"engagement"`
}

type Analysis struct {
	Mode     string `mapstructure:"mode"`     // local_only, single_provider, combined, auto
	Provider string `mapstructure:"provider"` // used by single_provider
	// Providers is the call order for combined mode. Empty means every provider
	// with credentials.
	Providers []string `mapstructure:"providers"`
	// Priority breaks majority-vote ties; may include "local".
	Priority              []string      `mapstructure:"priority"`
	ProviderTimeout       time.Duration `mapstructure:"provider_timeout"`
	OverallTimeout        time.Duration `mapstructure:"overall_timeout"`
	AgreementBoost        float64       `mapstructure:"agreement_boost"`
	AgreementBoostCeiling float64       `mapstructure:"agreement_boost_ceiling"`
	MinConfidence         float64       `mapstructure:"min_confidence"`
	MinScore              int           `mapstructure:"min_score"`
	KeywordLimit          int           `mapstructure:"keyword_limit"`
}

type Config struct {
	Analysis Analysis `mapstructure:"analysis"`

	Providers struct {
		OpenAI struct {
			ApiKey string `mapstructure:"api_key"`
			Model  string `mapstructure:"model"`
			Prompt string `mapstructure:"prompt"` // path to prompt template
		} `mapstructure:"openai"`
		Gemini struct {
			ApiKey string `mapstructure:"api_key"`
			Model  string `mapstructure:"model"`
			Prompt string `mapstructure:"prompt"`
		} `mapstructure:"gemini"`
		Perspective struct {
			ApiKey    string   `mapstructure:"api_key"`
			Languages []string `mapstructure:"languages"`
		} `mapstructure:"perspective"`
		HuggingFace struct {
			ApiKey              string `mapstructure:"api_key"`
			BaseURL             string `mapstructure:"base_url"`
			ToxicityModel       string `mapstructure:"toxicity_model"`
			SentimentModel      string `mapstructure:"sentiment_model"`
			ClassificationModel string `mapstructure:"classification_model"`
		} `mapstructure:"huggingface"`
	} `mapstructure:"providers"`

	Verification struct {
		MetadataTimeout time.Duration `mapstructure:"metadata_timeout"`
		UserAgent       string        `mapstructure:"user_agent"`
		Rubric          Rubric        `mapstructure:"rubric"`
	} `mapstructure:"verification"`

	Server struct {
		Addr string `mapstructure:"addr"`
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	} `mapstructure:"worker"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // text or json
	} `mapstructure:"log"`

	// Pricing: map[provider][model] = struct{input_per_token, output_per_token}
	Pricing map[string]map[string]PricingInfo `mapstructure:"pricing"`
}

// DefaultRubric is the stock verification rubric (sums to 100).
func DefaultRubric() Rubric {
	return Rubric{
		URLPattern:     20,
		VerifiedAuthor: 15,
		ProfileURL:     10,
		ContentQuality: 20,
		ContentShort:   5,
		ContentLong:    10,
		MetadataField:  5,
		Engagement:     15,
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("analysis.mode", ModeLocalOnly)
	v.SetDefault("analysis.priority", []string{ProviderGemini, ProviderOpenAI, ProviderPerspective, ProviderHuggingFace, SourceLocal})
	v.SetDefault("analysis.provider_timeout", 8*time.Second)
	v.SetDefault("analysis.overall_timeout", 15*time.Second)
	v.SetDefault("analysis.agreement_boost", 1.2)
	v.SetDefault("analysis.agreement_boost_ceiling", 0.9)
	v.SetDefault("analysis.min_confidence", 0.30)
	v.SetDefault("analysis.min_score", 2)
	v.SetDefault("analysis.keyword_limit", 10)

	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.gemini.model", "gemini-1.5-flash")
	v.SetDefault("providers.perspective.languages", []string{"en", "hi"})
	v.SetDefault("providers.huggingface.base_url", "https://api-inference.huggingface.co/models")
	v.SetDefault("providers.huggingface.toxicity_model", "unitary/toxic-bert")
	v.SetDefault("providers.huggingface.sentiment_model", "cardiffnlp/twitter-roberta-base-sentiment-latest")
	v.SetDefault("providers.huggingface.classification_model", "martin-ha/toxic-comment-model")

	r := DefaultRubric()
	v.SetDefault("verification.metadata_timeout", 10*time.Second)
	v.SetDefault("verification.user_agent", "Mozilla/5.0 (compatible; veracity/1.0)")
	v.SetDefault("verification.rubric.url_pattern", r.URLPattern)
	v.SetDefault("verification.rubric.verified_author", r.VerifiedAuthor)
	v.SetDefault("verification.rubric.profile_url", r.ProfileURL)
	v.SetDefault("verification.rubric.content_quality", r.ContentQuality)
	v.SetDefault("verification.rubric.content_short", r.ContentShort)
	v.SetDefault("verification.rubric.content_long", r.ContentLong)
	v.SetDefault("verification.rubric.metadata_field", r.MetadataField)
	v.SetDefault("verification.rubric.engagement", r.Engagement)

	v.SetDefault("server.addr", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.queues", map[string]int{"analysis": 1})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns a Config built from defaults alone (no file, no env).
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// defaults are static; failing here is a programming error
		panic(fmt.Sprintf("config: unmarshal defaults: %v", err))
	}
	return &cfg
}

// New prepares a viper instance with defaults, env binding and the config file
// location. An empty path searches for config.yaml in the current directory.
func New(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".") // Look for config.yaml in the current directory
	}

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("VERACITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The conventional provider key variables work without the prefix.
	v.BindEnv("providers.openai.api_key", "VERACITY_PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("providers.gemini.api_key", "VERACITY_PROVIDERS_GEMINI_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("providers.perspective.api_key", "VERACITY_PROVIDERS_PERSPECTIVE_API_KEY", "PERSPECTIVE_API_KEY")
	v.BindEnv("providers.huggingface.api_key", "VERACITY_PROVIDERS_HUGGINGFACE_API_KEY", "HUGGINGFACE_API_KEY")
	// --- End Environment Variable Binding ---
	return v
}

// Read loads the file (if any) and unmarshals a fresh Config from v.
func Read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		// It's okay if the config file doesn't exist, defaults and env vars still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return Unmarshal(v)
}

// Unmarshal builds a Config from the current state of v without re-reading.
func Unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig is the one-shot form of New + Read.
func LoadConfig(path string) (*Config, error) {
	return Read(New(path))
}

// HasCredentials reports whether the named provider has what it needs to run.
func (c *Config) HasCredentials(name string) bool {
	switch name {
	case ProviderOpenAI:
		return c.Providers.OpenAI.ApiKey != ""
	case ProviderGemini:
		return c.Providers.Gemini.ApiKey != ""
	case ProviderPerspective:
		return c.Providers.Perspective.ApiKey != ""
	case ProviderHuggingFace:
		return c.Providers.HuggingFace.ApiKey != ""
	}
	return false
}

// KnownProviders lists provider names in their default call order.
func KnownProviders() []string {
	return []string{ProviderGemini, ProviderOpenAI, ProviderPerspective, ProviderHuggingFace}
}

// EnabledProviders returns the combined-mode call order: the configured list,
// or every known provider with credentials when the list is empty.
func (c *Config) EnabledProviders() []string {
	if len(c.Analysis.Providers) > 0 {
		return append([]string(nil), c.Analysis.Providers...)
	}
	var out []string
	for _, name := range KnownProviders() {
		if c.HasCredentials(name) {
			out = append(out, name)
		}
	}
	return out
}

// Clone returns a deep copy so a snapshot can be modified without touching
// the one readers hold.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Analysis.Providers = append([]string(nil), c.Analysis.Providers...)
	cp.Analysis.Priority = append([]string(nil), c.Analysis.Priority...)
	cp.Providers.Perspective.Languages = append([]string(nil), c.Providers.Perspective.Languages...)
	if c.Worker.Queues != nil {
		cp.Worker.Queues = make(map[string]int, len(c.Worker.Queues))
		for k, v := range c.Worker.Queues {
			cp.Worker.Queues[k] = v
		}
	}
	if c.Pricing != nil {
		cp.Pricing = make(map[string]map[string]PricingInfo, len(c.Pricing))
		for p, models := range c.Pricing {
			m := make(map[string]PricingInfo, len(models))
			for k, v := range models {
				m[k] = v
			}
			cp.Pricing[p] = m
		}
	}
	return &cp
}
