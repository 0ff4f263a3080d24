package providers

import (
	"strings"

	"veracity/pkg/classifier"
)

// huggingFaceLabels maps the toxic-comment model's labels into the fixed set.
var huggingFaceLabels = map[string]classifier.Category{
	"TOXIC":         classifier.CategoryHarassment,
	"SEVERE_TOXIC":  classifier.CategoryViolence,
	"OBSCENE":       classifier.CategoryHarassment,
	"THREAT":        classifier.CategoryViolence,
	"INSULT":        classifier.CategoryCyberbullying,
	"IDENTITY_HATE": classifier.CategoryHateSpeech,
}

// llmLabels accepts the canonical names plus a few spellings LLMs like to produce.
var llmLabels = map[string]classifier.Category{
	"hate speech":       classifier.CategoryHateSpeech,
	"hate":              classifier.CategoryHateSpeech,
	"sexual harassment": classifier.CategorySexualHarassment,
	"fake news":         classifier.CategoryFakeNews,
	"bullying":          classifier.CategoryCyberbullying,
	"threat":            classifier.CategoryViolence,
	"fraud":             classifier.CategoryScam,
	"phishing":          classifier.CategoryScam,
	"benign":            classifier.CategoryOther,
	"none":              classifier.CategoryOther,
	"safe":              classifier.CategoryOther,
}

// MapHuggingFaceLabel maps a model label; unmapped labels fall to "other".
func MapHuggingFaceLabel(label string) classifier.Category {
	if c, ok := huggingFaceLabels[strings.ToUpper(strings.TrimSpace(label))]; ok {
		return c
	}
	return classifier.CategoryOther
}

// MapLLMCategory maps a free-form LLM category into the fixed set.
func MapLLMCategory(label string) classifier.Category {
	norm := strings.ToLower(strings.TrimSpace(label))
	if c := classifier.Category(norm); c.Valid() {
		return c
	}
	if c, ok := llmLabels[norm]; ok {
		return c
	}
	if c := classifier.Category(strings.ReplaceAll(norm, " ", "_")); c.Valid() {
		return c
	}
	return classifier.CategoryOther
}
