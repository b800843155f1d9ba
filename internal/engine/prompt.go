package engine

import (
	"fmt"

	"humanizer/internal/models"
)

var toneInstructions = map[models.Tone]string{
	models.ToneNeutral:      "Use a balanced, natural tone that sounds like everyday conversation.",
	models.ToneProfessional: "Use a polished, business-appropriate tone while maintaining warmth and accessibility.",
	models.ToneCasual:       "Use a relaxed, friendly tone with conversational language and contractions.",
	models.ToneAcademic:     "Use a scholarly tone with precise vocabulary while remaining clear and readable.",
	models.ToneStorytelling: "Use an engaging narrative tone with vivid language and natural flow.",
}

// IntensityTier buckets intensity into the three rewrite depths.
type IntensityTier string

const (
	TierMinimal     IntensityTier = "minimal"
	TierModerate    IntensityTier = "moderate"
	TierSignificant IntensityTier = "significant"
)

// TierFor maps intensity to its tier: below 30 minimal, below 70 moderate.
func TierFor(intensity models.Intensity) IntensityTier {
	switch {
	case intensity < 30:
		return TierMinimal
	case intensity < 70:
		return TierModerate
	default:
		return TierSignificant
	}
}

var tierInstructions = map[IntensityTier]string{
	TierMinimal:     "Make minimal changes - only fix obvious AI patterns while preserving the original structure and most wording.",
	TierModerate:    "Make moderate changes - rephrase sentences naturally, vary sentence structure, and add human touches while keeping the core message.",
	TierSignificant: "Make significant changes - completely rewrite in a natural human voice, vary rhythm extensively, add personality, and make it sound like genuine human writing.",
}

const systemPromptTemplate = `You are an expert at rewriting AI-generated text to sound naturally human-written. Your goal is to make text undetectable by AI detectors while preserving the original meaning.

Key principles:
1. Vary sentence length and structure naturally
2. Add subtle imperfections that humans make (sentence fragments, occasional contractions)
3. Use transitional phrases humans commonly use
4. Avoid overly formal or robotic phrasing
5. Add personal touches and natural flow
6. Preserve the original meaning and key information

Tone guidance: %s

Intensity guidance: %s

IMPORTANT: Only output the rewritten text. Do not include explanations, notes, or any meta-commentary.`

// SystemPrompt builds the instruction message for tone and intensity.
func SystemPrompt(tone models.Tone, intensity models.Intensity) string {
	guide, ok := toneInstructions[tone]
	if !ok {
		guide = toneInstructions[models.ToneNeutral]
	}
	return fmt.Sprintf(systemPromptTemplate, guide, tierInstructions[TierFor(intensity)])
}

// UserPrompt wraps the text to rewrite.
func UserPrompt(text string) string {
	return "Please humanize this text:\n\n" + text
}
