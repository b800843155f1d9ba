// Package models - API request types and input validation.
//
// Requests arrive loosely typed from JSON and are validated exactly once at
// the boundary into a ValidatedRequest, whose Tone and Intensity are closed,
// bounds-checked types. Everything downstream works with the validated value.
package models

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Text length limits, in characters.
const (
	MinTextLength = 3
	MaxTextLength = 10000
)

// Tone selects the register of the rewritten text.
type Tone string

const (
	ToneNeutral      Tone = "neutral"
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneAcademic     Tone = "academic"
	ToneStorytelling Tone = "storytelling"
)

// Tones returns every supported tone in display order.
func Tones() []Tone {
	return []Tone{ToneNeutral, ToneProfessional, ToneCasual, ToneAcademic, ToneStorytelling}
}

// ParseTone converts s to a Tone, reporting whether it is supported.
func ParseTone(s string) (Tone, bool) {
	for _, t := range Tones() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

func (t Tone) String() string { return string(t) }

// Intensity is how aggressively text is rewritten, 0 to 100 inclusive.
type Intensity int

const (
	MinIntensity Intensity = 0
	MaxIntensity Intensity = 100
)

// ParseIntensity accepts only whole numbers within [MinIntensity, MaxIntensity].
func ParseIntensity(v float64) (Intensity, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	if v < float64(MinIntensity) || v > float64(MaxIntensity) {
		return 0, false
	}
	return Intensity(v), true
}

// Fraction returns the intensity scaled to [0, 1].
func (i Intensity) Fraction() float64 {
	return float64(i) / 100
}

// HumanizeRequest is the wire form of POST /humanize.
type HumanizeRequest struct {
	Text           string   `json:"text"`
	Tone           string   `json:"tone"`
	Intensity      *float64 `json:"intensity"`
	RecaptchaToken string   `json:"recaptchaToken,omitempty"`
	RateLimitKey   string   `json:"rateLimitKey,omitempty"`
}

// ValidatedRequest is a HumanizeRequest that passed ValidateHumanizeInput.
// Text has HTML tags removed and surrounding whitespace trimmed.
type ValidatedRequest struct {
	Text      string
	Tone      Tone
	Intensity Intensity
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes anything that looks like an HTML tag.
func StripHTML(text string) string {
	return htmlTag.ReplaceAllString(text, "")
}

// ValidateHumanizeInput checks text, tone and intensity in that order and
// returns the first *ValidationError encountered. It has no side effects.
func ValidateHumanizeInput(req *HumanizeRequest) (ValidatedRequest, error) {
	if utf8.RuneCountInString(req.Text) > MaxTextLength {
		return ValidatedRequest{}, newValidationError(ValidationTooLong, "text",
			"Text must not exceed 10,000 characters")
	}

	text := strings.TrimSpace(StripHTML(req.Text))
	if utf8.RuneCountInString(text) < MinTextLength {
		return ValidatedRequest{}, newValidationError(ValidationTooShort, "text",
			"Text must contain at least 3 non-whitespace characters")
	}

	tone, ok := ParseTone(req.Tone)
	if !ok {
		return ValidatedRequest{}, newValidationError(ValidationInvalidTone, "tone",
			"Tone must be one of neutral, professional, casual, academic, storytelling")
	}

	if req.Intensity == nil {
		return ValidatedRequest{}, newValidationError(ValidationInvalidIntensity, "intensity",
			"Intensity is required")
	}
	intensity, ok := ParseIntensity(*req.Intensity)
	if !ok {
		return ValidatedRequest{}, newValidationError(ValidationInvalidIntensity, "intensity",
			"Intensity must be a whole number between 0 and 100")
	}

	return ValidatedRequest{Text: text, Tone: tone, Intensity: intensity}, nil
}
