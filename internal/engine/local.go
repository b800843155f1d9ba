package engine

import (
	"context"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"humanizer/internal/models"
)

// synonyms maps formal phrasing to plainer equivalents. Keys are lower case.
var synonyms = map[string]string{
	"utilize":       "use",
	"utilise":       "use",
	"utilization":   "use",
	"commence":      "start",
	"commenced":     "started",
	"terminate":     "end",
	"facilitate":    "help",
	"assist":        "help",
	"demonstrate":   "show",
	"approximately": "about",
	"numerous":      "many",
	"subsequently":  "later",
	"additionally":  "also",
	"furthermore":   "also",
	"moreover":      "plus",
	"consequently":  "so",
	"therefore":     "so",
	"nevertheless":  "still",
	"purchase":      "buy",
	"obtain":        "get",
	"acquire":       "get",
	"endeavor":      "try",
	"sufficient":    "enough",
	"individuals":   "people",
	"regarding":     "about",
	"inquire":       "ask",
	"comprehend":    "understand",
	"leverage":      "use",
	"optimal":       "best",
	"prior to":      "before",
	"in order to":   "to",
}

// fillers are inserted after the first word of a sentence, per tone.
var fillers = map[models.Tone][]string{
	models.ToneNeutral:      {"actually", "really", "honestly", "simply"},
	models.ToneProfessional: {"notably", "in practice", "ultimately", "effectively"},
	models.ToneCasual:       {"basically", "pretty much", "kind of", "totally"},
	models.ToneAcademic:     {"arguably", "in effect", "broadly speaking", "notably"},
	models.ToneStorytelling: {"suddenly", "somehow", "quietly", "at last"},
}

const (
	fillerProbability = 0.4 // scaled by intensity
	fillerMinLength   = 10
	mergeMinIntensity = 60
	mergeProbability  = 0.3
	mergeMaxLength    = 50
)

var synonymPattern = compileSynonymPattern()

// compileSynonymPattern builds one case-insensitive whole-word alternation,
// longest keys first so multi-word phrases win over their parts.
func compileSynonymPattern() *regexp.Regexp {
	keys := make([]string, 0, len(synonyms))
	for k := range synonyms {
		keys = append(keys, regexp.QuoteMeta(k))
	}
	slices.SortFunc(keys, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(keys, "|") + `)\b`)
}

// LocalOption configures a Local engine.
type LocalOption func(*Local)

// WithRand sets the random source used for filler and merge decisions.
func WithRand(rng *rand.Rand) LocalOption {
	return func(l *Local) {
		l.rng = rng
	}
}

// Local rewrites text with fixed rules and never leaves the process.
type Local struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocal creates a local engine.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) Variant() string { return VariantLocal }

// Humanize substitutes synonyms, injects fillers and, at high intensity,
// merges short adjacent sentences.
func (l *Local) Humanize(ctx context.Context, req models.ValidatedRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text := SubstituteSynonyms(req.Text)
	sentences := SplitSentences(text)

	l.mu.Lock()
	sentences = l.injectFillers(sentences, req.Tone, req.Intensity)
	if req.Intensity > mergeMinIntensity {
		sentences = l.mergeShort(sentences)
	}
	l.mu.Unlock()

	out := strings.TrimSpace(strings.Join(sentences, " "))
	if out == "" {
		return req.Text, nil
	}
	return out, nil
}

// SubstituteSynonyms replaces every whole-word dictionary match, keeping the
// case of the match's first letter.
func SubstituteSynonyms(text string) string {
	return synonymPattern.ReplaceAllStringFunc(text, func(match string) string {
		replacement, ok := synonyms[strings.ToLower(match)]
		if !ok {
			return match
		}
		first, _ := utf8.DecodeRuneInString(match)
		if unicode.IsUpper(first) {
			return capitalize(replacement)
		}
		return replacement
	})
}

// SplitSentences splits on ". ", "! " and "? ", keeping the punctuation with
// its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func (l *Local) injectFillers(sentences []string, tone models.Tone, intensity models.Intensity) []string {
	vocab := fillers[tone]
	if len(vocab) == 0 {
		vocab = fillers[models.ToneNeutral]
	}
	p := intensity.Fraction() * fillerProbability

	for i, s := range sentences {
		if utf8.RuneCountInString(s) <= fillerMinLength || l.rng.Float64() >= p {
			continue
		}
		first, rest, ok := strings.Cut(s, " ")
		if !ok {
			continue
		}
		sentences[i] = first + " " + vocab[l.rng.IntN(len(vocab))] + " " + rest
	}
	return sentences
}

func (l *Local) mergeShort(sentences []string) []string {
	merged := make([]string, 0, len(sentences))
	for i := 0; i < len(sentences); i++ {
		if i+1 < len(sentences) &&
			utf8.RuneCountInString(sentences[i]) < mergeMaxLength &&
			utf8.RuneCountInString(sentences[i+1]) < mergeMaxLength &&
			l.rng.Float64() < mergeProbability {
			first := strings.TrimRight(sentences[i], ".!?")
			merged = append(merged, first+", and "+lowerFirst(sentences[i+1]))
			i++
			continue
		}
		merged = append(merged, sentences[i])
	}
	return merged
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// lowerFirst lower-cases the first letter unless the word is the pronoun "I".
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == 'I' && (len(s) == size || !unicode.IsLetter(rune(s[size]))) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
