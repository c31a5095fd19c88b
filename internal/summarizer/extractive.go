package summarizer

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// SourceExtractive identifies summaries produced by the local extractive core.
const SourceExtractive = "extractive"

var (
	newlineRun      = regexp.MustCompile(`\n+`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]?`)
	tokenPattern    = regexp.MustCompile(`\b[a-z0-9']{3,}\b`)
)

// Sentence is a trimmed sentence of a document tagged with its position.
type Sentence struct {
	Text  string
	Index int
}

// ScoredSentence pairs a sentence with its salience score.
type ScoredSentence struct {
	Sentence
	Score float64
}

// FrequencyTable counts token occurrences across a whole document.
type FrequencyTable map[string]int

// SplitSentences segments text into trimmed, non-empty sentences.
//
// Newline runs are collapsed to a single space first, so paragraph breaks do
// not end a sentence. A sentence is a maximal run of characters other than
// '.', '!' and '?', optionally followed by one of them. When nothing matches
// (empty or punctuation-only input) the whole text is the only candidate.
func SplitSentences(text string) []Sentence {
	candidates := sentencePattern.FindAllString(newlineRun.ReplaceAllString(text, " "), -1)
	if len(candidates) == 0 {
		candidates = []string{text}
	}

	sentences := make([]Sentence, 0, len(candidates))
	for _, c := range candidates {
		trimmed := strings.TrimSpace(c)
		if trimmed == "" {
			continue
		}
		sentences = append(sentences, Sentence{Text: trimmed, Index: len(sentences)})
	}
	return sentences
}

// Tokenize returns the lower-cased words of s that are at least three
// characters of letters, digits or apostrophes. Shorter words are dropped.
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// BuildFrequencies counts every token occurrence in every sentence.
func BuildFrequencies(sentences []Sentence) FrequencyTable {
	freq := make(FrequencyTable)
	for _, s := range sentences {
		for _, tok := range Tokenize(s.Text) {
			freq[tok]++
		}
	}
	return freq
}

// ScoreSentence sums the document frequency of each token and divides by the
// square root of the token count. A sentence without tokens scores 0.
func ScoreSentence(tokens []string, freq FrequencyTable) float64 {
	total := 0
	for _, tok := range tokens {
		total += freq[tok]
	}
	return float64(total) / math.Sqrt(float64(max(1, len(tokens))))
}

// ScoreSentences scores every sentence against the document frequency table.
func ScoreSentences(sentences []Sentence) []ScoredSentence {
	freq := BuildFrequencies(sentences)
	scored := make([]ScoredSentence, len(sentences))
	for i, s := range sentences {
		scored[i] = ScoredSentence{Sentence: s, Score: ScoreSentence(Tokenize(s.Text), freq)}
	}
	return scored
}

// SelectSentences keeps the maxSentences highest scoring sentences and returns
// them in document order. Equal scores are ranked by position, so the result
// is reproducible. Documents that already fit are returned without scoring.
func SelectSentences(sentences []Sentence, maxSentences int) []Sentence {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	if len(sentences) <= maxSentences {
		return sentences
	}

	scored := ScoreSentences(sentences)
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Index < scored[j].Index
	})

	top := scored[:maxSentences]
	sort.Slice(top, func(i, j int) bool {
		return top[i].Index < top[j].Index
	})

	selected := make([]Sentence, len(top))
	for i, s := range top {
		selected[i] = s.Sentence
	}
	return selected
}

// Extract returns up to maxSentences of the most representative sentences of
// text, verbatim and in their original order, joined by single spaces.
// A non-positive maxSentences selects DefaultMaxSentences.
func Extract(text string, maxSentences int) string {
	selected := SelectSentences(SplitSentences(text), maxSentences)

	parts := make([]string, len(selected))
	for i, s := range selected {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// ExtractiveSummarizer implements Summarizer with the local frequency based
// extraction. It never calls out and never fails.
type ExtractiveSummarizer struct {
	defaultMaxSentences int
}

// NewExtractiveSummarizer creates an ExtractiveSummarizer. A non-positive
// default falls back to DefaultMaxSentences.
func NewExtractiveSummarizer(defaultMaxSentences int) *ExtractiveSummarizer {
	if defaultMaxSentences <= 0 {
		defaultMaxSentences = DefaultMaxSentences
	}
	return &ExtractiveSummarizer{defaultMaxSentences: defaultMaxSentences}
}

// Initialize is a no-op; the extractive summarizer has nothing to set up.
func (s *ExtractiveSummarizer) Initialize() error {
	return nil
}

// Summarize implements Summarizer.
func (s *ExtractiveSummarizer) Summarize(_ context.Context, text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = s.defaultMaxSentences
	}
	return Extract(text, maxSentences), nil
}
