package summarizer

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"
)

const sampleArticle = `Solar panels convert sunlight into electricity. Modern solar panels reach twenty percent efficiency.
Wind turbines also produce electricity from moving air. Many homes combine solar panels with batteries.
Batteries store electricity for cloudy days! Grid operators balance supply and demand every second.
Is solar electricity cheaper than coal? In many regions, solar electricity is now the cheapest option.`

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty",
			text: "",
			want: []string{},
		},
		{
			name: "whitespace only",
			text: "   \n\n  \t",
			want: []string{},
		},
		{
			name: "punctuation only falls back to whole text",
			text: "...",
			want: []string{"..."},
		},
		{
			name: "no terminal punctuation",
			text: "A single sentence without an ending",
			want: []string{"A single sentence without an ending"},
		},
		{
			name: "newline runs do not split",
			text: "First line\n\n\nstill first. Second!",
			want: []string{"First line still first.", "Second!"},
		},
		{
			name: "one terminator kept per sentence",
			text: "Wait... what?",
			want: []string{"Wait.", "what?"},
		},
		{
			name: "mixed terminators",
			text: "Really? Yes! Fine.",
			want: []string{"Really?", "Yes!", "Fine."},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := SplitSentences(test.text)
			texts := make([]string, len(got))
			for i, s := range got {
				texts[i] = s.Text
				if s.Index != i {
					t.Errorf("sentence %d has index %d", i, s.Index)
				}
			}
			if !reflect.DeepEqual(texts, test.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", test.text, texts, test.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"A cat sat.", []string{"cat", "sat"}},
		{"Don't STOP me now", []string{"don't", "stop", "now"}},
		{"abc123 x1 it's", []string{"abc123", "it's"}},
		{"a is of an at.", nil},
	}

	for _, test := range tests {
		got := Tokenize(test.text)
		if len(got) == 0 && len(test.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", test.text, got, test.want)
		}
	}
}

func TestBuildFrequencies(t *testing.T) {
	sentences := SplitSentences("The cat saw the cat. The dog ran.")
	freq := BuildFrequencies(sentences)

	want := FrequencyTable{"the": 3, "cat": 2, "saw": 1, "dog": 1, "ran": 1}
	if !reflect.DeepEqual(freq, want) {
		t.Errorf("BuildFrequencies() = %v, want %v", freq, want)
	}
}

func TestScoreSentence(t *testing.T) {
	freq := FrequencyTable{"aaa": 2, "bbb": 2}

	if got := ScoreSentence(nil, freq); got != 0 {
		t.Errorf("ScoreSentence(nil) = %v, want 0", got)
	}

	got := ScoreSentence([]string{"aaa", "bbb"}, freq)
	want := 4 / math.Sqrt(2)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ScoreSentence() = %v, want %v", got, want)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		maxSentences int
		want         string
	}{
		{
			name:         "short document returned unchanged",
			text:         "A cat sat. A cat ran. A dog slept.",
			maxSentences: 5,
			want:         "A cat sat. A cat ran. A dog slept.",
		},
		{
			name:         "top two by normalized frequency",
			text:         "The cat chased the mouse. The dog barked loudly. The cat and the dog played. Birds sang outside. The cat slept.",
			maxSentences: 2,
			want:         "The cat chased the mouse. The cat and the dog played.",
		},
		{
			name:         "top three by normalized frequency",
			text:         "The cat chased the mouse. The dog barked loudly. The cat and the dog played. Birds sang outside. The cat slept.",
			maxSentences: 3,
			want:         "The cat chased the mouse. The cat and the dog played. The cat slept.",
		},
		{
			name:         "empty input",
			text:         "",
			maxSentences: 3,
			want:         "",
		},
		{
			name:         "single sentence without punctuation",
			text:         "  one long thought that never quite ends and keeps on going  ",
			maxSentences: 1,
			want:         "one long thought that never quite ends and keeps on going",
		},
		{
			name:         "all scores zero keeps earliest sentences",
			text:         "a is of an at. to be or. it on up.",
			maxSentences: 2,
			want:         "a is of an at. to be or.",
		},
		{
			name:         "equal scores keep document order",
			text:         "Alpha beta gamma. Delta epsilon zeta. Theta iota kappa.",
			maxSentences: 2,
			want:         "Alpha beta gamma. Delta epsilon zeta.",
		},
		{
			name:         "paragraph breaks are rejoined",
			text:         "First part\nof a sentence. Second one.",
			maxSentences: 5,
			want:         "First part of a sentence. Second one.",
		},
		{
			name:         "non-positive cap uses default",
			text:         "One. Two. Three. Four. Five. Six.",
			maxSentences: 0,
			want:         "One. Two. Three. Four. Five.",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Extract(test.text, test.maxSentences)
			if got != test.want {
				t.Errorf("Extract() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestExtract_Properties(t *testing.T) {
	sentences := SplitSentences(sampleArticle)
	total := len(sentences)
	if total != 8 {
		t.Fatalf("expected 8 sentences in sample, got %d", total)
	}

	var previous map[int]bool
	for k := 1; k <= total+1; k++ {
		selected := SelectSentences(sentences, k)

		if len(selected) > k || len(selected) > total {
			t.Errorf("cap %d: selected %d sentences", k, len(selected))
		}

		current := make(map[int]bool, len(selected))
		for i, s := range selected {
			if i > 0 && selected[i-1].Index >= s.Index {
				t.Errorf("cap %d: sentences out of document order", k)
			}
			current[s.Index] = true
		}

		for idx := range previous {
			if !current[idx] {
				t.Errorf("cap %d dropped sentence %d that was selected at cap %d", k, idx, k-1)
			}
		}
		previous = current

		first := Extract(sampleArticle, k)
		second := Extract(sampleArticle, k)
		if first != second {
			t.Errorf("cap %d: output is not deterministic", k)
		}
	}
}

func TestExtract_ShortInputIsIdempotent(t *testing.T) {
	text := "Go is fun.\nGo is fast! Is Go simple?"
	got := Extract(text, 3)
	want := "Go is fun. Go is fast! Is Go simple?"
	if got != want {
		t.Errorf("Extract() = %q, want %q", got, want)
	}
	if again := Extract(got, 3); again != got {
		t.Errorf("Extract() of a summary changed it: %q", again)
	}
}

func TestExtract_OutputIsVerbatimSubsequence(t *testing.T) {
	got := Extract(sampleArticle, 3)
	for _, part := range SplitSentences(got) {
		found := false
		for _, s := range SplitSentences(sampleArticle) {
			if s.Text == part.Text {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("summary sentence %q is not in the source", part.Text)
		}
	}
	if n := len(SplitSentences(got)); n != 3 {
		t.Errorf("expected 3 sentences, got %d", n)
	}
}

func TestExtractiveSummarizer_Summarize(t *testing.T) {
	s := NewExtractiveSummarizer(2)
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	got, err := s.Summarize(context.Background(), "One. Two. Three.", 0)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if strings.Count(got, ".") != 2 {
		t.Errorf("expected the configured default of 2 sentences, got %q", got)
	}

	if NewExtractiveSummarizer(-1).defaultMaxSentences != DefaultMaxSentences {
		t.Error("expected negative default to fall back to DefaultMaxSentences")
	}
}
