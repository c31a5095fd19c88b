// Package summarizer provides interfaces and implementations for
// summarizing text within the tinysummary service.
package summarizer

import "context"

const (
	// DefaultMaxSentences is the sentence cap used when the caller does not set one.
	DefaultMaxSentences = 5
)

// Summarizer defines the interface for summarizing text content.
type Summarizer interface {
	// Summarize returns a summary of text holding at most maxSentences sentences.
	Summarize(ctx context.Context, text string, maxSentences int) (string, error)

	// Initialize sets up the summarizer with any required configuration.
	Initialize() error
}
