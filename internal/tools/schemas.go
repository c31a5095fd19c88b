// Package tools defines the request and response schemas shared by the
// MCP tools and the HTTP API of the tinysummary service.
package tools

import (
	"errors"

	"github.com/localrivet/tinysummary/internal/errortypes"
)

const (
	// ToolSummarize is the name of the summarize MCP tool
	ToolSummarize = "summarize"

	// ToolSummarizerHealth is the name of the summarizer_health MCP tool
	ToolSummarizerHealth = "summarizer_health"

	// StatusSuccess and StatusError are the values of a response Status field
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrMissingText is returned when a summarize request carries no text.
var ErrMissingText = errors.New("missing text")

// SummarizeRequest defines the input schema for the summarize tool and the
// body of POST /api/summarize.
type SummarizeRequest struct {
	// Text is the document to summarize
	Text string `json:"text"`

	// MaxSentences caps the number of sentences in the summary.
	// Zero or negative selects the configured default.
	MaxSentences int `json:"max_sentences,omitempty"`
}

// Validate reports a validation error when the request has no text. Text
// made only of whitespace is valid and summarizes to "".
func (r SummarizeRequest) Validate() error {
	if r.Text == "" {
		return errortypes.ValidationError(ErrMissingText, "invalid summarize request")
	}
	return nil
}

// SummarizeResponse defines the output schema for the summarize tool
type SummarizeResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Summary is the generated summary
	Summary string `json:"summary"`

	// Source names the strategy that produced the summary
	// ("extractive" or a provider name)
	Source string `json:"source,omitempty"`

	// Cached is true when the summary came from the summary store
	Cached bool `json:"cached"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}

// SummaryBody is the success body of POST /api/summarize.
type SummaryBody struct {
	Summary string `json:"summary"`
	Source  string `json:"source"`
	Cached  bool   `json:"cached"`
}

// HealthRequest defines the input schema for the summarizer_health tool.
// It takes no arguments.
type HealthRequest struct{}

// HealthResponse defines the output schema for the summarizer_health tool
type HealthResponse struct {
	// Status indicates the result of the operation ("success" or "error")
	Status string `json:"status"`

	// Report is the health report rendered as JSON
	Report string `json:"report,omitempty"`

	// Error contains an error message if Status is "error"
	Error string `json:"error,omitempty"`
}
