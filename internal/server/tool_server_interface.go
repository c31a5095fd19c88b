// Package server exposes the summarizer over MCP and HTTP.
package server

import (
	"context"

	"github.com/localrivet/tinysummary/internal/summarizer"
)

// SummaryToolServer defines the interface for the MCP server that handles
// summarization tool calls from MCP clients.
type SummaryToolServer interface {
	// Initialize registers the tools and prepares the transport.
	Initialize() error

	// Start serves MCP over stdio until the client disconnects.
	Start() error

	// Stop gracefully shuts down the MCP server.
	Stop() error
}

// SummaryService is the summarizer as seen by the transports.
// *summarizer.AISummarizer satisfies it.
type SummaryService interface {
	SummarizeDetailed(ctx context.Context, text string, maxSentences int) (summarizer.Result, error)
	HealthReport(ctx context.Context) (*summarizer.HealthReport, error)
}

var _ SummaryService = (*summarizer.AISummarizer)(nil)
