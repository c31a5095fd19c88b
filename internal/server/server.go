package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/localrivet/gomcp/server"
	"github.com/localrivet/tinysummary/internal/errortypes"
	"github.com/localrivet/tinysummary/internal/tools"
)

// ServerName is the MCP server name announced to clients.
const ServerName = "tinysummary"

// Common server error types
var (
	ErrServerNotInitialized = errors.New("server not initialized")
	ErrMissingDependencies  = errors.New("one or more required dependencies are nil")
)

// MCPSummaryToolServer implements SummaryToolServer for the summarize and
// summarizer_health tools.
type MCPSummaryToolServer struct {
	service   SummaryService
	mcpServer server.Server
	logger    *slog.Logger
}

// NewSummaryToolServer creates a new MCPSummaryToolServer instance. A nil
// logger means slog.Default().
func NewSummaryToolServer(service SummaryService, logger *slog.Logger) *MCPSummaryToolServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPSummaryToolServer{
		service: service,
		logger:  logger,
	}
}

// Initialize creates the MCP server and registers the tools.
func (s *MCPSummaryToolServer) Initialize() error {
	s.logger.Info("Initializing MCP Summary Tool Server")

	if s.service == nil {
		return errortypes.ConfigError(ErrMissingDependencies, "server initialization failed")
	}

	s.mcpServer = s.RegisterTools(server.NewServer(ServerName))
	s.logger.Info("MCP Summary Tool Server initialized successfully", "tool_count", 2)
	return nil
}

// RegisterTools adds the summarization tools to srv and returns it, so a
// host MCP server can embed them next to its own tools.
func (s *MCPSummaryToolServer) RegisterTools(srv server.Server) server.Server {
	srv = srv.Tool(tools.ToolSummarize,
		"Summarize text into its most representative sentences",
		s.handleSummarize)

	srv = srv.Tool(tools.ToolSummarizerHealth,
		"Report provider, cache and fallback health of the summarizer",
		s.handleHealth)

	return srv
}

// Start starts the MCP server on the stdio transport.
func (s *MCPSummaryToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}

	s.logger.Info("Starting MCP Summary Tool Server")
	return s.mcpServer.AsStdio().Run()
}

// Stop gracefully shuts down the MCP server.
func (s *MCPSummaryToolServer) Stop() error {
	s.logger.Info("Stopping MCP Summary Tool Server")
	// The server will exit when stdin is closed
	return nil
}

// handleSummarize handles the summarize MCP tool call.
func (s *MCPSummaryToolServer) handleSummarize(_ *server.Context, req tools.SummarizeRequest) (tools.SummarizeResponse, error) {
	s.logger.Info("Processing summarize request", "text_length", len(req.Text), "max_sentences", req.MaxSentences)

	response := tools.SummarizeResponse{
		Status: tools.StatusSuccess,
	}

	if err := req.Validate(); err != nil {
		errortypes.LogError(s.logger, err)
		response.Status = tools.StatusError
		response.Error = err.Error()
		return response, nil
	}

	result, err := s.service.SummarizeDetailed(context.Background(), req.Text, req.MaxSentences)
	if err != nil {
		err = errortypes.InternalError(err, "failed to summarize text").
			WithField("text_length", len(req.Text))
		errortypes.LogError(s.logger, err)

		response.Status = tools.StatusError
		response.Error = err.Error()
		return response, nil
	}

	response.Summary = result.Summary
	response.Source = result.Source
	response.Cached = result.Cached
	s.logger.Info("Successfully summarized text", "source", result.Source, "cached", result.Cached)
	return response, nil
}

// handleHealth handles the summarizer_health MCP tool call.
func (s *MCPSummaryToolServer) handleHealth(_ *server.Context, _ tools.HealthRequest) (tools.HealthResponse, error) {
	s.logger.Info("Processing summarizer_health request")

	response := tools.HealthResponse{
		Status: tools.StatusSuccess,
	}

	report, err := s.service.HealthReport(context.Background())
	if err == nil {
		var data []byte
		data, err = json.MarshalIndent(report, "", "  ")
		response.Report = string(data)
	}
	if err != nil {
		err = errortypes.InternalError(err, "failed to build health report")
		errortypes.LogError(s.logger, err)

		response.Status = tools.StatusError
		response.Error = err.Error()
		response.Report = ""
	}

	return response, nil
}
