// Package mcp exposes the evaluation and feedback services as MCP tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/service"
)

// Server is the medication net-benefit MCP server.
type Server struct {
	mcpServer  *mcp.Server
	evaluation *service.EvaluationService
	feedback   *service.FeedbackService
	exportDir  string
	tools      []string
	logger     *logrus.Logger
}

// NewServer creates an MCP server with its tools, the review prompt and the
// catalog resource. Feedback tools are registered only when the feedback
// service has a store.
func NewServer(cfg domain.MCPConfig, evaluation *service.EvaluationService, feedback *service.FeedbackService, exportDir string, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	name := cfg.ServerName
	if name == "" {
		name = "medication-net-benefit"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "v1.0.0"
	}

	server := &Server{
		mcpServer:  mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		evaluation: evaluation,
		feedback:   feedback,
		exportDir:  exportDir,
		logger:     logger,
	}
	server.registerTools()
	server.registerPrompts()
	server.registerResources()

	return server
}

func (s *Server) registerTools() {
	s.logger.Info("Registering tools with MCP SDK...")

	addTool(s, "calculate_risks",
		"Calculate the clinical risk scores (stroke, bleeding, cardiovascular, kidney, fall, life expectancy) that apply to a patient. Scores whose inputs are missing are listed as skipped.",
		s.handleCalculateRisks)
	addTool(s, "evaluate_medications",
		"Estimate the net clinical benefit of each catalog medication for a patient and rank them with a recommendation tier. Restrict with medication_ids; preferences default to goals 3 over a 5 year horizon.",
		s.handleEvaluateMedications)
	addTool(s, "list_medications",
		"List the medications in the loaded catalog, optionally filtered by purpose or class.",
		s.handleListMedications)
	addTool(s, "get_medication",
		"Return the full catalog record for one medication: indications, harms, burden and elderly safety data.",
		s.handleGetMedication)

	if s.feedback.Enabled() {
		addTool(s, "record_feedback",
			"Record a clinician's agreement with or override of a recommendation. Resubmitting for the same evaluation and medication replaces the earlier verdict.",
			s.handleRecordFeedback)
		addTool(s, "list_feedback",
			"List recorded clinician feedback, newest first, with agreement statistics.",
			s.handleListFeedback)
		addTool(s, "export_feedback",
			"Export all recorded feedback to a JSON file in the data directory.",
			s.handleExportFeedback)
		addTool(s, "import_feedback",
			"Import feedback from a JSON file produced by export_feedback. Entries already present are skipped.",
			s.handleImportFeedback)
	}

	s.logger.WithField("tool_count", len(s.tools)).Info("Successfully registered all tools")
}

func addTool[In any](s *Server, name, description string, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error)) {
	mcp.AddTool(s.mcpServer, &mcp.Tool{Name: name, Description: description}, handler)
	s.tools = append(s.tools, name)
	s.logger.WithField("tool_name", name).Debug("Registered MCP tool")
}

// Tools returns the registered tool names in registration order.
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// Run serves over transport until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.WithFields(logrus.Fields{
		"catalog_version": s.evaluation.CatalogVersion(),
		"tables_version":  s.evaluation.TablesVersion(),
		"feedback":        s.feedback.Enabled(),
	}).Info("Starting medication net-benefit MCP server")

	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Start serves over stdin/stdout.
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Close releases the feedback store.
func (s *Server) Close() error {
	if err := s.feedback.Close(); err != nil {
		s.logger.WithError(err).Error("Failed to close feedback store")
		return err
	}
	return nil
}
