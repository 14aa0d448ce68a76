package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medication-net-benefit/internal/domain"
	"github.com/medication-net-benefit/internal/service"
)

// RisksParams defines parameters for the calculate_risks tool
type RisksParams struct {
	Patient domain.PatientAttributes `json:"patient" jsonschema:"patient attributes; omit anything unknown"`
}

// EvaluateParams defines parameters for the evaluate_medications tool.
// Preferences are flattened so each one stays optional.
type EvaluateParams struct {
	Patient              domain.PatientAttributes `json:"patient" jsonschema:"patient attributes; omit anything unknown"`
	MedicationIDs        []string                 `json:"medication_ids,omitempty" jsonschema:"catalog ids to evaluate; empty means the whole catalog"`
	GoalsOfCare          int                      `json:"goals_of_care,omitempty" jsonschema:"1 comfort-focused to 4 proactive"`
	TimeHorizonYears     float64                  `json:"time_horizon_years,omitempty" jsonschema:"years over which benefit and harm are projected"`
	CostSensitivity      domain.Level             `json:"cost_sensitivity,omitempty" jsonschema:"low, moderate or high"`
	PillBurdenTolerance  domain.Level             `json:"pill_burden_tolerance,omitempty" jsonschema:"low, moderate or high"`
	IncludeNotApplicable *bool                    `json:"include_not_applicable,omitempty" jsonschema:"keep medications none of whose indications apply"`
}

// ListMedicationsParams defines parameters for the list_medications tool
type ListMedicationsParams struct {
	Purpose domain.Purpose `json:"purpose,omitempty" jsonschema:"preventive, disease_modifying, symptomatic or replacement"`
	Class   string         `json:"class,omitempty" jsonschema:"drug class, case-insensitive"`
}

// ListMedicationsResult defines the result of list_medications
type ListMedicationsResult struct {
	CatalogVersion string                      `json:"catalog_version"`
	Count          int                         `json:"count"`
	Medications    []service.MedicationSummary `json:"medications"`
}

// MedicationParams defines parameters for the get_medication tool
type MedicationParams struct {
	ID string `json:"id" jsonschema:"catalog medication id"`
}

// RecordFeedbackParams defines parameters for the record_feedback tool
type RecordFeedbackParams struct {
	EvaluationID            string                `json:"evaluation_id" jsonschema:"evaluation_id returned by evaluate_medications"`
	MedicationID            string                `json:"medication_id"`
	SuggestedRecommendation domain.Recommendation `json:"suggested_recommendation" jsonschema:"tier the evaluation produced"`
	ClinicianRecommendation domain.Recommendation `json:"clinician_recommendation,omitempty" jsonschema:"tier the clinician chose; omit when agreeing"`
	Agreed                  bool                  `json:"agreed,omitempty"`
	NetScore                float64               `json:"net_score,omitempty"`
	Reviewer                string                `json:"reviewer,omitempty"`
	Notes                   string                `json:"notes,omitempty"`
}

// ListFeedbackParams defines parameters for the list_feedback tool
type ListFeedbackParams struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExportFeedbackParams takes no arguments.
type ExportFeedbackParams struct{}

// ExportFeedbackResult defines the result of export_feedback
type ExportFeedbackResult struct {
	FilePath string `json:"file_path"`
	Count    int64  `json:"count"`
}

// ImportFeedbackParams defines parameters for the import_feedback tool
type ImportFeedbackParams struct {
	FilePath string `json:"file_path" jsonschema:"path of a file written by export_feedback"`
}

// ImportFeedbackResult defines the result of import_feedback
type ImportFeedbackResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

func (s *Server) handleCalculateRisks(ctx context.Context, req *mcp.CallToolRequest, params RisksParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "calculate_risks").Info("Tool invoked")

	result, err := s.evaluation.CalculateRisks(ctx, params.Patient)
	if err != nil {
		return s.errorResult("calculate_risks", err)
	}

	summary := fmt.Sprintf("Calculated %d risk scores (%d skipped for missing inputs)", len(result.Risks), len(result.Skipped))
	return s.toolResult(summary, result)
}

func (s *Server) handleEvaluateMedications(ctx context.Context, req *mcp.CallToolRequest, params EvaluateParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "evaluate_medications").Info("Tool invoked")

	request := &service.EvaluateParams{
		Patient:              params.Patient,
		MedicationIDs:        params.MedicationIDs,
		IncludeNotApplicable: params.IncludeNotApplicable,
	}
	prefs := domain.Preferences{
		GoalsOfCare:         params.GoalsOfCare,
		TimeHorizonYears:    params.TimeHorizonYears,
		CostSensitivity:     params.CostSensitivity,
		PillBurdenTolerance: params.PillBurdenTolerance,
	}
	if prefs != (domain.Preferences{}) {
		request.Preferences = &prefs
	}

	result, err := s.evaluation.Evaluate(ctx, request)
	if err != nil {
		return s.errorResult("evaluate_medications", err)
	}

	var lines []string
	for _, r := range result.Results {
		lines = append(lines, fmt.Sprintf("%s: %s (net %.2f)", r.MedicationID, r.Recommendation, r.NetScore))
	}
	summary := fmt.Sprintf("Evaluation %s ranked %d medications", result.EvaluationID, len(result.Results))
	if len(lines) > 0 {
		summary += "\n" + strings.Join(lines, "\n")
	}
	return s.toolResult(summary, result)
}

func (s *Server) handleListMedications(ctx context.Context, req *mcp.CallToolRequest, params ListMedicationsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_medications").Info("Tool invoked")

	if params.Purpose != "" && !params.Purpose.IsValid() {
		return s.errorResult("list_medications", domain.NewValidationError("purpose", "unknown purpose", params.Purpose))
	}

	result := ListMedicationsResult{
		CatalogVersion: s.evaluation.CatalogVersion(),
		Medications:    []service.MedicationSummary{},
	}
	for _, med := range s.evaluation.Medications() {
		if params.Purpose != "" && med.Purpose != params.Purpose {
			continue
		}
		if params.Class != "" && !strings.EqualFold(med.Class, params.Class) {
			continue
		}
		result.Medications = append(result.Medications, med)
	}
	result.Count = len(result.Medications)

	return s.toolResult(fmt.Sprintf("%d medications in catalog %s", result.Count, result.CatalogVersion), result)
}

func (s *Server) handleGetMedication(ctx context.Context, req *mcp.CallToolRequest, params MedicationParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_medication").Info("Tool invoked")

	med, err := s.evaluation.Medication(params.ID)
	if err != nil {
		return s.errorResult("get_medication", err)
	}
	return s.toolResult(fmt.Sprintf("%s (%s)", med.Name, med.Class), med)
}

func (s *Server) handleRecordFeedback(ctx context.Context, req *mcp.CallToolRequest, params RecordFeedbackParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "record_feedback").Info("Tool invoked")

	fb, err := s.feedback.Record(ctx, &service.FeedbackParams{
		EvaluationID:            params.EvaluationID,
		MedicationID:            params.MedicationID,
		SuggestedRecommendation: params.SuggestedRecommendation,
		ClinicianRecommendation: params.ClinicianRecommendation,
		Agreed:                  params.Agreed,
		NetScore:                params.NetScore,
		Reviewer:                params.Reviewer,
		Notes:                   params.Notes,
	})
	if err != nil {
		return s.errorResult("record_feedback", err)
	}

	verdict := "agreed with"
	if !fb.Agreed {
		verdict = fmt.Sprintf("overrode %s with", fb.SuggestedRecommendation)
	}
	summary := fmt.Sprintf("Recorded feedback for %s: clinician %s %s", fb.MedicationID, verdict, fb.ClinicianRecommendation)
	return s.toolResult(summary, fb)
}

func (s *Server) handleListFeedback(ctx context.Context, req *mcp.CallToolRequest, params ListFeedbackParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_feedback").Info("Tool invoked")

	page, err := s.feedback.List(ctx, params.Limit, params.Offset)
	if err != nil {
		return s.errorResult("list_feedback", err)
	}

	summary := fmt.Sprintf("%d of %d feedback entries", len(page.Feedback), page.Total)
	if page.Stats != nil && page.Stats.Total > 0 {
		summary += fmt.Sprintf(", agreement rate %.0f%%", page.Stats.AgreementRate()*100)
	}
	return s.toolResult(summary, page)
}

func (s *Server) handleExportFeedback(ctx context.Context, req *mcp.CallToolRequest, params ExportFeedbackParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "export_feedback").Info("Tool invoked")

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return s.errorResult("export_feedback", fmt.Errorf("creating export directory: %w", err))
	}

	filename := fmt.Sprintf("feedback_export_%s.json", time.Now().Format("20060102_150405"))
	filePath := filepath.Join(s.exportDir, filename)
	file, err := os.Create(filePath)
	if err != nil {
		return s.errorResult("export_feedback", fmt.Errorf("creating export file: %w", err))
	}
	defer file.Close()

	count, err := s.feedback.Export(ctx, file)
	if err != nil {
		return s.errorResult("export_feedback", err)
	}

	result := ExportFeedbackResult{FilePath: filePath, Count: count}
	return s.toolResult(fmt.Sprintf("Exported %d feedback entries to %s", count, filePath), result)
}

func (s *Server) handleImportFeedback(ctx context.Context, req *mcp.CallToolRequest, params ImportFeedbackParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "import_feedback").Info("Tool invoked")

	if params.FilePath == "" {
		return s.errorResult("import_feedback", domain.NewValidationError("file_path", "file_path is required", nil))
	}
	file, err := os.Open(params.FilePath)
	if err != nil {
		return s.errorResult("import_feedback", fmt.Errorf("opening import file: %w", err))
	}
	defer file.Close()

	imported, skipped, err := s.feedback.Import(ctx, file)
	if err != nil {
		return s.errorResult("import_feedback", err)
	}

	result := ImportFeedbackResult{Imported: imported, Skipped: skipped}
	return s.toolResult(fmt.Sprintf("Imported %d feedback entries (%d already present)", imported, skipped), result)
}

// toolResult returns a one-line summary followed by the JSON payload, which is
// also attached as structured content.
func (s *Server) toolResult(summary string, payload any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding tool result: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: summary},
			&mcp.TextContent{Text: string(data)},
		},
	}, payload, nil
}

// errorResult reports a failure to the client as a tool error rather than a
// protocol error, so the model can read it and correct its arguments.
func (s *Server) errorResult(tool string, err error) (*mcp.CallToolResult, any, error) {
	code := domain.ErrorCode(err)
	errorText := fmt.Sprintf("Error [%s]: %v", code, err)

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		errorText = fmt.Sprintf("Error [%s]: %s: %s", code, validationErr.Field, validationErr.Message)
	}

	entry := s.logger.WithField("tool", tool).WithField("code", code).WithError(err)
	if code == domain.CodeInternalServer || code == domain.CodeDatabaseError {
		entry.Error("Tool failed")
	} else {
		entry.Warn("Tool rejected request")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: errorText}},
		IsError: true,
	}, nil, nil
}
