package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/medication-net-benefit/internal/domain"
)

// CatalogURI is the resource holding the loaded medication catalog.
const CatalogURI = "netbenefit://catalog"

const reviewPromptName = "medication_review"

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        reviewPromptName,
		Description: "Guide a structured net-benefit review of a patient's medications using the evaluation tools.",
		Arguments: []*mcp.PromptArgument{
			{Name: "goals_of_care", Description: "1 comfort-focused to 4 proactive (default 3)"},
			{Name: "medications", Description: "comma-separated catalog ids to focus on; empty reviews the whole catalog"},
		},
	}, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		var args map[string]string
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		text, err := renderReviewPrompt(args)
		if err != nil {
			return nil, err
		}
		return &mcp.GetPromptResult{
			Description: "Medication net-benefit review",
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: text}},
			},
		}, nil
	})
	s.logger.WithField("prompt", reviewPromptName).Debug("Registered MCP prompt")
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         CatalogURI,
		Name:        "medication-catalog",
		Description: "Every medication in the loaded catalog with purpose, indications and burden.",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		text, err := s.catalogJSON()
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{URI: CatalogURI, MIMEType: "application/json", Text: text},
			},
		}, nil
	})
	s.logger.WithField("uri", CatalogURI).Debug("Registered MCP resource")
}

func (s *Server) catalogJSON() (string, error) {
	data, err := json.MarshalIndent(ListMedicationsResult{
		CatalogVersion: s.evaluation.CatalogVersion(),
		Count:          len(s.evaluation.Medications()),
		Medications:    s.evaluation.Medications(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding catalog: %w", err)
	}
	return string(data), nil
}

// renderReviewPrompt builds the review instructions from the prompt arguments.
func renderReviewPrompt(args map[string]string) (string, error) {
	goals := domain.DefaultGoalsOfCare
	if raw := strings.TrimSpace(args["goals_of_care"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 4 {
			return "", domain.NewValidationError("goals_of_care", "must be an integer from 1 to 4", raw)
		}
		goals = n
	}

	var b strings.Builder
	b.WriteString("Review this patient's medications for expected net clinical benefit.\n\n")
	b.WriteString("1. Collect the patient's age, sex, vitals, labs and comorbidities. Leave out anything unknown; do not guess values.\n")
	b.WriteString("2. Call calculate_risks with those attributes and note which scores were skipped for missing inputs.\n")
	fmt.Fprintf(&b, "3. Call evaluate_medications with goals_of_care %d", goals)
	if meds := splitIDs(args["medications"]); len(meds) > 0 {
		fmt.Fprintf(&b, " and medication_ids [%s]", strings.Join(meds, ", "))
	}
	b.WriteString(".\n")
	b.WriteString("4. For each result, explain the recommendation tier, the largest benefit and harm entries, and any safety warnings.\n")
	b.WriteString("5. Flag every CAUTION_ELDERLY or NOT_RECOMMENDED result for clinician attention.\n")
	b.WriteString("6. When the clinician confirms or overrides a tier, call record_feedback with the evaluation_id.\n\n")
	b.WriteString("The estimates come from published population risk tables. They support, and do not replace, clinical judgement.")

	return b.String(), nil
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, strings.ToLower(id))
		}
	}
	return ids
}
