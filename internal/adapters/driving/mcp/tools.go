package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// SearchInput is the input schema for the medical_search tool.
type SearchInput struct {
	Query       string `json:"query" jsonschema:"natural language description of the information needed"`
	PatientID   string `json:"patient_id" jsonschema:"identifier of the patient whose records are searched"`
	EventType   string `json:"event_type,omitempty" jsonschema:"restrict results to one of visit, lab, doctor_note, pharmacy_note"`
	OrderByDate bool   `json:"order_by_date,omitempty" jsonschema:"sort results by date, most recent first, instead of relevance"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
}

// SearchOutput is the output schema for the medical_search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved chunk.
type SearchResultOutput struct {
	Text      string            `json:"text"`
	Timestamp string            `json:"timestamp,omitempty"`
	EventType string            `json:"event_type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Score     float64           `json:"score"`
}

// ProfileInput is the input schema for the patient_profile tool.
type ProfileInput struct {
	PatientID string `json:"patient_id" jsonschema:"identifier of the patient"`
}

// ProfileOutput is the output schema for the patient_profile tool.
type ProfileOutput struct {
	PatientID          string            `json:"patient_id"`
	Name               string            `json:"name,omitempty"`
	Age                string            `json:"age,omitempty"`
	Gender             string            `json:"gender,omitempty"`
	Demographics       map[string]string `json:"demographics,omitempty"`
	ChronicConditions  []string          `json:"chronic_conditions"`
	Allergies          []string          `json:"allergies"`
	CurrentMedications []string          `json:"current_medications"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "medical_search",
		Description: "Search one patient's clinical records (visits, labs, doctor notes, pharmacy notes). " +
			"Use event_type to restrict the kind of record and order_by_date for questions about the latest events.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "patient_profile",
		Description: "Get a patient's demographics, chronic conditions, allergies and current medications",
	}, s.handleProfile)
}

// handleSearch handles the medical_search tool invocation. The text content
// carries the results as prompt-ready blocks.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	eventType, err := domain.ParseEventType(input.EventType)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	opts := domain.SearchOptions{
		PatientID:   input.PatientID,
		EventType:   eventType,
		OrderByDate: input.OrderByDate,
		Limit:       input.Limit,
	}
	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			Text:      results[i].Text,
			Timestamp: results[i].Timestamp,
			EventType: results[i].EventType.String(),
			Metadata:  results[i].Metadata,
			Score:     results[i].Score,
		}
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: domain.FormatResults(results)}},
	}
	return result, output, nil
}

// handleProfile handles the patient_profile tool invocation.
func (s *Server) handleProfile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProfileInput,
) (*mcp.CallToolResult, ProfileOutput, error) {
	profile, err := s.ports.Patient.Profile(ctx, input.PatientID)
	if err != nil {
		return nil, ProfileOutput{}, err
	}
	return nil, toProfileOutput(profile), nil
}

func toProfileOutput(p *domain.PatientProfile) ProfileOutput {
	return ProfileOutput{
		PatientID:          p.PatientID,
		Name:               p.Demographics.Name,
		Age:                p.Demographics.Age,
		Gender:             p.Demographics.Gender,
		Demographics:       p.Demographics.Extra,
		ChronicConditions:  nonNil(p.MedicalHistory.ChronicConditions),
		Allergies:          nonNil(p.MedicalHistory.Allergies),
		CurrentMedications: nonNil(p.MedicalHistory.CurrentMedications),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
