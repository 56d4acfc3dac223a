package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Huli resources.
	uriScheme = "huli://"

	mimeJSON = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "patients",
		Name:        "patients",
		Description: "List of all patients with a record file",
		MIMEType:    mimeJSON,
	}, s.handlePatientsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "patients/{patientId}",
		Name:        "patient-profile",
		Description: "Demographics and medical history of a specific patient",
		MIMEType:    mimeJSON,
	}, s.handlePatientResource)
}

// handlePatientsResource returns the patient listing.
func (s *Server) handlePatientsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	patients, err := s.ports.Patient.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}

	type patientInfo struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Display string `json:"display"`
	}

	infos := make([]patientInfo, len(patients))
	for i, p := range patients {
		infos[i] = patientInfo{
			ID:      p.PatientID,
			Name:    p.Name,
			Display: p.Display(),
		}
	}

	return jsonResource(req.Params.URI, infos)
}

// handlePatientResource returns one patient's profile.
func (s *Server) handlePatientResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	patientID := extractPatientID(req.Params.URI)
	if patientID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	profile, err := s.ports.Patient.Profile(ctx, patientID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting patient profile: %w", err)
	}

	return jsonResource(req.Params.URI, toProfileOutput(profile))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractPatientID extracts the id from a URI like huli://patients/{patientId}.
func extractPatientID(uri string) string {
	const prefix = uriScheme + "patients/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
