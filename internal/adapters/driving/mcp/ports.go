package mcp

import (
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Search provides patient-scoped retrieval.
	Search driving.SearchService

	// Patient provides patient listings and profiles.
	Patient driving.PatientService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Patient == nil {
		return ErrMissingPatientService
	}
	return nil
}
