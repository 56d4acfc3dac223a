// Package mcp provides an MCP (Model Context Protocol) server adapter for Huli.
// It exposes patient-scoped retrieval to the reasoning layer as tools and
// resources.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingPatientService is returned when the patient service is not provided.
	ErrMissingPatientService = errors.New("mcp: patient service is required")
)
