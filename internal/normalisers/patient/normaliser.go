// Package patient decodes patient record files (JSON or YAML) into
// domain.PatientRecord values.
package patient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.RecordParser = (*Normaliser)(nil)

// Normaliser handles patient record files.
type Normaliser struct{}

// New creates a new patient record normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".json", ".yaml", ".yml"}
}

// Supports reports whether uri has a supported extension.
func (n *Normaliser) Supports(uri string) bool {
	ext := strings.ToLower(filepath.Ext(uri))
	for _, e := range n.SupportedExtensions() {
		if ext == e {
			return true
		}
	}
	return false
}

// Parse decodes a patient record. Unknown fields are ignored, scalar
// fields accept strings, numbers and booleans, and absent collections
// are empty. A record without patient_id is rejected.
func (n *Normaliser) Parse(raw *domain.RawRecord) (*domain.PatientRecord, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	var wire recordWire
	var err error
	switch strings.ToLower(filepath.Ext(raw.URI)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw.Content, &wire)
	default:
		err = json.NewDecoder(bytes.NewReader(raw.Content)).Decode(&wire)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrSourceRead, raw.URI, err)
	}

	rec := wire.toDomain()
	if rec.PatientID == "" {
		return nil, fmt.Errorf("%w: %s has no patient_id", domain.ErrSourceRead, raw.URI)
	}
	return rec, nil
}
