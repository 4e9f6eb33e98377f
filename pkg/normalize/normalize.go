// Package normalize turns raw daily extracts into row-sets ready for the
// keyed store writer. One Rule per extract type; rules are looked up
// through a registry so callers never branch on the type themselves.
package normalize

import (
	"time"

	"github.com/colisflow/colisflow/internal/model"
)

// Context carries the per-submission inputs a rule needs beyond the raw
// file: the site, the operator-submitted reporting date, and lookup data
// the orchestrator loads from the store.
type Context struct {
	Site          string
	ReportingDate time.Time

	// FaultWeights maps a fault message to its severity coefficient,
	// loaded from the Ponderations_Bourrages_LTH table. Only the events
	// rule reads it; an empty map disables the weighted table.
	FaultWeights map[string]float64
}

// Rule normalizes one extract type.
type Rule interface {
	// Type is the extract category this rule handles.
	Type() model.DataType

	// Filename is the canonical blob object name for this type's raw file.
	Filename() string

	// Normalize parses the raw workbook and returns the row-sets to write,
	// in write order. A MalformedExtract error means the file cannot be
	// ingested and the operator should re-export it.
	Normalize(ctx Context, content []byte) ([]model.RowSet, error)
}
