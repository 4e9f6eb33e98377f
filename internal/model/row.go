// Package model defines core data structures for colisflow.
package model

import (
	"time"
)

// Row is one normalized output row for a target table: column name to value.
// Values are one of string, int64, float64, time.Time, or nil.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// TableDescriptor is the static configuration for one target table.
type TableDescriptor struct {
	// Name is the exact table name, accents included. The schemas predate
	// this tool, so the names are not negotiable.
	Name string

	// Schema is the Postgres schema, "public" when empty.
	Schema string

	// KeyColumns are the natural-key columns used for delete-then-replace.
	KeyColumns []string

	// Columns is the full ordered column list for inserts (keys included).
	Columns []string

	// RequireRows rejects a write when no rows survived normalization.
	// Set for tables where an empty result signals a malformed source.
	RequireRows bool
}

// KeyTuple extracts the ordered key values from a row. The second return
// is false when any key column is missing or nil.
func (d TableDescriptor) KeyTuple(r Row) ([]any, bool) {
	tuple := make([]any, len(d.KeyColumns))
	for i, col := range d.KeyColumns {
		v, ok := r[col]
		if !ok || v == nil {
			return nil, false
		}
		if s, isStr := v.(string); isStr && s == "" {
			return nil, false
		}
		tuple[i] = v
	}
	return tuple, true
}

// RowSet is the unit handed to the keyed store writer: one descriptor plus
// the rows to replace under it.
type RowSet struct {
	Desc TableDescriptor
	Rows []Row
}

// DataType identifies one daily extract category. The string values are the
// ledger's Data_type column values and must stay stable.
type DataType string

const (
	TypeEvents         DataType = "OPB"
	TypeInjectionHaut  DataType = "Injection_haut"
	TypeInjectionBas   DataType = "Injection_bas"
	TypeTraficHaut     DataType = "Trafic_par_sortie_trieur_haut"
	TypeTraficBas      DataType = "Trafic_par_sortie_trieur_bas"
	TypeQualite        DataType = "Qualité_de_tri"
	TypeFonctionnement DataType = "Temps_fonctionnement"
	TypeInterventions  DataType = "Interventions"
	TypeMvtStock       DataType = "Mvt_stock"
	TypeInventaire     DataType = "Etat_stock"
	TypePoidsCarbone   DataType = "Poids_carbone"

	// TypeInjectionJour marks the combined daily injection total derived
	// from both sorter files. It has no extract of its own.
	TypeInjectionJour DataType = "Injection_par_jour"
)

// AllTypes lists every uploadable extract type (derived types excluded).
func AllTypes() []DataType {
	return []DataType{
		TypeEvents,
		TypeInjectionHaut,
		TypeInjectionBas,
		TypeTraficHaut,
		TypeTraficBas,
		TypeQualite,
		TypeFonctionnement,
		TypeInterventions,
		TypeMvtStock,
		TypeInventaire,
		TypePoidsCarbone,
	}
}

// typeSlugs maps ASCII-safe names to extract types. The ledger strings
// carry accents, so URLs and drop filenames use these instead.
var typeSlugs = map[string]DataType{
	"events":         TypeEvents,
	"injection_haut": TypeInjectionHaut,
	"injection_bas":  TypeInjectionBas,
	"trafic_haut":    TypeTraficHaut,
	"trafic_bas":     TypeTraficBas,
	"qualite":        TypeQualite,
	"fonctionnement": TypeFonctionnement,
	"interventions":  TypeInterventions,
	"mvt_stock":      TypeMvtStock,
	"etat_stock":     TypeInventaire,
	"poids_carbone":  TypePoidsCarbone,
}

// TypeFromSlug resolves an ASCII slug to its extract type.
func TypeFromSlug(slug string) (DataType, bool) {
	t, ok := typeSlugs[slug]
	return t, ok
}

// Slugs lists every registered type slug in no particular order.
func Slugs() []string {
	out := make([]string, 0, len(typeSlugs))
	for s := range typeSlugs {
		out = append(out, s)
	}
	return out
}

// ExtractionDated reports whether the type's reporting date is the date the
// extract was pulled (may be today) rather than the day the data describes
// (must be a past day).
func (t DataType) ExtractionDated() bool {
	switch t {
	case TypeInterventions, TypeMvtStock, TypeInventaire, TypePoidsCarbone:
		return true
	default:
		return false
	}
}

// Submission is one operator upload: raw extract bytes plus metadata.
type Submission struct {
	Type          DataType
	Site          string
	ReportingDate time.Time // calendar date the data pertains to
	Content       []byte
}

// Date truncates a timestamp to a UTC calendar date.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
