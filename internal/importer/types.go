// Package importer turns externally authored schedule files into normalized,
// validated activity rows ready for bulk commit into a project's store.
// This package has no HTTP or database dependencies and can be driven by any
// frontend.
//
// Supported inputs: positional CSV exports, Primavera P6 .xer exchange files,
// and Microsoft Project .xml. Binary .mpp files are recognized but rejected
// with a guidance row instead of being decoded.
package importer

// RowStatus is the per-record validation outcome.
type RowStatus string

const (
	// StatusValid rows carry complete, committable data.
	StatusValid RowStatus = "valid"
	// StatusWarning rows have a non-fatal data-quality issue (e.g. zero
	// quantity) and are excluded from commit until corrected.
	StatusWarning RowStatus = "warning"
	// StatusError rows are missing mandatory fields and can never commit.
	StatusError RowStatus = "error"
)

// ParsedActivity is one normalized source row, transient for the duration of
// a single parse → review → commit cycle.
type ParsedActivity struct {
	ProjectCode  string    `json:"project_code"`
	AreaName     string    `json:"area_name"`
	SystemName   string    `json:"system_name"`
	ActivityCode string    `json:"activity_code"`
	ActivityName string    `json:"activity_name"`
	Unit         string    `json:"unit"`
	BOQQty       float64   `json:"boq_qty"`
	Weight       float64   `json:"weight"`
	Status       RowStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// ImportResult aggregates all rows parsed from one uploaded file.
type ImportResult struct {
	TotalRows   int              `json:"totalRows"`
	ValidRows   int              `json:"validRows"`
	WarningRows int              `json:"warningRows"`
	ErrorRows   int              `json:"errorRows"`
	Activities  []ParsedActivity `json:"activities"`
	FileType    string           `json:"fileType"`
}

// Valid returns the subset of activities eligible for commit.
func (r *ImportResult) Valid() []ParsedActivity {
	var out []ParsedActivity
	for _, a := range r.Activities {
		if a.Status == StatusValid {
			out = append(out, a)
		}
	}
	return out
}

// ValidCodes returns the activity codes of all valid rows, in file order.
func (r *ImportResult) ValidCodes() []string {
	var codes []string
	for _, a := range r.Activities {
		if a.Status == StatusValid {
			codes = append(codes, a.ActivityCode)
		}
	}
	return codes
}

// Options controls parsing behavior.
type Options struct {
	// NaiveCSVSplit restores the legacy comma-split CSV grammar that does not
	// honor quoted fields containing commas. Off by default; the RFC 4180
	// reader is the corrected behavior.
	NaiveCSVSplit bool
}
