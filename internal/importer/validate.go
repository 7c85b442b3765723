package importer

import "math"

// Validation messages shown inline next to each reviewed row.
const (
	msgCodeNameRequired  = "activity code and name are required"
	msgQtyNotPositive    = "quantity must be greater than zero"
	msgWeightNotPositive = "weight must be greater than zero"
)

// validate assigns a status to a single candidate row. The rules are applied
// uniformly after format-specific extraction, short-circuit: only the first
// triggered rule sets the status and message.
//
// Status is a pure function of the row's own fields; no cross-row state.
func validate(a *ParsedActivity) {
	switch {
	case a.ActivityCode == "" || a.ActivityName == "":
		a.Status = StatusError
		a.ErrorMessage = msgCodeNameRequired
	case !isFinitePositive(a.BOQQty):
		a.Status = StatusWarning
		a.ErrorMessage = msgQtyNotPositive
	case !isFinitePositive(a.Weight):
		a.Status = StatusWarning
		a.ErrorMessage = msgWeightNotPositive
	default:
		a.Status = StatusValid
		a.ErrorMessage = ""
	}
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
