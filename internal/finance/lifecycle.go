package finance

import (
	"fmt"

	"captable/internal/models"
)

// transitions is the complete instrument lifecycle graph. MATURED may
// return to OUTSTANDING only through a maturity extension; terminal
// statuses have no outgoing edges.
var transitions = map[models.InstrumentStatus][]models.InstrumentStatus{
	models.StatusOutstanding: {
		models.StatusConverted,
		models.StatusRedeemed,
		models.StatusMatured,
		models.StatusCancelled,
	},
	models.StatusMatured: {
		models.StatusOutstanding,
		models.StatusConverted,
		models.StatusRedeemed,
	},
	models.StatusConverted: {},
	models.StatusRedeemed:  {},
	models.StatusCancelled: {},
}

// TransitionError reports a lifecycle transition not present in the table.
type TransitionError struct {
	From models.InstrumentStatus
	To   models.InstrumentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition instrument from %s to %s", e.From, e.To)
}

// CanTransition reports whether the lifecycle table allows from -> to.
func CanTransition(from, to models.InstrumentStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a TransitionError when from -> to is not in
// the lifecycle table. It must be called before any status mutation.
func ValidateTransition(from, to models.InstrumentStatus) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// IsConvertible reports whether an instrument in the given status is
// eligible to convert into equity.
func IsConvertible(status models.InstrumentStatus) bool {
	return CanTransition(status, models.StatusConverted)
}
