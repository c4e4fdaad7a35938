package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"captable/internal/models"
)

var allStatuses = []models.InstrumentStatus{
	models.StatusOutstanding,
	models.StatusMatured,
	models.StatusConverted,
	models.StatusRedeemed,
	models.StatusCancelled,
}

func TestTransitionTable(t *testing.T) {
	allowed := map[models.InstrumentStatus]map[models.InstrumentStatus]bool{
		models.StatusOutstanding: {
			models.StatusConverted: true,
			models.StatusRedeemed:  true,
			models.StatusMatured:   true,
			models.StatusCancelled: true,
		},
		models.StatusMatured: {
			models.StatusOutstanding: true,
			models.StatusConverted:   true,
			models.StatusRedeemed:    true,
		},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[from][to]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)

			err := ValidateTransition(from, to)
			if want {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				var te *TransitionError
				assert.ErrorAs(t, err, &te, "%s -> %s", from, to)
			}
		}
	}
}

func TestTerminalStatesAreClosed(t *testing.T) {
	for _, from := range []models.InstrumentStatus{models.StatusConverted, models.StatusRedeemed, models.StatusCancelled} {
		assert.True(t, from.IsTerminal())
		for _, to := range allStatuses {
			assert.False(t, CanTransition(from, to), "terminal %s must not reach %s", from, to)
		}
	}
}

func TestIsConvertible(t *testing.T) {
	assert.True(t, IsConvertible(models.StatusOutstanding))
	assert.True(t, IsConvertible(models.StatusMatured))
	assert.False(t, IsConvertible(models.StatusConverted))
	assert.False(t, IsConvertible(models.StatusRedeemed))
	assert.False(t, IsConvertible(models.StatusCancelled))
}

func TestTransitionErrorMessage(t *testing.T) {
	err := ValidateTransition(models.StatusConverted, models.StatusOutstanding)
	assert.EqualError(t, err, "cannot transition instrument from CONVERTED to OUTSTANDING")
}
