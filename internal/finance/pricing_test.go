package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captable/internal/models"
)

func nullDec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func noteWithTerms(discount, cap string) *models.ConvertibleInstrument {
	inst := &models.ConvertibleInstrument{
		Principal:    decimal.NewFromInt(100000),
		InterestRate: decimal.RequireFromString("0.10"),
		InterestType: models.InterestSimple,
		Status:       models.StatusOutstanding,
	}
	if discount != "" {
		inst.DiscountRate = nullDec(discount)
	}
	if cap != "" {
		inst.ValuationCap = nullDec(cap)
	}
	return inst
}

var (
	accruedTwoYears = decimal.NewFromInt(20000) // 100000 at 10% simple for 730 days
	oneMillion      = decimal.NewFromInt(1_000_000)
)

func TestScenarioCapWinsAtHighValuation(t *testing.T) {
	inst := noteWithTerms("0.20", "5000000")

	result, err := Scenario(inst, accruedTwoYears, oneMillion, decimal.NewFromInt(10_000_000))
	require.NoError(t, err)

	// Round price 10.00; discounted 8.00; cap price 5.00. The cap issues
	// the most shares: 120000 / 5 = 24000.
	assert.True(t, result.ConversionAmount.Equal(decimal.NewFromInt(120000)))
	assert.True(t, result.RoundPricePerShare.Equal(decimal.NewFromInt(10)))

	assert.Equal(t, MethodCap, result.Selected.Method)
	assert.True(t, result.Selected.PricePerShare.Equal(decimal.NewFromInt(5)))
	assert.True(t, result.Selected.Shares.Equal(decimal.NewFromInt(24000)), "got %s shares", result.Selected.Shares)
}

func TestScenarioDiscountWinsAtLowValuation(t *testing.T) {
	inst := noteWithTerms("0.20", "5000000")

	result, err := Scenario(inst, accruedTwoYears, oneMillion, decimal.NewFromInt(3_000_000))
	require.NoError(t, err)

	// Round price 3.00; discounted 2.40 beats the cap price, which is
	// clamped to the round price here (cap above valuation).
	assert.Equal(t, MethodDiscount, result.Selected.Method)
	assert.True(t, result.Selected.PricePerShare.Equal(decimal.RequireFromString("2.4")))
	assert.True(t, result.Selected.Shares.Equal(decimal.NewFromInt(50000)), "got %s shares", result.Selected.Shares)
}

func TestScenarioCapNeverPricesWorseThanRound(t *testing.T) {
	inst := noteWithTerms("", "50000000")

	result, err := Scenario(inst, decimal.Zero, oneMillion, decimal.NewFromInt(10_000_000))
	require.NoError(t, err)

	// A cap above the valuation clamps to the round price, so the cap
	// method and the round method issue the same shares.
	require.Len(t, result.Methods, 2)
	assert.True(t, result.Methods[0].PricePerShare.Equal(result.Methods[1].PricePerShare))
	assert.Equal(t, MethodCap, result.Selected.Method)
}

func TestScenarioRoundPriceOnlyWhenNoTerms(t *testing.T) {
	inst := noteWithTerms("", "")

	result, err := Scenario(inst, decimal.Zero, oneMillion, decimal.NewFromInt(10_000_000))
	require.NoError(t, err)

	require.Len(t, result.Methods, 1)
	assert.Equal(t, MethodRoundPrice, result.Selected.Method)
	assert.True(t, result.Selected.Shares.Equal(decimal.NewFromInt(10000)))
}

func TestScenarioTieKeepsDiscountOverCap(t *testing.T) {
	// Round price 10.00 with a 20% discount gives 8.00; a cap of 8M over
	// 1M pre-money shares also gives 8.00. On the exact tie the discount
	// method is reported.
	inst := noteWithTerms("0.20", "8000000")

	result, err := Scenario(inst, decimal.Zero, oneMillion, decimal.NewFromInt(10_000_000))
	require.NoError(t, err)

	assert.Equal(t, MethodDiscount, result.Selected.Method)
}

func TestScenarioSelectionIsInvestorFavorable(t *testing.T) {
	inst := noteWithTerms("0.20", "5000000")

	for _, valuation := range []int64{1_000_000, 3_000_000, 6_250_000, 10_000_000, 50_000_000} {
		result, err := Scenario(inst, accruedTwoYears, oneMillion, decimal.NewFromInt(valuation))
		require.NoError(t, err)

		for _, m := range result.Methods {
			assert.True(t, result.Selected.Shares.GreaterThanOrEqual(m.Shares),
				"at valuation %d, selected %s (%s shares) loses to %s (%s shares)",
				valuation, result.Selected.Method, result.Selected.Shares, m.Method, m.Shares)
		}
	}
}

func TestScenarioDilution(t *testing.T) {
	inst := noteWithTerms("", "")

	result, err := Scenario(inst, decimal.Zero, oneMillion, decimal.NewFromInt(10_000_000))
	require.NoError(t, err)

	// 10000 new shares on 1,000,000 existing: 10000/1010000 ~ 0.9901%.
	dilution, _ := result.DilutionPct.Float64()
	assert.InDelta(t, 0.9901, dilution, 0.0001)
}

func TestScenarioErrors(t *testing.T) {
	inst := noteWithTerms("0.20", "5000000")

	_, err := Scenario(inst, decimal.Zero, oneMillion, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidValuation)

	_, err = Scenario(inst, decimal.Zero, oneMillion, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrInvalidValuation)

	_, err = Scenario(inst, decimal.Zero, decimal.Zero, oneMillion)
	assert.ErrorIs(t, err, ErrZeroPreMoneyShares)
}

func TestScenariosLadderAndCrossover(t *testing.T) {
	inst := noteWithTerms("0.20", "5000000")

	valuations := []decimal.Decimal{
		decimal.NewFromInt(3_000_000),
		decimal.NewFromInt(6_250_000),
		decimal.NewFromInt(10_000_000),
	}
	set, err := Scenarios(inst, accruedTwoYears, oneMillion, valuations)
	require.NoError(t, err)
	require.Len(t, set.Scenarios, 3)

	// Crossover: cap / (1 - discount) = 5M / 0.8 = 6.25M.
	require.True(t, set.CapTriggersAbove.Valid)
	assert.True(t, set.CapTriggersAbove.Decimal.Equal(decimal.NewFromInt(6_250_000)),
		"got crossover %s", set.CapTriggersAbove.Decimal)

	// Below the crossover the discount wins, above it the cap wins.
	assert.Equal(t, MethodDiscount, set.Scenarios[0].Selected.Method)
	assert.Equal(t, MethodCap, set.Scenarios[2].Selected.Method)
}

func TestScenariosCrossoverAbsentWithoutBothTerms(t *testing.T) {
	inst := noteWithTerms("0.20", "")

	set, err := Scenarios(inst, decimal.Zero, oneMillion, []decimal.Decimal{decimal.NewFromInt(10_000_000)})
	require.NoError(t, err)
	assert.False(t, set.CapTriggersAbove.Valid)
}
