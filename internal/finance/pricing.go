package finance

import (
	"errors"

	"github.com/shopspring/decimal"

	"captable/internal/models"
)

// ConversionMethod identifies how a conversion price was derived.
type ConversionMethod string

const (
	MethodDiscount   ConversionMethod = "DISCOUNT"
	MethodCap        ConversionMethod = "CAP"
	MethodRoundPrice ConversionMethod = "ROUND_PRICE"
)

// Pricing preconditions the caller must reject before persisting anything.
var (
	ErrInvalidValuation   = errors.New("valuation must be greater than zero")
	ErrZeroPreMoneyShares = errors.New("company has no issued shares")
)

var oneHundred = decimal.NewFromInt(100)

// MethodResult is the outcome of pricing a conversion under one method.
type MethodResult struct {
	Method        ConversionMethod `json:"method"`
	PricePerShare decimal.Decimal  `json:"price_per_share"`
	Shares        decimal.Decimal  `json:"shares"`
	OwnershipPct  decimal.Decimal  `json:"ownership_pct"`
}

// ScenarioResult prices one hypothetical valuation under every applicable
// method and selects the investor-favorable outcome.
type ScenarioResult struct {
	Valuation          decimal.Decimal `json:"valuation"`
	ConversionAmount   decimal.Decimal `json:"conversion_amount"`
	RoundPricePerShare decimal.Decimal `json:"round_price_per_share"`
	Methods            []MethodResult  `json:"methods"`
	Selected           MethodResult    `json:"selected"`
	DilutionPct        decimal.Decimal `json:"dilution_pct"`
}

// ScenarioSet is the batched result over several hypothetical valuations.
type ScenarioSet struct {
	ConversionAmount decimal.Decimal     `json:"conversion_amount"`
	PreMoneyShares   decimal.Decimal     `json:"pre_money_shares"`
	Scenarios        []ScenarioResult    `json:"scenarios"`
	CapTriggersAbove decimal.NullDecimal `json:"cap_triggers_above"`
}

// Scenario prices the instrument's conversion at a single hypothetical
// pre-money valuation. accrued must be live-computed interest, never the
// persisted snapshot. preMoneyShares is the sum of issued shares across
// all classes and must be positive.
func Scenario(inst *models.ConvertibleInstrument, accrued, preMoneyShares, valuation decimal.Decimal) (ScenarioResult, error) {
	if valuation.LessThanOrEqual(decimal.Zero) {
		return ScenarioResult{}, ErrInvalidValuation
	}
	if preMoneyShares.LessThanOrEqual(decimal.Zero) {
		return ScenarioResult{}, ErrZeroPreMoneyShares
	}

	conversionAmount := inst.Principal.Add(accrued)
	roundPrice := valuation.Div(preMoneyShares)

	result := ScenarioResult{
		Valuation:          valuation,
		ConversionAmount:   conversionAmount,
		RoundPricePerShare: roundPrice,
	}

	if inst.DiscountRate.Valid && inst.DiscountRate.Decimal.IsPositive() {
		discountPrice := roundPrice.Mul(decimal.NewFromInt(1).Sub(inst.DiscountRate.Decimal))
		result.Methods = append(result.Methods, priceAt(MethodDiscount, discountPrice, conversionAmount, preMoneyShares))
	}

	if inst.ValuationCap.Valid {
		capPrice := inst.ValuationCap.Decimal.Div(preMoneyShares)
		// The cap can never price worse than the round itself.
		if capPrice.GreaterThan(roundPrice) {
			capPrice = roundPrice
		}
		result.Methods = append(result.Methods, priceAt(MethodCap, capPrice, conversionAmount, preMoneyShares))
	}

	result.Methods = append(result.Methods, priceAt(MethodRoundPrice, roundPrice, conversionAmount, preMoneyShares))

	// Most-favored selection: the method issuing the most shares wins.
	// Methods are ordered DISCOUNT, CAP, ROUND_PRICE, so on exact ties the
	// earlier method is kept.
	selected := result.Methods[0]
	for _, m := range result.Methods[1:] {
		if m.Shares.GreaterThan(selected.Shares) {
			selected = m
		}
	}
	result.Selected = selected
	result.DilutionPct = selected.Shares.Div(preMoneyShares.Add(selected.Shares)).Mul(oneHundred)

	return result, nil
}

// Scenarios prices the instrument across a ladder of hypothetical
// valuations. The set also reports the crossover valuation above which
// the cap method beats the discount method, when both terms are present;
// it is informational and never overrides per-scenario selection.
func Scenarios(inst *models.ConvertibleInstrument, accrued, preMoneyShares decimal.Decimal, valuations []decimal.Decimal) (ScenarioSet, error) {
	set := ScenarioSet{
		ConversionAmount: inst.Principal.Add(accrued),
		PreMoneyShares:   preMoneyShares,
	}

	for _, v := range valuations {
		result, err := Scenario(inst, accrued, preMoneyShares, v)
		if err != nil {
			return ScenarioSet{}, err
		}
		set.Scenarios = append(set.Scenarios, result)
	}

	if inst.DiscountRate.Valid && inst.DiscountRate.Decimal.IsPositive() && inst.ValuationCap.Valid {
		crossover := inst.ValuationCap.Decimal.Div(decimal.NewFromInt(1).Sub(inst.DiscountRate.Decimal))
		set.CapTriggersAbove = decimal.NullDecimal{Decimal: crossover, Valid: true}
	}

	return set, nil
}

func priceAt(method ConversionMethod, price, conversionAmount, preMoneyShares decimal.Decimal) MethodResult {
	shares := conversionAmount.Div(price)
	return MethodResult{
		Method:        method,
		PricePerShare: price,
		Shares:        shares,
		OwnershipPct:  shares.Div(preMoneyShares.Add(shares)).Mul(oneHundred),
	}
}
