// Package finance implements the convertible-instrument financial engine:
// interest accrual, conversion pricing, and the lifecycle transition table.
// All money, rates, and share counts are decimal.Decimal; float64 appears
// only in the compound-interest exponentiation step.
package finance

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"captable/internal/models"
)

// daysPerYear is the ACT/365 day-count denominator.
var daysPerYear = decimal.NewFromInt(365)

// DaysElapsed returns the number of whole days between issueDate and asOf,
// clamped at zero for future issue dates.
func DaysElapsed(issueDate, asOf time.Time) int64 {
	days := int64(asOf.Sub(issueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// AccruedInterest computes interest accrued on principal from issueDate to
// asOf. SIMPLE uses principal * rate * days/365. COMPOUND compounds daily:
// principal * (1 + rate/365)^days - principal. The exponentiation runs in
// float64 and is converted back to decimal immediately; inputs and the
// final subtraction stay in exact decimal.
func AccruedInterest(principal, rate decimal.Decimal, interestType models.InterestType, issueDate, asOf time.Time) decimal.Decimal {
	days := DaysElapsed(issueDate, asOf)
	if days == 0 || rate.IsZero() {
		return decimal.Zero
	}

	if interestType == models.InterestCompound {
		return compoundInterest(principal, rate, days)
	}
	return simpleInterest(principal, rate, days)
}

func simpleInterest(principal, rate decimal.Decimal, days int64) decimal.Decimal {
	return principal.Mul(rate).Mul(decimal.NewFromInt(days)).Div(daysPerYear)
}

func compoundInterest(principal, rate decimal.Decimal, days int64) decimal.Decimal {
	dailyRate, _ := rate.Div(daysPerYear).Float64()
	factor := math.Pow(1+dailyRate, float64(days))
	amount := principal.Mul(decimal.NewFromFloat(factor))
	return amount.Sub(principal)
}

// InterestPeriod is one calendar-month bucket in an accrual breakdown.
type InterestPeriod struct {
	PeriodStart        time.Time       `json:"period_start"`
	PeriodEnd          time.Time       `json:"period_end"`
	Days               int64           `json:"days"`
	Interest           decimal.Decimal `json:"interest"`
	CumulativeInterest decimal.Decimal `json:"cumulative_interest"`
}

// MonthlyBreakdown splits the accrual from issueDate to asOf into
// successive calendar-month buckets. For COMPOUND instruments each
// bucket's interest is the cumulative interest at the bucket end minus
// the cumulative interest at the previous bucket end, so compounding is
// never double counted.
func MonthlyBreakdown(principal, rate decimal.Decimal, interestType models.InterestType, issueDate, asOf time.Time) []InterestPeriod {
	if !asOf.After(issueDate) {
		return nil
	}

	var periods []InterestPeriod
	prevCumulative := decimal.Zero
	start := issueDate

	for start.Before(asOf) {
		end := startOfNextMonth(start)
		if end.After(asOf) {
			end = asOf
		}

		cumulative := AccruedInterest(principal, rate, interestType, issueDate, end)
		periods = append(periods, InterestPeriod{
			PeriodStart:        start,
			PeriodEnd:          end,
			Days:               DaysElapsed(start, end),
			Interest:           cumulative.Sub(prevCumulative),
			CumulativeInterest: cumulative,
		})

		prevCumulative = cumulative
		start = end
	}

	return periods
}

func startOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
}
