// Package amortization computes fixed-installment (French annuity) loan
// schedules. All money math runs on shopspring decimals; no floats.
package amortization

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// rateScale is the precision kept for the monthly rate before the annuity
// formula is applied. Installments round to cents afterwards.
const rateScale = 10

var (
	one            = decimal.NewFromInt(1)
	annualDivisor  = decimal.NewFromInt(1200)
	hundredPercent = decimal.NewFromInt(100)
)

// Policy controls schedule generation beyond the core annuity math.
type Policy struct {
	// AdjustWeekends moves Saturday due dates to the preceding Friday and
	// Sunday due dates to the following Monday.
	AdjustWeekends bool
	// AbsorbRemainder folds the cent residue left by rounding into the last
	// installment so the rounded total tracks the unrounded one. Off by
	// default: every installment stays equal.
	AbsorbRemainder bool
}

// Installment is one draft schedule entry. Numbers are contiguous 1..N.
type Installment struct {
	Number  int
	Amount  decimal.Decimal
	DueDate time.Time
}

// MonthlyInstallment returns the fixed monthly payment for the given
// principal, nominal annual rate (percent) and term, rounded to cents
// half-up. A zero rate degrades to straight division.
func MonthlyInstallment(principal, annualRate decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if err := validate(principal, annualRate, termMonths); err != nil {
		return decimal.Decimal{}, err
	}
	return installmentAt(principal, annualRate, termMonths, 2), nil
}

// Schedule drafts the full schedule: N equal installments, the first due at
// firstDue and each subsequent one a calendar month later (day-of-month
// clamped to shorter months). The caller persists the result; nothing here
// touches storage.
func Schedule(principal, annualRate decimal.Decimal, termMonths int, firstDue time.Time, p Policy) ([]Installment, error) {
	amount, err := MonthlyInstallment(principal, annualRate, termMonths)
	if err != nil {
		return nil, err
	}

	out := make([]Installment, 0, termMonths)
	for i := 1; i <= termMonths; i++ {
		due := AddMonthsClamped(firstDue, i-1)
		if p.AdjustWeekends {
			due = shiftOffWeekend(due)
		}
		out = append(out, Installment{Number: i, Amount: amount, DueDate: due})
	}

	if p.AbsorbRemainder && termMonths > 1 {
		target := installmentAt(principal, annualRate, termMonths, rateScale).
			Mul(decimal.NewFromInt(int64(termMonths))).
			Round(2)
		paid := amount.Mul(decimal.NewFromInt(int64(termMonths - 1)))
		out[termMonths-1].Amount = target.Sub(paid)
	}
	return out, nil
}

func validate(principal, annualRate decimal.Decimal, termMonths int) error {
	if !principal.IsPositive() {
		return fmt.Errorf("amortization: principal must be positive, got %s", principal)
	}
	if annualRate.IsNegative() {
		return fmt.Errorf("amortization: annual rate must not be negative, got %s", annualRate)
	}
	if annualRate.GreaterThan(hundredPercent) {
		return fmt.Errorf("amortization: annual rate above 100%% is not supported, got %s", annualRate)
	}
	if termMonths < 1 {
		return fmt.Errorf("amortization: term must be at least 1 month, got %d", termMonths)
	}
	return nil
}

// installmentAt computes P*r*(1+r)^N / ((1+r)^N - 1) rounded half-up to the
// given scale, or P/N when the rate is zero.
func installmentAt(principal, annualRate decimal.Decimal, termMonths int, scale int32) decimal.Decimal {
	n := decimal.NewFromInt(int64(termMonths))
	r := annualRate.DivRound(annualDivisor, rateScale)
	if r.IsZero() {
		return principal.DivRound(n, scale)
	}
	compound := one.Add(r).Pow(n)
	return principal.Mul(r).Mul(compound).DivRound(compound.Sub(one), scale)
}

// AddMonthsClamped adds months keeping the day of month where possible and
// clamping to the last day otherwise (Jan 31 + 1 month = Feb 28/29). The
// stdlib AddDate normalizes overflow instead, which is the wrong behavior
// for due dates.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + months
	y += total / 12
	nm := time.Month(total%12 + 1)
	if last := daysIn(y, nm); d > last {
		d = last
	}
	return time.Date(y, nm, d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func shiftOffWeekend(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	default:
		return t
	}
}
