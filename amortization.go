package main

import (
	"fmt"
	"math"
)

// ZeroRateTolerance is the monthly rate at or below which the amortization
// formula is replaced by its limiting form balance / n
const ZeroRateTolerance = 1e-9

const machineEpsilon = 0x1p-52

// NewLoanScenario validates the parameters and returns an immutable scenario
func NewLoanScenario(principal, collateralBase float64, termMonths, stepMonth int,
	paymentDecrement, depreciationRate, apr float64) (LoanScenario, error) {

	s := LoanScenario{
		Principal:        principal,
		CollateralBase:   collateralBase,
		TermMonths:       termMonths,
		StepMonth:        stepMonth,
		PaymentDecrement: paymentDecrement,
		DepreciationRate: depreciationRate,
		APR:              apr,
	}
	if err := s.Validate(); err != nil {
		return LoanScenario{}, err
	}
	return s, nil
}

// Validate checks every parameter against its domain
func (s LoanScenario) Validate() error {
	switch {
	case !isFinite(s.Principal) || s.Principal <= 0:
		return fmt.Errorf("%w: principal must be positive, got %v", ErrInvalidScenario, s.Principal)
	case !isFinite(s.CollateralBase) || s.CollateralBase <= 0:
		return fmt.Errorf("%w: collateral base value must be positive, got %v", ErrInvalidScenario, s.CollateralBase)
	case s.TermMonths <= 0:
		return fmt.Errorf("%w: term must be at least 1 month, got %d", ErrInvalidScenario, s.TermMonths)
	case s.StepMonth < 1 || s.StepMonth > s.TermMonths:
		return fmt.Errorf("%w: step month %d outside [1, %d]", ErrInvalidScenario, s.StepMonth, s.TermMonths)
	case !isFinite(s.PaymentDecrement) || s.PaymentDecrement < 0 || s.PaymentDecrement >= 1:
		return fmt.Errorf("%w: payment decrement %v outside [0, 1)", ErrInvalidScenario, s.PaymentDecrement)
	case !isFinite(s.DepreciationRate) || s.DepreciationRate < 0 || s.DepreciationRate >= 1:
		return fmt.Errorf("%w: depreciation rate %v outside [0, 1)", ErrInvalidScenario, s.DepreciationRate)
	case !isFinite(s.APR) || s.APR < 0:
		return fmt.Errorf("%w: APR must be non-negative, got %v", ErrInvalidScenario, s.APR)
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// AmortizingPayment returns the level payment that pays off balance in n months
// Using formula: M = B * [r(1+r)^n] / [(1+r)^n - 1]
// For r within ZeroRateTolerance of zero the limit B / n is used instead.
func AmortizingPayment(balance, monthlyRate float64, n int) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: payment count must be positive, got %d", ErrInvalidScenario, n)
	}
	if math.Abs(monthlyRate) <= ZeroRateTolerance {
		return balance / float64(n), nil
	}

	factor := math.Pow(1+monthlyRate, float64(n))
	denom := factor - 1
	if math.Abs(denom) <= machineEpsilon {
		return 0, fmt.Errorf("%w: denominator %g at rate %g over %d months",
			ErrNumericInstability, denom, monthlyRate, n)
	}
	return balance * (monthlyRate * factor) / denom, nil
}

// CollateralValueAt returns the depreciated collateral value after month m
func (s LoanScenario) CollateralValueAt(month int) float64 {
	return s.CollateralBase * math.Pow(1-s.DepreciationRate, float64(month)/12)
}

// amortizationState is the running balance threaded month to month
type amortizationState struct {
	balance      float64
	payment      float64
	principalCum float64
	interestCum  float64
}

// advance applies one month's payment and returns the interest charged
func (st *amortizationState) advance(monthlyRate float64) float64 {
	interest := st.balance * monthlyRate
	principal := st.payment - interest

	newBalance := st.balance - principal
	if newBalance < 0 {
		// Over-payment only happens through float drift at the last month
		principal = st.balance
		newBalance = 0
	}

	st.balance = newBalance
	st.principalCum += principal
	st.interestCum += interest
	return interest
}

// Simulate runs the two-phase amortization for one scenario
func Simulate(s LoanScenario) (MonthlySeries, error) {
	if err := s.Validate(); err != nil {
		return MonthlySeries{}, err
	}

	r := s.MonthlyRate()
	pmtStd, err := AmortizingPayment(s.Principal, r, s.TermMonths)
	if err != nil {
		return MonthlySeries{}, err
	}
	pmtPhase1 := pmtStd * (1 - s.PaymentDecrement)

	series := MonthlySeries{
		Scenario:        s,
		StandardPayment: pmtStd,
		Phase1Payment:   pmtPhase1,
		Records:         make([]MonthRecord, 0, s.TermMonths),
	}

	state := amortizationState{balance: s.Principal, payment: pmtPhase1}
	for m := 1; m <= s.TermMonths; m++ {
		if m == s.StepMonth {
			state.payment, err = AmortizingPayment(state.balance, r, s.RemainingMonthsAtStep())
			if err != nil {
				return MonthlySeries{}, err
			}
			series.ReamortizedPayment = state.payment
		}

		interest := state.advance(r)
		value := s.CollateralValueAt(m)

		series.Records = append(series.Records, MonthRecord{
			Month:            m,
			Payment:          state.payment,
			Interest:         interest,
			Balance:          state.balance,
			PrincipalPaidCum: state.principalCum,
			InterestPaidCum:  state.interestCum,
			CollateralValue:  value,
			Equity:           value - state.balance,
		})
	}

	return series, nil
}

// StandardSchedule is a single-phase amortization at the full standard payment.
// Reamortizing at month 1 over the whole term makes the decrement irrelevant,
// so this is the no-step boundary case of Simulate.
func StandardSchedule(principal float64, termMonths int, apr float64) (MonthlySeries, error) {
	s, err := NewLoanScenario(principal, principal, termMonths, 1, 0, 0, apr)
	if err != nil {
		return MonthlySeries{}, err
	}
	return Simulate(s)
}
