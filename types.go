package main

import "fmt"

// Quantity identifies one of the tracked per-month values
type Quantity int

const (
	QuantityBalance Quantity = iota
	QuantityPrincipal
	QuantityInterest
	QuantityCollateral
	QuantityEquity
)

// AllQuantities lists every tracked quantity in display order
var AllQuantities = []Quantity{
	QuantityBalance,
	QuantityPrincipal,
	QuantityInterest,
	QuantityCollateral,
	QuantityEquity,
}

func (q Quantity) String() string {
	switch q {
	case QuantityBalance:
		return "balance"
	case QuantityPrincipal:
		return "principal"
	case QuantityInterest:
		return "interest"
	case QuantityCollateral:
		return "collateral"
	case QuantityEquity:
		return "equity"
	default:
		return "unknown"
	}
}

// Title returns a human readable label for report headings
func (q Quantity) Title() string {
	switch q {
	case QuantityBalance:
		return "Remaining Balance"
	case QuantityPrincipal:
		return "Cum. Principal"
	case QuantityInterest:
		return "Cum. Interest"
	case QuantityCollateral:
		return "Collateral Value"
	case QuantityEquity:
		return "Equity"
	default:
		return "Unknown"
	}
}

// ParseQuantity converts a name such as "equity" to a Quantity
func ParseQuantity(s string) (Quantity, error) {
	for _, q := range AllQuantities {
		if q.String() == s {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unknown quantity %q", s)
}

// LoanScenario is one fully specified step-rate loan at a single APR.
// Build it with NewLoanScenario; the zero value is not valid.
type LoanScenario struct {
	Principal        float64 `json:"principal"`
	CollateralBase   float64 `json:"collateral_base"`   // V0, the value the depreciation curve starts from
	TermMonths       int     `json:"term_months"`
	StepMonth        int     `json:"step_month"`        // Month the payment is reamortized (1..TermMonths)
	PaymentDecrement float64 `json:"payment_decrement"` // Fractional cut to the standard payment before the step
	DepreciationRate float64 `json:"depreciation_rate"` // Annual collateral depreciation fraction
	APR              float64 `json:"apr"`
}

// MonthlyRate returns APR / 12
func (s LoanScenario) MonthlyRate() float64 {
	return s.APR / 12
}

// RemainingMonthsAtStep returns the number of payments the reamortized payment covers
func (s LoanScenario) RemainingMonthsAtStep() int {
	return s.TermMonths - s.StepMonth + 1
}

func (s LoanScenario) String() string {
	return fmt.Sprintf("P=%.2f V0=%.2f T=%d step=%d dec=%.4f dep=%.4f apr=%.4f",
		s.Principal, s.CollateralBase, s.TermMonths, s.StepMonth,
		s.PaymentDecrement, s.DepreciationRate, s.APR)
}

// MonthRecord holds the state of the loan at the end of one month
type MonthRecord struct {
	Month            int     `json:"month"`
	Payment          float64 `json:"payment"`
	Interest         float64 `json:"interest"` // Interest charged this month
	Balance          float64 `json:"balance"`
	PrincipalPaidCum float64 `json:"principal_paid_cum"`
	InterestPaidCum  float64 `json:"interest_paid_cum"`
	CollateralValue  float64 `json:"collateral_value"`
	Equity           float64 `json:"equity"`
}

// Value returns the record's value for the given quantity
func (r MonthRecord) Value(q Quantity) float64 {
	switch q {
	case QuantityBalance:
		return r.Balance
	case QuantityPrincipal:
		return r.PrincipalPaidCum
	case QuantityInterest:
		return r.InterestPaidCum
	case QuantityCollateral:
		return r.CollateralValue
	case QuantityEquity:
		return r.Equity
	}
	return 0
}

// MonthlySeries is the full month-by-month schedule for one scenario
type MonthlySeries struct {
	Scenario           LoanScenario  `json:"scenario"`
	StandardPayment    float64       `json:"standard_payment"`    // Fully amortizing payment over the whole term
	Phase1Payment      float64       `json:"phase1_payment"`      // Payment for months before the step
	ReamortizedPayment float64       `json:"reamortized_payment"` // Payment from the step month to the end
	Records            []MonthRecord `json:"records"`
}

// At returns the record for a 1-based month
func (ms MonthlySeries) At(month int) MonthRecord {
	return ms.Records[month-1]
}

// Final returns the last month's record
func (ms MonthlySeries) Final() MonthRecord {
	return ms.Records[len(ms.Records)-1]
}

// TotalInterest returns the interest paid over the whole term
func (ms MonthlySeries) TotalInterest() float64 {
	if len(ms.Records) == 0 {
		return 0
	}
	return ms.Final().InterestPaidCum
}

// MinEquity returns the lowest equity over the term and the month it occurs
func (ms MonthlySeries) MinEquity() (float64, int) {
	minEq, minMonth := 0.0, 0
	for i, rec := range ms.Records {
		if i == 0 || rec.Equity < minEq {
			minEq = rec.Equity
			minMonth = rec.Month
		}
	}
	return minEq, minMonth
}

// BreakevenMonth returns the first month where equity is non-negative, or 0 if never
func (ms MonthlySeries) BreakevenMonth() int {
	for _, rec := range ms.Records {
		if rec.Equity >= 0 {
			return rec.Month
		}
	}
	return 0
}

// GridAxes holds the independent axes of a surface
type GridAxes struct {
	Months []int     `json:"months"`
	Rates  []float64 `json:"rates"`
	LTVs   []float64 `json:"ltvs,omitempty"` // Empty when the grid is not LTV-sliced
}

// IsLTVSliced returns true when the grid carries an LTV axis
func (g GridAxes) IsLTVSliced() bool {
	return len(g.LTVs) > 0
}

// Term returns the number of months on the month axis
func (g GridAxes) Term() int {
	return len(g.Months)
}

// SurfaceSet is one dense layer of surfaces indexed [rateIdx][monthIdx]
type SurfaceSet struct {
	LTV        float64     `json:"ltv,omitempty"`
	Label      string      `json:"label"`
	Balance    [][]float64 `json:"balance"`
	Principal  [][]float64 `json:"principal"`
	Interest   [][]float64 `json:"interest"`
	Collateral [][]float64 `json:"collateral"`
	Equity     [][]float64 `json:"equity"`
}

// NewSurfaceSet allocates a layer with the given dimensions
func NewSurfaceSet(rates, months int) SurfaceSet {
	alloc := func() [][]float64 {
		grid := make([][]float64, rates)
		for i := range grid {
			grid[i] = make([]float64, months)
		}
		return grid
	}
	return SurfaceSet{
		Balance:    alloc(),
		Principal:  alloc(),
		Interest:   alloc(),
		Collateral: alloc(),
		Equity:     alloc(),
	}
}

// Surface returns the matrix for a quantity
func (ss SurfaceSet) Surface(q Quantity) [][]float64 {
	switch q {
	case QuantityBalance:
		return ss.Balance
	case QuantityPrincipal:
		return ss.Principal
	case QuantityInterest:
		return ss.Interest
	case QuantityCollateral:
		return ss.Collateral
	case QuantityEquity:
		return ss.Equity
	}
	return nil
}

// fillRow writes one scenario's series into row rateIdx
func (ss SurfaceSet) fillRow(rateIdx int, series MonthlySeries) {
	for m, rec := range series.Records {
		ss.Balance[rateIdx][m] = rec.Balance
		ss.Principal[rateIdx][m] = rec.PrincipalPaidCum
		ss.Interest[rateIdx][m] = rec.InterestPaidCum
		ss.Collateral[rateIdx][m] = rec.CollateralValue
		ss.Equity[rateIdx][m] = rec.Equity
	}
}

// fillRowWith writes a constant into every cell of row rateIdx
func (ss SurfaceSet) fillRowWith(rateIdx int, value float64) {
	for _, q := range AllQuantities {
		row := ss.Surface(q)[rateIdx]
		for m := range row {
			row[m] = value
		}
	}
}

// StepMarker describes where a caller should draw the step-month reference wall
type StepMarker struct {
	Quantity string  `json:"quantity"`
	Month    int     `json:"month"`
	MonthMin int     `json:"month_min"`
	MonthMax int     `json:"month_max"`
	RateMin  float64 `json:"rate_min"`
	RateMax  float64 `json:"rate_max"`
	ValueMin float64 `json:"value_min"`
	ValueMax float64 `json:"value_max"`
}
