package main

import (
	"errors"
	"math"
	"testing"
)

// Step-Rate Amortization Tests
//
// Standard payment:
//   M = P × [r(1+r)^n] / [(1+r)^n - 1]
//   r = APR / 12, n = term in months
//
// Phase 1 (months 1 .. step-1):   M1 = M × (1 - decrement)
// Phase 2 (months step .. term):  M2 = reamortize(balance at step-1, n - step + 1)
//
// Collateral value:
//   V(m) = V0 × (1 - depreciation)^(m/12)

const amortTolerance = 0.01 // One cent

func assertMoneyEquals(t *testing.T, expected, actual float64, description string) {
	t.Helper()
	if math.Abs(expected-actual) > amortTolerance {
		t.Errorf("%s: expected $%.2f, got $%.2f (diff: $%.4f)",
			description, expected, actual, actual-expected)
	}
}

func mustScenario(t *testing.T, principal, collateral float64, term, step int, dec, dep, apr float64) LoanScenario {
	t.Helper()
	s, err := NewLoanScenario(principal, collateral, term, step, dec, dep, apr)
	if err != nil {
		t.Fatalf("NewLoanScenario: %v", err)
	}
	return s
}

func mustSimulate(t *testing.T, s LoanScenario) MonthlySeries {
	t.Helper()
	series, err := Simulate(s)
	if err != nil {
		t.Fatalf("Simulate(%s): %v", s, err)
	}
	return series
}

// =============================================================================
// Amortizing Payment Tests
// =============================================================================

func TestAmortizingPayment(t *testing.T) {
	tests := []struct {
		balance  float64
		apr      float64
		months   int
		expected float64
		desc     string
	}{
		{35000, 0.07, 75, 577.51, "$35k @ 7% over 75 months"},
		{35000, 0.001, 66, 531.78, "$35k @ 0.1% over 66 months"},
		{35000, 0, 66, 530.30, "$35k @ 0% over 66 months"},
		{20000, 0.12, 1, 20200.00, "single payment includes one month of interest"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := AmortizingPayment(tt.balance, tt.apr/12, tt.months)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertMoneyEquals(t, tt.expected, got, tt.desc)
		})
	}
}

func TestAmortizingPayment_ZeroRateLimitIsExact(t *testing.T) {
	for _, r := range []float64{0, ZeroRateTolerance, -ZeroRateTolerance, ZeroRateTolerance / 2} {
		got, err := AmortizingPayment(35000, r, 66)
		if err != nil {
			t.Fatalf("rate %g: unexpected error: %v", r, err)
		}
		if got != 35000.0/66 {
			t.Errorf("rate %g: expected exactly %v, got %v", r, 35000.0/66, got)
		}
	}
}

func TestAmortizingPayment_JustAboveToleranceIsFinite(t *testing.T) {
	got, err := AmortizingPayment(35000, ZeroRateTolerance*10, 66)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("payment diverged: %v", got)
	}
	if math.Abs(got-35000.0/66) > 0.01 {
		t.Errorf("payment %v should be close to the limit %v", got, 35000.0/66)
	}
}

func TestAmortizingPayment_RejectsNonPositiveCount(t *testing.T) {
	if _, err := AmortizingPayment(1000, 0.01, 0); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("expected ErrInvalidScenario, got %v", err)
	}
}

// =============================================================================
// Concrete Scenarios
// =============================================================================

func TestSimulate_75MonthScenario(t *testing.T) {
	s := mustScenario(t, 35000, 35000, 75, 37, 0.15, 0.18, 0.07)
	series := mustSimulate(t, s)

	if len(series.Records) != 75 {
		t.Fatalf("expected 75 records, got %d", len(series.Records))
	}

	assertMoneyEquals(t, 577.51, series.StandardPayment, "standard payment")
	assertMoneyEquals(t, 490.88, series.Phase1Payment, "phase 1 payment")
	assertMoneyEquals(t, 676.93, series.ReamortizedPayment, "reamortized payment")
	assertMoneyEquals(t, 23551.43, series.At(36).Balance, "balance at month 36")

	standard, err := StandardSchedule(35000, 75, 0.07)
	if err != nil {
		t.Fatalf("StandardSchedule: %v", err)
	}
	if series.At(36).Balance <= standard.At(36).Balance {
		t.Errorf("reduced phase 1 payments should leave more owed at month 36: step-rate $%.2f, standard $%.2f",
			series.At(36).Balance, standard.At(36).Balance)
	}

	if math.Abs(series.Final().Balance) > 1e-6*s.Principal {
		t.Errorf("balance at term should be ~0, got %g", series.Final().Balance)
	}
	assertMoneyEquals(t, 9071.98, series.TotalInterest(), "total interest")
}

func TestSimulate_NearZeroRateScenario(t *testing.T) {
	s := mustScenario(t, 35000, 35000, 66, 37, 0.18, 0.18, 0.001)
	series := mustSimulate(t, s)

	limit := 35000 * (1 - 0.18) / 66
	if math.IsNaN(series.Phase1Payment) || math.IsInf(series.Phase1Payment, 0) {
		t.Fatalf("phase 1 payment diverged: %v", series.Phase1Payment)
	}
	// 0.1% APR adds about 0.3% over the limiting form
	if math.Abs(series.Phase1Payment-limit)/limit > 0.005 {
		t.Errorf("phase 1 payment $%.2f should be within 0.5%% of $%.2f", series.Phase1Payment, limit)
	}
	if math.Abs(series.Final().Balance) > 1e-6*s.Principal {
		t.Errorf("balance at term should be ~0, got %g", series.Final().Balance)
	}
}

func TestSimulate_ZeroRateBalanceDecreasesLinearly(t *testing.T) {
	s := mustScenario(t, 35000, 35000, 66, 37, 0.18, 0.18, 0)
	series := mustSimulate(t, s)

	if series.StandardPayment != 35000.0/66 {
		t.Errorf("standard payment should be exactly P/T, got %v", series.StandardPayment)
	}

	prev := s.Principal
	for _, rec := range series.Records {
		if rec.Interest != 0 {
			t.Fatalf("month %d: interest should be 0 at zero APR, got %v", rec.Month, rec.Interest)
		}
		if math.Abs((prev-rec.Balance)-rec.Payment) > 1e-6 {
			t.Errorf("month %d: balance fell by %v, payment is %v", rec.Month, prev-rec.Balance, rec.Payment)
		}
		prev = rec.Balance
	}
	assertMoneyEquals(t, 19345.45, series.At(36).Balance, "balance at month 36")
	assertMoneyEquals(t, 0, series.Final().Balance, "balance at term")
}

func TestSimulate_CollateralAndEquity(t *testing.T) {
	s := mustScenario(t, 35000, 35000, 75, 37, 0.15, 0.18, 0.07)
	series := mustSimulate(t, s)

	assertMoneyEquals(t, 35000*0.82, series.At(12).CollateralValue, "value after one year")
	assertMoneyEquals(t, 35000*0.82*0.82, series.At(24).CollateralValue, "value after two years")

	if got := series.BreakevenMonth(); got != 52 {
		t.Errorf("expected equity to turn non-negative at month 52, got %d", got)
	}
	minEq, month := series.MinEquity()
	if minEq >= 0 || month < 1 || month >= 52 {
		t.Errorf("expected negative minimum equity before breakeven, got $%.2f at month %d", minEq, month)
	}
}

func TestSimulate_LTVScenarioUsesCollateralBase(t *testing.T) {
	template := ScenarioTemplate{
		CollateralValue:  35000,
		TermMonths:       75,
		StepMonth:        37,
		PaymentDecrement: 0.15,
		DepreciationRate: 0.18,
	}
	s, err := template.ScenarioFor(0.07, 1.15, true)
	if err != nil {
		t.Fatalf("ScenarioFor: %v", err)
	}
	assertMoneyEquals(t, 40250, s.Principal, "principal at 115% LTV")
	assertMoneyEquals(t, 35000, s.CollateralBase, "collateral base")

	series := mustSimulate(t, s)
	if got := series.BreakevenMonth(); got != 57 {
		t.Errorf("expected breakeven at month 57 for 115%% LTV, got %d", got)
	}
}

// =============================================================================
// Boundary Cases
// =============================================================================

func TestSimulate_StepAtMonthOneMatchesStandardSchedule(t *testing.T) {
	for _, apr := range []float64{0, 0.02, 0.07, 0.12} {
		stepped := mustSimulate(t, mustScenario(t, 35000, 35000, 75, 1, 0.15, 0, apr))
		standard, err := StandardSchedule(35000, 75, apr)
		if err != nil {
			t.Fatalf("StandardSchedule: %v", err)
		}

		if stepped.ReamortizedPayment != standard.StandardPayment {
			t.Errorf("apr %.2f: reamortized payment %v != standard %v",
				apr, stepped.ReamortizedPayment, standard.StandardPayment)
		}
		for i := range standard.Records {
			if stepped.Records[i].Balance != standard.Records[i].Balance {
				t.Fatalf("apr %.2f month %d: balance %v != %v",
					apr, i+1, stepped.Records[i].Balance, standard.Records[i].Balance)
			}
		}
	}
}

func TestSimulate_StepAtLastMonth(t *testing.T) {
	s := mustScenario(t, 10000, 10000, 24, 24, 0.5, 0.1, 0.06)
	series := mustSimulate(t, s)

	if s.RemainingMonthsAtStep() != 1 {
		t.Fatalf("expected 1 remaining month, got %d", s.RemainingMonthsAtStep())
	}
	// The last payment clears everything left plus one month's interest
	before := series.At(23).Balance
	assertMoneyEquals(t, before*(1+0.06/12), series.ReamortizedPayment, "balloon payment")
	assertMoneyEquals(t, 0, series.Final().Balance, "balance at term")
}

func TestSimulate_SingleMonthTerm(t *testing.T) {
	series := mustSimulate(t, mustScenario(t, 1200, 1200, 1, 1, 0, 0, 0.12))
	assertMoneyEquals(t, 1212, series.Final().Payment, "payment")
	assertMoneyEquals(t, 12, series.TotalInterest(), "interest")
	assertMoneyEquals(t, 0, series.Final().Balance, "balance")
}

// =============================================================================
// Validation
// =============================================================================

func TestNewLoanScenario_Validation(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		term      int
		step      int
		dec       float64
		dep       float64
		apr       float64
	}{
		{"zero principal", 0, 75, 37, 0.15, 0.18, 0.07},
		{"negative principal", -1, 75, 37, 0.15, 0.18, 0.07},
		{"NaN principal", math.NaN(), 75, 37, 0.15, 0.18, 0.07},
		{"zero term", 35000, 0, 1, 0.15, 0.18, 0.07},
		{"step zero", 35000, 75, 0, 0.15, 0.18, 0.07},
		{"step past term", 35000, 75, 76, 0.15, 0.18, 0.07},
		{"negative decrement", 35000, 75, 37, -0.1, 0.18, 0.07},
		{"full decrement", 35000, 75, 37, 1, 0.18, 0.07},
		{"full depreciation", 35000, 75, 37, 0.15, 1, 0.07},
		{"negative depreciation", 35000, 75, 37, 0.15, -0.01, 0.07},
		{"negative APR", 35000, 75, 37, 0.15, 0.18, -0.01},
		{"infinite APR", 35000, 75, 37, 0.15, 0.18, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoanScenario(tt.principal, 35000, tt.term, tt.step, tt.dec, tt.dep, tt.apr)
			if !errors.Is(err, ErrInvalidScenario) {
				t.Errorf("expected ErrInvalidScenario, got %v", err)
			}
		})
	}
}

func TestSimulate_RejectsUnvalidatedScenario(t *testing.T) {
	if _, err := Simulate(LoanScenario{}); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("zero-value scenario should fail validation, got %v", err)
	}
}
