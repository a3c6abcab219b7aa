package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// notAvailable stands in for sentinel cells that hold NaN or Inf
const notAvailable = "n/a"

// roundCents rounds an amount to whole cents
func roundCents(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}

// FormatMoney formats a float as a short currency string
func FormatMoney(amount float64) string {
	if !isFinite(amount) {
		return notAvailable
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	if amount >= 1000000 {
		return fmt.Sprintf("%s$%.2fM", sign, amount/1000000)
	}
	if amount >= 10000 {
		return fmt.Sprintf("%s$%.1fk", sign, amount/1000)
	}
	return sign + "$" + roundCents(amount).StringFixed(0)
}

// FormatMoneyFull formats a float as full currency with cents
func FormatMoneyFull(amount float64) string {
	if !isFinite(amount) {
		return notAvailable
	}
	d := roundCents(amount)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// FormatRate formats an APR as a percentage with two decimals
func FormatRate(apr float64) string {
	return formatPercent(apr, 2)
}

// sampleIndices picks k evenly spread indices from [0, n), always including both ends
func sampleIndices(n, k int) []int {
	if k >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	if k < 2 {
		k = 2
	}
	idx := make([]int, 0, k)
	for i := 0; i < k; i++ {
		pos := (i*(n-1) + (k-1)/2) / (k - 1)
		if len(idx) > 0 && idx[len(idx)-1] == pos {
			continue
		}
		idx = append(idx, pos)
	}
	return idx
}

// RateSummary is one row of the console and PDF summary tables
type RateSummary struct {
	APR                float64
	Phase1Payment      float64
	ReamortizedPayment float64
	BalanceBeforeStep  float64
	FinalBalance       float64
	TotalInterest      float64
	MinEquity          float64
	MinEquityMonth     int
	BreakevenMonth     int
}

// SummarizeLayer builds summary rows for the sampled rates of one layer
func SummarizeLayer(s *Surfaces, layerIdx, sampleRates int) ([]RateSummary, error) {
	var rows []RateSummary
	for _, ri := range sampleIndices(len(s.Axes.Rates), sampleRates) {
		series, err := s.Series(layerIdx, ri)
		if err != nil {
			return nil, err
		}
		minEq, minMonth := series.MinEquity()
		row := RateSummary{
			APR:                s.Axes.Rates[ri],
			Phase1Payment:      series.Phase1Payment,
			ReamortizedPayment: series.ReamortizedPayment,
			FinalBalance:       series.Final().Balance,
			TotalInterest:      series.TotalInterest(),
			MinEquity:          minEq,
			MinEquityMonth:     minMonth,
			BreakevenMonth:     series.BreakevenMonth(),
		}
		if s.StepMonth > 1 {
			row.BalanceBeforeStep = series.At(s.StepMonth - 1).Balance
		} else {
			row.BalanceBeforeStep = series.Scenario.Principal
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// PrintHeader prints the loan configuration header
func PrintHeader(config *Config) {
	fmt.Println("╔══════════════════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                 FLEXBUY STEP-RATE AMORTIZATION SURFACES                      ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println("──────────────")

	loan := config.Loan
	if config.IsLTVSliced() {
		fmt.Printf("  Collateral value:   %s\n", FormatMoneyFull(loan.CollateralValue))
		fmt.Printf("  LTV range:          %s - %s (default %s)\n",
			formatPercent(config.LTV.Min, 0), formatPercent(config.LTV.Max, 0), LTVLabel(config.DefaultLTV()))
	} else {
		fmt.Printf("  Principal:          %s\n", FormatMoneyFull(loan.Principal))
	}
	fmt.Printf("  Term:               %d months\n", loan.TermMonths)
	fmt.Printf("  Step month:         %d (reamortize over %d months)\n",
		loan.StepMonth, loan.TermMonths-loan.StepMonth+1)
	fmt.Printf("  Payment decrement:  %s\n", formatPercent(loan.PaymentDecrement, 1))
	fmt.Printf("  Depreciation:       %s per year\n", formatPercent(loan.DepreciationRate, 1))
	fmt.Printf("  APR range:          %s - %s\n", FormatRate(config.Rates.Min), FormatRate(config.Rates.Max))
	fmt.Println()
}

// PrintSurfaceSummary prints the grid dimensions and a table of sampled rates
func PrintSurfaceSummary(s *Surfaces, config *Config) error {
	fmt.Printf("Grid: %d rates × %d months", len(s.Axes.Rates), len(s.Axes.Months))
	if s.Axes.IsLTVSliced() {
		fmt.Printf(" × %d LTV layers", len(s.Axes.LTVs))
	}
	fmt.Printf(" = %d cells per quantity\n", s.CellCount(QuantityBalance))

	if s.HasFailures() {
		fmt.Printf("Warning: %d grid points failed and hold the sentinel value\n", len(s.Failures))
	}

	layerIdx := s.LayerIndex(config.DefaultLTV())
	layer := s.Layers[layerIdx]
	rows, err := SummarizeLayer(s, layerIdx, config.GetSampleRates())
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("%s\n", layer.Label)
	fmt.Println(strings.Repeat("─", 98))
	fmt.Printf("%-8s %12s %12s %14s %12s %12s %12s %10s\n",
		"APR", "Phase 1 Pmt", "Step Pmt", fmt.Sprintf("Bal. Mo %d", max(s.StepMonth-1, 0)),
		"Final Bal.", "Interest", "Min Equity", "Breakeven")
	fmt.Println(strings.Repeat("─", 98))
	for _, row := range rows {
		breakeven := "never"
		if row.BreakevenMonth > 0 {
			breakeven = fmt.Sprintf("mo %d", row.BreakevenMonth)
		}
		fmt.Printf("%-8s %12s %12s %14s %12s %12s %12s %10s\n",
			FormatRate(row.APR),
			FormatMoneyFull(row.Phase1Payment),
			FormatMoneyFull(row.ReamortizedPayment),
			FormatMoneyFull(row.BalanceBeforeStep),
			FormatMoneyFull(row.FinalBalance),
			FormatMoneyFull(row.TotalInterest),
			FormatMoneyFull(row.MinEquity),
			breakeven)
	}
	fmt.Println(strings.Repeat("─", 98))

	marker := s.Marker(QuantityEquity)
	fmt.Printf("\nEquity range across all layers: %s to %s (step wall at month %d)\n",
		FormatMoney(marker.ValueMin), FormatMoney(marker.ValueMax), marker.Month)
	return nil
}

// PrintScheduleDetails prints a month-by-month schedule for one scenario
func PrintScheduleDetails(series MonthlySeries) {
	s := series.Scenario
	fmt.Println()
	fmt.Printf("Schedule at %s APR, principal %s\n", FormatRate(s.APR), FormatMoneyFull(s.Principal))
	fmt.Printf("Standard payment %s, phase 1 %s, from month %d %s\n",
		FormatMoneyFull(series.StandardPayment), FormatMoneyFull(series.Phase1Payment),
		s.StepMonth, FormatMoneyFull(series.ReamortizedPayment))
	fmt.Println(strings.Repeat("─", 92))
	fmt.Printf("%5s %11s %10s %12s %12s %12s %12s %12s\n",
		"Month", "Payment", "Interest", "Balance", "Principal", "Cum. Int.", "Value", "Equity")
	fmt.Println(strings.Repeat("─", 92))
	for _, rec := range series.Records {
		marker := ""
		if rec.Month == s.StepMonth {
			marker = " ◀ step"
		}
		fmt.Printf("%5d %11s %10s %12s %12s %12s %12s %12s%s\n",
			rec.Month,
			FormatMoneyFull(rec.Payment),
			FormatMoneyFull(rec.Interest),
			FormatMoneyFull(rec.Balance),
			FormatMoneyFull(rec.PrincipalPaidCum),
			FormatMoneyFull(rec.InterestPaidCum),
			FormatMoneyFull(rec.CollateralValue),
			FormatMoneyFull(rec.Equity),
			marker)
	}
	fmt.Println(strings.Repeat("─", 92))
}
