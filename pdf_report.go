package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth    = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 20.0
	contentWidth = pageWidth - marginLeft - marginRight
)

// PDFSurfaceReport renders the assembled surfaces as a tabular sensitivity report
type PDFSurfaceReport struct {
	pdf      *fpdf.Fpdf
	config   *Config
	surfaces *Surfaces
}

// GenerateSurfacePDFReport creates the PDF report for a finished assembly
func GenerateSurfacePDFReport(config *Config, surfaces *Surfaces) ([]byte, error) {
	report := &PDFSurfaceReport{
		pdf:      fpdf.New("P", "mm", "A4", ""),
		config:   config,
		surfaces: surfaces,
	}

	report.pdf.SetMargins(marginLeft, marginTop, marginRight)
	report.pdf.SetAutoPageBreak(true, marginBottom)
	report.pdf.SetTitle(config.GetTitle(), false)
	report.pdf.SetFooterFunc(func() {
		report.pdf.SetY(-15)
		report.pdf.SetFont("Arial", "I", 8)
		report.pdf.SetTextColor(120, 120, 120)
		report.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", report.pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	report.addTitlePage()
	if surfaces.Axes.IsLTVSliced() {
		report.addBreakevenMatrix()
	}
	if err := report.addLayerTables(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := report.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *PDFSurfaceReport) addTitlePage() {
	r.pdf.AddPage()

	r.pdf.SetFont("Arial", "B", 24)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.Ln(40)
	r.pdf.MultiCell(contentWidth, 12, r.config.GetTitle(), "", "C", false)

	r.pdf.SetFont("Arial", "I", 11)
	r.pdf.SetTextColor(80, 80, 80)
	r.pdf.Ln(8)
	r.pdf.CellFormat(contentWidth, 8, fmt.Sprintf("Generated: %s", time.Now().Format("2 January 2006")), "", 1, "C", false, 0, "")

	// Loan parameters box
	r.pdf.Ln(15)
	r.pdf.SetFillColor(245, 247, 250)
	r.pdf.SetDrawColor(200, 200, 200)
	r.pdf.SetFont("Arial", "B", 12)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 8, "Loan Parameters", "1", 1, "C", true, 0, "")

	loan := r.config.Loan
	lines := []string{}
	if r.surfaces.Axes.IsLTVSliced() {
		lines = append(lines,
			fmt.Sprintf("Collateral value %s, LTV %s to %s (%d layers)",
				FormatMoneyFull(loan.CollateralValue),
				formatPercent(r.surfaces.Axes.LTVs[0], 0),
				formatPercent(r.surfaces.Axes.LTVs[len(r.surfaces.Axes.LTVs)-1], 0),
				len(r.surfaces.Axes.LTVs)))
	} else {
		lines = append(lines, fmt.Sprintf("Principal %s", FormatMoneyFull(loan.Principal)))
	}
	lines = append(lines,
		fmt.Sprintf("Term %d months, payment reamortized at month %d over %d months",
			loan.TermMonths, loan.StepMonth, loan.TermMonths-loan.StepMonth+1),
		fmt.Sprintf("Phase 1 payment reduced by %s", formatPercent(loan.PaymentDecrement, 1)),
		fmt.Sprintf("Collateral depreciation %s per year", formatPercent(loan.DepreciationRate, 1)),
		fmt.Sprintf("APR %s to %s (%d samples)",
			FormatRate(r.surfaces.Axes.Rates[0]),
			FormatRate(r.surfaces.Axes.Rates[len(r.surfaces.Axes.Rates)-1]),
			len(r.surfaces.Axes.Rates)),
	)

	r.pdf.SetFont("Arial", "", 11)
	r.pdf.SetTextColor(50, 50, 50)
	for i, line := range lines {
		border := "LR"
		if i == len(lines)-1 {
			border = "LRB"
		}
		r.pdf.CellFormat(contentWidth, 7, line, border, 1, "C", true, 0, "")
	}

	if r.surfaces.HasFailures() {
		r.pdf.Ln(8)
		r.pdf.SetFont("Arial", "B", 10)
		r.pdf.SetTextColor(180, 0, 0)
		r.pdf.MultiCell(contentWidth, 5,
			fmt.Sprintf("%d grid points failed to evaluate and hold a sentinel value.", len(r.surfaces.Failures)),
			"", "C", false)
	}

	r.pdf.Ln(15)
	r.pdf.SetFont("Arial", "I", 9)
	r.pdf.SetTextColor(120, 120, 120)
	r.pdf.MultiCell(contentWidth, 4.5,
		"Figures are model outputs for sensitivity analysis only. Balances assume every "+
			"scheduled payment is made on time and the collateral follows a fixed exponential "+
			"depreciation curve.", "", "C", false)
}

// addBreakevenMatrix draws LTV rows against sampled rate columns, each cell
// holding the first month with non-negative equity
func (r *PDFSurfaceReport) addBreakevenMatrix() {
	r.pdf.AddPage()
	r.drawSectionHeader("Equity Breakeven Month by LTV and APR")

	s := r.surfaces
	cols := sampleIndices(len(s.Axes.Rates), 8)
	widths := make([]float64, len(cols)+1)
	widths[0] = 30
	for i := 1; i < len(widths); i++ {
		widths[i] = (contentWidth - widths[0]) / float64(len(cols))
	}

	headers := []string{"LTV"}
	for _, ri := range cols {
		headers = append(headers, FormatRate(s.Axes.Rates[ri]))
	}
	r.drawTableHeader(headers, widths)

	defaultIdx := s.LayerIndex(r.config.DefaultLTV())
	for li, layer := range s.Layers {
		cells := []string{layer.Label}
		for _, ri := range cols {
			month := s.BreakevenMonth(li, ri)
			if month == 0 {
				cells = append(cells, "never")
			} else {
				cells = append(cells, fmt.Sprintf("%d", month))
			}
		}
		r.drawTableRow(cells, widths, li == defaultIdx)
	}

	r.pdf.Ln(4)
	r.pdf.SetFont("Arial", "I", 8)
	r.pdf.SetTextColor(100, 100, 100)
	r.pdf.MultiCell(contentWidth, 4,
		fmt.Sprintf("Bold row is the default layer (%s). \"never\" means the loan stays under water for the full term.",
			LTVLabel(r.config.DefaultLTV())), "", "L", false)
}

func (r *PDFSurfaceReport) addLayerTables() error {
	r.pdf.AddPage()
	r.drawSectionHeader("Scenario Summary by APR")

	s := r.surfaces
	widths := []float64{18, 22, 22, 24, 22, 24, 24, 24}
	headers := []string{"APR", "Phase 1 Pmt", "Step Pmt",
		fmt.Sprintf("Bal. Mo %d", max(s.StepMonth-1, 0)),
		"Final Bal.", "Total Int.", "Min Equity", "Breakeven"}

	for li, layer := range s.Layers {
		rows, err := SummarizeLayer(s, li, r.config.GetSampleRates())
		if err != nil {
			return err
		}

		r.pdf.SetFont("Arial", "B", 11)
		r.pdf.SetTextColor(0, 51, 102)
		r.pdf.CellFormat(contentWidth, 8, layer.Label, "", 1, "L", false, 0, "")
		r.drawTableHeader(headers, widths)
		for _, row := range rows {
			breakeven := "never"
			if row.BreakevenMonth > 0 {
				breakeven = fmt.Sprintf("mo %d", row.BreakevenMonth)
			}
			r.drawTableRow([]string{
				FormatRate(row.APR),
				FormatMoneyFull(row.Phase1Payment),
				FormatMoneyFull(row.ReamortizedPayment),
				FormatMoneyFull(row.BalanceBeforeStep),
				FormatMoneyFull(row.FinalBalance),
				FormatMoneyFull(row.TotalInterest),
				FormatMoneyFull(row.MinEquity),
				breakeven,
			}, widths, false)
		}
		r.pdf.Ln(6)
	}
	return nil
}

// Helper functions

func (r *PDFSurfaceReport) drawSectionHeader(title string) {
	r.pdf.SetFont("Arial", "B", 16)
	r.pdf.SetTextColor(0, 51, 102)
	r.pdf.CellFormat(contentWidth, 10, title, "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(0, 51, 102)
	r.pdf.Line(marginLeft, r.pdf.GetY(), marginLeft+contentWidth, r.pdf.GetY())
	r.pdf.Ln(5)
}

func (r *PDFSurfaceReport) drawTableHeader(headers []string, widths []float64) {
	r.pdf.SetFillColor(0, 51, 102)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont("Arial", "B", 8)

	for i, header := range headers {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 6, header, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
}

func (r *PDFSurfaceReport) drawTableRow(cells []string, widths []float64, isBold bool) {
	r.pdf.SetFillColor(250, 250, 250)
	r.pdf.SetTextColor(50, 50, 50)

	if isBold {
		r.pdf.SetFont("Arial", "B", 8)
		r.pdf.SetFillColor(240, 240, 240)
	} else {
		r.pdf.SetFont("Arial", "", 8)
	}

	for i, cell := range cells {
		align := "L"
		if i > 0 {
			align = "R"
		}
		r.pdf.CellFormat(widths[i], 5, cell, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)
}
