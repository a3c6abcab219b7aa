package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ScenarioTemplate holds the loan parameters shared by every grid coordinate.
// The APR comes from the rate axis; with an LTV axis the principal is
// CollateralValue * ltv, otherwise it is Principal.
type ScenarioTemplate struct {
	Principal        float64
	CollateralValue  float64 // V0 for LTV slicing; ignored without an LTV axis
	TermMonths       int
	StepMonth        int
	PaymentDecrement float64
	DepreciationRate float64
}

// SurfaceSpec is the complete, immutable input to AssembleSurfaces
type SurfaceSpec struct {
	Template ScenarioTemplate
	Grid     GridSpec
}

// FailurePolicy selects what happens when one coordinate's scenario fails
type FailurePolicy int

const (
	// FailAbort stops assembly and returns the first GridPointError
	FailAbort FailurePolicy = iota
	// FailSentinel fills the failing coordinate with Sentinel and records the error
	FailSentinel
)

// AssembleOptions tunes AssembleSurfaces; the zero value aborts on error
// and uses one worker per CPU
type AssembleOptions struct {
	Workers  int
	Policy   FailurePolicy
	Sentinel float64

	simulate func(LoanScenario) (MonthlySeries, error) // defaults to Simulate
}

// Surfaces is the finished result handed to reports and renderers
type Surfaces struct {
	Axes      GridAxes          `json:"axes"`
	StepMonth int               `json:"step_month"`
	Template  ScenarioTemplate  `json:"-"`
	Layers    []SurfaceSet      `json:"layers"` // One per LTV, or a single layer
	Failures  []*GridPointError `json:"-"`
}

// gridPoint is one independent unit of work
type gridPoint struct {
	ltvIdx  int // -1 without an LTV axis
	rateIdx int
	ltv     float64
	apr     float64
}

// LTVLabel formats an LTV ratio for display, e.g. 1.15 -> "115% LTV"
func LTVLabel(ltv float64) string {
	return fmt.Sprintf("%d%% LTV", int(math.Round(ltv*100)))
}

// ScenarioFor builds the scenario at a coordinate; ltv is ignored when
// the template is not LTV-sliced (pass 0)
func (t ScenarioTemplate) ScenarioFor(apr, ltv float64, sliced bool) (LoanScenario, error) {
	if sliced {
		return NewLoanScenario(t.CollateralValue*ltv, t.CollateralValue, t.TermMonths, t.StepMonth,
			t.PaymentDecrement, t.DepreciationRate, apr)
	}
	return NewLoanScenario(t.Principal, t.Principal, t.TermMonths, t.StepMonth,
		t.PaymentDecrement, t.DepreciationRate, apr)
}

// validate checks the template once before any work starts, using the
// first grid coordinate as a representative
func (t ScenarioTemplate) validate(axes GridAxes) error {
	ltv := 0.0
	if axes.IsLTVSliced() {
		ltv = axes.LTVs[0]
	}
	_, err := t.ScenarioFor(axes.Rates[0], ltv, axes.IsLTVSliced())
	return err
}

// AssembleSurfaces evaluates the amortization engine at every grid coordinate
// and scatters the results into dense per-quantity surfaces
func AssembleSurfaces(ctx context.Context, spec SurfaceSpec, opts AssembleOptions) (*Surfaces, error) {
	spec.Grid.TermMonths = spec.Template.TermMonths
	axes, err := BuildGrid(spec.Grid)
	if err != nil {
		return nil, err
	}
	if err := spec.Template.validate(axes); err != nil {
		return nil, err
	}

	result := &Surfaces{
		Axes:      axes,
		StepMonth: spec.Template.StepMonth,
		Template:  spec.Template,
	}

	var points []gridPoint
	if axes.IsLTVSliced() {
		for li, ltv := range axes.LTVs {
			layer := NewSurfaceSet(len(axes.Rates), len(axes.Months))
			layer.LTV = ltv
			layer.Label = LTVLabel(ltv)
			result.Layers = append(result.Layers, layer)
			for ri, apr := range axes.Rates {
				points = append(points, gridPoint{ltvIdx: li, rateIdx: ri, ltv: ltv, apr: apr})
			}
		}
	} else {
		layer := NewSurfaceSet(len(axes.Rates), len(axes.Months))
		layer.Label = "Base"
		result.Layers = append(result.Layers, layer)
		for ri, apr := range axes.Rates {
			points = append(points, gridPoint{ltvIdx: -1, rateIdx: ri, apr: apr})
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	simulate := opts.simulate
	if simulate == nil {
		simulate = Simulate
	}

	var (
		mu       sync.Mutex
		failures []*GridPointError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, pt := range points {
		if gctx.Err() != nil {
			break
		}
		pt := pt
		g.Go(func() error {
			layer := result.Layers[max(pt.ltvIdx, 0)]

			series, err := evaluatePoint(spec.Template, pt, simulate)
			if err == nil {
				// Each coordinate owns its row, so no locking is needed here
				layer.fillRow(pt.rateIdx, series)
				return nil
			}

			gpErr := &GridPointError{
				LTVIndex:  pt.ltvIdx,
				RateIndex: pt.rateIdx,
				LTV:       pt.ltv,
				APR:       pt.apr,
				Err:       err,
			}
			if opts.Policy == FailAbort {
				return gpErr
			}
			layer.fillRowWith(pt.rateIdx, opts.Sentinel)
			mu.Lock()
			failures = append(failures, gpErr)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(failures, func(i, j int) bool {
		if failures[i].LTVIndex != failures[j].LTVIndex {
			return failures[i].LTVIndex < failures[j].LTVIndex
		}
		return failures[i].RateIndex < failures[j].RateIndex
	})
	result.Failures = failures

	return result, nil
}

func evaluatePoint(t ScenarioTemplate, pt gridPoint, simulate func(LoanScenario) (MonthlySeries, error)) (MonthlySeries, error) {
	s, err := t.ScenarioFor(pt.apr, pt.ltv, pt.ltvIdx >= 0)
	if err != nil {
		return MonthlySeries{}, err
	}
	return simulate(s)
}

// Marker returns the step-month reference wall for a quantity, spanning the
// full rate axis and the value range of that quantity across all layers.
// NaN cells are skipped; if every cell is NaN the value range stays zero.
func (s *Surfaces) Marker(q Quantity) StepMarker {
	marker := StepMarker{
		Quantity: q.String(),
		Month:    s.StepMonth,
		MonthMin: s.Axes.Months[0],
		MonthMax: s.Axes.Months[len(s.Axes.Months)-1],
		RateMin:  s.Axes.Rates[0],
		RateMax:  s.Axes.Rates[len(s.Axes.Rates)-1],
	}

	first := true
	for _, layer := range s.Layers {
		for _, row := range layer.Surface(q) {
			for _, v := range row {
				// NaN sentinel cells carry no value
				if math.IsNaN(v) {
					continue
				}
				if first || v < marker.ValueMin {
					marker.ValueMin = v
				}
				if first || v > marker.ValueMax {
					marker.ValueMax = v
				}
				first = false
			}
		}
	}
	return marker
}

// LayerIndex returns the index of the layer whose LTV is closest to ltv.
// Without an LTV axis it always returns 0.
func (s *Surfaces) LayerIndex(ltv float64) int {
	if !s.Axes.IsLTVSliced() {
		return 0
	}
	best := 0
	for i, v := range s.Axes.LTVs {
		if math.Abs(v-ltv) < math.Abs(s.Axes.LTVs[best]-ltv) {
			best = i
		}
	}
	return best
}

// Series recomputes the full MonthlySeries at one coordinate
func (s *Surfaces) Series(layerIdx, rateIdx int) (MonthlySeries, error) {
	if layerIdx < 0 || layerIdx >= len(s.Layers) {
		return MonthlySeries{}, fmt.Errorf("%w: layer index %d outside [0, %d)", ErrInvalidRange, layerIdx, len(s.Layers))
	}
	if rateIdx < 0 || rateIdx >= len(s.Axes.Rates) {
		return MonthlySeries{}, fmt.Errorf("%w: rate index %d outside [0, %d)", ErrInvalidRange, rateIdx, len(s.Axes.Rates))
	}
	pt := gridPoint{ltvIdx: -1, rateIdx: rateIdx, apr: s.Axes.Rates[rateIdx]}
	if s.Axes.IsLTVSliced() {
		pt.ltvIdx = layerIdx
		pt.ltv = s.Axes.LTVs[layerIdx]
	}
	return evaluatePoint(s.Template, pt, Simulate)
}

// BreakevenMonth returns the first month equity is non-negative at a
// coordinate, or 0 if it never is
func (s *Surfaces) BreakevenMonth(layerIdx, rateIdx int) int {
	row := s.Layers[layerIdx].Equity[rateIdx]
	for m, v := range row {
		if v >= 0 {
			return s.Axes.Months[m]
		}
	}
	return 0
}

// CellCount returns the number of populated cells in one quantity's surfaces
func (s *Surfaces) CellCount(q Quantity) int {
	n := 0
	for _, layer := range s.Layers {
		for _, row := range layer.Surface(q) {
			n += len(row)
		}
	}
	return n
}

// HasFailures reports whether any coordinate was filled with the sentinel
func (s *Surfaces) HasFailures() bool {
	return len(s.Failures) > 0
}

// FailureError joins the recorded failures into one error, or nil
func (s *Surfaces) FailureError() error {
	errs := make([]error, len(s.Failures))
	for i, f := range s.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
