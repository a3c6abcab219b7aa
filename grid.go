package main

import (
	"fmt"
	"math"
)

// AxisSpec describes an inclusive [Min, Max] sampling, either Count evenly
// spaced samples or a fixed Step. Count takes precedence when both are set.
type AxisSpec struct {
	Min   float64 `yaml:"min" json:"min"`
	Max   float64 `yaml:"max" json:"max"`
	Count int     `yaml:"count,omitempty" json:"count,omitempty"`
	Step  float64 `yaml:"step,omitempty" json:"step,omitempty"`
}

// GridSpec holds everything GridBuilder needs
type GridSpec struct {
	TermMonths int
	Rates      AxisSpec
	LTVs       *AxisSpec // nil when the grid is not LTV-sliced
}

// stepTolerance absorbs float accumulation when stepping to an inclusive bound
const stepTolerance = 1e-9

// maxAxisSamples caps a single axis; a full LTV x rate x month grid is
// allocated up front, so larger axes are rejected rather than attempted
const maxAxisSamples = 100000

// Linspace returns count evenly spaced samples from min to max inclusive
func Linspace(min, max float64, count int) ([]float64, error) {
	if err := checkBounds(min, max); err != nil {
		return nil, err
	}
	if count < 2 {
		return nil, fmt.Errorf("%w: sample count must be at least 2, got %d", ErrInvalidRange, count)
	}
	if count > maxAxisSamples {
		return nil, fmt.Errorf("%w: sample count %d exceeds the limit of %d", ErrInvalidRange, count, maxAxisSamples)
	}

	samples := make([]float64, count)
	span := max - min
	for i := range samples {
		samples[i] = min + span*float64(i)/float64(count-1)
	}
	// Pin the upper bound exactly
	samples[count-1] = max
	if err := checkIncreasing(samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// SteppedRange returns min, min+step, ... up to and including max
func SteppedRange(min, max, step float64) ([]float64, error) {
	if err := checkBounds(min, max); err != nil {
		return nil, err
	}
	if !isFinite(step) || step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %v", ErrInvalidRange, step)
	}

	// Count in float64 first so a tiny step cannot overflow int
	fn := math.Floor((max-min)/step+stepTolerance) + 1
	if !isFinite(fn) || fn > maxAxisSamples {
		return nil, fmt.Errorf("%w: step %v yields more than %d samples in [%v, %v]",
			ErrInvalidRange, step, maxAxisSamples, min, max)
	}
	n := int(fn)
	if n < 2 {
		return nil, fmt.Errorf("%w: step %v yields fewer than 2 samples in [%v, %v]",
			ErrInvalidRange, step, min, max)
	}

	// Multiply rather than accumulate to avoid drift
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = min + float64(i)*step
	}
	if err := checkIncreasing(samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// checkIncreasing rejects axes whose spacing is below float resolution
func checkIncreasing(samples []float64) error {
	for i := 1; i < len(samples); i++ {
		if samples[i] <= samples[i-1] {
			return fmt.Errorf("%w: samples collapse at index %d (%v after %v)",
				ErrInvalidRange, i, samples[i], samples[i-1])
		}
	}
	return nil
}

func checkBounds(min, max float64) error {
	if !isFinite(min) || !isFinite(max) {
		return fmt.Errorf("%w: bounds must be finite, got [%v, %v]", ErrInvalidRange, min, max)
	}
	if min >= max {
		return fmt.Errorf("%w: lower bound %v must be below upper bound %v", ErrInvalidRange, min, max)
	}
	return nil
}

// Sample builds the axis described by the spec
func (a AxisSpec) Sample() ([]float64, error) {
	if a.Count != 0 {
		return Linspace(a.Min, a.Max, a.Count)
	}
	if a.Step != 0 {
		return SteppedRange(a.Min, a.Max, a.Step)
	}
	return nil, fmt.Errorf("%w: axis [%v, %v] needs a count or a step", ErrInvalidRange, a.Min, a.Max)
}

// MonthRange returns 1..term inclusive
func MonthRange(term int) ([]int, error) {
	if term < 1 {
		return nil, fmt.Errorf("%w: term must be at least 1 month, got %d", ErrInvalidRange, term)
	}
	months := make([]int, term)
	for i := range months {
		months[i] = i + 1
	}
	return months, nil
}

// BuildGrid constructs the month, rate and optional LTV axes
func BuildGrid(spec GridSpec) (GridAxes, error) {
	months, err := MonthRange(spec.TermMonths)
	if err != nil {
		return GridAxes{}, err
	}

	rates, err := spec.Rates.Sample()
	if err != nil {
		return GridAxes{}, fmt.Errorf("rates: %w", err)
	}
	if rates[0] < 0 {
		return GridAxes{}, fmt.Errorf("rates: %w: APR samples must be non-negative, got %v", ErrInvalidRange, rates[0])
	}

	axes := GridAxes{Months: months, Rates: rates}
	if spec.LTVs != nil {
		ltvs, err := spec.LTVs.Sample()
		if err != nil {
			return GridAxes{}, fmt.Errorf("ltv: %w", err)
		}
		if ltvs[0] <= 0 {
			return GridAxes{}, fmt.Errorf("ltv: %w: ratios must be positive, got %v", ErrInvalidRange, ltvs[0])
		}
		axes.LTVs = ltvs
	}
	return axes, nil
}
