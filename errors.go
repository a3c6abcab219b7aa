package main

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when a grid axis has degenerate or inverted bounds
	ErrInvalidRange = errors.New("invalid range")
	// ErrInvalidScenario is returned when a loan parameter is out of its domain
	ErrInvalidScenario = errors.New("invalid scenario")
	// ErrNumericInstability guards the amortization denominator; it never
	// surfaces while the zero-rate limiting form is applied
	ErrNumericInstability = errors.New("numeric instability")
)

// GridPointError identifies the grid coordinate whose scenario failed
type GridPointError struct {
	LTVIndex  int // -1 when the grid is not LTV-sliced
	RateIndex int
	LTV       float64
	APR       float64
	Err       error
}

func (e *GridPointError) Error() string {
	if e.LTVIndex < 0 {
		return fmt.Sprintf("rate[%d]=%.4f: %v", e.RateIndex, e.APR, e.Err)
	}
	return fmt.Sprintf("ltv[%d]=%.2f rate[%d]=%.4f: %v",
		e.LTVIndex, e.LTV, e.RateIndex, e.APR, e.Err)
}

func (e *GridPointError) Unwrap() error {
	return e.Err
}
