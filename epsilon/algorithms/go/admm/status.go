// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package admm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a solve.
type State int

// Solver states.
const (
	StateUninitialized State = iota
	StateRunning
	StateOptimal
	StateMaxIterationsReached
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StateOptimal:
		return "OPTIMAL"
	case StateMaxIterationsReached:
		return "MAX_ITERATIONS_REACHED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Params configures the solver.
type Params struct {
	// Rho is the augmented Lagrangian penalty.
	Rho float64
	// AbsTol and RelTol are the absolute and relative tolerances of the
	// primal and dual residuals.
	AbsTol, RelTol float64
	// MaxIterations caps the number of sweeps.
	MaxIterations int
	// EpochIterations is the number of sweeps between residual checks.
	EpochIterations int
	// WarmStart reads initial iterates from the parameter service.
	WarmStart bool
}

// DefaultParams returns the default solver parameters.
func DefaultParams() Params {
	return Params{
		Rho:             1,
		AbsTol:          1e-3,
		RelTol:          1e-3,
		MaxIterations:   1000,
		EpochIterations: 10,
	}
}

// Validate reports every invalid field of p.
func (p Params) Validate() error {
	var errs []error
	if p.Rho <= 0 {
		errs = append(errs, fmt.Errorf("rho must be positive, got %g", p.Rho))
	}
	if p.AbsTol < 0 || p.RelTol < 0 {
		errs = append(errs, fmt.Errorf("tolerances must be non-negative, got abs=%g rel=%g", p.AbsTol, p.RelTol))
	}
	if p.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("max iterations must be non-negative, got %d", p.MaxIterations))
	}
	if p.EpochIterations <= 0 {
		errs = append(errs, fmt.Errorf("epoch iterations must be positive, got %d", p.EpochIterations))
	}
	return errors.Join(errs...)
}

// Residuals are the primal and dual residuals at one iteration with their
// tolerances.
type Residuals struct {
	Iteration     int
	Primal        float64
	Dual          float64
	EpsilonPrimal float64
	EpsilonDual   float64
}

// Converged reports whether both residuals are within tolerance.
func (r Residuals) Converged() bool {
	return r.Primal <= r.EpsilonPrimal && r.Dual <= r.EpsilonDual
}

func (r Residuals) String() string {
	return fmt.Sprintf("iter=%d residuals primal=%.2e [%.2e] dual=%.2e [%.2e]",
		r.Iteration, r.Primal, r.EpsilonPrimal, r.Dual, r.EpsilonDual)
}

// Status is the outcome of a solve.
type Status struct {
	State         State
	NumIterations int
	// Residuals are the last computed residuals.
	Residuals Residuals
	// History holds every residual check in order.
	History   []Residuals
	SolveTime time.Duration
}

func (s *Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "state: %v\n", s.State)
	fmt.Fprintf(&b, "num_iterations: %d\n", s.NumIterations)
	fmt.Fprintf(&b, "%v\n", s.Residuals)
	fmt.Fprintf(&b, "solve_time: %v\n", s.SolveTime)
	return b.String()
}
