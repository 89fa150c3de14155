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

// Package admm solves separable convex problems
//
//	minimize   f_1(x_1) + ... + f_N(x_N)
//	subject to A_1 x_1 + ... + A_N x_N + b = 0
//
// with a Gauss-Seidel prox-ADMM: each sweep minimizes the augmented
// Lagrangian over one term at a time, in term order, and then updates the
// scaled dual variable. Every term is handled by the proximal operator that
// matches its expression.
//
// Solves are single threaded and deterministic: identical inputs give
// bit-for-bit identical iterates.
package admm

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/epsilon-opt/epsilon/epsilon/affine/go/affine"
	"github.com/epsilon-opt/epsilon/epsilon/data/go/data"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/linear/go/linearmap"
	"github.com/epsilon-opt/epsilon/epsilon/parameters/go/parameters"
	"github.com/epsilon-opt/epsilon/epsilon/prox/go/prox"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"github.com/epsilon-opt/epsilon/epsilon/vector/go/block"
	log "github.com/golang/glog"
)

// Solver holds the compiled problem and the iterates of one solve.
type Solver struct {
	problem   *expression.Problem
	params    Params
	svc       parameters.Service
	src       data.Source
	problemID uint64
	status    Status

	// a and b are the stacked constraints A x + b = 0, one row block per
	// constraint.
	a, at block.Matrix
	b     block.Vector
	m, n  int

	terms []*term
	// u is the scaled dual variable.
	u block.Vector
}

// term is one objective term with its iterate.
type term struct {
	prox *prox.Term
	vars []*expression.Expression
	at   block.Matrix
	x    block.Vector
	// ax is A_i x_i.
	ax block.Vector
}

// NewSolver returns a solver for problem. Solutions are written to svc,
// and data-backed constants are resolved through src, which may be nil if
// the problem has none.
func NewSolver(problem *expression.Problem, params Params, svc parameters.Service, src data.Source) *Solver {
	return &Solver{
		problem:   problem,
		params:    params,
		svc:       svc,
		src:       src,
		problemID: xxhash.Sum64(expression.MarshalProblem(problem)),
	}
}

// ProblemID returns the fingerprint of the problem, which scopes the
// parameter ids of its variables.
func (s *Solver) ProblemID() uint64 {
	return s.problemID
}

// Status returns the status of the last solve.
func (s *Solver) Status() Status {
	return s.status
}

// Solve runs the solver to convergence or the iteration limit. Invalid
// problems are reported as errors wrapping check.ErrViolation.
func (s *Solver) Solve() (*Status, error) {
	return s.SolveContext(context.Background())
}

// SolveContext is Solve with cancellation, checked between sweeps.
func (s *Solver) SolveContext(ctx context.Context) (_ *Status, err error) {
	defer check.Recover(&err)
	if s.status.State != StateUninitialized {
		return nil, fmt.Errorf("solver already in state %v", s.status.State)
	}
	if err := s.params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid solver params: %w", err)
	}
	start := time.Now()
	s.init()
	if s.params.WarmStart {
		if err := s.warmStart(); err != nil {
			return nil, err
		}
	}
	s.status.State = StateRunning
	if err := s.iterate(ctx); err != nil {
		return nil, err
	}
	if err := s.finalize(); err != nil {
		return nil, err
	}
	s.status.SolveTime = time.Since(start)
	observe(&s.status)
	log.V(1).Infof("problem %016x: %v after %d iterations in %v",
		s.problemID, s.status.State, s.status.NumIterations, s.status.SolveTime)
	status := s.status
	return &status, nil
}

// init compiles the constraints and the objective terms.
func (s *Solver) init() {
	log.V(2).Infof("problem %016x\n%v", s.problemID, s.problem)
	s.a = block.NewMatrix()
	s.b = block.NewVector()
	for i, c := range s.problem.Constraints {
		if c.Type != expression.TypeIndicator || c.Cone != expression.ConeZero {
			check.Failf("constraint %d is %v %v, want INDICATOR ZERO", i, c.Type, c.Cone)
		}
		arg := c.OnlyArg()
		affine.BuildAffineOperatorWithData(arg, s.src, affine.ConstraintKey(i),
			linearmap.Identity(arg.Dimension()), s.a, s.b)
	}
	s.at = s.a.Transpose()
	s.m, s.n = s.a.M(), s.a.N()
	log.V(1).Infof("problem %016x: %d constraints, A is %dx%d", s.problemID, len(s.problem.Constraints), s.m, s.n)
	log.V(2).Infof("A:\n%vb:\n%v", s.a, s.b)

	owner := map[string]int{}
	obj := s.problem.Objective
	if obj != nil {
		if obj.Type != expression.TypeAdd {
			check.Failf("objective is %v, want ADD", obj.Type)
		}
		for i, f := range obj.Args {
			s.addTerm(f)
			for _, v := range s.terms[i].vars {
				if j, ok := owner[v.VariableID]; ok {
					check.Failf("variable %q appears in terms %d and %d", v.VariableID, j, i)
				}
				owner[v.VariableID] = i
			}
		}
	}

	// Variables that appear only in constraints get f = 0.
	var free []*expression.Expression
	seen := map[string]bool{}
	for _, c := range s.problem.Constraints {
		for _, v := range expression.GetVariables(c) {
			if _, ok := owner[v.VariableID]; !ok && !seen[v.VariableID] {
				seen[v.VariableID] = true
				free = append(free, v)
			}
		}
	}
	if len(free) > 0 {
		s.addTerm(expression.ProxFunc(expression.ProxConstant, free...))
	}

	s.u = block.NewVector()
	for _, r := range s.a.RowKeys() {
		s.u.Set(r, make([]float64, s.a.Row(r).M()))
	}
}

func (s *Solver) addTerm(f *expression.Expression) {
	vars := expression.GetVariables(f)
	ids := make([]string, len(vars))
	x := block.NewVector()
	for i, v := range vars {
		ids[i] = v.VariableID
		x.Set(v.VariableID, make([]float64, v.Dimension()))
	}
	ai := s.a.Cols(ids)
	t := &term{
		prox: prox.NewTerm(f, 1/s.params.Rho, ai, s.src),
		vars: vars,
		at:   ai.Transpose(),
		x:    x,
	}
	t.ax = s.a.Apply(t.x)
	log.V(1).Infof("term %d: %v", len(s.terms), t.prox)
	s.terms = append(s.terms, t)
}

func (s *Solver) warmStart() error {
	for _, t := range s.terms {
		for _, v := range t.vars {
			x, err := s.svc.Fetch(parameters.VariableParameterID(s.problemID, v.VariableID))
			if err != nil {
				return fmt.Errorf("warm start of %q: %w", v.VariableID, err)
			}
			switch len(x) {
			case 0:
			case v.Dimension():
				t.x.Set(v.VariableID, x)
			default:
				log.Warningf("warm start of %q has %d values, want %d; ignored", v.VariableID, len(x), v.Dimension())
			}
		}
		t.prox.SetIterate(t.x)
		t.ax = s.a.Apply(t.x)
	}
	return nil
}

func (s *Solver) iterate(ctx context.Context) error {
	prev := s.axs()
	iter := 0
	for ; iter < s.params.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("solve interrupted at iteration %d: %w", iter, err)
		}
		prev = s.axs()
		s.sweep()
		if iter%s.params.EpochIterations == 0 {
			if s.checkResiduals(iter, prev) {
				s.status.State = StateOptimal
				s.status.NumIterations = iter
				return nil
			}
		}
	}
	s.checkResiduals(iter, prev)
	s.status.State = StateMaxIterationsReached
	s.status.NumIterations = iter
	return nil
}

// sweep runs one Gauss-Seidel pass over the terms and the dual update.
func (s *Solver) sweep() {
	s.u = block.Sub(s.u, s.b)
	for _, t := range s.terms {
		s.u = block.Sub(s.u, t.ax)
	}
	for _, t := range s.terms {
		s.u = block.Add(s.u, t.ax)
		x := t.prox.Apply(s.u)
		for _, v := range t.vars {
			t.x.Set(v.VariableID, x.Get(v.VariableID))
		}
		t.ax = s.a.Apply(t.x)
		s.u = block.Sub(s.u, t.ax)
	}
}

func (s *Solver) axs() []block.Vector {
	ax := make([]block.Vector, len(s.terms))
	for i, t := range s.terms {
		ax[i] = t.ax
	}
	return ax
}

// checkResiduals records the residuals at iter, given A_i x_i before the
// last sweep, and reports convergence.
func (s *Solver) checkResiduals(iter int, prev []block.Vector) bool {
	r := s.b.Clone()
	maxAx := 0.0
	for _, t := range s.terms {
		r = block.Add(r, t.ax)
		maxAx = math.Max(maxAx, t.ax.Norm())
	}

	var dual float64
	sum := block.NewVector()
	for i := len(s.terms) - 2; i >= 0; i-- {
		sum = block.Add(sum, block.Sub(s.terms[i+1].ax, prev[i+1]))
		n := s.terms[i].at.Apply(sum).Norm()
		dual += n * n
	}

	rho := s.params.Rho
	res := Residuals{
		Iteration:     iter,
		Primal:        r.Norm(),
		Dual:          rho * math.Sqrt(dual),
		EpsilonPrimal: s.params.AbsTol*math.Sqrt(float64(s.m)) + s.params.RelTol*math.Max(s.b.Norm(), maxAx),
		EpsilonDual:   s.params.AbsTol*math.Sqrt(float64(s.n)) + s.params.RelTol*rho*s.at.Apply(s.u).Norm(),
	}
	log.V(1).Info(res)
	s.status.Residuals = res
	s.status.History = append(s.status.History, res)
	return res.Converged()
}

// finalize writes the iterates to the parameter service.
func (s *Solver) finalize() error {
	for _, t := range s.terms {
		for _, v := range t.vars {
			id := parameters.VariableParameterID(s.problemID, v.VariableID)
			if err := s.svc.Update(id, t.x.Get(v.VariableID)); err != nil {
				return fmt.Errorf("writing %q: %w", v.VariableID, err)
			}
			log.V(2).Infof("%s = %v", v.VariableID, t.x.Get(v.VariableID))
		}
	}
	return nil
}
