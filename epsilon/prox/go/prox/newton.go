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

package prox

import (
	"math"

	"github.com/epsilon-opt/epsilon/epsilon/affine/go/affine"
	"github.com/epsilon-opt/epsilon/epsilon/data/go/data"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/linear/go/linearmap"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"github.com/epsilon-opt/epsilon/epsilon/vector/go/block"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
)

const (
	newtonMaxIterations = 100
	newtonTolerance     = 1e-10
	armijoFactor        = 1e-4
	backtrackFactor     = 0.5
	bisectIterations    = 200
	maxDoublings        = 100
)

// scaledArg is an argument alpha*x + h of a single variable x.
type scaledArg struct {
	id    string
	n     int
	alpha float64
	h     []float64
}

func newScaledArg(e *expression.Expression, arg *Arg) scaledArg {
	vars := expression.GetVariables(e)
	check.EqInt(1, len(vars), "variables in function argument")
	op := affine.BuildMatrixOperator(e, arg.Source)
	check.True(op.A != nil, "function argument does not depend on %s", vars[0].VariableID)
	alpha, ok := linearmap.FromDense(op.A).AsScalar()
	if !ok || alpha == 0 {
		check.Failf("function argument is not a scaled copy of %s", vars[0].VariableID)
	}
	if op.B != nil {
		if b, ok := linearmap.FromDense(op.B).AsScalar(); !ok || b != 1 {
			check.Failf("function argument %s has a right factor", vars[0].VariableID)
		}
	}
	s := scaledArg{id: vars[0].VariableID, n: vars[0].Dimension(), alpha: alpha, h: make([]float64, vars[0].Dimension())}
	if op.C != nil {
		m, n := op.C.Dims()
		switch {
		case m*n == 1:
			for i := range s.h {
				s.h[i] = op.C.At(0, 0)
			}
		case m*n == s.n:
			copy(s.h, data.ToVector(linearmap.FromDense(op.C)))
		default:
			check.Failf("offset of %s is %dx%d, want %d entries", s.id, m, n, s.n)
		}
	}
	return s
}

// forward returns alpha*x + h.
func (s scaledArg) forward(x []float64) []float64 {
	y := make([]float64, len(x))
	floats.AddScaledTo(y, s.h, s.alpha, x)
	return y
}

// backward returns (y - h)/alpha.
func (s scaledArg) backward(y []float64) []float64 {
	x := make([]float64, len(y))
	floats.SubTo(x, y, s.h)
	floats.Scale(1/s.alpha, x)
	return x
}

// NewtonProx is the proximal operator of f(alpha*x + h) for a smooth
// separable f, computed by a damped Newton method on the feasible interior.
type NewtonProx struct {
	f      SmoothFunction
	lambda float64
	arg    scaledArg
}

// NewNewtonProx returns an operator for f.
func NewNewtonProx(f SmoothFunction) *NewtonProx {
	return &NewtonProx{f: f}
}

// Init reads the scaled argument of the PROX_FUNCTION node.
func (p *NewtonProx) Init(arg *Arg) {
	p.lambda = arg.Lambda
	p.arg = newScaledArg(arg.Expr.OnlyArg(), arg)
}

// Apply uses prox_{lambda f(a x + h)}(v) = (prox_{a^2 lambda f}(a v + h) - h)/a.
func (p *NewtonProx) Apply(v block.Vector) block.Vector {
	x := v.Clone()
	w := p.arg.forward(v.Get(p.arg.id))
	y := newtonProx(p.f, p.arg.alpha*p.arg.alpha*p.lambda, w)
	x.Set(p.arg.id, p.arg.backward(y))
	return x
}

// newtonProx minimizes lambda*f(y) + 1/2 ||y - w||^2.
func newtonProx(f SmoothFunction, lambda float64, w []float64) []float64 {
	n := len(w)
	phi := func(y []float64) float64 {
		d := make([]float64, n)
		floats.SubTo(d, y, w)
		return lambda*f.Eval(y) + 0.5*floats.Dot(d, d)
	}

	y := f.ProjFeasible(w)
	g := make([]float64, n)
	step := make([]float64, n)
	for iter := 0; iter < newtonMaxIterations; iter++ {
		grad, hess := f.Grad(y), f.Hess(y)
		for i := range y {
			g[i] = lambda*grad[i] + y[i] - w[i]
			step[i] = -g[i] / (lambda*hess[i] + 1)
		}
		if floats.Norm(g, math.Inf(1)) <= newtonTolerance {
			return y
		}

		fy, slope := phi(y), floats.Dot(g, step)
		t := 1.0
		for {
			next := make([]float64, n)
			floats.AddScaledTo(next, y, t, step)
			next = f.ProjFeasible(next)
			if phi(next) <= fy+armijoFactor*t*slope || t < 1e-12 {
				y = next
				break
			}
			t *= backtrackFactor
		}
	}
	log.V(2).Infof("newton prox did not converge, |g|=%g", floats.Norm(g, math.Inf(1)))
	return y
}

// NewtonEpigraph is the projection onto the epigraph {(x, t) : f(x) <= t}
// of a smooth separable f.
type NewtonEpigraph struct {
	f   SmoothFunction
	arg scaledArg
	t   string
}

// NewNewtonEpigraph returns an operator for the epigraph of f.
func NewNewtonEpigraph(f SmoothFunction) *NewtonEpigraph {
	return &NewtonEpigraph{f: f}
}

// Init reads the arguments x and t of the PROX_FUNCTION node. The argument
// of f may be offset but not scaled.
func (p *NewtonEpigraph) Init(arg *Arg) {
	check.EqInt(2, len(arg.Expr.Args), "epigraph argument count")
	p.arg = newScaledArg(arg.Expr.Args[0], arg)
	if p.arg.alpha != 1 {
		check.Failf("epigraph argument %s is scaled by %g", p.arg.id, p.arg.alpha)
	}
	t := arg.Expr.Args[1]
	if t.Type != expression.TypeVariable || t.Dimension() != 1 {
		check.Failf("epigraph variable is a %v of size %v, want a scalar variable", t.Type, t.Dims())
	}
	p.t = t.VariableID
}

// Apply projects (v[x], v[t]). If f(w) > s the projection lies on the
// boundary, at (prox_{eta f}(w), s + eta) with f(prox_{eta f}(w)) = s + eta.
func (p *NewtonEpigraph) Apply(v block.Vector) block.Vector {
	out := v.Clone()
	w := p.arg.forward(v.Get(p.arg.id))
	s := v.Get(p.t)[0]

	feasible := floats.Equal(p.f.ProjFeasible(w), w)
	if feasible && p.f.Eval(w) <= s {
		return out
	}

	excess := func(eta float64) float64 {
		return p.f.Eval(newtonProx(p.f, eta, w)) - s - eta
	}
	lo, hi := 0.0, 1.0
	for i := 0; excess(hi) > 0; i++ {
		check.True(i < maxDoublings, "epigraph projection of %s did not bracket", p.arg.id)
		lo, hi = hi, 2*hi
	}
	for i := 0; i < bisectIterations && hi-lo > newtonTolerance*math.Max(1, hi); i++ {
		mid := 0.5 * (lo + hi)
		if excess(mid) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	out.Set(p.arg.id, p.arg.backward(newtonProx(p.f, hi, w)))
	out.Set(p.t, []float64{s + hi})
	return out
}
