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
	"fmt"
	"math"
	"slices"

	"github.com/epsilon-opt/epsilon/epsilon/affine/go/affine"
	"github.com/epsilon-opt/epsilon/epsilon/data/go/data"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/linear/go/linearmap"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"github.com/epsilon-opt/epsilon/epsilon/vector/go/block"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
)

const powerIterations = 50

// Term solves the ADMM subproblem of one objective term f,
//
//	argmin_x  f(x) + 1/(2 lambda) ||A x - u||^2,
//
// where A holds the columns of the constraint matrix for the variables of f.
//
// If AᵀA = alpha*I the subproblem is a single proximal step at Aᵀu/alpha
// with lambda/alpha. Otherwise the quadratic is linearized around the
// previous iterate with step 1/L, L >= ||A||^2.
type Term struct {
	vars []string
	a    block.Matrix
	at   block.Matrix
	op   Operator
	key  Key

	// alpha is AᵀA = alpha*I, or L when linearized.
	alpha      float64
	linearized bool
	x          block.Vector
}

// NewTerm compiles the subproblem of expr. a holds the columns of the
// constraint matrix for the variables of expr; every variable must appear
// in at least one constraint.
func NewTerm(expr *expression.Expression, lambda float64, a block.Matrix, src data.Source) *Term {
	t := &Term{a: a, at: a.Transpose(), x: block.NewVector()}
	for _, v := range expression.GetVariables(expr) {
		t.vars = append(t.vars, v.VariableID)
	}
	for _, v := range t.vars {
		if !slices.Contains(a.ColKeys(), v) {
			check.Failf("variable %q appears in no constraint", v)
		}
	}

	weight, f := splitWeight(expr, src)
	fWeight, f, linear := splitLinear(f, src)
	t.key = keyOf(f)

	t.alpha, t.linearized = t.scaling()
	if t.linearized {
		for _, v := range t.vars {
			t.x.Set(v, make([]float64, t.colDim(v)))
		}
	}
	log.V(2).Infof("prox %v vars=%v alpha=%g linearized=%v", t.key, t.vars, t.alpha, t.linearized)

	t.op = New(t.key)
	t.op.Init(&Arg{Expr: f, Lambda: lambda * weight * fWeight / t.alpha, Source: src})
	if linear != nil {
		shift := &LinearProx{}
		shift.Init(&Arg{Expr: linear, Lambda: lambda * weight / t.alpha, Source: src})
		t.op = &shiftedProx{op: t.op, shift: shift}
	}
	return t
}

// shiftedProx is the proximal operator of f(x) + c'x, which is
// prox_f(v - lambda*c).
type shiftedProx struct {
	op    Operator
	shift *LinearProx
}

func (p *shiftedProx) Init(*Arg) {}

func (p *shiftedProx) Apply(v block.Vector) block.Vector {
	return p.op.Apply(p.shift.Apply(v))
}

// Key returns the operator key the term was matched to.
func (t *Term) Key() Key {
	return t.key
}

// Variables returns the variable ids of the term in order of first
// occurrence.
func (t *Term) Variables() []string {
	return t.vars
}

// Linearized reports whether the term uses the linearized update.
func (t *Term) Linearized() bool {
	return t.linearized
}

// SetIterate sets the point the linearized update expands around.
func (t *Term) SetIterate(x block.Vector) {
	for _, v := range t.vars {
		if x.Has(v) {
			t.x.Set(v, x.Get(v))
		}
	}
}

// Apply returns the minimizer of the subproblem for u.
func (t *Term) Apply(u block.Vector) block.Vector {
	var v block.Vector
	if t.linearized {
		r := block.Sub(t.a.Apply(t.x), u)
		v = block.Sub(t.x, block.Scale(1/t.alpha, t.at.Apply(r)))
	} else {
		v = block.Scale(1/t.alpha, t.at.Apply(u))
	}
	for _, k := range t.vars {
		if !v.Has(k) {
			check.Failf("prox input missing variable %q", k)
		}
	}
	x := t.op.Apply(v)
	if t.linearized {
		t.x = x.Clone()
	}
	return x
}

// scaling returns alpha with AᵀA = alpha*I if there is one, and otherwise
// an upper bound on ||A||^2 for the linearized update.
func (t *Term) scaling() (float64, bool) {
	gram := block.Mul(t.at, t.a)
	alpha, ok := math.NaN(), true
	for _, j := range t.vars {
		for _, k := range t.vars {
			if !gram.Has(j, k) {
				continue
			}
			g := gram.Get(j, k)
			if j != k {
				if !isZero(g) {
					ok = false
				}
				continue
			}
			s, scalar := g.AsScalar()
			switch {
			case !scalar || s <= 0:
				ok = false
			case math.IsNaN(alpha):
				alpha = s
			case s != alpha:
				ok = false
			}
		}
	}
	if ok {
		return alpha, false
	}
	l := 1.01 * t.normSquared(gram)
	check.True(l > 0, "zero constraint columns for %v", t.vars)
	return l, true
}

// normSquared estimates the largest eigenvalue of gram by power iteration.
func (t *Term) normSquared(gram block.Matrix) float64 {
	x := block.NewVector()
	for _, v := range t.vars {
		x.Set(v, ones(t.colDim(v)))
	}
	var lambda float64
	for i := 0; i < powerIterations; i++ {
		y := gram.Apply(x)
		norm := y.Norm()
		if norm == 0 {
			return 0
		}
		lambda = norm / x.Norm()
		x = block.Scale(1/norm, y)
	}
	return lambda
}

// splitWeight removes scalar weights w*f from expr. An expression without
// a PROX_FUNCTION node is affine and is returned whole.
func splitWeight(expr *expression.Expression, src data.Source) (float64, *expression.Expression) {
	if !hasProxFunction(expr) {
		return 1, expr
	}
	weight := 1.0
	for expr.Type == expression.TypeMultiply {
		check.EqInt(2, len(expr.Args), "MULTIPLY argument count")
		op := affine.BuildMatrixOperator(expr.Args[0], src)
		if !op.IsConstant() {
			check.Failf("weight of %v is not constant", expr.Args[1].Type)
		}
		m, n := op.C.Dims()
		if m != 1 || n != 1 {
			check.Failf("weight of %v is %dx%d, want scalar", expr.Args[1].Type, m, n)
		}
		w := op.C.At(0, 0)
		if w < 0 {
			check.Failf("negative weight %g of convex function", w)
		}
		weight *= w
		expr = expr.Args[1]
	}
	return weight, expr
}

// splitLinear separates a sum w*f(x) + g(x), with g affine, into the
// weighted function and the affine part. Only the first argument of the sum
// may hold a function; linear is nil if there is no affine part.
func splitLinear(expr *expression.Expression, src data.Source) (weight float64, f, linear *expression.Expression) {
	if expr.Type != expression.TypeAdd || !hasProxFunction(expr) {
		return 1, expr, nil
	}
	if len(expr.Args) == 1 {
		return splitLinear(expr.Args[0], src)
	}
	weight, f = splitWeight(expr.Args[0], src)
	if f.Type != expression.TypeProxFunction {
		check.Failf("sum with function in argument other than the first: %v", expr.Args[0].Type)
	}
	rest := expr.Args[1:]
	fVars := expression.GetVariables(f)
	for _, arg := range rest {
		if hasProxFunction(arg) {
			check.Failf("sum of more than one function")
		}
		for _, v := range expression.GetVariables(arg) {
			if !slices.ContainsFunc(fVars, func(w *expression.Expression) bool {
				return w.VariableID == v.VariableID
			}) {
				check.Failf("affine part uses variable %q outside the function", v.VariableID)
			}
		}
	}
	return weight, f, expression.Add(rest...)
}

func keyOf(f *expression.Expression) Key {
	if f.Type != expression.TypeProxFunction {
		return Key{Function: expression.ProxAffine}
	}
	return Key{Function: f.ProxFunction.Type, Epigraph: f.ProxFunction.Epigraph}
}

func hasProxFunction(e *expression.Expression) bool {
	if e.Type == expression.TypeProxFunction {
		return true
	}
	for _, arg := range e.Args {
		if hasProxFunction(arg) {
			return true
		}
	}
	return false
}

func isZero(l linearmap.LinearMap) bool {
	d := l.AsDense()
	m, n := d.Dims()
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			if d.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

func ones(n int) []float64 {
	x := make([]float64, n)
	floats.AddConst(1, x)
	return x
}

// colDim returns the width of the column block of variable v.
func (t *Term) colDim(v string) int {
	return t.a.Col(v).N()
}

func (t *Term) String() string {
	return fmt.Sprintf("%v(%v)", t.key, t.vars)
}
