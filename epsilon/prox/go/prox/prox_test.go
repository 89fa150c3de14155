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
	"errors"
	"math"
	"testing"

	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/linear/go/linearmap"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"github.com/epsilon-opt/epsilon/epsilon/vector/go/block"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const row = "constraint:0"

func violation(fn func()) (err error) {
	defer check.Recover(&err)
	fn()
	return nil
}

func newOp(t *testing.T, key Key, expr *expression.Expression, lambda float64) Operator {
	t.Helper()
	op := New(key)
	op.Init(&Arg{Expr: expr, Lambda: lambda})
	return op
}

func TestLinearProx(t *testing.T) {
	x := expression.Variable(2, 1, "x")
	op := newOp(t, Key{Function: expression.ProxAffine}, expression.Multiply(expression.ConstantOf(1, 2, 1), x), 2)

	v := block.VectorOf(map[string][]float64{"x": {5, 5}, "y": {1}})
	got := op.Apply(v)
	if diff := cmp.Diff([]float64{3, 3}, got.Get("x")); diff != "" {
		t.Errorf("Apply() diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1}, got.Get("y")); diff != "" {
		t.Errorf("Apply() changed unrelated variable, diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{5, 5}, v.Get("x")); diff != "" {
		t.Errorf("Apply() modified its input, diff (-want +got):\n%s", diff)
	}
}

func TestConstantProx(t *testing.T) {
	op := newOp(t, Key{Function: expression.ProxConstant}, expression.ProxFunc(expression.ProxConstant), 1)
	v := block.VectorOf(map[string][]float64{"x": {-1, 2}})
	if diff := cmp.Diff([]float64{-1, 2}, op.Apply(v).Get("x")); diff != "" {
		t.Errorf("Apply() diff (-want +got):\n%s", diff)
	}
}

func TestInvPosProx(t *testing.T) {
	x := expression.Variable(1, 1, "x")
	op := newOp(t, Key{Function: expression.ProxInvPos}, expression.ProxFunc(expression.ProxInvPos, x), 1)

	y := op.Apply(block.VectorOf(map[string][]float64{"x": {2}})).Get("x")[0]
	// The minimizer of 1/y + (y-2)^2/2 is the real root of y^3 - 2y^2 - 1.
	if r := y*y*y - 2*y*y - 1; math.Abs(r) > 1e-8 {
		t.Errorf("Apply() = %v, residual %g", y, r)
	}
	if math.Abs(y-2.2056) > 1e-4 {
		t.Errorf("Apply() = %v, want about 2.2056", y)
	}
}

func TestInvPosProxScaledArgument(t *testing.T) {
	x := expression.Variable(3, 1, "x")
	arg := expression.Add(expression.Multiply(expression.ScalarConstant(2), x), expression.ScalarConstant(1))
	const lambda = 0.5
	op := newOp(t, Key{Function: expression.ProxInvPos}, expression.ProxFunc(expression.ProxInvPos, arg), lambda)

	v := []float64{-1, 0.5, 3}
	got := op.Apply(block.VectorOf(map[string][]float64{"x": v})).Get("x")
	for i, xi := range got {
		z := 2*xi + 1
		if z <= 0 {
			t.Fatalf("Apply()[%d] = %v, outside the domain", i, xi)
		}
		if g := -2*lambda/(z*z) + xi - v[i]; math.Abs(g) > 1e-8 {
			t.Errorf("Apply()[%d] = %v, gradient %g", i, xi, g)
		}
	}
}

func TestNegLogProx(t *testing.T) {
	x := expression.Variable(2, 1, "x")
	op := newOp(t, Key{Function: expression.ProxNegLog}, expression.ProxFunc(expression.ProxNegLog, x), 2)

	got := op.Apply(block.VectorOf(map[string][]float64{"x": {1, -3}})).Get("x")
	// (v + sqrt(v^2 + 4 lambda))/2
	want := []float64{2, (-3 + math.Sqrt(17)) / 2}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-8)); diff != "" {
		t.Errorf("Apply() diff (-want +got):\n%s", diff)
	}
}

func TestEpigraph(t *testing.T) {
	x := expression.Variable(2, 1, "x")
	s := expression.Variable(1, 1, "t")
	op := newOp(t, Key{Function: expression.ProxInvPos, Epigraph: true},
		expression.ProxEpigraph(expression.ProxInvPos, x, s), 1)

	t.Run("feasible", func(t *testing.T) {
		v := block.VectorOf(map[string][]float64{"x": {2, 2}, "t": {5}})
		got := op.Apply(v)
		if diff := cmp.Diff([]float64{2, 2}, got.Get("x")); diff != "" {
			t.Errorf("Apply() x diff (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]float64{5}, got.Get("t")); diff != "" {
			t.Errorf("Apply() t diff (-want +got):\n%s", diff)
		}
	})

	t.Run("infeasible", func(t *testing.T) {
		v := block.VectorOf(map[string][]float64{"x": {1, 1}, "t": {1}})
		got := op.Apply(v)
		xs, ts := got.Get("x"), got.Get("t")[0]
		if fx := (InvPos{}).Eval(xs); math.Abs(fx-ts) > 1e-6 {
			t.Errorf("Apply() = (%v, %v), f(x) = %v, want on the boundary", xs, ts, fx)
		}
		if ts <= 1 {
			t.Errorf("Apply() t = %v, want > 1", ts)
		}
		if xs[0] <= 1 || math.Abs(xs[0]-xs[1]) > 1e-8 {
			t.Errorf("Apply() x = %v, want equal entries > 1", xs)
		}
	})
}

func TestEpigraphScaledArgument(t *testing.T) {
	x := expression.Variable(1, 1, "x")
	s := expression.Variable(1, 1, "t")
	arg := expression.Multiply(expression.ScalarConstant(2), x)
	err := violation(func() {
		newOp(t, Key{Function: expression.ProxNegLog, Epigraph: true},
			expression.ProxEpigraph(expression.ProxNegLog, arg, s), 1)
	})
	if !errors.Is(err, check.ErrViolation) {
		t.Errorf("Init() error = %v, want %v", err, check.ErrViolation)
	}
}

func TestRegistry(t *testing.T) {
	want := []Key{
		{Function: expression.ProxConstant},
		{Function: expression.ProxAffine},
		{Function: expression.ProxInvPos},
		{Function: expression.ProxInvPos, Epigraph: true},
		{Function: expression.ProxNegLog},
		{Function: expression.ProxNegLog, Epigraph: true},
	}
	if diff := cmp.Diff(want, Registered()); diff != "" {
		t.Errorf("Registered() diff (-want +got):\n%s", diff)
	}

	tests := []struct {
		name string
		fn   func()
	}{
		{"duplicate", func() { Register(Key{Function: expression.ProxInvPos}, func() Operator { return ConstantProx{} }) }},
		{"missing", func() { New(Key{Function: expression.ProxUnknown}) }},
		{"missing epigraph", func() { New(Key{Function: expression.ProxAffine, Epigraph: true}) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := violation(tc.fn); !errors.Is(err, check.ErrViolation) {
				t.Errorf("error = %v, want %v", err, check.ErrViolation)
			}
		})
	}
}

func TestTermScaled(t *testing.T) {
	x := expression.Variable(2, 1, "x")
	a := block.NewMatrix()
	a.InsertOrAdd(row, "x", linearmap.NewScalar(2, 2))
	const lambda = 0.5
	term := NewTerm(expression.ProxFunc(expression.ProxInvPos, x), lambda, a, nil)

	if term.Linearized() {
		t.Fatal("Linearized() = true for A = 2I")
	}
	if got, want := term.Key(), (Key{Function: expression.ProxInvPos}); got != want {
		t.Errorf("Key() = %v, want %v", got, want)
	}
	u := []float64{1, 4}
	got := term.Apply(block.VectorOf(map[string][]float64{row: u})).Get("x")
	for i, xi := range got {
		// d/dx 1/x + (2x - u)^2/(2 lambda)
		if g := -1/(xi*xi) + 2*(2*xi-u[i])/lambda; math.Abs(g) > 1e-7 {
			t.Errorf("Apply()[%d] = %v, gradient %g", i, xi, g)
		}
	}
}

func TestTermWeighted(t *testing.T) {
	x := expression.Variable(1, 1, "x")
	a := block.NewMatrix()
	a.InsertOrAdd(row, "x", linearmap.Identity(1))
	expr := expression.Multiply(expression.ScalarConstant(3), expression.ProxFunc(expression.ProxInvPos, x))
	term := NewTerm(expr, 1, a, nil)

	xi := term.Apply(block.VectorOf(map[string][]float64{row: {2}})).Get("x")[0]
	if g := -3/(xi*xi) + xi - 2; math.Abs(g) > 1e-7 {
		t.Errorf("Apply() = %v, gradient %g", xi, g)
	}
}

func TestTermLinearized(t *testing.T) {
	x := expression.Variable(2, 1, "x")
	a := block.NewMatrix()
	a.InsertOrAdd(row, "x", linearmap.NewDense(2, 2, []float64{2, 1, 0, 1}))
	term := NewTerm(expression.ProxFunc(expression.ProxInvPos, x), 1, a, nil)
	if !term.Linearized() {
		t.Fatal("Linearized() = false for a non-orthogonal A")
	}

	u := block.VectorOf(map[string][]float64{row: {3, 1}})
	var got []float64
	for i := 0; i < 500; i++ {
		got = term.Apply(u).Get("x")
	}
	// The fixed point solves -1/x^2 + Aᵀ(Ax - u) = 0.
	r := []float64{2*got[0] + got[1] - 3, got[1] - 1}
	grad := []float64{-1/(got[0]*got[0]) + 2*r[0], -1/(got[1]*got[1]) + r[0] + r[1]}
	if diff := cmp.Diff([]float64{0, 0}, grad, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("gradient at Apply() = %v, diff (-want +got):\n%s", got, diff)
	}
}

func TestTermAffine(t *testing.T) {
	x := expression.Variable(2, 1, "x")
	a := block.NewMatrix()
	a.InsertOrAdd(row, "x", linearmap.Identity(2))
	term := NewTerm(expression.Multiply(expression.ConstantOf(1, 2, 1), x), 2, a, nil)

	if got, want := term.Key(), (Key{Function: expression.ProxAffine}); got != want {
		t.Errorf("Key() = %v, want %v", got, want)
	}
	got := term.Apply(block.VectorOf(map[string][]float64{row: {5, 5}})).Get("x")
	if diff := cmp.Diff([]float64{3, 3}, got); diff != "" {
		t.Errorf("Apply() diff (-want +got):\n%s", diff)
	}
}

func TestTermFunctionPlusAffine(t *testing.T) {
	x := expression.Variable(1, 1, "x")
	a := block.NewMatrix()
	a.InsertOrAdd(row, "x", linearmap.Identity(1))
	expr := expression.Add(
		expression.Multiply(expression.ScalarConstant(2), expression.ProxFunc(expression.ProxInvPos, x)),
		expression.Multiply(expression.ScalarConstant(3), x),
		expression.ScalarConstant(7),
	)
	term := NewTerm(expr, 1, a, nil)

	if got, want := term.Key(), (Key{Function: expression.ProxInvPos}); got != want {
		t.Errorf("Key() = %v, want %v", got, want)
	}
	for _, u := range []float64{2, 10} {
		xi := term.Apply(block.VectorOf(map[string][]float64{row: {u}})).Get("x")[0]
		// d/dx 2/x + 3x + (x - u)^2/2
		if g := -2/(xi*xi) + 3 + xi - u; math.Abs(g) > 1e-7 {
			t.Errorf("Apply(%g) = %v, gradient %g", u, xi, g)
		}
	}
}

func TestTermViolations(t *testing.T) {
	x := expression.Variable(1, 1, "x")
	y := expression.Variable(1, 1, "y")
	xy := func() block.Matrix {
		a := block.NewMatrix()
		a.InsertOrAdd(row, "x", linearmap.Identity(1))
		a.InsertOrAdd(row, "y", linearmap.Identity(1))
		return a
	}
	tests := []struct {
		name string
		expr *expression.Expression
		a    func() block.Matrix
	}{
		{
			name: "unconstrained variable",
			expr: expression.ProxFunc(expression.ProxInvPos, x),
			a: func() block.Matrix {
				a := block.NewMatrix()
				a.InsertOrAdd(row, "y", linearmap.Identity(1))
				return a
			},
		},
		{
			name: "negative weight",
			expr: expression.Multiply(expression.ScalarConstant(-1), expression.ProxFunc(expression.ProxInvPos, x)),
			a: func() block.Matrix {
				a := block.NewMatrix()
				a.InsertOrAdd(row, "x", linearmap.Identity(1))
				return a
			},
		},
		{
			name: "function after affine argument",
			expr: expression.Add(x, expression.ProxFunc(expression.ProxInvPos, x)),
			a:    xy,
		},
		{
			name: "two functions in a sum",
			expr: expression.Add(expression.ProxFunc(expression.ProxInvPos, x), expression.ProxFunc(expression.ProxNegLog, x)),
			a:    xy,
		},
		{
			name: "affine variable outside function",
			expr: expression.Add(expression.ProxFunc(expression.ProxInvPos, x), y),
			a:    xy,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := violation(func() { NewTerm(tc.expr, 1, tc.a(), nil) })
			if !errors.Is(err, check.ErrViolation) {
				t.Errorf("NewTerm() error = %v, want %v", err, check.ErrViolation)
			}
		})
	}
}
