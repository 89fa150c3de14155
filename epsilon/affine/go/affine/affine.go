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

// Package affine compiles affine expressions into linear operators.
//
// BuildAffineOperator accumulates an expression as A*x + b into a block
// matrix and block vector keyed by (row key, variable id). BuildMatrixOperator
// reduces an expression over a single argument to literal matrices instead.
// Both dispatch on the node type through a fixed handler table; a node type
// without a handler is an invariant violation.
package affine

import (
	"fmt"

	"github.com/epsilon-opt/epsilon/epsilon/data/go/data"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/linear/go/linearmap"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"github.com/epsilon-opt/epsilon/epsilon/vector/go/block"
	log "github.com/golang/glog"
)

const (
	constraintPrefix = "constraint:"
	argPrefix        = "arg:"
)

// ConstraintKey returns the row key of the i-th constraint.
func ConstraintKey(i int) string {
	return fmt.Sprintf("%s%d", constraintPrefix, i)
}

// ArgKey returns the row key of the i-th argument of a function.
func ArgKey(i int) string {
	return fmt.Sprintf("%s%d", argPrefix, i)
}

type builder struct {
	src data.Source
	row string
	a   block.Matrix
	b   block.Vector
}

type affineFunc func(bld *builder, e *expression.Expression, l linearmap.LinearMap)

var affineFuncs map[expression.Type]affineFunc

func init() {
	affineFuncs = map[expression.Type]affineFunc{
		expression.TypeAdd:       buildAdd,
		expression.TypeConstant:  buildConstant,
		expression.TypeLinearMap: buildLinearMap,
		expression.TypeMultiply:  buildMultiply,
		expression.TypeNegate:    buildNegate,
		// Reshape changes the logical shape only; vec(x) is unchanged.
		expression.TypeReshape:   buildAdd,
		expression.TypeVariable:  buildVariable,
	}
}

// BuildAffineOperator adds expr, written as A*x + b, to row rowKey of a and
// b. Constants must be inline scalars.
func BuildAffineOperator(expr *expression.Expression, rowKey string, a block.Matrix, b block.Vector) {
	BuildAffineOperatorWithData(expr, nil, rowKey, linearmap.Identity(expr.Dimension()), a, b)
}

// BuildAffineOperatorWithData adds l*expr to row rowKey of a and b,
// resolving data-backed constants through src.
func BuildAffineOperatorWithData(expr *expression.Expression, src data.Source, rowKey string,
	l linearmap.LinearMap, a block.Matrix, b block.Vector) {
	bld := &builder{src: src, row: rowKey, a: a, b: b}
	bld.build(expr, l)
}

func (bld *builder) build(e *expression.Expression, l linearmap.LinearMap) {
	if log.V(3) {
		log.Infof("BuildAffineOperator row=%s L=%v %dx%d\n%v", bld.row, l.Kind(), l.M(), l.N(), e)
	}
	fn, ok := affineFuncs[e.Type]
	if !ok {
		check.Failf("no affine function for %v", e.Type)
	}
	fn(bld, e, l)
}

func buildAdd(bld *builder, e *expression.Expression, l linearmap.LinearMap) {
	for _, arg := range e.Args {
		bld.build(arg, l)
	}
}

func buildVariable(bld *builder, e *expression.Expression, l linearmap.LinearMap) {
	check.EqInt(e.Dimension(), l.N(), fmt.Sprintf("variable %q dimension", e.VariableID))
	bld.a.InsertOrAdd(bld.row, e.VariableID, l)
}

func buildConstant(bld *builder, e *expression.Expression, l linearmap.LinearMap) {
	c := constantVector(e.Constant, bld.src)
	if len(c) == 1 && l.N() != 1 {
		c = fill(l.N(), c[0])
	}
	bld.b.InsertOrAdd(bld.row, l.Apply(c))
}

// constantVector returns the column-major value of c. An inline scalar is
// returned as a single entry.
func constantVector(c *expression.Constant, src data.Source) []float64 {
	if c.DataLocation == "" {
		return []float64{c.Scalar}
	}
	return data.ToVector(readData(src, c.DataLocation))
}

func readData(src data.Source, location string) linearmap.LinearMap {
	if src == nil {
		check.Failf("constant %q requires a data source", location)
	}
	m, err := src.Matrix(location)
	if err != nil {
		check.Failf("reading constant: %v", err)
	}
	return m
}

func buildLinearMap(bld *builder, e *expression.Expression, l linearmap.LinearMap) {
	bld.build(e.OnlyArg(), linearmap.Mul(l, BuildLinearMap(e.LinearMap, bld.src)))
}

func buildNegate(bld *builder, e *expression.Expression, l linearmap.LinearMap) {
	bld.build(e.OnlyArg(), linearmap.Scale(-1, l))
}

// buildMultiply handles C*x for a constant C. For an m x n C and an n x k
// argument, vec(C X) = (I_k ⊗ C) vec(X).
func buildMultiply(bld *builder, e *expression.Expression, l linearmap.LinearMap) {
	check.EqInt(2, len(e.Args), "MULTIPLY argument count")
	lhs, rhs := e.Args[0], e.Args[1]
	op := BuildMatrixOperator(lhs, bld.src)
	if !op.IsConstant() {
		check.Failf("MULTIPLY with non-constant left operand %v", lhs.Type)
	}
	c := linearmap.FromDense(op.C)
	if alpha, ok := scalarOf(c); ok {
		bld.build(rhs, linearmap.Scale(alpha, l))
		return
	}
	if k := rhs.Dims().N; k != 1 {
		c = linearmap.NewKronecker(linearmap.Identity(k), c)
	}
	bld.build(rhs, linearmap.Mul(l, c))
}

func scalarOf(l linearmap.LinearMap) (float64, bool) {
	if l.M() != 1 || l.N() != 1 {
		return 0, false
	}
	return l.AsDense().At(0, 0), true
}

func fill(n int, v float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = v
	}
	return x
}
