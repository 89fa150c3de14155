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

package affine

import (
	"github.com/epsilon-opt/epsilon/epsilon/data/go/data"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
)

// MatrixOperator is the literal form A*X*B + C of an affine expression in a
// single matrix argument X. A nil component is absent and acts as a zero of
// whatever shape the other operand needs.
type MatrixOperator struct {
	A, B, C *mat.Dense
}

// IsConstant reports whether the operator does not depend on its argument.
func (op MatrixOperator) IsConstant() bool {
	return op.A == nil && op.B == nil
}

type matrixFunc func(e *expression.Expression, src data.Source) MatrixOperator

var matrixFuncs map[expression.Type]matrixFunc

func init() {
	matrixFuncs = map[expression.Type]matrixFunc{
		expression.TypeAdd:      matrixAdd,
		expression.TypeConstant: matrixConstant,
		expression.TypeMultiply: matrixMultiply,
		expression.TypeNegate:   matrixNegate,
		expression.TypeVariable: matrixVariable,
	}
}

// BuildMatrixOperator reduces expr to a MatrixOperator, resolving
// data-backed constants through src.
func BuildMatrixOperator(expr *expression.Expression, src data.Source) MatrixOperator {
	log.V(3).Infof("BuildMatrixOperator\n%v", expr)
	fn, ok := matrixFuncs[expr.Type]
	if !ok {
		check.Failf("no affine matrix function for %v", expr.Type)
	}
	return fn(expr, src)
}

func matrixAdd(e *expression.Expression, src data.Source) MatrixOperator {
	check.True(len(e.Args) > 0, "ADD without arguments")
	op := BuildMatrixOperator(e.Args[0], src)
	for _, arg := range e.Args[1:] {
		op2 := BuildMatrixOperator(arg, src)
		op.A = addMatrix(op.A, op2.A)
		op.B = addMatrix(op.B, op2.B)
		op.C = addMatrix(op.C, op2.C)
	}
	return op
}

func matrixMultiply(e *expression.Expression, src data.Source) MatrixOperator {
	check.EqInt(2, len(e.Args), "MULTIPLY argument count")
	lhs := BuildMatrixOperator(e.Args[0], src)
	rhs := BuildMatrixOperator(e.Args[1], src)
	check.True(lhs.IsConstant(), "MULTIPLY with non-constant left operand")
	rhs.A = mulMatrix(lhs.C, rhs.A)
	rhs.C = mulMatrix(lhs.C, rhs.C)
	return rhs
}

func matrixNegate(e *expression.Expression, src data.Source) MatrixOperator {
	op := BuildMatrixOperator(e.OnlyArg(), src)
	op.A = scaleMatrix(-1, op.A)
	op.C = scaleMatrix(-1, op.C)
	return op
}

func matrixVariable(e *expression.Expression, _ data.Source) MatrixOperator {
	s := e.Dims()
	return MatrixOperator{A: identity(s.M), B: identity(s.N)}
}

func matrixConstant(e *expression.Expression, src data.Source) MatrixOperator {
	s := e.Dims()
	c := e.Constant
	if c.DataLocation == "" {
		d := mat.NewDense(s.M, s.N, nil)
		for i := 0; i < s.M; i++ {
			for j := 0; j < s.N; j++ {
				d.Set(i, j, c.Scalar)
			}
		}
		return MatrixOperator{C: d}
	}
	return MatrixOperator{C: readData(src, c.DataLocation).AsDense()}
}

func identity(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

// addMatrix returns a+b, broadcasting a 1x1 operand.
func addMatrix(a, b *mat.Dense) *mat.Dense {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	if isScalar(a) && !isScalar(b) {
		a, b = b, a
	}
	var c mat.Dense
	if isScalar(b) && !isScalar(a) {
		v := b.At(0, 0)
		c.Apply(func(_, _ int, x float64) float64 { return x + v }, a)
		return &c
	}
	c.Add(a, b)
	return &c
}

// mulMatrix returns a*b, treating a 1x1 operand as a scalar.
func mulMatrix(a, b *mat.Dense) *mat.Dense {
	if a == nil || b == nil {
		return nil
	}
	if isScalar(a) {
		return scaleMatrix(a.At(0, 0), b)
	}
	if isScalar(b) {
		return scaleMatrix(b.At(0, 0), a)
	}
	var c mat.Dense
	c.Mul(a, b)
	return &c
}

func scaleMatrix(alpha float64, a *mat.Dense) *mat.Dense {
	if a == nil {
		return nil
	}
	var c mat.Dense
	c.Scale(alpha, a)
	return &c
}

func isScalar(a *mat.Dense) bool {
	m, n := a.Dims()
	return m == 1 && n == 1
}
