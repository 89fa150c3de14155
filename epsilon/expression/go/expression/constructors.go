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

package expression

import (
	log "github.com/golang/glog"
)

// Add returns the sum of args.
func Add(args ...*Expression) *Expression {
	if len(args) == 0 {
		log.Fatalf("Add: no arguments")
	}
	e := &Expression{Type: TypeAdd, Args: args}
	e.Dims()
	return e
}

// Variable returns an m x n variable.
func Variable(m, n int, id string) *Expression {
	return &Expression{Type: TypeVariable, Size: Size{M: m, N: n}, VariableID: id}
}

// ScalarConstant returns a 1 x 1 constant.
func ScalarConstant(alpha float64) *Expression {
	return ConstantOf(1, 1, alpha)
}

// ConstantOf returns an m x n constant with every entry equal to alpha.
func ConstantOf(m, n int, alpha float64) *Expression {
	return &Expression{
		Type:     TypeConstant,
		Size:     Size{M: m, N: n},
		Constant: &Constant{Type: ConstantScalar, Scalar: alpha},
	}
}

// DataConstant returns an m x n constant resolved from location through a
// data source.
func DataConstant(m, n int, t ConstantType, location string) *Expression {
	return &Expression{
		Type:     TypeConstant,
		Size:     Size{M: m, N: n},
		Constant: &Constant{Type: t, DataLocation: location},
	}
}

// LinearMap returns a*x. x must be a vector of length a.N.
func LinearMap(a *LinearMapSpec, x *Expression) *Expression {
	s := x.Dims()
	if s.N != 1 || s.M != a.N {
		log.Fatalf("LinearMap: %dx%d map applied to %v", a.M, a.N, s)
	}
	return &Expression{Type: TypeLinearMap, LinearMap: a, Args: []*Expression{x}}
}

// Multiply returns a*b. The left operand is expected to be constant.
func Multiply(a, b *Expression) *Expression {
	e := &Expression{Type: TypeMultiply, Args: []*Expression{a, b}}
	e.Dims()
	return e
}

// Negate returns -x. Double negation is simplified away.
func Negate(x *Expression) *Expression {
	if x.Type == TypeNegate {
		return x.Args[0]
	}
	return &Expression{Type: TypeNegate, Args: []*Expression{x}}
}

// Reshape returns x viewed as an m x n value.
func Reshape(x *Expression, m, n int) *Expression {
	if x.Dimension() != m*n {
		log.Fatalf("Reshape: cannot reshape %v to %dx%d", x.Dims(), m, n)
	}
	if x.Type == TypeReshape && x.Args[0].Dims() == (Size{M: m, N: n}) {
		return x.Args[0]
	}
	return &Expression{Type: TypeReshape, Size: Size{M: m, N: n}, Args: []*Expression{x}}
}

// Indicator returns the indicator of args lying in the cone.
func Indicator(cone ConeType, args ...*Expression) *Expression {
	return &Expression{Type: TypeIndicator, Cone: cone, Args: args}
}

// EqConstraint returns the constraint a == b.
func EqConstraint(a, b *Expression) *Expression {
	return Indicator(ConeZero, Add(a, Negate(b)))
}

// ProxFunc returns f applied to args.
func ProxFunc(t ProxFunctionType, args ...*Expression) *Expression {
	return &Expression{
		Type:         TypeProxFunction,
		ProxFunction: &ProxFunction{Type: t},
		Args:         args,
	}
}

// ProxEpigraph returns the indicator of f(x) <= t, for a scalar variable t.
func ProxEpigraph(t ProxFunctionType, x, epi *Expression) *Expression {
	return &Expression{
		Type:         TypeProxFunction,
		ProxFunction: &ProxFunction{Type: t, Epigraph: true},
		Args:         []*Expression{x, epi},
	}
}

// DenseMap returns the spec of an m x n dense map read from location.
func DenseMap(m, n int, location string) *LinearMapSpec {
	return &LinearMapSpec{
		Type:     LinearMapDense,
		M:        m,
		N:        n,
		Constant: &Constant{Type: ConstantDenseMatrix, DataLocation: location},
	}
}

// SparseMap returns the spec of an m x n sparse map read from location.
func SparseMap(m, n int, location string) *LinearMapSpec {
	return &LinearMapSpec{
		Type:     LinearMapSparse,
		M:        m,
		N:        n,
		Constant: &Constant{Type: ConstantSparseMatrix, DataLocation: location},
	}
}

// DiagonalMap returns the spec of an n x n diagonal map whose diagonal is
// read from location.
func DiagonalMap(n int, location string) *LinearMapSpec {
	return &LinearMapSpec{
		Type:     LinearMapDiagonal,
		M:        n,
		N:        n,
		Constant: &Constant{Type: ConstantDenseMatrix, DataLocation: location},
	}
}

// ScalarMap returns the spec of alpha times the n x n identity.
func ScalarMap(n int, alpha float64) *LinearMapSpec {
	return &LinearMapSpec{Type: LinearMapScalar, M: n, N: n, Scalar: alpha}
}

// KroneckerMap returns the spec of a ⊗ b.
func KroneckerMap(a, b *LinearMapSpec) *LinearMapSpec {
	return &LinearMapSpec{
		Type: LinearMapKronecker,
		M:    a.M * b.M,
		N:    a.N * b.N,
		Args: []*LinearMapSpec{a, b},
	}
}

// TransposeMap returns the spec of aᵀ.
func TransposeMap(a *LinearMapSpec) *LinearMapSpec {
	return &LinearMapSpec{Type: LinearMapTranspose, M: a.N, N: a.M, Args: []*LinearMapSpec{a}}
}
