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

// Package expression defines the typed expression tree consumed by the
// solver and a compact wire encoding for problems.
//
// Expressions are built bottom-up with the constructors in this package and
// are treated as immutable once built. Only leaves (variables, constants) and
// RESHAPE nodes carry a size; the size of every other node is derived from
// its children.
package expression

import (
	"fmt"
	"strings"

	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
)

// Type is the tag of an expression node.
type Type int

// Expression types.
const (
	TypeUnknown Type = iota
	TypeAdd
	TypeConstant
	TypeIndicator
	TypeLinearMap
	TypeMultiply
	TypeNegate
	TypeProxFunction
	TypeReshape
	TypeVariable
	// Types below are produced by the compiler but have no handler in the
	// solver core.
	TypeSum
	TypeTranspose
	TypeIndex
	TypeHStack
	TypeVStack
	numTypes
)

var typeNames = [...]string{
	TypeUnknown:      "UNKNOWN",
	TypeAdd:          "ADD",
	TypeConstant:     "CONSTANT",
	TypeIndicator:    "INDICATOR",
	TypeLinearMap:    "LINEAR_MAP",
	TypeMultiply:     "MULTIPLY",
	TypeNegate:       "NEGATE",
	TypeProxFunction: "PROX_FUNCTION",
	TypeReshape:      "RESHAPE",
	TypeVariable:     "VARIABLE",
	TypeSum:          "SUM",
	TypeTranspose:    "TRANSPOSE",
	TypeIndex:        "INDEX",
	TypeHStack:       "HSTACK",
	TypeVStack:       "VSTACK",
}

func (t Type) String() string {
	if t < 0 || t >= numTypes {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Size is the shape of an expression value. Vectors are m x 1.
type Size struct {
	M, N int
}

// Dim returns the number of entries.
func (s Size) Dim() int {
	return s.M * s.N
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.M, s.N)
}

// ConeType qualifies an INDICATOR expression.
type ConeType int

// Cone types.
const (
	ConeUnknown ConeType = iota
	ConeZero
	ConeNonNegative
	ConeSecondOrder
	ConeSemidefinite
)

func (c ConeType) String() string {
	switch c {
	case ConeZero:
		return "ZERO"
	case ConeNonNegative:
		return "NON_NEGATIVE"
	case ConeSecondOrder:
		return "SECOND_ORDER"
	case ConeSemidefinite:
		return "SEMIDEFINITE"
	}
	return fmt.Sprintf("ConeType(%d)", int(c))
}

// ConstantType selects how a Constant's value is obtained.
type ConstantType int

// Constant types.
const (
	ConstantScalar ConstantType = iota
	ConstantDenseMatrix
	ConstantSparseMatrix
)

func (c ConstantType) String() string {
	switch c {
	case ConstantScalar:
		return "SCALAR"
	case ConstantDenseMatrix:
		return "DENSE_MATRIX"
	case ConstantSparseMatrix:
		return "SPARSE_MATRIX"
	}
	return fmt.Sprintf("ConstantType(%d)", int(c))
}

// Constant is the payload of a CONSTANT node or of a data-backed linear map.
// An empty DataLocation means the inline Scalar; otherwise the value is
// resolved through a data source.
type Constant struct {
	Type         ConstantType
	Scalar       float64
	DataLocation string
}

// LinearMapType selects the representation of a literal linear map.
type LinearMapType int

// Linear map types.
const (
	LinearMapUnknown LinearMapType = iota
	LinearMapDense
	LinearMapSparse
	LinearMapDiagonal
	LinearMapScalar
	LinearMapKronecker
	LinearMapTranspose
)

func (t LinearMapType) String() string {
	switch t {
	case LinearMapDense:
		return "DENSE_MATRIX"
	case LinearMapSparse:
		return "SPARSE_MATRIX"
	case LinearMapDiagonal:
		return "DIAGONAL_MATRIX"
	case LinearMapScalar:
		return "SCALAR"
	case LinearMapKronecker:
		return "KRONECKER_PRODUCT"
	case LinearMapTranspose:
		return "TRANSPOSE"
	}
	return fmt.Sprintf("LinearMapType(%d)", int(t))
}

// LinearMapSpec describes the literal m x n map of a LINEAR_MAP node.
//
// DENSE_MATRIX and SPARSE_MATRIX read Constant. DIAGONAL_MATRIX reads its
// diagonal from Constant, or broadcasts Constant.Scalar if it has no data
// location. SCALAR is Scalar times the identity. KRONECKER_PRODUCT takes two
// Args and TRANSPOSE one.
type LinearMapSpec struct {
	Type     LinearMapType
	M, N     int
	Scalar   float64
	Constant *Constant
	Args     []*LinearMapSpec
}

// ProxFunctionType names a function family with a registered proximal
// operator.
type ProxFunctionType int

// Prox function types.
const (
	ProxUnknown ProxFunctionType = iota
	// ProxConstant is f = 0.
	ProxConstant
	// ProxAffine is a linear functional c'x, produced for affine objective
	// terms.
	ProxAffine
	// ProxInvPos is sum_i 1/x_i on x > 0.
	ProxInvPos
	// ProxNegLog is -sum_i log(x_i) on x > 0.
	ProxNegLog
	numProxTypes
)

var proxNames = [...]string{
	ProxUnknown:  "UNKNOWN",
	ProxConstant: "CONSTANT",
	ProxAffine:   "AFFINE",
	ProxInvPos:   "INV_POS",
	ProxNegLog:   "NEG_LOG",
}

func (t ProxFunctionType) String() string {
	if t < 0 || t >= numProxTypes {
		return fmt.Sprintf("ProxFunctionType(%d)", int(t))
	}
	return proxNames[t]
}

// ProxFunction is the payload of a PROX_FUNCTION node. In epigraph form the
// last argument is the scalar epigraph variable t of f(x) <= t.
type ProxFunction struct {
	Type     ProxFunctionType
	Epigraph bool
}

// Expression is a node of the expression tree.
type Expression struct {
	Type Type
	Args []*Expression

	// Size is set for VARIABLE, CONSTANT and RESHAPE nodes only.
	Size Size

	VariableID   string
	Constant     *Constant
	LinearMap    *LinearMapSpec
	Cone         ConeType
	ProxFunction *ProxFunction
}

// Problem is an objective, which must be an ADD of separable terms, subject
// to equality constraints.
type Problem struct {
	Objective   *Expression
	Constraints []*Expression
}

// OnlyArg returns the single argument of e.
func (e *Expression) OnlyArg() *Expression {
	check.EqInt(1, len(e.Args), fmt.Sprintf("%v argument count", e.Type))
	return e.Args[0]
}

// Dims returns the shape of e, derived from its children where it is not
// stored on the node.
func (e *Expression) Dims() Size {
	switch e.Type {
	case TypeVariable, TypeConstant, TypeReshape:
		return e.Size
	case TypeNegate, TypeTranspose:
		s := e.OnlyArg().Dims()
		if e.Type == TypeTranspose {
			return Size{M: s.N, N: s.M}
		}
		return s
	case TypeAdd:
		check.True(len(e.Args) > 0, "ADD without arguments")
		s := e.Args[0].Dims()
		for _, arg := range e.Args[1:] {
			a := arg.Dims()
			switch {
			case s.Dim() == 1:
				s = a
			case a.Dim() == 1:
			case a != s:
				check.Failf("adding %v and %v", s, a)
			}
		}
		return s
	case TypeMultiply:
		check.EqInt(2, len(e.Args), "MULTIPLY argument count")
		a, b := e.Args[0].Dims(), e.Args[1].Dims()
		switch {
		case a.Dim() == 1:
			return b
		case b.Dim() == 1:
			return a
		}
		check.EqInt(a.N, b.M, "MULTIPLY inner dimension")
		return Size{M: a.M, N: b.N}
	case TypeLinearMap:
		return Size{M: e.LinearMap.M, N: 1}
	case TypeHStack, TypeVStack:
		s := e.Args[0].Dims()
		for _, arg := range e.Args[1:] {
			if e.Type == TypeHStack {
				s.N += arg.Dims().N
			} else {
				s.M += arg.Dims().M
			}
		}
		return s
	case TypeSum, TypeIndicator, TypeProxFunction:
		return Size{M: 1, N: 1}
	}
	check.Failf("no dimension rule for %v", e.Type)
	return Size{}
}

// Dimension returns the number of entries of e.
func (e *Expression) Dimension() int {
	return e.Dims().Dim()
}

// GetVariables returns the VARIABLE nodes under e, one per variable id, in
// order of first occurrence.
func GetVariables(e *Expression) []*Expression {
	var vars []*Expression
	seen := map[string]bool{}
	var walk func(*Expression)
	walk = func(e *Expression) {
		if e.Type == TypeVariable {
			if !seen[e.VariableID] {
				seen[e.VariableID] = true
				vars = append(vars, e)
			}
			return
		}
		for _, arg := range e.Args {
			walk(arg)
		}
	}
	walk(e)
	return vars
}

// String returns an indented debug representation of e.
func (e *Expression) String() string {
	var b strings.Builder
	e.format(&b, 0)
	return b.String()
}

func (e *Expression) format(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(e.Type.String())
	switch e.Type {
	case TypeVariable:
		fmt.Fprintf(b, " %s %v", e.VariableID, e.Size)
	case TypeConstant:
		if e.Constant.DataLocation == "" {
			fmt.Fprintf(b, " %g %v", e.Constant.Scalar, e.Size)
		} else {
			fmt.Fprintf(b, " %s %v", e.Constant.DataLocation, e.Size)
		}
	case TypeReshape:
		fmt.Fprintf(b, " %v", e.Size)
	case TypeLinearMap:
		fmt.Fprintf(b, " %v %dx%d", e.LinearMap.Type, e.LinearMap.M, e.LinearMap.N)
	case TypeIndicator:
		fmt.Fprintf(b, " %v", e.Cone)
	case TypeProxFunction:
		fmt.Fprintf(b, " %v", e.ProxFunction.Type)
		if e.ProxFunction.Epigraph {
			b.WriteString(" epigraph")
		}
	}
	b.WriteByte('\n')
	for _, arg := range e.Args {
		arg.format(b, depth+1)
	}
}

// String returns a debug representation of p.
func (p *Problem) String() string {
	var b strings.Builder
	b.WriteString("objective:\n")
	if p.Objective != nil {
		p.Objective.format(&b, 1)
	}
	for i, c := range p.Constraints {
		fmt.Fprintf(&b, "constraint %d:\n", i)
		c.format(&b, 1)
	}
	return b.String()
}
