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

// Package linearmap provides LinearMap, an immutable linear operator that
// wraps one of a fixed set of matrix representations.
//
// A LinearMap is passed by value. Copies share the underlying representation,
// which is never modified after construction, so the same operator can be
// stored in several cells of a block matrix. Composition with Add, Mul and
// Scale dispatches on the pair of representations and keeps structure where
// it can: the product of two diagonal maps is diagonal, a scalar map scales
// its operand, and a Kronecker product is only materialized when no
// structured rule applies.
//
// Shape mismatches, applying a map to a vector of the wrong length and
// inverting a non-square or singular map are invariant violations reported
// through package check.
package linearmap

import (
	"fmt"

	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Kind identifies the representation behind a LinearMap.
type Kind int

const (
	// Dense is a row-major dense matrix.
	Dense Kind = iota
	// Sparse is a compressed sparse row matrix.
	Sparse
	// Diagonal is a square diagonal matrix.
	Diagonal
	// Scalar is a scalar multiple of the identity.
	Scalar
	// Kronecker is the Kronecker product of two linear maps.
	Kronecker
	// Basic only supports Apply (and Transpose, if an adjoint is given).
	Basic
	numKinds
)

var kindNames = [...]string{
	Dense:     "DENSE_MATRIX",
	Sparse:    "SPARSE_MATRIX",
	Diagonal:  "DIAGONAL_MATRIX",
	Scalar:    "SCALAR_MATRIX",
	Kronecker: "KRONECKER_PRODUCT",
	Basic:     "BASIC",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// impl is implemented by the representations in this package only.
type impl interface {
	kind() Kind
	dims() (m, n int)
	apply(x []float64) []float64
	asDense() *mat.Dense
	transpose() impl
	inverse() impl
	scale(alpha float64) impl
	equal(other impl) bool
	String() string
}

// LinearMap is an immutable m x n linear operator.
type LinearMap struct {
	impl impl
}

func wrap(i impl) LinearMap {
	return LinearMap{impl: i}
}

func (l LinearMap) get() impl {
	if l.impl == nil {
		check.Failf("use of uninitialized LinearMap")
	}
	return l.impl
}

// IsNil reports whether l is the zero LinearMap.
func (l LinearMap) IsNil() bool {
	return l.impl == nil
}

// Kind returns the representation of l.
func (l LinearMap) Kind() Kind {
	return l.get().kind()
}

// M returns the number of rows of l.
func (l LinearMap) M() int {
	m, _ := l.get().dims()
	return m
}

// N returns the number of columns of l.
func (l LinearMap) N() int {
	_, n := l.get().dims()
	return n
}

// Dims returns the shape of l.
func (l LinearMap) Dims() (m, n int) {
	return l.get().dims()
}

// Apply returns l*x. The length of x must equal N().
func (l LinearMap) Apply(x []float64) []float64 {
	i := l.get()
	m, n := i.dims()
	check.EqInt(n, len(x), "LinearMap.Apply input length")
	y := i.apply(x)
	check.EqInt(m, len(y), "LinearMap.Apply output length")
	return y
}

// Transpose returns the transpose of l.
func (l LinearMap) Transpose() LinearMap {
	return wrap(l.get().transpose())
}

// Inverse returns the inverse of l, which must be square and invertible.
func (l LinearMap) Inverse() LinearMap {
	i := l.get()
	m, n := i.dims()
	if m != n {
		check.Failf("inverse of non-square %v (%d x %d)", i.kind(), m, n)
	}
	return wrap(i.inverse())
}

// AsDense materializes l as a new dense matrix owned by the caller.
func (l LinearMap) AsDense() *mat.Dense {
	return l.get().asDense()
}

// AsSparse materializes l in compressed sparse row form. The result shares
// storage with l and must not be modified.
func (l LinearMap) AsSparse() *sparse.CSR {
	switch i := l.get().(type) {
	case *sparseImpl:
		return i.csr
	case *diagonalImpl:
		return csrFromDiagonal(i.d)
	case *scalarImpl:
		return csrFromDiagonal(constantSlice(i.n, i.alpha))
	}
	return canonical(l.get().asDense())
}

// Equal compares the representation-specific state of l and other. Maps of
// different representations are never equal, even if they have the same
// coefficients.
func (l LinearMap) Equal(other LinearMap) bool {
	if l.impl == nil || other.impl == nil {
		return l.impl == nil && other.impl == nil
	}
	if l.impl.kind() != other.impl.kind() {
		return false
	}
	lm, ln := l.impl.dims()
	om, on := other.impl.dims()
	if lm != om || ln != on {
		return false
	}
	return l.impl.equal(other.impl)
}

// String returns a debug representation of l.
func (l LinearMap) String() string {
	if l.impl == nil {
		return "LinearMap(nil)"
	}
	return l.impl.String()
}

// AsScalar reports whether l is a scalar multiple alpha*I of the identity,
// whatever its representation.
func (l LinearMap) AsScalar() (alpha float64, ok bool) {
	i := l.get()
	m, n := i.dims()
	if m != n {
		return 0, false
	}
	switch i := i.(type) {
	case *scalarImpl:
		return i.alpha, true
	case *diagonalImpl:
		return allEqual(i.d)
	case *kroneckerImpl:
		a, aok := i.a.AsScalar()
		b, bok := i.b.AsScalar()
		return a * b, aok && bok
	case *basicImpl:
		return 0, false
	}
	d := i.asDense()
	alpha = d.At(0, 0)
	for r := 0; r < m; r++ {
		for c := 0; c < n; c++ {
			want := 0.0
			if r == c {
				want = alpha
			}
			if d.At(r, c) != want {
				return 0, false
			}
		}
	}
	return alpha, true
}

func allEqual(d []float64) (float64, bool) {
	if len(d) == 0 {
		return 0, false
	}
	for _, v := range d[1:] {
		if v != d[0] {
			return 0, false
		}
	}
	return d[0], true
}

func constantSlice(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

type binaryOp func(a, b impl) impl

// addOps and mulOps hold the structured composition rules. A nil entry falls
// back to dense materialization. The tables are filled in init because some
// rules compose recursively through Add and Mul.
var addOps, mulOps [numKinds][numKinds]binaryOp

func init() {
	addOps[Scalar][Scalar] = addScalarScalar
	addOps[Scalar][Diagonal] = addDiagonalLike
	addOps[Diagonal][Scalar] = addDiagonalLike
	addOps[Diagonal][Diagonal] = addDiagonalLike
	for _, k := range []Kind{Sparse, Diagonal, Scalar} {
		addOps[Sparse][k] = addSparseLike
		addOps[k][Sparse] = addSparseLike
	}
	for k := Kind(0); k < numKinds; k++ {
		addOps[Basic][k] = addBasic
		addOps[k][Basic] = addBasic
	}

	for k := Kind(0); k < numKinds; k++ {
		mulOps[Scalar][k] = mulScalarLeft
		mulOps[k][Scalar] = mulScalarRight
	}
	mulOps[Diagonal][Diagonal] = mulDiagonalDiagonal
	mulOps[Diagonal][Sparse] = mulSparseLike
	mulOps[Sparse][Diagonal] = mulSparseLike
	mulOps[Sparse][Sparse] = mulSparseLike
	mulOps[Kronecker][Kronecker] = mulKroneckerKronecker
	for k := Kind(0); k < numKinds; k++ {
		if k == Scalar {
			continue
		}
		mulOps[Basic][k] = mulBasic
		mulOps[k][Basic] = mulBasic
	}
}

// Add returns a+b. Both maps must have the same shape.
func Add(a, b LinearMap) LinearMap {
	ai, bi := a.get(), b.get()
	am, an := ai.dims()
	bm, bn := bi.dims()
	if am != bm || an != bn {
		check.Failf("adding %d x %d and %d x %d", am, an, bm, bn)
	}
	if op := addOps[ai.kind()][bi.kind()]; op != nil {
		return wrap(op(ai, bi))
	}
	var c mat.Dense
	c.Add(ai.asDense(), bi.asDense())
	return wrap(&denseImpl{d: &c})
}

// Mul returns the product a*b. The number of columns of a must equal the
// number of rows of b.
func Mul(a, b LinearMap) LinearMap {
	ai, bi := a.get(), b.get()
	am, an := ai.dims()
	bm, bn := bi.dims()
	if an != bm {
		check.Failf("multiplying %d x %d by %d x %d", am, an, bm, bn)
	}
	if op := mulOps[ai.kind()][bi.kind()]; op != nil {
		if r := op(ai, bi); r != nil {
			return wrap(r)
		}
	}
	var c mat.Dense
	c.Mul(ai.asDense(), bi.asDense())
	return wrap(&denseImpl{d: &c})
}

// Scale returns alpha*a in the representation of a.
func Scale(alpha float64, a LinearMap) LinearMap {
	return wrap(a.get().scale(alpha))
}

// Sub returns a-b.
func Sub(a, b LinearMap) LinearMap {
	return Add(a, Scale(-1, b))
}

func addScalarScalar(a, b impl) impl {
	as, bs := a.(*scalarImpl), b.(*scalarImpl)
	return &scalarImpl{n: as.n, alpha: as.alpha + bs.alpha}
}

func addDiagonalLike(a, b impl) impl {
	ad, bd := diagonalOf(a), diagonalOf(b)
	d := make([]float64, len(ad))
	for i := range d {
		d[i] = ad[i] + bd[i]
	}
	return &diagonalImpl{d: d}
}

func addSparseLike(a, b impl) impl {
	return &sparseImpl{csr: csrAdd(sparseOf(a), sparseOf(b))}
}

func mulScalarLeft(a, b impl) impl {
	return b.scale(a.(*scalarImpl).alpha)
}

func mulScalarRight(a, b impl) impl {
	return a.scale(b.(*scalarImpl).alpha)
}

func mulDiagonalDiagonal(a, b impl) impl {
	ad, bd := a.(*diagonalImpl).d, b.(*diagonalImpl).d
	d := make([]float64, len(ad))
	for i := range d {
		d[i] = ad[i] * bd[i]
	}
	return &diagonalImpl{d: d}
}

func mulSparseLike(a, b impl) impl {
	return &sparseImpl{csr: csrMul(sparseOperand(a), sparseOperand(b))}
}

// diagonalOf returns the diagonal of a Diagonal or Scalar representation.
func diagonalOf(i impl) []float64 {
	switch i := i.(type) {
	case *diagonalImpl:
		return i.d
	case *scalarImpl:
		return constantSlice(i.n, i.alpha)
	}
	check.Failf("%v has no diagonal form", i.kind())
	return nil
}

func sparseOf(i impl) *sparse.CSR {
	return wrap(i).AsSparse()
}

// sparseOperand returns i as an operand of the sparse package, keeping a
// diagonal in DIA form so products only scale rows or columns.
func sparseOperand(i impl) mat.Matrix {
	if d, ok := i.(*diagonalImpl); ok {
		return sparse.NewDIA(len(d.d), len(d.d), d.d)
	}
	return sparseOf(i)
}
