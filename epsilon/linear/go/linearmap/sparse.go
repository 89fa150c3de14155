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


package linearmap

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Triplet is a single (row, column, value) entry of a sparse matrix.
type Triplet struct {
	I, J int
	V    float64
}

// NewCSR builds a compressed sparse row matrix from triplets. Duplicate
// entries are summed, explicit zeros are dropped and each row is sorted by
// column, so two matrices with the same coefficients have identical storage.
func NewCSR(m, n int, entries []Triplet) *sparse.CSR {
	for _, e := range entries {
		if e.I < 0 || e.I >= m || e.J < 0 || e.J >= n {
			check.Failf("triplet (%d, %d) outside %d x %d", e.I, e.J, m, n)
		}
	}
	t := slices.Clone(entries)
	slices.SortFunc(t, func(a, b Triplet) int {
		if c := cmp.Compare(a.I, b.I); c != 0 {
			return c
		}
		return cmp.Compare(a.J, b.J)
	})

	indptr := make([]int, m+1)
	var ind []int
	var data []float64
	for k := 0; k < len(t); {
		e := t[k]
		v := 0.0
		for ; k < len(t) && t[k].I == e.I && t[k].J == e.J; k++ {
			v += t[k].V
		}
		if v == 0 {
			continue
		}
		ind = append(ind, e.J)
		data = append(data, v)
		indptr[e.I+1]++
	}
	for r := 0; r < m; r++ {
		indptr[r+1] += indptr[r]
	}
	return sparse.NewCSR(m, n, indptr, ind, data)
}

// Entries returns the stored entries of c in row-major order.
func Entries(c mat.NonZeroDoer) []Triplet {
	var t []Triplet
	c.DoNonZero(func(i, j int, v float64) {
		t = append(t, Triplet{I: i, J: j, V: v})
	})
	return t
}

// canonical rebuilds the result of a sparse package operation in NewCSR
// form.
func canonical(a mat.Matrix) *sparse.CSR {
	m, n := a.Dims()
	if nz, ok := a.(mat.NonZeroDoer); ok {
		return NewCSR(m, n, Entries(nz))
	}
	var t []Triplet
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			if v := a.At(i, j); v != 0 {
				t = append(t, Triplet{I: i, J: j, V: v})
			}
		}
	}
	return NewCSR(m, n, t)
}

func csrFromDiagonal(d []float64) *sparse.CSR {
	t := make([]Triplet, len(d))
	for i, v := range d {
		t[i] = Triplet{I: i, J: i, V: v}
	}
	return NewCSR(len(d), len(d), t)
}

func csrAdd(a, b *sparse.CSR) *sparse.CSR {
	var c sparse.CSR
	c.Add(a, b)
	return canonical(&c)
}

func csrMul(a, b mat.Matrix) *sparse.CSR {
	var c sparse.CSR
	c.Mul(a, b)
	return canonical(&c)
}

func csrEqual(a, b *sparse.CSR) bool {
	ar, br := a.RawMatrix(), b.RawMatrix()
	return ar.I == br.I && ar.J == br.J &&
		slices.Equal(ar.Indptr, br.Indptr) &&
		slices.Equal(ar.Ind, br.Ind) &&
		slices.Equal(ar.Data, br.Data)
}

type sparseImpl struct {
	csr *sparse.CSR
}

// NewSparse returns an m x n sparse map with the given entries.
func NewSparse(m, n int, entries []Triplet) LinearMap {
	return wrap(&sparseImpl{csr: NewCSR(m, n, entries)})
}

// FromCSR returns a sparse map over the coefficients of c. The storage is
// copied into canonical form.
func FromCSR(c *sparse.CSR) LinearMap {
	return wrap(&sparseImpl{csr: canonical(c)})
}

func (i *sparseImpl) kind() Kind { return Sparse }

func (i *sparseImpl) dims() (int, int) { return i.csr.Dims() }

func (i *sparseImpl) apply(x []float64) []float64 {
	m, _ := i.csr.Dims()
	y := make([]float64, m)
	i.csr.MulVecTo(y, false, x)
	return y
}

func (i *sparseImpl) asDense() *mat.Dense { return i.csr.ToDense() }

func (i *sparseImpl) transpose() impl {
	return &sparseImpl{csr: canonical(i.csr.T())}
}

// inverse falls back to a dense factorization; the inverse of a sparse
// matrix is generally dense.
func (i *sparseImpl) inverse() impl {
	return (&denseImpl{d: i.csr.ToDense()}).inverse()
}

func (i *sparseImpl) scale(alpha float64) impl {
	t := Entries(i.csr)
	for k := range t {
		t[k].V *= alpha
	}
	m, n := i.csr.Dims()
	return &sparseImpl{csr: NewCSR(m, n, t)}
}

func (i *sparseImpl) equal(other impl) bool {
	return csrEqual(i.csr, other.(*sparseImpl).csr)
}

func (i *sparseImpl) String() string {
	var b strings.Builder
	m, n := i.csr.Dims()
	fmt.Fprintf(&b, "sparse %d x %d, nnz=%d", m, n, i.csr.NNZ())
	i.csr.DoNonZero(func(r, c int, v float64) {
		fmt.Fprintf(&b, "\n(%d, %d) %g", r, c, v)
	})
	return b.String()
}
