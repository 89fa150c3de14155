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

package block

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/epsilon-opt/epsilon/epsilon/linear/go/linearmap"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
)

// Matrix maps (row key, column key) to a linear map. The zero value is not
// usable; use NewMatrix.
type Matrix struct {
	data map[string]map[string]linearmap.LinearMap
}

// NewMatrix returns an empty block matrix.
func NewMatrix() Matrix {
	return Matrix{data: map[string]map[string]linearmap.LinearMap{}}
}

// InsertOrAdd adds l to the cell (row, col), creating it if needed.
func (a Matrix) InsertOrAdd(row, col string, l linearmap.LinearMap) {
	r, ok := a.data[row]
	if !ok {
		r = map[string]linearmap.LinearMap{}
		a.data[row] = r
	}
	if cur, ok := r[col]; ok {
		r[col] = linearmap.Add(cur, l)
		return
	}
	r[col] = l
}

// Get returns the cell (row, col). The cell must exist.
func (a Matrix) Get(row, col string) linearmap.LinearMap {
	l, ok := a.data[row][col]
	if !ok {
		check.Failf("missing block (%q, %q)", row, col)
	}
	return l
}

// Has reports whether the cell (row, col) exists.
func (a Matrix) Has(row, col string) bool {
	_, ok := a.data[row][col]
	return ok
}

// RowKeys returns the row keys in sorted order.
func (a Matrix) RowKeys() []string {
	return slices.Sorted(maps.Keys(a.data))
}

// ColKeys returns the column keys of all cells in sorted order.
func (a Matrix) ColKeys() []string {
	cols := map[string]bool{}
	for _, r := range a.data {
		for c := range r {
			cols[c] = true
		}
	}
	return slices.Sorted(maps.Keys(cols))
}

// Row returns the submatrix holding only the given row.
func (a Matrix) Row(row string) Matrix {
	out := NewMatrix()
	for c, l := range a.data[row] {
		out.InsertOrAdd(row, c, l)
	}
	return out
}

// Col returns the submatrix holding only the given column.
func (a Matrix) Col(col string) Matrix {
	out := NewMatrix()
	for r, cells := range a.data {
		if l, ok := cells[col]; ok {
			out.InsertOrAdd(r, col, l)
		}
	}
	return out
}

// Cols returns the submatrix of the given columns.
func (a Matrix) Cols(cols []string) Matrix {
	out := NewMatrix()
	for _, c := range cols {
		for r, cells := range a.data {
			if l, ok := cells[c]; ok {
				out.InsertOrAdd(r, c, l)
			}
		}
	}
	return out
}

// M returns the total number of rows, taking each row block's height from
// any of its cells.
func (a Matrix) M() int {
	m := 0
	for _, r := range a.RowKeys() {
		for _, l := range a.data[r] {
			m += l.M()
			break
		}
	}
	return m
}

// N returns the total number of columns.
func (a Matrix) N() int {
	n := 0
	for _, c := range a.ColKeys() {
		for _, r := range a.RowKeys() {
			if l, ok := a.data[r][c]; ok {
				n += l.N()
				break
			}
		}
	}
	return n
}

// Transpose returns a new matrix with every cell transposed and the row and
// column keys swapped.
func (a Matrix) Transpose() Matrix {
	out := NewMatrix()
	for r, cells := range a.data {
		for c, l := range cells {
			out.InsertOrAdd(c, r, l.Transpose())
		}
	}
	return out
}

// Apply returns a*x. For every row key the result is the sum over the row's
// cells of cell*x[col]; columns missing from x contribute nothing. A row
// with no contributing column is absent from the result.
func (a Matrix) Apply(x Vector) Vector {
	y := NewVector()
	for _, r := range a.RowKeys() {
		cells := a.data[r]
		for _, c := range slices.Sorted(maps.Keys(cells)) {
			if !x.Has(c) {
				continue
			}
			y.InsertOrAdd(r, cells[c].Apply(x.Get(c)))
		}
	}
	return y
}

// Mul returns the block product a*b.
func Mul(a, b Matrix) Matrix {
	out := NewMatrix()
	cols := b.ColKeys()
	for _, r := range a.RowKeys() {
		for _, c := range cols {
			for _, k := range slices.Sorted(maps.Keys(a.data[r])) {
				if bkc, ok := b.data[k][c]; ok {
					out.InsertOrAdd(r, c, linearmap.Mul(a.data[r][k], bkc))
				}
			}
		}
	}
	return out
}

// String returns the cells in row then column order.
func (a Matrix) String() string {
	var b strings.Builder
	for _, r := range a.RowKeys() {
		cells := a.data[r]
		for _, c := range slices.Sorted(maps.Keys(cells)) {
			fmt.Fprintf(&b, "(%s, %s) %v\n", r, c, cells[c])
		}
	}
	return b.String()
}
