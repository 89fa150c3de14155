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
	"fmt"

	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ApplyFunc computes a matrix-vector product without access to the matrix.
type ApplyFunc func(x []float64) []float64

// basicImpl is an opaque operator; applyT is nil if no adjoint is known.
type basicImpl struct {
	m, n   int
	fn     ApplyFunc
	applyT ApplyFunc
}

// NewBasic returns an m x n map that only supports Apply. If adjoint is
// non-nil the map can also be transposed.
func NewBasic(m, n int, apply, adjoint ApplyFunc) LinearMap {
	check.True(apply != nil, "NewBasic: nil apply")
	return wrap(&basicImpl{m: m, n: n, fn: apply, applyT: adjoint})
}

func (i *basicImpl) kind() Kind { return Basic }

func (i *basicImpl) dims() (int, int) { return i.m, i.n }

func (i *basicImpl) apply(x []float64) []float64 { return i.fn(x) }

// asDense applies the operator to every unit vector.
func (i *basicImpl) asDense() *mat.Dense {
	d := mat.NewDense(i.m, i.n, nil)
	e := make([]float64, i.n)
	for j := 0; j < i.n; j++ {
		e[j] = 1
		d.SetCol(j, i.fn(e))
		e[j] = 0
	}
	return d
}

func (i *basicImpl) transpose() impl {
	if i.applyT == nil {
		check.Failf("transpose of %d x %d basic operator without adjoint", i.m, i.n)
	}
	return &basicImpl{m: i.n, n: i.m, fn: i.applyT, applyT: i.fn}
}

func (i *basicImpl) inverse() impl {
	check.Failf("inverse of basic operator")
	return nil
}

func (i *basicImpl) scale(alpha float64) impl {
	s := &basicImpl{m: i.m, n: i.n, fn: scaled(alpha, i.fn)}
	if i.applyT != nil {
		s.applyT = scaled(alpha, i.applyT)
	}
	return s
}

// equal is identity: two opaque operators are only known to be equal if they
// are the same operator.
func (i *basicImpl) equal(other impl) bool {
	return i == other.(*basicImpl)
}

func (i *basicImpl) String() string {
	return fmt.Sprintf("basic %d x %d", i.m, i.n)
}

func scaled(alpha float64, fn ApplyFunc) ApplyFunc {
	return func(x []float64) []float64 {
		y := fn(x)
		floats.Scale(alpha, y)
		return y
	}
}

func addBasic(a, b impl) impl {
	m, n := a.dims()
	s := &basicImpl{m: m, n: n, fn: func(x []float64) []float64 {
		y := a.apply(x)
		floats.Add(y, b.apply(x))
		return y
	}}
	if transposable(a) && transposable(b) {
		at, bt := a.transpose(), b.transpose()
		s.applyT = func(x []float64) []float64 {
			y := at.apply(x)
			floats.Add(y, bt.apply(x))
			return y
		}
	}
	return s
}

func mulBasic(a, b impl) impl {
	m, _ := a.dims()
	_, n := b.dims()
	s := &basicImpl{m: m, n: n, fn: func(x []float64) []float64 {
		return a.apply(b.apply(x))
	}}
	if transposable(a) && transposable(b) {
		at, bt := a.transpose(), b.transpose()
		s.applyT = func(x []float64) []float64 {
			return bt.apply(at.apply(x))
		}
	}
	return s
}

func transposable(i impl) bool {
	b, ok := i.(*basicImpl)
	return !ok || b.applyT != nil
}
