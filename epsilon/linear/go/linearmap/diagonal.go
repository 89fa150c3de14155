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
	"slices"

	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type diagonalImpl struct {
	d []float64
}

// NewDiagonal returns the diagonal map diag(d).
func NewDiagonal(d []float64) LinearMap {
	return wrap(&diagonalImpl{d: slices.Clone(d)})
}

// Diagonal returns the diagonal of a Diagonal or Scalar map.
func (l LinearMap) Diagonal() ([]float64, bool) {
	switch i := l.get().(type) {
	case *diagonalImpl:
		return slices.Clone(i.d), true
	case *scalarImpl:
		return constantSlice(i.n, i.alpha), true
	}
	return nil, false
}

func (i *diagonalImpl) kind() Kind { return Diagonal }

func (i *diagonalImpl) dims() (int, int) { return len(i.d), len(i.d) }

func (i *diagonalImpl) apply(x []float64) []float64 {
	y := make([]float64, len(x))
	floats.MulTo(y, i.d, x)
	return y
}

func (i *diagonalImpl) asDense() *mat.Dense {
	n := len(i.d)
	d := mat.NewDense(n, n, nil)
	for k, v := range i.d {
		d.Set(k, k, v)
	}
	return d
}

func (i *diagonalImpl) transpose() impl { return i }

func (i *diagonalImpl) inverse() impl {
	inv := make([]float64, len(i.d))
	for k, v := range i.d {
		if v == 0 {
			check.Failf("inverse of singular diagonal matrix, entry %d is zero", k)
		}
		inv[k] = 1 / v
	}
	return &diagonalImpl{d: inv}
}

func (i *diagonalImpl) scale(alpha float64) impl {
	d := make([]float64, len(i.d))
	floats.ScaleTo(d, alpha, i.d)
	return &diagonalImpl{d: d}
}

func (i *diagonalImpl) equal(other impl) bool {
	return slices.Equal(i.d, other.(*diagonalImpl).d)
}

func (i *diagonalImpl) String() string {
	return fmt.Sprintf("diagonal %d x %d\n%v", len(i.d), len(i.d), i.d)
}
