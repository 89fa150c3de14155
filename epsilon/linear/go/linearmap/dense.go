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
	"gonum.org/v1/gonum/mat"
)

// denseImpl owns d; it is never modified after construction.
type denseImpl struct {
	d *mat.Dense
}

// NewDense returns an m x n dense map over a copy of the row-major data.
func NewDense(m, n int, data []float64) LinearMap {
	check.EqInt(m*n, len(data), "NewDense data length")
	return wrap(&denseImpl{d: mat.NewDense(m, n, append([]float64(nil), data...))})
}

// FromDense returns a dense map over a copy of a.
func FromDense(a mat.Matrix) LinearMap {
	return wrap(&denseImpl{d: mat.DenseCopyOf(a)})
}

func (i *denseImpl) kind() Kind { return Dense }

func (i *denseImpl) dims() (int, int) { return i.d.Dims() }

func (i *denseImpl) apply(x []float64) []float64 {
	m, _ := i.d.Dims()
	var y mat.VecDense
	y.MulVec(i.d, mat.NewVecDense(len(x), x))
	out := make([]float64, m)
	copy(out, y.RawVector().Data)
	return out
}

func (i *denseImpl) asDense() *mat.Dense {
	return mat.DenseCopyOf(i.d)
}

func (i *denseImpl) transpose() impl {
	return &denseImpl{d: mat.DenseCopyOf(i.d.T())}
}

func (i *denseImpl) inverse() impl {
	var inv mat.Dense
	if err := inv.Inverse(i.d); err != nil {
		check.Failf("inverse of singular dense matrix: %v", err)
	}
	return &denseImpl{d: &inv}
}

func (i *denseImpl) scale(alpha float64) impl {
	var s mat.Dense
	s.Scale(alpha, i.d)
	return &denseImpl{d: &s}
}

func (i *denseImpl) equal(other impl) bool {
	return mat.Equal(i.d, other.(*denseImpl).d)
}

func (i *denseImpl) String() string {
	m, n := i.d.Dims()
	return fmt.Sprintf("dense %d x %d\n%v", m, n, mat.Formatted(i.d, mat.Squeeze()))
}
