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

// scalarImpl is alpha*I of size n.
type scalarImpl struct {
	n     int
	alpha float64
}

// NewScalar returns alpha*I of size n.
func NewScalar(n int, alpha float64) LinearMap {
	return wrap(&scalarImpl{n: n, alpha: alpha})
}

// Identity returns the n x n identity.
func Identity(n int) LinearMap {
	return NewScalar(n, 1)
}

func (i *scalarImpl) kind() Kind { return Scalar }

func (i *scalarImpl) dims() (int, int) { return i.n, i.n }

func (i *scalarImpl) apply(x []float64) []float64 {
	y := make([]float64, len(x))
	return floats.ScaleTo(y, i.alpha, x)
}

func (i *scalarImpl) asDense() *mat.Dense {
	d := mat.NewDense(i.n, i.n, nil)
	for k := 0; k < i.n; k++ {
		d.Set(k, k, i.alpha)
	}
	return d
}

func (i *scalarImpl) transpose() impl { return i }

func (i *scalarImpl) inverse() impl {
	if i.alpha == 0 {
		check.Failf("inverse of zero scalar matrix")
	}
	return &scalarImpl{n: i.n, alpha: 1 / i.alpha}
}

func (i *scalarImpl) scale(alpha float64) impl {
	return &scalarImpl{n: i.n, alpha: alpha * i.alpha}
}

func (i *scalarImpl) equal(other impl) bool {
	return i.alpha == other.(*scalarImpl).alpha
}

func (i *scalarImpl) String() string {
	return fmt.Sprintf("scalar %d x %d, alpha=%g", i.n, i.n, i.alpha)
}
