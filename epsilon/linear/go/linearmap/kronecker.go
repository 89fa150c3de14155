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

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
)

// kroneckerImpl is a ⊗ b. Vectors are vectorized column-major, so that
// (a ⊗ b) vec(X) = vec(b X aᵀ).
type kroneckerImpl struct {
	a, b LinearMap
}

// NewKronecker returns the Kronecker product a ⊗ b.
func NewKronecker(a, b LinearMap) LinearMap {
	a.get()
	b.get()
	return wrap(&kroneckerImpl{a: a, b: b})
}

// Factors returns the factors of a Kronecker map.
func (l LinearMap) Factors() (a, b LinearMap, ok bool) {
	k, ok := l.get().(*kroneckerImpl)
	if !ok {
		return LinearMap{}, LinearMap{}, false
	}
	return k.a, k.b, true
}

func (i *kroneckerImpl) kind() Kind { return Kronecker }

func (i *kroneckerImpl) dims() (int, int) {
	return i.a.M() * i.b.M(), i.a.N() * i.b.N()
}

// apply computes vec(b X aᵀ) without forming a ⊗ b. With X of shape
// nb x na stored column-major in x, row j of Xᵀ is x[j*nb:(j+1)*nb]. The
// rows of Z = Xᵀ bᵀ are b applied to the rows of Xᵀ, and W = a Z is a
// applied to the columns of Z. W is (b X aᵀ)ᵀ, so its row-major data is the
// column-major vectorization of the result.
func (i *kroneckerImpl) apply(x []float64) []float64 {
	ma, na := i.a.Dims()
	mb, nb := i.b.Dims()

	z := make([][]float64, na)
	for j := 0; j < na; j++ {
		z[j] = i.b.Apply(x[j*nb : (j+1)*nb])
	}

	y := make([]float64, ma*mb)
	col := make([]float64, na)
	for c := 0; c < mb; c++ {
		for j := 0; j < na; j++ {
			col[j] = z[j][c]
		}
		w := i.a.Apply(col)
		for r := 0; r < ma; r++ {
			y[r*mb+c] = w[r]
		}
	}
	return y
}

func (i *kroneckerImpl) asDense() *mat.Dense {
	m, n := i.dims()
	log.V(1).Infof("Converting kron to dense (%d x %d)", m, n)

	a, b := i.a.AsDense(), i.b.AsDense()
	ma, na := a.Dims()
	mb, nb := b.Dims()
	c := mat.NewDense(m, n, nil)
	for r := 0; r < ma; r++ {
		for s := 0; s < na; s++ {
			ars := a.At(r, s)
			if ars == 0 {
				continue
			}
			for p := 0; p < mb; p++ {
				for q := 0; q < nb; q++ {
					c.Set(r*mb+p, s*nb+q, ars*b.At(p, q))
				}
			}
		}
	}
	return c
}

func (i *kroneckerImpl) transpose() impl {
	return &kroneckerImpl{a: i.a.Transpose(), b: i.b.Transpose()}
}

func (i *kroneckerImpl) inverse() impl {
	return &kroneckerImpl{a: i.a.Inverse(), b: i.b.Inverse()}
}

func (i *kroneckerImpl) scale(alpha float64) impl {
	return &kroneckerImpl{a: Scale(alpha, i.a), b: i.b}
}

func (i *kroneckerImpl) equal(other impl) bool {
	o := other.(*kroneckerImpl)
	return i.a.Equal(o.a) && i.b.Equal(o.b)
}

func (i *kroneckerImpl) String() string {
	m, n := i.dims()
	return fmt.Sprintf("kronecker %d x %d\nA: %v\nB: %v", m, n, i.a, i.b)
}

// mulKroneckerKronecker uses (A⊗B)(C⊗D) = AC ⊗ BD when the factors are
// conformable and returns nil otherwise.
func mulKroneckerKronecker(x, y impl) impl {
	kx, ky := x.(*kroneckerImpl), y.(*kroneckerImpl)
	if kx.a.N() != ky.a.M() || kx.b.N() != ky.b.M() {
		return nil
	}
	return &kroneckerImpl{a: Mul(kx.a, ky.a), b: Mul(kx.b, ky.b)}
}
