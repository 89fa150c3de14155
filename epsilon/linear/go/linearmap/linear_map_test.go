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
	"errors"
	"testing"

	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/mat"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

func denseData(d *mat.Dense) [][]float64 {
	m, n := d.Dims()
	out := make([][]float64, m)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = d.At(i, j)
		}
	}
	return out
}

func seq(n int, start, step float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = start + float64(i)*step
	}
	return s
}

func testMaps() map[string]LinearMap {
	return map[string]LinearMap{
		"dense":    NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}),
		"sparse":   NewSparse(3, 2, []Triplet{{0, 1, 2}, {2, 0, -1}, {1, 1, 4}}),
		"diagonal": NewDiagonal([]float64{1, -2, 3}),
		"scalar":   NewScalar(4, 2.5),
		"kronecker": NewKronecker(
			NewDense(2, 2, []float64{1, 2, 3, 4}),
			NewDense(1, 3, []float64{1, 0, -1})),
	}
}

func TestApplyMatchesDense(t *testing.T) {
	for name, l := range testMaps() {
		t.Run(name, func(t *testing.T) {
			x := seq(l.N(), 1, 0.5)
			want := mat.NewVecDense(l.M(), nil)
			want.MulVec(l.AsDense(), mat.NewVecDense(len(x), x))
			if diff := cmp.Diff(want.RawVector().Data, l.Apply(x), approx); diff != "" {
				t.Errorf("Apply() diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransposeRoundTrip(t *testing.T) {
	for name, l := range testMaps() {
		t.Run(name, func(t *testing.T) {
			tt := l.Transpose().Transpose()
			if tt.Kind() != l.Kind() {
				t.Errorf("Transpose().Transpose().Kind() = %v, want %v", tt.Kind(), l.Kind())
			}
			if diff := cmp.Diff(denseData(l.AsDense()), denseData(tt.AsDense())); diff != "" {
				t.Errorf("Transpose().Transpose() diff (-want +got):\n%s", diff)
			}
			var want mat.Dense
			want.CloneFrom(l.AsDense().T())
			if diff := cmp.Diff(denseData(&want), denseData(l.Transpose().AsDense())); diff != "" {
				t.Errorf("Transpose() diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMulDiagonalDiagonal(t *testing.T) {
	a := NewDiagonal([]float64{1, 2, 3})
	b := NewDiagonal([]float64{4, 5, -6})
	c := Mul(a, b)
	if c.Kind() != Diagonal {
		t.Fatalf("Mul(diag, diag).Kind() = %v, want %v", c.Kind(), Diagonal)
	}
	x := []float64{1, 1, 2}
	if diff := cmp.Diff(a.Apply(b.Apply(x)), c.Apply(x)); diff != "" {
		t.Errorf("Mul(a, b).Apply(x) diff (-want +got):\n%s", diff)
	}
}

func TestKroneckerApply(t *testing.T) {
	a := NewDense(3, 4, seq(12, 1, 1))
	b := NewDense(2, 5, seq(10, -2, 0.5))
	k := NewKronecker(a, b)
	if m, n := k.Dims(); m != 6 || n != 20 {
		t.Fatalf("Dims() = (%d, %d), want (6, 20)", m, n)
	}
	x := seq(20, 0.1, 0.3)
	want := mat.NewVecDense(6, nil)
	want.MulVec(k.AsDense(), mat.NewVecDense(20, x))
	if diff := cmp.Diff(want.RawVector().Data, k.Apply(x), approx); diff != "" {
		t.Errorf("Apply() diff (-want +got):\n%s", diff)
	}
}

func TestKroneckerDenseBlocks(t *testing.T) {
	k := NewKronecker(
		NewDense(2, 2, []float64{1, 2, 3, 4}),
		NewDense(2, 2, []float64{0, 1, 1, 0}))
	want := [][]float64{
		{0, 1, 0, 2},
		{1, 0, 2, 0},
		{0, 3, 0, 4},
		{3, 0, 4, 0},
	}
	if diff := cmp.Diff(want, denseData(k.AsDense())); diff != "" {
		t.Errorf("AsDense() diff (-want +got):\n%s", diff)
	}
}

func TestMulKronecker(t *testing.T) {
	a := NewKronecker(NewDense(2, 2, []float64{1, 2, 3, 4}), NewDiagonal([]float64{1, 2}))
	b := NewKronecker(NewScalar(2, 2), NewDiagonal([]float64{3, 4}))
	c := Mul(a, b)
	if c.Kind() != Kronecker {
		t.Errorf("Mul(kron, kron).Kind() = %v, want %v", c.Kind(), Kronecker)
	}
	var want mat.Dense
	want.Mul(a.AsDense(), b.AsDense())
	if diff := cmp.Diff(denseData(&want), denseData(c.AsDense()), approx); diff != "" {
		t.Errorf("Mul() diff (-want +got):\n%s", diff)
	}
}

func TestAddKinds(t *testing.T) {
	testCases := []struct {
		name string
		a, b LinearMap
		want Kind
	}{
		{"scalar+scalar", NewScalar(3, 1), NewScalar(3, 2), Scalar},
		{"scalar+diagonal", NewScalar(3, 1), NewDiagonal([]float64{1, 2, 3}), Diagonal},
		{"sparse+diagonal", NewSparse(3, 3, []Triplet{{0, 2, 1}}), NewDiagonal([]float64{1, 2, 3}), Sparse},
		{"dense+scalar", NewDense(3, 3, seq(9, 0, 1)), NewScalar(3, 1), Dense},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Add(tc.a, tc.b)
			if c.Kind() != tc.want {
				t.Errorf("Add().Kind() = %v, want %v", c.Kind(), tc.want)
			}
			var want mat.Dense
			want.Add(tc.a.AsDense(), tc.b.AsDense())
			if diff := cmp.Diff(denseData(&want), denseData(c.AsDense())); diff != "" {
				t.Errorf("Add() diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSparse(t *testing.T) {
	s := NewSparse(2, 3, []Triplet{{1, 2, 1}, {0, 0, 2}, {1, 2, 3}, {0, 1, 0}})
	if got := s.AsSparse().NNZ(); got != 2 {
		t.Errorf("NNZ() = %d, want 2", got)
	}
	want := [][]float64{{2, 0, 0}, {0, 0, 4}}
	if diff := cmp.Diff(want, denseData(s.AsDense())); diff != "" {
		t.Errorf("AsDense() diff (-want +got):\n%s", diff)
	}
	p := Mul(s, s.Transpose())
	if p.Kind() != Sparse {
		t.Errorf("Mul(sparse, sparse).Kind() = %v, want %v", p.Kind(), Sparse)
	}
	if diff := cmp.Diff([][]float64{{4, 0}, {0, 16}}, denseData(p.AsDense())); diff != "" {
		t.Errorf("Mul(s, sT) diff (-want +got):\n%s", diff)
	}
}

func TestMulKroneckerNotConformable(t *testing.T) {
	a := NewKronecker(NewDense(1, 2, []float64{1, 2}), NewScalar(2, 3))
	b := NewKronecker(NewDense(1, 1, []float64{2}), NewDense(4, 1, []float64{1, 0, -1, 1}))
	c := Mul(a, b)
	if c.Kind() != Dense {
		t.Errorf("Mul(kron, kron).Kind() = %v, want %v", c.Kind(), Dense)
	}
	var want mat.Dense
	want.Mul(a.AsDense(), b.AsDense())
	if diff := cmp.Diff(denseData(&want), denseData(c.AsDense()), approx); diff != "" {
		t.Errorf("Mul() diff (-want +got):\n%s", diff)
	}
}

func TestMulSparseDiagonal(t *testing.T) {
	s := NewSparse(2, 3, []Triplet{{0, 2, 1}, {1, 0, 2}, {1, 2, -1}})
	testCases := []struct {
		name string
		a, b LinearMap
	}{
		{"diagonal*sparse", NewDiagonal([]float64{2, 3}), s},
		{"sparse*diagonal", s, NewDiagonal([]float64{1, 0, 4})},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Mul(tc.a, tc.b)
			if c.Kind() != Sparse {
				t.Errorf("Mul().Kind() = %v, want %v", c.Kind(), Sparse)
			}
			var want mat.Dense
			want.Mul(tc.a.AsDense(), tc.b.AsDense())
			if diff := cmp.Diff(denseData(&want), denseData(c.AsDense())); diff != "" {
				t.Errorf("Mul() diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSparseCanonical(t *testing.T) {
	a := NewSparse(2, 2, []Triplet{{1, 1, 1}, {0, 1, 2}, {1, 0, 3}})
	b := Add(NewSparse(2, 2, []Triplet{{1, 0, 3}, {0, 1, 2}}), NewSparse(2, 2, []Triplet{{1, 1, 1}}))
	if !a.Equal(b) {
		t.Errorf("Equal(%v, %v) = false, want true", a, b)
	}
	if !a.Equal(a.Transpose().Transpose()) {
		t.Errorf("Equal(a, aTT) = false, want true")
	}
	want := []Triplet{{0, 1, 2}, {1, 0, 3}, {1, 1, 1}}
	if diff := cmp.Diff(want, Entries(a.AsSparse())); diff != "" {
		t.Errorf("Entries() diff (-want +got):\n%s", diff)
	}
}

func TestInverse(t *testing.T) {
	testCases := []struct {
		name string
		l    LinearMap
	}{
		{"dense", NewDense(2, 2, []float64{2, 1, 1, 3})},
		{"sparse", NewSparse(2, 2, []Triplet{{0, 0, 2}, {1, 1, 4}, {0, 1, 1}})},
		{"diagonal", NewDiagonal([]float64{2, -4})},
		{"scalar", NewScalar(2, 0.5)},
		{"kronecker", NewKronecker(NewScalar(2, 2), NewDense(2, 2, []float64{1, 1, 0, 1}))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := Mul(tc.l, tc.l.Inverse()).AsDense()
			n, _ := p.Dims()
			var id mat.Dense
			id.CloneFrom(Identity(n).AsDense())
			if diff := cmp.Diff(denseData(&id), denseData(p), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("A*Inverse(A) diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAsScalar(t *testing.T) {
	testCases := []struct {
		name   string
		l      LinearMap
		want   float64
		wantOK bool
	}{
		{"scalar", NewScalar(3, 2), 2, true},
		{"constant diagonal", NewDiagonal([]float64{4, 4}), 4, true},
		{"diagonal", NewDiagonal([]float64{4, 5}), 0, false},
		{"dense identity", NewDense(2, 2, []float64{3, 0, 0, 3}), 3, true},
		{"dense", NewDense(2, 2, []float64{3, 1, 0, 3}), 0, false},
		{"kronecker", NewKronecker(NewScalar(2, 2), NewScalar(3, -1)), -2, true},
		{"rectangular", NewDense(1, 2, []float64{1, 0}), 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.l.AsScalar()
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("AsScalar() = (%v, %v), want (%v, %v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestBasic(t *testing.T) {
	a := NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	b := NewBasic(2, 3, a.Apply, a.Transpose().Apply)
	if diff := cmp.Diff(denseData(a.AsDense()), denseData(b.AsDense())); diff != "" {
		t.Errorf("AsDense() diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(denseData(a.Transpose().AsDense()), denseData(b.Transpose().AsDense())); diff != "" {
		t.Errorf("Transpose().AsDense() diff (-want +got):\n%s", diff)
	}
	s := Add(b, a)
	if s.Kind() != Basic {
		t.Errorf("Add(basic, dense).Kind() = %v, want %v", s.Kind(), Basic)
	}
	if diff := cmp.Diff([]float64{12, 30}, s.Apply([]float64{1, 1, 1})); diff != "" {
		t.Errorf("Add(b, a).Apply() diff (-want +got):\n%s", diff)
	}
}

func TestViolations(t *testing.T) {
	testCases := []struct {
		name string
		fn   func()
	}{
		{"apply length", func() { NewScalar(3, 1).Apply([]float64{1, 2}) }},
		{"add shape", func() { Add(NewScalar(3, 1), NewScalar(2, 1)) }},
		{"mul shape", func() { Mul(NewDense(2, 3, seq(6, 1, 1)), NewDense(2, 3, seq(6, 1, 1))) }},
		{"singular diagonal", func() { NewDiagonal([]float64{1, 0}).Inverse() }},
		{"zero scalar", func() { NewScalar(2, 0).Inverse() }},
		{"non-square", func() { NewDense(2, 3, seq(6, 1, 1)).Inverse() }},
		{"dense data length", func() { NewDense(2, 3, nil) }},
		{"basic transpose", func() { NewBasic(1, 1, func(x []float64) []float64 { return x }, nil).Transpose() }},
		{"nil map", func() { LinearMap{}.M() }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := func() (err error) {
				defer check.Recover(&err)
				tc.fn()
				return nil
			}()
			if !errors.Is(err, check.ErrViolation) {
				t.Errorf("%s: error = %v, want %v", tc.name, err, check.ErrViolation)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !NewDiagonal([]float64{1, 2}).Equal(NewDiagonal([]float64{1, 2})) {
		t.Error("Equal(diag, same diag) = false, want true")
	}
	if NewScalar(2, 1).Equal(NewDiagonal([]float64{1, 1})) {
		t.Error("Equal(scalar, diag) = true, want false")
	}
	if NewScalar(2, 1).Equal(NewScalar(3, 1)) {
		t.Error("Equal(2x2, 3x3) = true, want false")
	}
}
