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

// Package data resolves the data locations referenced by constants in an
// expression tree.
//
// Array-valued constants are not embedded in the problem. They are shipped
// alongside it as named blobs, put into a Store, and decoded on demand by a
// Source when the affine builders need them.
package data

import (
	"fmt"
	"sync"

	"github.com/epsilon-opt/epsilon/epsilon/linear/go/linearmap"
)

// Source resolves a data location to a matrix.
type Source interface {
	Matrix(location string) (linearmap.LinearMap, error)
}

// StoreSource decodes blobs from a Store. Decoded matrices are cached, so a
// location referenced by several constants is decoded once.
type StoreSource struct {
	store Store

	mu    sync.Mutex
	cache map[string]linearmap.LinearMap
}

// NewSource returns a Source reading from store.
func NewSource(store Store) *StoreSource {
	return &StoreSource{store: store, cache: map[string]linearmap.LinearMap{}}
}

// Matrix returns the matrix stored at location.
func (s *StoreSource) Matrix(location string) (linearmap.LinearMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.cache[location]; ok {
		return l, nil
	}
	b, err := s.store.Get(location)
	if err != nil {
		return linearmap.LinearMap{}, err
	}
	l, err := Decode(b)
	if err != nil {
		return linearmap.LinearMap{}, fmt.Errorf("decoding %q: %w", location, err)
	}
	s.cache[location] = l
	return l, nil
}

// ToVector returns the column-major vectorization of l.
func ToVector(l linearmap.LinearMap) []float64 {
	d := l.AsDense()
	m, n := d.Dims()
	v := make([]float64, 0, m*n)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			v = append(v, d.At(i, j))
		}
	}
	return v
}
