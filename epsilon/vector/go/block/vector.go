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

// Package block provides vectors and matrices partitioned by string keys.
//
// A Vector maps a key to a dense block; a Matrix maps a (row, column) key
// pair to a linearmap.LinearMap. Inserting into an occupied key accumulates
// rather than overwrites. Keys are always visited in sorted order so that
// every reduction over blocks is deterministic.
package block

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"gonum.org/v1/gonum/floats"
)

// Vector is a mapping from key to dense block. The zero value is not usable;
// use NewVector.
type Vector struct {
	data map[string][]float64
}

// NewVector returns an empty vector.
func NewVector() Vector {
	return Vector{data: map[string][]float64{}}
}

// VectorOf returns a vector holding copies of the given blocks.
func VectorOf(blocks map[string][]float64) Vector {
	v := NewVector()
	for k, b := range blocks {
		v.data[k] = slices.Clone(b)
	}
	return v
}

// InsertOrAdd adds x to the block at key, creating it if needed.
func (v Vector) InsertOrAdd(key string, x []float64) {
	cur, ok := v.data[key]
	if !ok {
		v.data[key] = slices.Clone(x)
		return
	}
	check.EqInt(len(cur), len(x), fmt.Sprintf("block %q size", key))
	floats.Add(cur, x)
}

// Set replaces the block at key with a copy of x.
func (v Vector) Set(key string, x []float64) {
	v.data[key] = slices.Clone(x)
}

// Get returns the block at key. The block must exist.
func (v Vector) Get(key string) []float64 {
	x, ok := v.data[key]
	if !ok {
		check.Failf("missing block %q", key)
	}
	return x
}

// Has reports whether key has a block.
func (v Vector) Has(key string) bool {
	_, ok := v.data[key]
	return ok
}

// Len returns the number of blocks.
func (v Vector) Len() int {
	return len(v.data)
}

// Keys returns the block keys in sorted order.
func (v Vector) Keys() []string {
	return slices.Sorted(maps.Keys(v.data))
}

// Size returns the total number of entries over all blocks.
func (v Vector) Size() int {
	n := 0
	for _, x := range v.data {
		n += len(x)
	}
	return n
}

// Norm returns the Euclidean norm of the concatenation of all blocks.
func (v Vector) Norm() float64 {
	var sq float64
	for _, k := range v.Keys() {
		n := floats.Norm(v.data[k], 2)
		sq += n * n
	}
	return math.Sqrt(sq)
}

// Clone returns a deep copy of v.
func (v Vector) Clone() Vector {
	return VectorOf(v.data)
}

// Add returns v+w. A key present in only one operand is copied.
func Add(v, w Vector) Vector {
	out := v.Clone()
	for _, k := range w.Keys() {
		out.InsertOrAdd(k, w.data[k])
	}
	return out
}

// Sub returns v-w.
func Sub(v, w Vector) Vector {
	return Add(v, Scale(-1, w))
}

// Scale returns alpha*v.
func Scale(alpha float64, v Vector) Vector {
	out := v.Clone()
	for _, x := range out.data {
		floats.Scale(alpha, x)
	}
	return out
}

// String returns the blocks in key order.
func (v Vector) String() string {
	var b strings.Builder
	for _, k := range v.Keys() {
		fmt.Fprintf(&b, "%s: %v\n", k, v.data[k])
	}
	return b.String()
}
