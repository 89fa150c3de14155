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

// Package parameters implements the parameter service the solver reads
// initial iterates from and writes solutions to.
//
// Parameters are dense float64 vectors addressed by a 64-bit id. Local
// keeps them in process memory; Store persists them in a badger database.
package parameters

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Service reads and writes parameter vectors.
type Service interface {
	// Fetch returns the vector stored under id, or an empty vector if there
	// is none.
	Fetch(id uint64) ([]float64, error)
	// Update replaces the vector stored under id.
	Update(id uint64, value []float64) error
}

// VariableParameterID returns the parameter id of variable varID of the
// problem identified by problemID.
func VariableParameterID(problemID uint64, varID string) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], problemID)
	d := xxhash.New()
	d.Write(b[:])
	d.WriteString(varID)
	return d.Sum64()
}

// Local is an in-process Service. It is safe for concurrent use.
type Local struct {
	mu     sync.RWMutex
	values map[uint64][]float64
}

// NewLocal returns an empty Local service.
func NewLocal() *Local {
	return &Local{values: map[uint64][]float64{}}
}

// Fetch implements Service.
func (l *Local) Fetch(id uint64) ([]float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]float64{}, l.values[id]...), nil
}

// Update implements Service.
func (l *Local) Update(id uint64, value []float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[id] = append([]float64{}, value...)
	return nil
}

// EncodeFloats returns x as consecutive little-endian float64 values.
func EncodeFloats(x []float64) []byte {
	b := make([]byte, 8*len(x))
	for i, v := range x {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(v))
	}
	return b
}

// DecodeFloats is the inverse of EncodeFloats.
func DecodeFloats(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("float64 buffer of %d bytes", len(b))
	}
	x := make([]float64, len(b)/8)
	for i := range x {
		x[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return x, nil
}
