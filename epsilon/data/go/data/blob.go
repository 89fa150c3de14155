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

package data

import (
	"context"
	"fmt"
	"maps"
	"math"
	"runtime"
	"slices"

	"github.com/epsilon-opt/epsilon/epsilon/linear/go/linearmap"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/wire"
	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/encoding/protowire"
	"gonum.org/v1/gonum/mat"
)

// A blob is the wire encoding of
//
//	message Data {
//	  int64 m = 1;
//	  int64 n = 2;
//	  repeated double value = 3 [packed = true];  // dense, column-major
//	  repeated Entry entry = 4;                    // sparse
//	  bool sparse = 5;
//	}
//	message Entry { int64 i = 1; int64 j = 2; double v = 3; }

// MaxSparseDimension bounds the rows and columns of a decoded sparse matrix,
// whose storage is proportional to its row count rather than to the blob.
const MaxSparseDimension = 1 << 24

// EncodeDense encodes a dense matrix.
func EncodeDense(a mat.Matrix) []byte {
	m, n := a.Dims()
	var b []byte
	b = wire.AppendVarint(b, 1, uint64(m))
	b = wire.AppendVarint(b, 2, uint64(n))
	var packed []byte
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			packed = protowire.AppendFixed64(packed, math.Float64bits(a.At(i, j)))
		}
	}
	return wire.AppendMessage(b, 3, packed)
}

// EncodeVector encodes v as a len(v) x 1 dense matrix.
func EncodeVector(v []float64) []byte {
	return EncodeDense(mat.NewVecDense(len(v), slices.Clone(v)))
}

// EncodeSparse encodes an m x n sparse matrix.
func EncodeSparse(m, n int, entries []linearmap.Triplet) []byte {
	var b []byte
	b = wire.AppendVarint(b, 1, uint64(m))
	b = wire.AppendVarint(b, 2, uint64(n))
	for _, e := range entries {
		var eb []byte
		eb = wire.AppendVarint(eb, 1, uint64(e.I))
		eb = wire.AppendVarint(eb, 2, uint64(e.J))
		eb = wire.AppendDouble(eb, 3, e.V)
		b = wire.AppendMessage(b, 4, eb)
	}
	return wire.AppendVarint(b, 5, protowire.EncodeBool(true))
}

// Decode decodes a blob into a dense or sparse linear map.
func Decode(b []byte) (linearmap.LinearMap, error) {
	var (
		m, n    int
		values  []float64
		entries []linearmap.Triplet
		sparse  bool
	)
	err := wire.ForEachField(b, func(num protowire.Number, f wire.Field) error {
		switch num {
		case 1:
			m = int(f.Varint)
		case 2:
			n = int(f.Varint)
		case 3:
			for p := f.Bytes; len(p) > 0; {
				v, k := protowire.ConsumeFixed64(p)
				if k < 0 {
					return fmt.Errorf("%w: %v", wire.ErrMalformed, protowire.ParseError(k))
				}
				values = append(values, math.Float64frombits(v))
				p = p[k:]
			}
		case 4:
			var e linearmap.Triplet
			err := wire.ForEachField(f.Bytes, func(num protowire.Number, f wire.Field) error {
				switch num {
				case 1:
					e.I = int(f.Varint)
				case 2:
					e.J = int(f.Varint)
				case 3:
					e.V = f.Double()
				}
				return nil
			})
			if err != nil {
				return err
			}
			entries = append(entries, e)
		case 5:
			sparse = protowire.DecodeBool(f.Varint)
		}
		return nil
	})
	if err != nil {
		return linearmap.LinearMap{}, err
	}

	if m <= 0 || n <= 0 {
		return linearmap.LinearMap{}, fmt.Errorf("%w: empty %dx%d matrix", wire.ErrMalformed, m, n)
	}
	if sparse {
		if m > MaxSparseDimension || n > MaxSparseDimension {
			return linearmap.LinearMap{}, fmt.Errorf("%w: sparse %dx%d matrix exceeds %d",
				wire.ErrMalformed, m, n, MaxSparseDimension)
		}
		for _, e := range entries {
			if e.I < 0 || e.I >= m || e.J < 0 || e.J >= n {
				return linearmap.LinearMap{}, fmt.Errorf("%w: entry (%d, %d) outside %dx%d",
					wire.ErrMalformed, e.I, e.J, m, n)
			}
		}
		return linearmap.NewSparse(m, n, entries), nil
	}
	// len(values)/n bounds m before m*n is formed, so the product cannot
	// overflow.
	if m > len(values)/n || m*n != len(values) {
		return linearmap.LinearMap{}, fmt.Errorf("%w: %d values for %dx%d matrix",
			wire.ErrMalformed, len(values), m, n)
	}
	d := mat.NewDense(m, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			d.Set(i, j, values[j*m+i])
		}
	}
	return linearmap.FromDense(d), nil
}

// LoadBlobs validates every blob and puts it into store. Blobs are decoded
// concurrently; the first failure cancels the rest.
func LoadBlobs(ctx context.Context, store Store, blobs map[string][]byte) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, location := range slices.Sorted(maps.Keys(blobs)) {
		b := blobs[location]
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			l, err := Decode(b)
			if err != nil {
				return fmt.Errorf("blob %q: %w", location, err)
			}
			log.V(2).Infof("Loaded %q: %v %dx%d", location, l.Kind(), l.M(), l.N())
			return store.Put(location, b)
		})
	}
	return g.Wait()
}
