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

package affine

import (
	"github.com/epsilon-opt/epsilon/epsilon/data/go/data"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/linear/go/linearmap"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
)

// BuildLinearMap returns the literal linear map described by spec.
func BuildLinearMap(spec *expression.LinearMapSpec, src data.Source) linearmap.LinearMap {
	var l linearmap.LinearMap
	switch spec.Type {
	case expression.LinearMapDense:
		d := readData(src, spec.Constant.DataLocation)
		if d.Kind() == linearmap.Dense {
			l = d
		} else {
			l = linearmap.FromDense(d.AsDense())
		}
	case expression.LinearMapSparse:
		l = linearmap.FromCSR(readData(src, spec.Constant.DataLocation).AsSparse())
	case expression.LinearMapDiagonal:
		if spec.Constant == nil {
			l = linearmap.NewDiagonal(fill(spec.N, spec.Scalar))
			break
		}
		d := constantVector(spec.Constant, src)
		if len(d) == 1 {
			d = fill(spec.N, d[0])
		}
		l = linearmap.NewDiagonal(d)
	case expression.LinearMapScalar:
		l = linearmap.NewScalar(spec.N, spec.Scalar)
	case expression.LinearMapKronecker:
		check.EqInt(2, len(spec.Args), "KRONECKER_PRODUCT argument count")
		l = linearmap.NewKronecker(BuildLinearMap(spec.Args[0], src), BuildLinearMap(spec.Args[1], src))
	case expression.LinearMapTranspose:
		check.EqInt(1, len(spec.Args), "TRANSPOSE argument count")
		l = BuildLinearMap(spec.Args[0], src).Transpose()
	default:
		check.Failf("no linear map builder for %v", spec.Type)
	}
	check.EqInt(spec.M, l.M(), "linear map rows")
	check.EqInt(spec.N, l.N(), "linear map columns")
	return l
}
