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

package prox

import (
	"math"

	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
)

// minFeasible is the smallest value the projections onto x > 0 return.
const minFeasible = 1e-6

func init() {
	Register(Key{Function: expression.ProxInvPos}, func() Operator { return NewNewtonProx(InvPos{}) })
	Register(Key{Function: expression.ProxInvPos, Epigraph: true}, func() Operator { return NewNewtonEpigraph(InvPos{}) })
	Register(Key{Function: expression.ProxNegLog}, func() Operator { return NewNewtonProx(NegLog{}) })
	Register(Key{Function: expression.ProxNegLog, Epigraph: true}, func() Operator { return NewNewtonEpigraph(NegLog{}) })
}

// InvPos is f(x) = sum_i 1/x_i on x > 0.
type InvPos struct{}

func (InvPos) Eval(x []float64) float64 {
	var sum float64
	for _, xi := range x {
		sum += 1 / xi
	}
	return sum
}

func (InvPos) Grad(x []float64) []float64 {
	return mapSlice(x, func(xi float64) float64 { return -1 / (xi * xi) })
}

func (InvPos) Hess(x []float64) []float64 {
	return mapSlice(x, func(xi float64) float64 { return 2 / (xi * xi * xi) })
}

func (InvPos) ProjFeasible(x []float64) []float64 {
	return projPositive(x)
}

// NegLog is f(x) = -sum_i log(x_i) on x > 0.
type NegLog struct{}

func (NegLog) Eval(x []float64) float64 {
	var sum float64
	for _, xi := range x {
		sum -= math.Log(xi)
	}
	return sum
}

func (NegLog) Grad(x []float64) []float64 {
	return mapSlice(x, func(xi float64) float64 { return -1 / xi })
}

func (NegLog) Hess(x []float64) []float64 {
	return mapSlice(x, func(xi float64) float64 { return 1 / (xi * xi) })
}

func (NegLog) ProjFeasible(x []float64) []float64 {
	return projPositive(x)
}

func projPositive(x []float64) []float64 {
	return mapSlice(x, func(xi float64) float64 { return math.Max(xi, minFeasible) })
}

func mapSlice(x []float64, fn func(float64) float64) []float64 {
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = fn(xi)
	}
	return y
}
