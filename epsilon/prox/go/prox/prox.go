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

// Package prox implements proximal operators of objective terms.
//
// An Operator evaluates
//
//	prox(v) = argmin_x  lambda*f(x) + 1/2 ||x - v||^2
//
// for one function family f. Operators are registered by Key and chosen
// from the shape of a term's expression. A Term adapts an Operator to the
// ADMM subproblem of its term, which also involves the columns of the
// constraint matrix that touch the term's variables.
package prox

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/epsilon-opt/epsilon/epsilon/data/go/data"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"github.com/epsilon-opt/epsilon/epsilon/vector/go/block"
)

// Arg is the input to Operator.Init.
type Arg struct {
	// Expr is the function expression with any scalar weight removed. It is
	// a PROX_FUNCTION node, or an affine expression for the AFFINE key.
	Expr *expression.Expression
	// Lambda multiplies f and already includes the term weight.
	Lambda float64
	// Source resolves data-backed constants in Expr.
	Source data.Source
}

// Operator computes the proximal operator of a function family. Init is
// called once before any Apply. Apply takes and returns vectors keyed by
// variable id and must not modify v.
type Operator interface {
	Init(arg *Arg)
	Apply(v block.Vector) block.Vector
}

// Key identifies the function family an Operator handles.
type Key struct {
	Function expression.ProxFunctionType
	Epigraph bool
}

func (k Key) String() string {
	if k.Epigraph {
		return fmt.Sprintf("%v (epigraph)", k.Function)
	}
	return k.Function.String()
}

var (
	registryMu sync.RWMutex
	registry   = map[Key]func() Operator{}
)

// Register makes an operator available for key. Registering the same key
// twice is an invariant violation.
func Register(key Key, newOp func() Operator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[key]; ok {
		check.Failf("prox operator for %v registered twice", key)
	}
	registry[key] = newOp
}

// New returns a new, uninitialized operator for key.
func New(key Key) Operator {
	registryMu.RLock()
	newOp, ok := registry[key]
	registryMu.RUnlock()
	if !ok {
		check.Failf("no prox operator for %v", key)
	}
	return newOp()
}

// Registered returns the registered keys in a stable order.
func Registered() []Key {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.SortedFunc(maps.Keys(registry), func(a, b Key) int {
		if a.Function != b.Function {
			return int(a.Function) - int(b.Function)
		}
		switch {
		case a.Epigraph == b.Epigraph:
			return 0
		case b.Epigraph:
			return -1
		}
		return 1
	})
}

// SmoothFunction is a separable convex function with a diagonal Hessian,
// enough to compute its proximal operator with Newton's method.
type SmoothFunction interface {
	Eval(x []float64) float64
	Grad(x []float64) []float64
	// Hess returns the diagonal of the Hessian.
	Hess(x []float64) []float64
	// ProjFeasible maps x into the interior of the domain.
	ProjFeasible(x []float64) []float64
}
