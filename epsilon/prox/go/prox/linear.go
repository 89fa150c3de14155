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
	"github.com/epsilon-opt/epsilon/epsilon/affine/go/affine"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/linear/go/linearmap"
	"github.com/epsilon-opt/epsilon/epsilon/vector/go/block"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// linearRow is the row key the linear functional is compiled into.
const linearRow = "_"

// LinearProx is the proximal operator of an affine function c'x + d. The
// offset d does not move the minimizer.
type LinearProx struct {
	lambda float64
	c      map[string][]float64
}

func init() {
	Register(Key{Function: expression.ProxAffine}, func() Operator { return &LinearProx{} })
	Register(Key{Function: expression.ProxConstant}, func() Operator { return &ConstantProx{} })
}

// Init compiles the expression into the coefficient vector c.
func (p *LinearProx) Init(arg *Arg) {
	p.lambda = arg.Lambda
	p.c = map[string][]float64{}

	a := block.NewMatrix()
	b := block.NewVector()
	expr := arg.Expr
	if expr.Type == expression.TypeProxFunction {
		expr = expr.OnlyArg()
	}
	affine.BuildAffineOperatorWithData(expr, arg.Source, linearRow,
		linearmap.Identity(expr.Dimension()), a, b)
	for _, v := range a.ColKeys() {
		// Rows of a non-scalar term are summed.
		d := a.Get(linearRow, v).AsDense()
		m, n := d.Dims()
		ones := mat.NewVecDense(m, nil)
		for i := 0; i < m; i++ {
			ones.SetVec(i, 1)
		}
		var c mat.VecDense
		c.MulVec(d.T(), ones)
		p.c[v] = append([]float64(nil), c.RawVector().Data[:n]...)
	}
}

// Apply returns v - lambda*c.
func (p *LinearProx) Apply(v block.Vector) block.Vector {
	x := v.Clone()
	for _, k := range x.Keys() {
		c, ok := p.c[k]
		if !ok {
			continue
		}
		xk := x.Get(k)
		floats.AddScaled(xk, -p.lambda, c)
	}
	return x
}

// ConstantProx is the proximal operator of f = 0, the identity.
type ConstantProx struct{}

// Init is a no-op.
func (ConstantProx) Init(*Arg) {}

// Apply returns a copy of v.
func (ConstantProx) Apply(v block.Vector) block.Vector {
	return v.Clone()
}
