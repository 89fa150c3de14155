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

// [START program]
// The inv_pos command minimizes sum(1/x) subject to sum(x) == 3, with the
// constraint row passed as a data blob.
package main

import (
	"fmt"

	"github.com/epsilon-opt/epsilon/epsilon/algorithms/go/admm"
	"github.com/epsilon-opt/epsilon/epsilon/data/go/data"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/parameters/go/parameters"
	"github.com/epsilon-opt/epsilon/epsilon/solve/go/solve"
	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"
)

func invPos() error {
	x := expression.Variable(3, 1, "x")
	sum := expression.LinearMap(expression.DenseMap(1, 3, "A"), x)
	problem := &expression.Problem{
		Objective:   expression.Add(expression.ProxFunc(expression.ProxInvPos, x)),
		Constraints: []*expression.Expression{expression.EqConstraint(sum, expression.ScalarConstant(3))},
	}
	blobs := map[string][]byte{
		"A": data.EncodeDense(mat.NewDense(1, 3, []float64{1, 1, 1})),
	}

	params := admm.DefaultParams()
	params.RelTol = 1e-4
	params.MaxIterations = 10000
	statusBytes, vars, err := solve.ProxADMMSolve(expression.MarshalProblem(problem), solve.MarshalParams(params), blobs, nil)
	if err != nil {
		return fmt.Errorf("failed to solve the problem: %w", err)
	}
	status, err := solve.UnmarshalStatus(statusBytes)
	if err != nil {
		return err
	}
	xs, err := parameters.DecodeFloats(vars["x"])
	if err != nil {
		return err
	}

	fmt.Printf("status = %v after %d iterations\n", status.State, status.NumIterations)
	fmt.Printf("x = %.4f\n", xs)
	return nil
}

func main() {
	if err := invPos(); err != nil {
		log.Exitf("invPos returned with error: %v", err)
	}
}

// [END program]
