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

// Package solve is the serialized entry point of the solver: an encoded
// problem, encoded parameters and named data blobs in; an encoded status and
// the raw values of every variable out.
package solve

import (
	"context"
	"fmt"

	"github.com/epsilon-opt/epsilon/epsilon/algorithms/go/admm"
	"github.com/epsilon-opt/epsilon/epsilon/data/go/data"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/parameters/go/parameters"
	log "github.com/golang/glog"
)

// ProxADMMSolve decodes problem and params, makes data available to the
// problem's data-backed constants and solves with prox-ADMM. Solutions are
// written to svc, or to a fresh in-process service if svc is nil.
//
// vars maps every variable id of the problem to its value as little-endian
// float64s. Reaching the iteration limit is reported in the status, not as
// an error.
func ProxADMMSolve(problem, params []byte, blobs map[string][]byte, svc parameters.Service) (status []byte, vars map[string][]byte, err error) {
	return ProxADMMSolveContext(context.Background(), problem, params, blobs, svc)
}

// ProxADMMSolveContext is ProxADMMSolve with cancellation.
func ProxADMMSolveContext(ctx context.Context, problem, params []byte, blobs map[string][]byte, svc parameters.Service) (status []byte, vars map[string][]byte, err error) {
	p, err := expression.UnmarshalProblem(problem)
	if err != nil {
		return nil, nil, err
	}
	prm, err := UnmarshalParams(params)
	if err != nil {
		return nil, nil, err
	}
	store := data.NewMemoryStore()
	if err := data.LoadBlobs(ctx, store, blobs); err != nil {
		return nil, nil, fmt.Errorf("loading data: %w", err)
	}
	if svc == nil {
		svc = parameters.NewLocal()
	}

	solver := admm.NewSolver(p, prm, svc, data.NewSource(store))
	st, err := solver.SolveContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	vars = map[string][]byte{}
	for _, v := range problemVariables(p) {
		x, err := svc.Fetch(parameters.VariableParameterID(solver.ProblemID(), v))
		if err != nil {
			return nil, nil, fmt.Errorf("reading %q: %w", v, err)
		}
		vars[v] = parameters.EncodeFloats(x)
	}
	log.V(1).Infof("solved problem %016x: %v", solver.ProblemID(), st.State)
	return MarshalStatus(st, solver.ProblemID()), vars, nil
}

// problemVariables returns the variable ids of p in order of first
// occurrence, objective first.
func problemVariables(p *expression.Problem) []string {
	var ids []string
	seen := map[string]bool{}
	add := func(e *expression.Expression) {
		if e == nil {
			return
		}
		for _, v := range expression.GetVariables(e) {
			if !seen[v.VariableID] {
				seen[v.VariableID] = true
				ids = append(ids, v.VariableID)
			}
		}
	}
	add(p.Objective)
	for _, c := range p.Constraints {
		add(c)
	}
	return ids
}
