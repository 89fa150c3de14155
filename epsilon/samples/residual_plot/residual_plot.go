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
// The residual_plot command solves a small two-term problem and plots the
// primal and dual residual history against their tolerances.
package main

import (
	"flag"
	"fmt"

	"github.com/epsilon-opt/epsilon/epsilon/algorithms/go/admm"
	"github.com/epsilon-opt/epsilon/epsilon/expression/go/expression"
	"github.com/epsilon-opt/epsilon/epsilon/parameters/go/parameters"
	log "github.com/golang/glog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var out = flag.String("out", "residuals.png", "output image")

// series returns the points of value over the history, skipping zeros that
// a log scale cannot show.
func series(history []admm.Residuals, value func(admm.Residuals) float64) plotter.XYs {
	var xys plotter.XYs
	for _, r := range history {
		if v := value(r); v > 0 {
			xys = append(xys, plotter.XY{X: float64(r.Iteration), Y: v})
		}
	}
	return xys
}

func residualPlot() error {
	x := expression.Variable(4, 1, "x")
	y := expression.Variable(4, 1, "y")
	problem := &expression.Problem{
		Objective: expression.Add(
			expression.ProxFunc(expression.ProxInvPos, x),
			expression.ProxFunc(expression.ProxNegLog, y),
		),
		Constraints: []*expression.Expression{
			expression.EqConstraint(expression.Add(x, y), expression.ConstantOf(4, 1, 3)),
		},
	}

	params := admm.DefaultParams()
	params.EpochIterations = 1
	params.AbsTol = 1e-6
	params.RelTol = 1e-6
	status, err := admm.NewSolver(problem, params, parameters.NewLocal(), nil).Solve()
	if err != nil {
		return fmt.Errorf("failed to solve the problem: %w", err)
	}
	fmt.Printf("status = %v after %d iterations\n", status.State, status.NumIterations)

	p := plot.New()
	p.Title.Text = "prox-ADMM residuals"
	p.X.Label.Text = "iteration"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{}
	err = plotutil.AddLines(p,
		"primal", series(status.History, func(r admm.Residuals) float64 { return r.Primal }),
		"eps primal", series(status.History, func(r admm.Residuals) float64 { return r.EpsilonPrimal }),
		"dual", series(status.History, func(r admm.Residuals) float64 { return r.Dual }),
		"eps dual", series(status.History, func(r admm.Residuals) float64 { return r.EpsilonDual }),
	)
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, *out); err != nil {
		return fmt.Errorf("failed to save the plot: %w", err)
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

func main() {
	flag.Parse()
	if err := residualPlot(); err != nil {
		log.Exitf("residualPlot returned with error: %v", err)
	}
}

// [END program]
