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

package admm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	solvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epsilon_admm_solves_total",
		Help: "Completed solves by final state",
	}, []string{"state"})

	solveIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "epsilon_admm_iterations",
		Help:    "Sweeps per solve",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	solveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "epsilon_admm_solve_duration_seconds",
		Help:    "Solve wall time",
		Buckets: prometheus.ExponentialBuckets(0.0001, 10, 8),
	})
)

func observe(s *Status) {
	solvesTotal.WithLabelValues(s.State.String()).Inc()
	solveIterations.Observe(float64(s.NumIterations))
	solveDuration.Observe(s.SolveTime.Seconds())
}
