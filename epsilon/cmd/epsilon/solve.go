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

package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/epsilon-opt/epsilon/epsilon/config/go/config"
	"github.com/epsilon-opt/epsilon/epsilon/parameters/go/parameters"
	"github.com/epsilon-opt/epsilon/epsilon/solve/go/solve"
	log "github.com/golang/glog"
	"github.com/spf13/cobra"
)

type solveOptions struct {
	problem      string
	configPath   string
	data         []string
	parameterDir string
	output       string
}

func newSolveCmd() *cobra.Command {
	opts := &solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve an encoded problem",
		Long: `Solve reads an encoded problem, solves it and prints the solver status
and the value of every variable. Data blobs referenced by the problem's
constants are passed as --data location=path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("v") {
				if err := cfg.ApplyVerbosity(); err != nil {
					return err
				}
			}
			if opts.parameterDir != "" {
				cfg.Storage.ParameterDir = opts.parameterDir
			}
			return runSolve(cmd.OutOrStdout(), opts, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.problem, "problem", "", "encoded problem file")
	f.StringVar(&opts.configPath, "config", "", "YAML or JSON config file")
	f.StringArrayVar(&opts.data, "data", nil, "data blob as location=path, repeatable")
	f.StringVar(&opts.parameterDir, "parameter-dir", "", "persistent parameter store directory")
	f.StringVar(&opts.output, "output", "", "directory to write variables to as <id>.bin")
	cmd.MarkFlagRequired("problem")
	return cmd
}

func runSolve(w io.Writer, opts *solveOptions, cfg config.Config) error {
	problem, err := os.ReadFile(opts.problem)
	if err != nil {
		return fmt.Errorf("reading problem: %w", err)
	}
	blobs, err := readData(opts.data)
	if err != nil {
		return err
	}

	var svc parameters.Service = parameters.NewLocal()
	if dir := cfg.Storage.ParameterDir; dir != "" {
		store, err := parameters.Open(dir)
		if err != nil {
			return err
		}
		defer store.Close()
		svc = store
	}

	statusBytes, vars, err := solve.ProxADMMSolve(problem, solve.MarshalParams(cfg.Params()), blobs, svc)
	if err != nil {
		return err
	}
	status, err := solve.UnmarshalStatus(statusBytes)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "problem_id: %016x\n%v", status.ProblemID, &status.Status)
	return writeVariables(w, opts.output, vars)
}

func readData(specs []string) (map[string][]byte, error) {
	blobs := map[string][]byte{}
	for _, s := range specs {
		location, path, ok := strings.Cut(s, "=")
		if !ok || location == "" || path == "" {
			return nil, fmt.Errorf("--data %q: want location=path", s)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading data %q: %w", location, err)
		}
		blobs[location] = b
	}
	return blobs, nil
}

func writeVariables(w io.Writer, dir string, vars map[string][]byte) error {
	if dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(vars)) {
		if dir != "" {
			path := filepath.Join(dir, id+".bin")
			if err := os.WriteFile(path, vars[id], 0640); err != nil {
				return fmt.Errorf("writing %q: %w", id, err)
			}
			log.V(1).Infof("Wrote %s", path)
			continue
		}
		x, err := parameters.DecodeFloats(vars[id])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %v\n", id, x)
	}
	return nil
}
