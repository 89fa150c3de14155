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

// Package config loads solver, storage and logging settings from a YAML or
// JSON file with environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/epsilon-opt/epsilon/epsilon/algorithms/go/admm"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of an epsilon program.
type Config struct {
	Solver  SolverConfig  `json:"solver" yaml:"solver"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SolverConfig holds the prox-ADMM parameters.
type SolverConfig struct {
	Rho             float64 `json:"rho" yaml:"rho"`
	AbsTol          float64 `json:"abs_tol" yaml:"abs_tol"`
	RelTol          float64 `json:"rel_tol" yaml:"rel_tol"`
	MaxIterations   int     `json:"max_iterations" yaml:"max_iterations"`
	EpochIterations int     `json:"epoch_iterations" yaml:"epoch_iterations"`
	WarmStart       bool    `json:"warm_start" yaml:"warm_start"`
}

// StorageConfig selects where solutions are written.
type StorageConfig struct {
	// ParameterDir is the directory of the persistent parameter store. Empty
	// keeps parameters in process memory.
	ParameterDir string `json:"parameter_dir" yaml:"parameter_dir"`
}

// LoggingConfig controls glog.
type LoggingConfig struct {
	// Verbosity is the glog -v level.
	Verbosity int `json:"verbosity" yaml:"verbosity"`
}

// Default returns the default configuration.
func Default() Config {
	p := admm.DefaultParams()
	return Config{
		Solver: SolverConfig{
			Rho:             p.Rho,
			AbsTol:          p.AbsTol,
			RelTol:          p.RelTol,
			MaxIterations:   p.MaxIterations,
			EpochIterations: p.EpochIterations,
			WarmStart:       p.WarmStart,
		},
	}
}

// Load returns the defaults overridden by the file at path, if any, and then
// by the environment. A missing file is not an error.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		if err := loadFile(path, &c); err != nil {
			return c, fmt.Errorf("loading config file: %w", err)
		}
	}
	if err := loadEnv(&c); err != nil {
		return c, fmt.Errorf("reading environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

func loadFile(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		if jsonErr := json.Unmarshal(b, c); jsonErr != nil {
			return fmt.Errorf("parse %s (tried YAML and JSON): YAML error: %v, JSON error: %w", path, err, jsonErr)
		}
	}
	return nil
}

func loadEnv(c *Config) error {
	var errs []error
	float := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}
	integer := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = i
		}
	}
	float("EPSILON_RHO", &c.Solver.Rho)
	float("EPSILON_ABS_TOL", &c.Solver.AbsTol)
	float("EPSILON_REL_TOL", &c.Solver.RelTol)
	integer("EPSILON_MAX_ITERATIONS", &c.Solver.MaxIterations)
	integer("EPSILON_EPOCH_ITERATIONS", &c.Solver.EpochIterations)
	integer("EPSILON_VLOG", &c.Logging.Verbosity)
	if v := os.Getenv("EPSILON_WARM_START"); v != "" {
		c.Solver.WarmStart = v == "true" || v == "1"
	}
	if v := os.Getenv("EPSILON_PARAMETER_DIR"); v != "" {
		c.Storage.ParameterDir = v
	}
	return errors.Join(errs...)
}

// Validate reports invalid settings.
func (c Config) Validate() error {
	if c.Logging.Verbosity < 0 {
		return fmt.Errorf("verbosity must be >= 0, got %d", c.Logging.Verbosity)
	}
	return c.Params().Validate()
}

// Params returns the solver parameters.
func (c Config) Params() admm.Params {
	return admm.Params{
		Rho:             c.Solver.Rho,
		AbsTol:          c.Solver.AbsTol,
		RelTol:          c.Solver.RelTol,
		MaxIterations:   c.Solver.MaxIterations,
		EpochIterations: c.Solver.EpochIterations,
		WarmStart:       c.Solver.WarmStart,
	}
}

// ApplyVerbosity sets the glog verbosity. It must be called after
// flag.Parse, and an explicit -v on the command line wins.
func (c Config) ApplyVerbosity() error {
	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "v" {
			explicit = true
		}
	})
	if explicit {
		return nil
	}
	return flag.Set("v", strconv.Itoa(c.Logging.Verbosity))
}
