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

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/epsilon-opt/epsilon/epsilon/algorithms/go/admm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, admm.DefaultParams(), c.Params())
	assert.NoError(t, c.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "epsilon.yaml", `
solver:
  rho: 0.5
  max_iterations: 200
  warm_start: true
storage:
  parameter_dir: /tmp/params
logging:
  verbosity: 2
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, c.Solver.Rho)
	assert.Equal(t, 200, c.Solver.MaxIterations)
	assert.True(t, c.Solver.WarmStart)
	assert.Equal(t, Default().Solver.AbsTol, c.Solver.AbsTol)
	assert.Equal(t, "/tmp/params", c.Storage.ParameterDir)
	assert.Equal(t, 2, c.Logging.Verbosity)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "epsilon.json", `{"solver": {"epoch_iterations": 5}}`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Solver.EpochIterations)
}

func TestLoadMalformed(t *testing.T) {
	path := writeFile(t, "epsilon.yaml", "solver: [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("EPSILON_RHO", "2")
	t.Setenv("EPSILON_REL_TOL", "1e-6")
	t.Setenv("EPSILON_EPOCH_ITERATIONS", "1")
	t.Setenv("EPSILON_VLOG", "3")
	t.Setenv("EPSILON_PARAMETER_DIR", "/var/lib/epsilon")
	t.Setenv("EPSILON_WARM_START", "1")

	path := writeFile(t, "epsilon.yaml", "solver:\n  rho: 0.5\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, c.Solver.Rho)
	assert.Equal(t, 1e-6, c.Solver.RelTol)
	assert.Equal(t, 1, c.Solver.EpochIterations)
	assert.Equal(t, 3, c.Logging.Verbosity)
	assert.Equal(t, "/var/lib/epsilon", c.Storage.ParameterDir)
	assert.True(t, c.Solver.WarmStart)
}

func TestLoadEnvMalformed(t *testing.T) {
	t.Setenv("EPSILON_MAX_ITERATIONS", "many")
	_, err := Load("")
	assert.ErrorContains(t, err, "EPSILON_MAX_ITERATIONS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"rho", func(c *Config) { c.Solver.Rho = 0 }},
		{"tolerance", func(c *Config) { c.Solver.AbsTol = -1 }},
		{"epoch", func(c *Config) { c.Solver.EpochIterations = 0 }},
		{"max iterations", func(c *Config) { c.Solver.MaxIterations = -1 }},
		{"verbosity", func(c *Config) { c.Logging.Verbosity = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.modify(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestApplyVerbosity(t *testing.T) {
	f := flag.Lookup("v")
	require.NotNil(t, f, "glog -v flag not registered")
	old := f.Value.String()
	t.Cleanup(func() { flag.Set("v", old) })

	c := Default()
	c.Logging.Verbosity = 2
	require.NoError(t, c.ApplyVerbosity())
	assert.Equal(t, "2", flag.Lookup("v").Value.String())
}
