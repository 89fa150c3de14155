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

package solve

import (
	"fmt"
	"time"

	"github.com/epsilon-opt/epsilon/epsilon/algorithms/go/admm"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/wire"
	"google.golang.org/protobuf/encoding/protowire"
)

// Parameters and status use the protocol buffer wire format with these
// field numbers:
//
//	message SolverParams { double rho = 1; int64 max_iterations = 2;
//	                       int64 epoch_iterations = 3; double abs_tol = 4;
//	                       double rel_tol = 5; bool warm_start = 6; }
//	message SolverStatus { State state = 1; int64 num_iterations = 2;
//	                       Residuals residuals = 3; repeated Residuals history = 4;
//	                       int64 solve_time_micros = 5; fixed64 problem_id = 6; }
//	message Residuals    { double r_norm = 1; double s_norm = 2;
//	                       double epsilon_primal = 3; double epsilon_dual = 4;
//	                       int64 iteration = 5; }

// MarshalParams encodes p.
func MarshalParams(p admm.Params) []byte {
	var b []byte
	b = wire.AppendDouble(b, 1, p.Rho)
	b = wire.AppendVarint(b, 2, uint64(p.MaxIterations))
	b = wire.AppendVarint(b, 3, uint64(p.EpochIterations))
	b = wire.AppendDouble(b, 4, p.AbsTol)
	b = wire.AppendDouble(b, 5, p.RelTol)
	if p.WarmStart {
		b = wire.AppendVarint(b, 6, protowire.EncodeBool(true))
	}
	return b
}

// UnmarshalParams decodes parameters. Fields absent from b keep their
// default values.
func UnmarshalParams(b []byte) (admm.Params, error) {
	p := admm.DefaultParams()
	err := wire.ForEachField(b, func(num protowire.Number, f wire.Field) error {
		switch num {
		case 1:
			p.Rho = f.Double()
		case 2:
			p.MaxIterations = int(f.Varint)
		case 3:
			p.EpochIterations = int(f.Varint)
		case 4:
			p.AbsTol = f.Double()
		case 5:
			p.RelTol = f.Double()
		case 6:
			p.WarmStart = protowire.DecodeBool(f.Varint)
		}
		return nil
	})
	if err != nil {
		return admm.Params{}, fmt.Errorf("decoding solver params: %w", err)
	}
	return p, nil
}

// Status is the decoded form of an encoded solver status.
type Status struct {
	admm.Status
	ProblemID uint64
}

// MarshalStatus encodes the status of the solve of problemID.
func MarshalStatus(s *admm.Status, problemID uint64) []byte {
	var b []byte
	b = wire.AppendVarint(b, 1, uint64(s.State))
	b = wire.AppendVarint(b, 2, uint64(s.NumIterations))
	b = wire.AppendMessage(b, 3, appendResiduals(nil, s.Residuals))
	for _, r := range s.History {
		b = wire.AppendMessage(b, 4, appendResiduals(nil, r))
	}
	b = wire.AppendVarint(b, 5, uint64(s.SolveTime.Microseconds()))
	b = wire.AppendFixed64(b, 6, problemID)
	return b
}

// UnmarshalStatus decodes a status encoded by MarshalStatus.
func UnmarshalStatus(b []byte) (*Status, error) {
	s := &Status{}
	err := wire.ForEachField(b, func(num protowire.Number, f wire.Field) error {
		switch num {
		case 1:
			s.State = admm.State(f.Varint)
		case 2:
			s.NumIterations = int(f.Varint)
		case 3:
			r, err := unmarshalResiduals(f.Bytes)
			if err != nil {
				return err
			}
			s.Residuals = r
		case 4:
			r, err := unmarshalResiduals(f.Bytes)
			if err != nil {
				return err
			}
			s.History = append(s.History, r)
		case 5:
			s.SolveTime = time.Duration(f.Varint) * time.Microsecond
		case 6:
			s.ProblemID = f.Fixed64
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding solver status: %w", err)
	}
	return s, nil
}

func appendResiduals(b []byte, r admm.Residuals) []byte {
	b = wire.AppendDouble(b, 1, r.Primal)
	b = wire.AppendDouble(b, 2, r.Dual)
	b = wire.AppendDouble(b, 3, r.EpsilonPrimal)
	b = wire.AppendDouble(b, 4, r.EpsilonDual)
	b = wire.AppendVarint(b, 5, uint64(r.Iteration))
	return b
}

func unmarshalResiduals(b []byte) (admm.Residuals, error) {
	var r admm.Residuals
	err := wire.ForEachField(b, func(num protowire.Number, f wire.Field) error {
		switch num {
		case 1:
			r.Primal = f.Double()
		case 2:
			r.Dual = f.Double()
		case 3:
			r.EpsilonPrimal = f.Double()
		case 4:
			r.EpsilonDual = f.Double()
		case 5:
			r.Iteration = int(f.Varint)
		}
		return nil
	})
	return r, err
}
