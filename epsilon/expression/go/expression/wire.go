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

package expression

import (
	"fmt"

	"github.com/epsilon-opt/epsilon/epsilon/util/go/wire"
	"google.golang.org/protobuf/encoding/protowire"
)

// Problems are encoded in the protocol buffer wire format with the field
// numbers below, so that they can be produced by any protobuf
// implementation from the equivalent message definitions.
//
//	message Problem       { Expression objective = 1; repeated Expression constraint = 2; }
//	message Expression    { Type type = 1; repeated Expression arg = 2; Size size = 3;
//	                        string variable_id = 4; Constant constant = 5;
//	                        LinearMap linear_map = 6; ConeType cone = 7;
//	                        ProxFunction prox_function = 8; }
//	message Size          { int64 m = 1; int64 n = 2; }
//	message Constant      { ConstantType type = 1; double scalar = 2; string data_location = 3; }
//	message LinearMap     { LinearMapType type = 1; int64 m = 2; int64 n = 3; double scalar = 4;
//	                        Constant constant = 5; repeated LinearMap arg = 6; }
//	message ProxFunction  { ProxFunctionType type = 1; bool epigraph = 2; }

// MarshalProblem encodes p.
func MarshalProblem(p *Problem) []byte {
	var b []byte
	if p.Objective != nil {
		b = wire.AppendMessage(b, 1, appendExpression(nil, p.Objective))
	}
	for _, c := range p.Constraints {
		b = wire.AppendMessage(b, 2, appendExpression(nil, c))
	}
	return b
}

// UnmarshalProblem decodes a problem encoded by MarshalProblem.
func UnmarshalProblem(b []byte) (*Problem, error) {
	p := &Problem{}
	err := wire.ForEachField(b, func(num protowire.Number, f wire.Field) error {
		switch num {
		case 1:
			e, err := unmarshalExpression(f.Bytes)
			if err != nil {
				return err
			}
			p.Objective = e
		case 2:
			e, err := unmarshalExpression(f.Bytes)
			if err != nil {
				return err
			}
			p.Constraints = append(p.Constraints, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decoding problem: %w", err)
	}
	return p, nil
}

func appendExpression(b []byte, e *Expression) []byte {
	b = wire.AppendVarint(b, 1, uint64(e.Type))
	for _, arg := range e.Args {
		b = wire.AppendMessage(b, 2, appendExpression(nil, arg))
	}
	if e.Size != (Size{}) {
		var s []byte
		s = wire.AppendVarint(s, 1, uint64(e.Size.M))
		s = wire.AppendVarint(s, 2, uint64(e.Size.N))
		b = wire.AppendMessage(b, 3, s)
	}
	if e.VariableID != "" {
		b = wire.AppendString(b, 4, e.VariableID)
	}
	if e.Constant != nil {
		b = wire.AppendMessage(b, 5, appendConstant(nil, e.Constant))
	}
	if e.LinearMap != nil {
		b = wire.AppendMessage(b, 6, appendLinearMap(nil, e.LinearMap))
	}
	if e.Cone != ConeUnknown {
		b = wire.AppendVarint(b, 7, uint64(e.Cone))
	}
	if e.ProxFunction != nil {
		var f []byte
		f = wire.AppendVarint(f, 1, uint64(e.ProxFunction.Type))
		f = wire.AppendVarint(f, 2, protowire.EncodeBool(e.ProxFunction.Epigraph))
		b = wire.AppendMessage(b, 8, f)
	}
	return b
}

func unmarshalExpression(b []byte) (*Expression, error) {
	e := &Expression{}
	err := wire.ForEachField(b, func(num protowire.Number, f wire.Field) error {
		switch num {
		case 1:
			e.Type = Type(f.Varint)
		case 2:
			arg, err := unmarshalExpression(f.Bytes)
			if err != nil {
				return err
			}
			e.Args = append(e.Args, arg)
		case 3:
			return wire.ForEachField(f.Bytes, func(num protowire.Number, f wire.Field) error {
				switch num {
				case 1:
					e.Size.M = int(f.Varint)
				case 2:
					e.Size.N = int(f.Varint)
				}
				return nil
			})
		case 4:
			e.VariableID = string(f.Bytes)
		case 5:
			c, err := unmarshalConstant(f.Bytes)
			if err != nil {
				return err
			}
			e.Constant = c
		case 6:
			l, err := unmarshalLinearMap(f.Bytes)
			if err != nil {
				return err
			}
			e.LinearMap = l
		case 7:
			e.Cone = ConeType(f.Varint)
		case 8:
			e.ProxFunction = &ProxFunction{}
			return wire.ForEachField(f.Bytes, func(num protowire.Number, f wire.Field) error {
				switch num {
				case 1:
					e.ProxFunction.Type = ProxFunctionType(f.Varint)
				case 2:
					e.ProxFunction.Epigraph = protowire.DecodeBool(f.Varint)
				}
				return nil
			})
		}
		return nil
	})
	return e, err
}

func appendConstant(b []byte, c *Constant) []byte {
	b = wire.AppendVarint(b, 1, uint64(c.Type))
	b = wire.AppendDouble(b, 2, c.Scalar)
	if c.DataLocation != "" {
		b = wire.AppendString(b, 3, c.DataLocation)
	}
	return b
}

func unmarshalConstant(b []byte) (*Constant, error) {
	c := &Constant{}
	err := wire.ForEachField(b, func(num protowire.Number, f wire.Field) error {
		switch num {
		case 1:
			c.Type = ConstantType(f.Varint)
		case 2:
			c.Scalar = f.Double()
		case 3:
			c.DataLocation = string(f.Bytes)
		}
		return nil
	})
	return c, err
}

func appendLinearMap(b []byte, l *LinearMapSpec) []byte {
	b = wire.AppendVarint(b, 1, uint64(l.Type))
	b = wire.AppendVarint(b, 2, uint64(l.M))
	b = wire.AppendVarint(b, 3, uint64(l.N))
	b = wire.AppendDouble(b, 4, l.Scalar)
	if l.Constant != nil {
		b = wire.AppendMessage(b, 5, appendConstant(nil, l.Constant))
	}
	for _, arg := range l.Args {
		b = wire.AppendMessage(b, 6, appendLinearMap(nil, arg))
	}
	return b
}

func unmarshalLinearMap(b []byte) (*LinearMapSpec, error) {
	l := &LinearMapSpec{}
	err := wire.ForEachField(b, func(num protowire.Number, f wire.Field) error {
		switch num {
		case 1:
			l.Type = LinearMapType(f.Varint)
		case 2:
			l.M = int(f.Varint)
		case 3:
			l.N = int(f.Varint)
		case 4:
			l.Scalar = f.Double()
		case 5:
			c, err := unmarshalConstant(f.Bytes)
			if err != nil {
				return err
			}
			l.Constant = c
		case 6:
			arg, err := unmarshalLinearMap(f.Bytes)
			if err != nil {
				return err
			}
			l.Args = append(l.Args, arg)
		}
		return nil
	})
	return l, err
}
