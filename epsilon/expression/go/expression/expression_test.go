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
	"errors"
	"fmt"
	"testing"

	"github.com/epsilon-opt/epsilon/epsilon/util/go/check"
	"github.com/epsilon-opt/epsilon/epsilon/util/go/wire"
	"github.com/google/go-cmp/cmp"
)

func TestDims(t *testing.T) {
	x := Variable(3, 1, "x")
	testCases := []struct {
		name string
		expr *Expression
		want Size
	}{
		{"variable", x, Size{3, 1}},
		{"add broadcast", Add(x, ScalarConstant(3)), Size{3, 1}},
		{"add broadcast first", Add(ScalarConstant(3), x), Size{3, 1}},
		{"negate", Negate(x), Size{3, 1}},
		{"multiply scalar", Multiply(ScalarConstant(2), x), Size{3, 1}},
		{"multiply matrix", Multiply(DataConstant(2, 3, ConstantDenseMatrix, "A"), x), Size{2, 1}},
		{"linear map", LinearMap(DenseMap(5, 3, "A"), x), Size{5, 1}},
		{"reshape", Reshape(Variable(2, 3, "X"), 6, 1), Size{6, 1}},
		{"prox function", ProxFunc(ProxInvPos, x), Size{1, 1}},
		{"indicator", EqConstraint(x, ConstantOf(3, 1, 2)), Size{1, 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.expr.Dims(); got != tc.want {
				t.Errorf("Dims() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDimsMismatch(t *testing.T) {
	err := func() (err error) {
		defer check.Recover(&err)
		e := &Expression{Type: TypeAdd, Args: []*Expression{Variable(3, 1, "x"), Variable(2, 1, "y")}}
		e.Dims()
		return nil
	}()
	if !errors.Is(err, check.ErrViolation) {
		t.Errorf("Dims() error = %v, want %v", err, check.ErrViolation)
	}
}

func TestNegateReshapeSimplify(t *testing.T) {
	x := Variable(2, 3, "x")
	if got := Negate(Negate(x)); got != x {
		t.Errorf("Negate(Negate(x)) = %v, want x", got)
	}
	if got := Reshape(Reshape(x, 6, 1), 2, 3); got != x {
		t.Errorf("Reshape(Reshape(x, 6, 1), 2, 3) = %v, want x", got)
	}
}

func TestGetVariables(t *testing.T) {
	x, y := Variable(2, 1, "x"), Variable(2, 1, "y")
	e := Add(Negate(y), Multiply(ScalarConstant(2), x), y, ProxFunc(ProxInvPos, x))
	var got []string
	for _, v := range GetVariables(e) {
		got = append(got, v.VariableID)
	}
	if diff := cmp.Diff([]string{"y", "x"}, got); diff != "" {
		t.Errorf("GetVariables() diff (-want +got):\n%s", diff)
	}
}

func TestProblemWireRoundTrip(t *testing.T) {
	x := Variable(3, 1, "x")
	p := &Problem{
		Objective: Add(
			ProxFunc(ProxInvPos, x),
			ProxEpigraph(ProxNegLog, x, Variable(1, 1, "t")),
			LinearMap(KroneckerMap(ScalarMap(1, -0.5), TransposeMap(DenseMap(3, 3, "A"))), x)),
		Constraints: []*Expression{
			EqConstraint(x, DataConstant(3, 1, ConstantDenseMatrix, "b")),
			EqConstraint(Reshape(x, 1, 3), ConstantOf(1, 3, 2)),
		},
	}
	got, err := UnmarshalProblem(MarshalProblem(p))
	if err != nil {
		t.Fatalf("UnmarshalProblem() returned with unexpected error %v", err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("UnmarshalProblem(MarshalProblem()) diff (-want +got):\n%s", diff)
	}
}

func TestUnmarshalProblemMalformed(t *testing.T) {
	b := MarshalProblem(&Problem{Objective: Add(Variable(1, 1, "x"))})
	if _, err := UnmarshalProblem(b[:len(b)-2]); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("UnmarshalProblem(truncated) error = %v, want %v", err, wire.ErrMalformed)
	}
}

func TestString(t *testing.T) {
	e := Add(ProxFunc(ProxInvPos, Variable(3, 1, "x")), ScalarConstant(1))
	want := "ADD\n  PROX_FUNCTION INV_POS\n    VARIABLE x 3x1\n  CONSTANT 1 1x1\n"
	if got := e.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func ExampleEqConstraint() {
	x := Variable(3, 1, "x")
	fmt.Print(EqConstraint(x, ConstantOf(3, 1, 2)))
	// Output:
	// INDICATOR ZERO
	//   ADD
	//     VARIABLE x 3x1
	//     NEGATE
	//       CONSTANT 2 3x1
}
