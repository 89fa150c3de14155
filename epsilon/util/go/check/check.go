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

// Package check reports violated internal invariants.
//
// The numerical core assumes its input was produced and validated by an
// upstream compiler. A malformed operator or expression is not a runtime
// condition the core tries to tolerate: the checks in this package panic with
// a *Violation, and a public entry point converts the panic into an error with
// Recover.
package check

import (
	"errors"
	"fmt"

	log "github.com/golang/glog"
)

// ErrViolation is matched by errors.Is for every error produced by Recover.
var ErrViolation = errors.New("internal invariant violated")

// Violation is the panic value raised by a failed check.
type Violation struct {
	Msg string
}

func (v *Violation) Error() string {
	return "CHECK failed: " + v.Msg
}

// Unwrap returns ErrViolation.
func (v *Violation) Unwrap() error {
	return ErrViolation
}

// Failf panics with a Violation carrying the formatted message.
func Failf(format string, args ...any) {
	panic(&Violation{Msg: fmt.Sprintf(format, args...)})
}

// True panics with a Violation if cond is false.
func True(cond bool, format string, args ...any) {
	if !cond {
		Failf(format, args...)
	}
}

// EqInt panics with a Violation if want != got.
func EqInt(want, got int, what string) {
	if want != got {
		Failf("%s: %d != %d", what, want, got)
	}
}

// Recover converts a Violation panic into an error stored in *err. Any other
// panic value is re-raised. It must be called directly by a deferred
// statement:
//
//	defer check.Recover(&err)
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	v, ok := r.(*Violation)
	if !ok {
		panic(r)
	}
	log.Errorf("%v", v)
	*err = v
}
