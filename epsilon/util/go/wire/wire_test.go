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

package wire

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestForEachField(t *testing.T) {
	var b []byte
	b = AppendVarint(b, 1, 7)
	b = AppendDouble(b, 2, 2.5)
	b = protowire.AppendTag(b, 3, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 9)
	b = AppendString(b, 4, "x")

	type seen struct {
		Num   protowire.Number
		Field Field
	}
	var got []seen
	err := ForEachField(b, func(num protowire.Number, f Field) error {
		got = append(got, seen{num, f})
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachField() returned with unexpected error %v", err)
	}
	want := []seen{
		{1, Field{Varint: 7}},
		{2, Field{Fixed64: 0x4004000000000000}},
		{4, Field{Bytes: []byte("x")}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ForEachField() diff (-want +got):\n%s", diff)
	}
	if got := got[1].Field.Double(); got != 2.5 {
		t.Errorf("Double() = %v, want 2.5", got)
	}
}

func TestForEachFieldMalformed(t *testing.T) {
	testCases := []struct {
		name string
		b    []byte
	}{
		{"truncated tag", []byte{0x80}},
		{"truncated bytes", AppendString(nil, 1, "hello")[:4]},
		{"truncated double", AppendDouble(nil, 1, 1)[:5]},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ForEachField(tc.b, func(protowire.Number, Field) error { return nil })
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("ForEachField() error = %v, want %v", err, ErrMalformed)
			}
		})
	}
}
