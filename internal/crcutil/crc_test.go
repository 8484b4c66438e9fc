// Copyright 2024 The mefwriter Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crcutil

import "testing"

func TestUpdateMatchesCalculateOnConcatenation(t *testing.T) {
	a := []byte("first segment of bytes")
	b := []byte("second segment of bytes")

	got := Update(b, Update(a, Start))
	want := Calculate(append(append([]byte{}, a...), b...))

	if got != want {
		t.Fatalf("incremental CRC %d != whole-buffer CRC %d", got, want)
	}
}

func TestCalculateEmpty(t *testing.T) {
	if Calculate(nil) != 0 {
		t.Fatalf("expected CRC of empty input to be 0")
	}
}
