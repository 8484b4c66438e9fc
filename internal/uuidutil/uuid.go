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

// Package uuidutil generates the file- and level-scoped UUIDs that MEF3
// universal headers carry.
package uuidutil

import "github.com/google/uuid"

// Size is the on-disk width of a MEF3 UUID field.
const Size = 16

// Generate returns 16 raw bytes of a fresh random (v4) UUID, suitable for
// embedding directly into a universal header's file_UUID or level_UUID
// field.
func Generate() [Size]byte {
	var out [Size]byte
	id := uuid.New()
	copy(out[:], id[:])
	return out
}
