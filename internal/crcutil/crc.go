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

// Package crcutil provides the incremental CRC32 primitive used to seal
// MEF3 universal headers and fold streamed block/record bytes into running
// body checksums.
package crcutil

import "hash/crc32"

var table = crc32.MakeTable(crc32.Castagnoli)

// Start is the initial value of a running body CRC, before any bytes have
// been folded into it.
const Start uint32 = 0

// Calculate computes the CRC32/Castagnoli checksum of b from scratch.
func Calculate(b []byte) uint32 {
	return crc32.Checksum(b, table)
}

// Update folds b into a running checksum seeded by prev, returning the new
// running value. Used to keep a file's body_CRC current as blocks/records
// are appended without re-reading everything written so far.
func Update(b []byte, prev uint32) uint32 {
	return crc32.Update(prev, table, b)
}
