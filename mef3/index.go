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

package mef3

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// IndexEntryBytes is the fixed width of one .tidx record. The byte layout
// is a binary contract and must be preserved exactly.
//
// Layout (little-endian):
//
//	0  file_offset         uint64
//	8  start_time          int64
//	16 start_sample        int64
//	24 number_of_samples   uint32
//	28 block_bytes         uint32
//	32 max_sample_value    int32
//	36 min_sample_value    int32
//	40 reserved            uint32 (zero)
//	44 flags               uint8
//	45 protected_region    [4]byte
//	49 discretionary_region [7]byte
const IndexEntryBytes = 56

const (
	protectedRegionBytes     = 4
	discretionaryRegionBytes = 7
)

// Flag bits stored in an index entry's flags byte.
const (
	FlagDiscontinuity uint8 = 1 << 0
)

// IndexEntry is one fixed-width .tidx record describing a single written
// block.
type IndexEntry struct {
	FileOffset      uint64
	StartTime       int64
	StartSample     int64
	NumberOfSamples uint32
	BlockBytes      uint32
	MaxSampleValue  int32
	MinSampleValue  int32
	Flags           uint8
}

// MarshalBinary encodes the entry as the fixed 56-byte wire record.
func (e IndexEntry) MarshalBinary() ([]byte, error) {
	buf := make([]byte, IndexEntryBytes)
	binary.LittleEndian.PutUint64(buf[0:], e.FileOffset)
	binary.LittleEndian.PutUint64(buf[8:], uint64(e.StartTime))
	binary.LittleEndian.PutUint64(buf[16:], uint64(e.StartSample))
	binary.LittleEndian.PutUint32(buf[24:], e.NumberOfSamples)
	binary.LittleEndian.PutUint32(buf[28:], e.BlockBytes)
	binary.LittleEndian.PutUint32(buf[32:], uint32(e.MaxSampleValue))
	binary.LittleEndian.PutUint32(buf[36:], uint32(e.MinSampleValue))
	// bytes 40..44 reserved, left zero.
	buf[44] = e.Flags
	// bytes 45..56 are the protected/discretionary regions, left zero.
	return buf, nil
}

// UnmarshalBinary decodes a 56-byte wire record into e.
func (e *IndexEntry) UnmarshalBinary(buf []byte) error {
	if len(buf) < IndexEntryBytes {
		return errors.Errorf("mef3: index entry buffer too short: %d < %d", len(buf), IndexEntryBytes)
	}
	e.FileOffset = binary.LittleEndian.Uint64(buf[0:])
	e.StartTime = int64(binary.LittleEndian.Uint64(buf[8:]))
	e.StartSample = int64(binary.LittleEndian.Uint64(buf[16:]))
	e.NumberOfSamples = binary.LittleEndian.Uint32(buf[24:])
	e.BlockBytes = binary.LittleEndian.Uint32(buf[28:])
	e.MaxSampleValue = int32(binary.LittleEndian.Uint32(buf[32:]))
	e.MinSampleValue = int32(binary.LittleEndian.Uint32(buf[36:]))
	e.Flags = buf[44]
	return nil
}
