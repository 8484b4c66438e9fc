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

// Package red implements the RED (range-encoding-based) block codec as a
// self-contained collaborator with the contract describe: given a
// buffer of signed 32-bit native samples it returns a compressed byte blob
// plus a block header (bytes, difference_bytes, flags), and it can locate a
// block's min/max without decompressing. It is lossless (round-trip law
// R1).
//
// The real MEF3 RED codec is range coding over a difference (delta)
// transform; this port keeps the same two-stage shape (delta transform,
// then a variable-width pack of the deltas) using the varint/zigzag
// toolbox the teacher's own block and postings encoders use
// (vendor/github.com/fabxc/tsdb/writer.go, index.go), rather than reaching
// for a general-purpose compression library that would misrepresent the
// wire format (see SPEC_FULL.md DOMAIN STACK).
package red

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Flag bits carried in a BlockHeader.
const (
	FlagDiscontinuity uint8 = 1 << 0
)

// BlockHeader describes one compressed block, independent of where it is
// later persisted.
type BlockHeader struct {
	StartTime       int64
	NumberOfSamples uint32
	BlockBytes      uint32
	DifferenceBytes uint32
	Flags           uint8
}

// Discontinuous reports whether FlagDiscontinuity is set.
func (h BlockHeader) Discontinuous() bool { return h.Flags&FlagDiscontinuity != 0 }

// Extrema holds the minimum and maximum raw sample values of a block,
// computed by FindExtrema (mirrors RED_find_extrema / TIME_SERIES_INDEX).
type Extrema struct {
	Min int32
	Max int32
}

// FindExtrema scans samples once and returns their minimum and maximum.
// Called on the pre-compression buffer.
func FindExtrema(samples []int32) Extrema {
	if len(samples) == 0 {
		return Extrema{}
	}
	e := Extrema{Min: samples[0], Max: samples[0]}
	for _, s := range samples[1:] {
		if s < e.Min {
			e.Min = s
		}
		if s > e.Max {
			e.Max = s
		}
	}
	return e
}

// zigzag maps a signed delta to an unsigned value so small magnitude
// deltas of either sign encode to few varint bytes.
func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// Encode compresses samples into a self-describing byte blob and returns
// the accompanying block header. discontinuity and startTime are recorded
// in the header as given by the caller (the channel writer decides them,
// boundary algorithm); Encode does not interpret them beyond storing
// them in Flags/StartTime.
func Encode(samples []int32, discontinuity bool, startTime int64) ([]byte, BlockHeader, error) {
	if len(samples) == 0 {
		return nil, BlockHeader{}, errors.New("red: cannot encode an empty block")
	}

	// Stage 1: delta transform against the previous sample (first sample
	// is a delta from zero), zigzag-mapped to unsigned.
	deltaBuf := make([]byte, 0, len(samples)*2)
	var prev int64
	varintScratch := make([]byte, binary.MaxVarintLen64)
	for _, s := range samples {
		delta := int64(s) - prev
		prev = int64(s)
		n := binary.PutUvarint(varintScratch, zigzagEncode(delta))
		deltaBuf = append(deltaBuf, varintScratch[:n]...)
	}
	differenceBytes := uint32(len(deltaBuf))

	// Stage 2: pack a small fixed preamble (sample count) ahead of the
	// delta stream; this is the full "compressed" block payload that gets
	// appended to the .tdat file.
	out := make([]byte, 0, 4+len(deltaBuf))
	countBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBuf, uint32(len(samples)))
	out = append(out, countBuf...)
	out = append(out, deltaBuf...)

	flags := uint8(0)
	if discontinuity {
		flags |= FlagDiscontinuity
	}

	header := BlockHeader{
		StartTime:       startTime,
		NumberOfSamples: uint32(len(samples)),
		BlockBytes:      uint32(len(out)),
		DifferenceBytes: differenceBytes,
		Flags:           flags,
	}
	return out, header, nil
}

// Decode restores the original sample sequence from a blob produced by
// Encode. Lossless by construction (R1): the delta/zigzag/varint transform
// has no lossy step.
func Decode(compressed []byte) ([]int32, error) {
	if len(compressed) < 4 {
		return nil, errors.New("red: compressed block shorter than its preamble")
	}
	n := binary.LittleEndian.Uint32(compressed[0:4])
	samples := make([]int32, 0, n)

	buf := compressed[4:]
	var prev int64
	for i := uint32(0); i < n; i++ {
		v, k := binary.Uvarint(buf)
		if k <= 0 {
			return nil, errors.Errorf("red: corrupt varint at sample %d", i)
		}
		buf = buf[k:]
		delta := zigzagDecode(v)
		prev += delta
		samples = append(samples, int32(prev))
	}
	return samples, nil
}
