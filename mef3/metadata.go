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
	"math"

	"github.com/pkg/errors"
)

// descFieldBytes is the fixed width of each descriptive string field
// persisted in a metadata section, matching the universal header's own
// over-provisioned name-field convention.
const descFieldBytes = 256

func putDescString(buf []byte, s string) {
	for i := range buf {
		buf[i] = 0
	}
	copy(buf, s)
}

func getDescString(buf []byte) string {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}

// NoNativeValue marks a min/max native sample aggregate that has not yet
// received a first real sample, mirroring the reference implementation's
// convention of testing against NaN rather than a separate presence flag.
var NoNativeValue = math.NaN()

// Section2 is metadata section 2 (time-series): the live aggregates the
// channel writer maintains across every block it writes.
type Section2 struct {
	SamplingFrequency    float64
	BlockIntervalUs      int64
	UnitsConversionFactor float64
	LowFrequencyFilterHz  float64
	HighFrequencyFilterHz float64
	NotchFilterHz         float64
	ACLineFrequencyHz     float64

	ChannelDescription string
	SessionDescription string
	UnitsDescription   string

	AcquisitionChannelNumber int32

	StartSample      int64
	NumberOfSamples  uint64
	NumberOfBlocks   uint64

	MaximumBlockBytes        uint32
	MaximumBlockSamples      uint32
	MaximumDifferenceBytes   uint32
	NumberOfDiscontinuities  uint64

	MaximumContiguousBlocks       uint32
	MaximumContiguousBlockBytes   uint64
	MaximumContiguousSamples      uint64

	MinimumNativeSampleValue float64
	MaximumNativeSampleValue float64

	RecordingDurationUs int64
}

// NewSection2 returns a Section2 with every running aggregate reset to its
// "no entry" starting point.
func NewSection2() *Section2 {
	return &Section2{
		MinimumNativeSampleValue: NoNativeValue,
		MaximumNativeSampleValue: NoNativeValue,
		RecordingDurationUs:      NoEntryTime,
	}
}

// ResetAggregates zeroes every running aggregate while preserving the
// descriptive fields (sampling frequency, filters, units, block interval),
// used by segment rollover and by append_channel's initial
// clone of a previous segment's descriptive fields.
func (s *Section2) ResetAggregates(startSample int64) {
	s.StartSample = startSample
	s.NumberOfSamples = 0
	s.NumberOfBlocks = 0
	s.MaximumBlockBytes = 0
	s.MaximumBlockSamples = 0
	s.MaximumDifferenceBytes = 0
	s.NumberOfDiscontinuities = 0
	s.MaximumContiguousBlocks = 0
	s.MaximumContiguousBlockBytes = 0
	s.MaximumContiguousSamples = 0
	s.MinimumNativeSampleValue = NoNativeValue
	s.MaximumNativeSampleValue = NoNativeValue
	s.RecordingDurationUs = NoEntryTime
}

// Clone returns a copy of s, used when a new segment inherits the
// descriptive fields of the segment before it.
func (s *Section2) Clone() *Section2 {
	c := *s
	return &c
}

// Section2Bytes is the fixed on-disk width of a marshaled Section2.
const Section2Bytes = 8*7 + descFieldBytes*3 + 4 + 8 + 8 + 8 + 4 + 4 + 4 + 8 + 4 + 8 + 8 + 8 + 8 + 8

// MarshalBinary encodes s as Section2Bytes little-endian bytes, the
// metadata file's time-series aggregate section.
func (s *Section2) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Section2Bytes)
	off := 0
	putF64 := func(v float64) { binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v)); off += 8 }
	putI64 := func(v int64) { binary.LittleEndian.PutUint64(buf[off:], uint64(v)); off += 8 }
	putU64 := func(v uint64) { binary.LittleEndian.PutUint64(buf[off:], v); off += 8 }
	putU32 := func(v uint32) { binary.LittleEndian.PutUint32(buf[off:], v); off += 4 }
	putI32 := func(v int32) { binary.LittleEndian.PutUint32(buf[off:], uint32(v)); off += 4 }

	putF64(s.SamplingFrequency)
	putI64(s.BlockIntervalUs)
	putF64(s.UnitsConversionFactor)
	putF64(s.LowFrequencyFilterHz)
	putF64(s.HighFrequencyFilterHz)
	putF64(s.NotchFilterHz)
	putF64(s.ACLineFrequencyHz)
	putDescString(buf[off:off+descFieldBytes], s.ChannelDescription)
	off += descFieldBytes
	putDescString(buf[off:off+descFieldBytes], s.SessionDescription)
	off += descFieldBytes
	putDescString(buf[off:off+descFieldBytes], s.UnitsDescription)
	off += descFieldBytes
	putI32(s.AcquisitionChannelNumber)
	putI64(s.StartSample)
	putU64(s.NumberOfSamples)
	putU64(s.NumberOfBlocks)
	putU32(s.MaximumBlockBytes)
	putU32(s.MaximumBlockSamples)
	putU32(s.MaximumDifferenceBytes)
	putU64(s.NumberOfDiscontinuities)
	putU32(s.MaximumContiguousBlocks)
	putU64(s.MaximumContiguousBlockBytes)
	putU64(s.MaximumContiguousSamples)
	putF64(s.MinimumNativeSampleValue)
	putF64(s.MaximumNativeSampleValue)
	putI64(s.RecordingDurationUs)

	if off != Section2Bytes {
		return nil, errors.Errorf("mef3: internal section2 encode length mismatch: %d != %d", off, Section2Bytes)
	}
	return buf, nil
}

// UnmarshalBinary decodes a Section2Bytes-length buffer into s.
func (s *Section2) UnmarshalBinary(buf []byte) error {
	if len(buf) < Section2Bytes {
		return errors.Errorf("mef3: section2 buffer too short: %d < %d", len(buf), Section2Bytes)
	}
	off := 0
	getF64 := func() float64 { v := math.Float64frombits(binary.LittleEndian.Uint64(buf[off:])); off += 8; return v }
	getI64 := func() int64 { v := int64(binary.LittleEndian.Uint64(buf[off:])); off += 8; return v }
	getU64 := func() uint64 { v := binary.LittleEndian.Uint64(buf[off:]); off += 8; return v }
	getU32 := func() uint32 { v := binary.LittleEndian.Uint32(buf[off:]); off += 4; return v }
	getI32 := func() int32 { v := int32(binary.LittleEndian.Uint32(buf[off:])); off += 4; return v }

	s.SamplingFrequency = getF64()
	s.BlockIntervalUs = getI64()
	s.UnitsConversionFactor = getF64()
	s.LowFrequencyFilterHz = getF64()
	s.HighFrequencyFilterHz = getF64()
	s.NotchFilterHz = getF64()
	s.ACLineFrequencyHz = getF64()
	s.ChannelDescription = getDescString(buf[off : off+descFieldBytes])
	off += descFieldBytes
	s.SessionDescription = getDescString(buf[off : off+descFieldBytes])
	off += descFieldBytes
	s.UnitsDescription = getDescString(buf[off : off+descFieldBytes])
	off += descFieldBytes
	s.AcquisitionChannelNumber = getI32()
	s.StartSample = getI64()
	s.NumberOfSamples = getU64()
	s.NumberOfBlocks = getU64()
	s.MaximumBlockBytes = getU32()
	s.MaximumBlockSamples = getU32()
	s.MaximumDifferenceBytes = getU32()
	s.NumberOfDiscontinuities = getU64()
	s.MaximumContiguousBlocks = getU32()
	s.MaximumContiguousBlockBytes = getU64()
	s.MaximumContiguousSamples = getU64()
	s.MinimumNativeSampleValue = getF64()
	s.MaximumNativeSampleValue = getF64()
	s.RecordingDurationUs = getI64()
	return nil
}

// Section3 carries subject/recording attribution plus the two scalars the
// time-offset policy needs.
type Section3 struct {
	RecordingTimeOffsetUs int64
	GMTOffsetSeconds      int32

	SubjectName1     string
	SubjectName2     string
	SubjectID        string
	RecordingLocation string
	StudyComments    string
	ChannelComments  string
}

// Clone returns a copy of s, used by append_channel to carry subject
// attribution into a freshly opened segment.
func (s *Section3) Clone() *Section3 {
	c := *s
	return &c
}

// Section3Bytes is the fixed on-disk width of a marshaled Section3.
const Section3Bytes = 8 + 4 + descFieldBytes*6

// MarshalBinary encodes s as Section3Bytes little-endian bytes.
func (s *Section3) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Section3Bytes)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], uint64(s.RecordingTimeOffsetUs))
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], uint32(s.GMTOffsetSeconds))
	off += 4

	fields := []string{
		s.SubjectName1, s.SubjectName2, s.SubjectID,
		s.RecordingLocation, s.StudyComments, s.ChannelComments,
	}
	for _, f := range fields {
		putDescString(buf[off:off+descFieldBytes], f)
		off += descFieldBytes
	}
	if off != Section3Bytes {
		return nil, errors.Errorf("mef3: internal section3 encode length mismatch: %d != %d", off, Section3Bytes)
	}
	return buf, nil
}

// UnmarshalBinary decodes a Section3Bytes-length buffer into s.
func (s *Section3) UnmarshalBinary(buf []byte) error {
	if len(buf) < Section3Bytes {
		return errors.Errorf("mef3: section3 buffer too short: %d < %d", len(buf), Section3Bytes)
	}
	off := 0
	s.RecordingTimeOffsetUs = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8
	s.GMTOffsetSeconds = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += 4

	dests := []*string{
		&s.SubjectName1, &s.SubjectName2, &s.SubjectID,
		&s.RecordingLocation, &s.StudyComments, &s.ChannelComments,
	}
	for _, d := range dests {
		*d = getDescString(buf[off : off+descFieldBytes])
		off += descFieldBytes
	}
	return nil
}
